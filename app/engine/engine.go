package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/lysyi3m/newsbell/app/feed"
)

var ErrStoreUnavailable = errors.New("history store unavailable")

// Store is the part of the history the engine reads. It never writes.
type Store interface {
	Exists(ctx context.Context, id string) (bool, error)
}

type Result struct {
	New        []feed.NewsItem // classified, in dispatch order
	Duplicates int
}

type Engine struct {
	store      Store
	classifier *feed.Classifier
}

func New(store Store, classifier *feed.Classifier) *Engine {
	return &Engine{store: store, classifier: classifier}
}

// Process decides which items of a normalized batch are new. Items sharing an
// id within the batch collapse into the first one, which inherits the other
// sources. Nothing is persisted; on a store error no result is returned.
func (e *Engine) Process(ctx context.Context, batch []feed.NewsItem) (Result, error) {
	var result Result

	distinct := make([]feed.NewsItem, 0, len(batch))
	index := make(map[string]int, len(batch))

	for _, item := range batch {
		if i, ok := index[item.ID]; ok {
			distinct[i] = mergeSources(distinct[i], item)
			result.Duplicates++
			continue
		}
		index[item.ID] = len(distinct)
		item.Sources = append([]string(nil), item.Sources...)
		distinct = append(distinct, item)
	}

	for _, item := range distinct {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		exists, err := e.store.Exists(ctx, item.ID)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		if exists {
			result.Duplicates++
			continue
		}

		item.Category = e.classifier.Run(item.Title, item.Summary)
		result.New = append(result.New, item)
	}

	SortForDispatch(result.New)

	slog.Debug("Batch processed", "items", len(batch), "new", len(result.New), "duplicates", result.Duplicates)

	return result, nil
}

// SortForDispatch orders items by first-seen time, then id.
func SortForDispatch(items []feed.NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].FirstSeenAt.Equal(items[j].FirstSeenAt) {
			return items[i].FirstSeenAt.Before(items[j].FirstSeenAt)
		}
		return items[i].ID < items[j].ID
	})
}

func mergeSources(into, from feed.NewsItem) feed.NewsItem {
	candidates := append([]string{from.Source}, from.Sources...)
	for _, name := range candidates {
		if name != "" && !into.HasSource(name) {
			into.Sources = append(into.Sources, name)
		}
	}
	return into
}
