package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/newsbell/app/feed"
)

// Dispatcher shows one new item to the user. Rendering is the implementation's
// concern; a returned error means the item was not delivered.
type Dispatcher interface {
	Notify(ctx context.Context, item feed.NewsItem) error
}

type DispatchError struct {
	ItemID string
	Err    error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %s: %v", e.ItemID, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}

// Message is the wire form of a notification for webhook and broker targets.
type Message struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Sources     []string  `json:"sources"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	FirstSeenAt time.Time `json:"first_seen_at"`
}

func NewMessage(item feed.NewsItem) Message {
	return Message{
		ID:          item.ID,
		Title:       item.Title,
		Summary:     item.Summary,
		URL:         item.URL,
		Source:      item.Source,
		Sources:     item.Sources,
		Category:    item.Category,
		PublishedAt: item.PublishedAt,
		FirstSeenAt: item.FirstSeenAt,
	}
}

// LogDispatcher writes notifications to the structured log.
type LogDispatcher struct{}

func (LogDispatcher) Notify(ctx context.Context, item feed.NewsItem) error {
	slog.Info("New item",
		"id", item.ID,
		"source", item.Source,
		"category", item.Category,
		"title", item.Title,
		"url", item.URL)
	return nil
}

// Fanout delivers to every target. It fails only when no target accepted the
// item. Without targets, items go to the log.
type Fanout []Dispatcher

func (f Fanout) Notify(ctx context.Context, item feed.NewsItem) error {
	if len(f) == 0 {
		return LogDispatcher{}.Notify(ctx, item)
	}

	var errs []error
	for _, d := range f {
		if err := d.Notify(ctx, item); err != nil {
			errs = append(errs, err)
		}
	}

	if len(errs) == len(f) {
		return &DispatchError{ItemID: item.ID, Err: errors.Join(errs...)}
	}
	for _, err := range errs {
		slog.Warn("Notification target failed", "id", item.ID, "error", err)
	}
	return nil
}
