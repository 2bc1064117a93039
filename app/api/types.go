package api

import (
	"context"
	"time"

	"github.com/lysyi3m/newsbell/app/database"
	"github.com/lysyi3m/newsbell/app/feed"
	"github.com/lysyi3m/newsbell/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, items []feed.NewsItem, now time.Time) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type OpenerInterface interface {
	OnOpen(ctx context.Context, id string) (string, error)
}

type Handler struct {
	itemRepo    database.ItemStore
	sourceRepo  database.SourceStore
	configCache *feed.ConfigCache
	generator   GeneratorInterface
	opener      OpenerInterface
	scheduler   tasks.SchedulerInterface
	baseURL     string
	version     string
}

type itemView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Summary     string    `json:"summary"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Sources     []string  `json:"sources"`
	Category    string    `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	FirstSeenAt time.Time `json:"first_seen_at"`
	Read        bool      `json:"read"`
	Notified    bool      `json:"notified"`
}

func newItemView(item feed.NewsItem) itemView {
	return itemView{
		ID:          item.ID,
		Title:       item.Title,
		Summary:     item.Summary,
		URL:         item.URL,
		Source:      item.Source,
		Sources:     item.Sources,
		Category:    item.Category,
		PublishedAt: item.PublishedAt,
		FirstSeenAt: item.FirstSeenAt,
		Read:        item.Read,
		Notified:    item.Notified,
	}
}

type sourceResultView struct {
	Name    string `json:"name"`
	Fetched int    `json:"fetched"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

type reportView struct {
	ID               string             `json:"id"`
	Trigger          string             `json:"trigger"`
	StartedAt        time.Time          `json:"started_at"`
	FinishedAt       time.Time          `json:"finished_at"`
	Duration         string             `json:"duration"`
	Sources          []sourceResultView `json:"sources"`
	Fetched          int                `json:"fetched"`
	Normalized       int                `json:"normalized"`
	Rejected         int                `json:"rejected"`
	Duplicates       int                `json:"duplicates"`
	New              int                `json:"new"`
	Dispatched       int                `json:"dispatched"`
	DispatchFailures int                `json:"dispatch_failures"`
	Error            string             `json:"error,omitempty"`
}

func newReportView(r *tasks.CycleReport) *reportView {
	if r == nil {
		return nil
	}

	view := &reportView{
		ID:               r.ID,
		Trigger:          string(r.Trigger),
		StartedAt:        r.StartedAt,
		FinishedAt:       r.FinishedAt,
		Duration:         r.Duration().String(),
		Sources:          make([]sourceResultView, 0, len(r.Sources)),
		Fetched:          r.Fetched,
		Normalized:       r.Normalized,
		Rejected:         r.Rejected,
		Duplicates:       r.Duplicates,
		New:              r.New,
		Dispatched:       r.Dispatched,
		DispatchFailures: r.DispatchFailures,
	}
	if r.Err != nil {
		view.Error = r.Err.Error()
	}
	for _, s := range r.Sources {
		sv := sourceResultView{Name: s.Name, Fetched: s.Fetched, Skipped: s.Skipped}
		if s.Err != nil {
			sv.Error = s.Err.Error()
		}
		view.Sources = append(view.Sources, sv)
	}
	return view
}
