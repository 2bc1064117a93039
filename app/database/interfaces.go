package database

import (
	"context"
	"time"

	"github.com/lysyi3m/newsbell/app/feed"
)

type ItemStore interface {
	Exists(ctx context.Context, id string) (bool, error)
	Append(ctx context.Context, item feed.NewsItem) error
	AppendBatch(ctx context.Context, items []feed.NewsItem) (int, error)
	MarkRead(ctx context.Context, id string) error
	MarkNotified(ctx context.Context, id string) error

	Get(ctx context.Context, id string) (*feed.NewsItem, error)
	Query(ctx context.Context, filter Filter) ([]feed.NewsItem, error)
	Stats(ctx context.Context) (Stats, error)
	Latest(ctx context.Context, limit int) ([]feed.NewsItem, error)
	Unread(ctx context.Context, limit int) ([]feed.NewsItem, error)
}

type SourceStore interface {
	Upsert(ctx context.Context, name, url, kind string) error
	RecordSuccess(ctx context.Context, name string, at time.Time, count int) error
	RecordFailure(ctx context.Context, name string, at time.Time, cause error) error
	Get(ctx context.Context, name string) (*SourceStatus, error)
	List(ctx context.Context) ([]SourceStatus, error)
}

var (
	_ ItemStore   = (*ItemRepository)(nil)
	_ SourceStore = (*SourceRepository)(nil)
)
