package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/newsbell/app/feed"
)

// URLHandler hands a link to the platform browser.
type URLHandler interface {
	OpenURL(ctx context.Context, url string) error
}

type URLHandlerFunc func(ctx context.Context, url string) error

func (f URLHandlerFunc) OpenURL(ctx context.Context, url string) error {
	return f(ctx, url)
}

type ItemStore interface {
	Get(ctx context.Context, id string) (*feed.NewsItem, error)
	MarkRead(ctx context.Context, id string) error
}

// Opener handles a click on a notification: the item becomes read and its
// link goes to the URL handler.
type Opener struct {
	store   ItemStore
	handler URLHandler
}

func NewOpener(store ItemStore, handler URLHandler) *Opener {
	return &Opener{store: store, handler: handler}
}

func (o *Opener) OnOpen(ctx context.Context, id string) (string, error) {
	item, err := o.store.Get(ctx, id)
	if err != nil {
		return "", fmt.Errorf("failed to get item: %w", err)
	}

	if err := o.store.MarkRead(ctx, id); err != nil {
		return "", fmt.Errorf("failed to mark item read: %w", err)
	}

	if o.handler != nil {
		if err := o.handler.OpenURL(ctx, item.URL); err != nil {
			slog.Warn("URL handler failed", "id", id, "url", item.URL, "error", err)
		}
	}

	return item.URL, nil
}
