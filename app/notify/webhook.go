package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/lysyi3m/newsbell/app/feed"
)

// WebhookDispatcher POSTs each notification as JSON, for a desktop helper
// process or a chat bridge listening on a local URL.
type WebhookDispatcher struct {
	url       string
	userAgent string
	client    *http.Client
}

func NewWebhookDispatcher(url, userAgent string) *WebhookDispatcher {
	return &WebhookDispatcher{
		url:       url,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (w *WebhookDispatcher) Notify(ctx context.Context, item feed.NewsItem) error {
	if w.url == "" || w.client == nil {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("webhook dispatcher misconfigured")}
	}

	body, err := json.Marshal(NewMessage(item))
	if err != nil {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("marshal message: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("new request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if w.userAgent != "" {
		req.Header.Set("User-Agent", w.userAgent)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DispatchError{ItemID: item.ID, Err: fmt.Errorf("webhook error: %s", resp.Status)}
	}

	return nil
}
