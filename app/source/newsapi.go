package source

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/newsbell/app/feed"
)

// NewsAPI reads a NewsAPI-shaped JSON article list.
type NewsAPI struct {
	name     string
	url      string
	maxItems int
	http     *httpGetter
}

type newsAPIResponse struct {
	Status   string           `json:"status"`
	Code     string           `json:"code"`
	Message  string           `json:"message"`
	Articles []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func NewNewsAPI(config *feed.SourceConfig, opts Options) *NewsAPI {
	headers := map[string]string{"Accept": "application/json"}
	if config.Settings.APIKey != "" {
		headers["X-Api-Key"] = config.Settings.APIKey
	}

	return &NewsAPI{
		name:     config.Name,
		url:      config.URL,
		maxItems: config.Settings.MaxItems,
		http:     &httpGetter{client: opts.HTTPClient, userAgent: opts.UserAgent, headers: headers},
	}
}

func (n *NewsAPI) Name() string {
	return n.name
}

func (n *NewsAPI) Fetch(ctx context.Context) ([]feed.RawItem, error) {
	data, err := n.http.get(ctx, n.url)
	if err != nil {
		return nil, fetchError(n.name, err)
	}

	var resp newsAPIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, parseError(n.name, fmt.Errorf("failed to decode response: %w", err))
	}
	if resp.Status != "" && resp.Status != "ok" {
		return nil, parseError(n.name, fmt.Errorf("api error %s: %s", resp.Code, resp.Message))
	}

	items := make([]feed.RawItem, 0, len(resp.Articles))
	for _, article := range resp.Articles {
		item := feed.RawItem{
			Title:   article.Title,
			URL:     article.URL,
			Summary: article.Description,
		}
		if item.Summary == "" {
			item.Summary = article.Content
		}
		if t, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
			item.PublishedAt = &t
		} else {
			item.PublishedRaw = article.PublishedAt
		}
		items = append(items, item)

		if n.maxItems > 0 && len(items) == n.maxItems {
			break
		}
	}

	return items, nil
}
