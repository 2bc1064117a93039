package source

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/newsbell/app/feed"
)

// RSS fetches an RSS, Atom or JSON feed over HTTP.
type RSS struct {
	name      string
	url       string
	maxItems  int
	http      *httpGetter
	parser    *feed.Parser
	extractor *feed.SummaryExtractor
}

func NewRSS(config *feed.SourceConfig, opts Options) *RSS {
	r := &RSS{
		name:     config.Name,
		url:      config.URL,
		maxItems: config.Settings.MaxItems,
		http:     &httpGetter{client: opts.HTTPClient, userAgent: opts.UserAgent},
		parser:   feed.NewParser(),
	}
	if config.Settings.ExtractSummary {
		r.extractor = opts.Extractor
		if r.extractor == nil {
			r.extractor = feed.NewSummaryExtractor()
		}
	}
	return r
}

func (r *RSS) Name() string {
	return r.name
}

func (r *RSS) Fetch(ctx context.Context) ([]feed.RawItem, error) {
	data, err := r.http.get(ctx, r.url)
	if err != nil {
		return nil, fetchError(r.name, err)
	}

	items, err := r.parser.Run(data)
	if err != nil {
		return nil, parseError(r.name, err)
	}

	if r.maxItems > 0 && len(items) > r.maxItems {
		items = items[:r.maxItems]
	}

	if r.extractor != nil {
		r.fillSummaries(ctx, items)
	}

	return items, nil
}

// fillSummaries fetches article pages for items without a summary. Failures
// leave the summary empty.
func (r *RSS) fillSummaries(ctx context.Context, items []feed.RawItem) {
	for i := range items {
		if items[i].Summary != "" || !feed.IsAbsoluteHTTP(items[i].URL) {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		page, err := r.http.get(ctx, items[i].URL)
		if err != nil {
			slog.Debug("Summary page fetch failed", "source", r.name, "url", items[i].URL, "error", err)
			continue
		}

		summary, err := r.extractor.Run(page, items[i].URL)
		if err != nil {
			slog.Debug("Summary extraction failed", "source", r.name, "url", items[i].URL, "error", err)
			continue
		}
		items[i].Summary = summary
	}
}
