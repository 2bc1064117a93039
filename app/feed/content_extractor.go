package feed

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const maxSummaryRunes = 400

// SummaryExtractor derives a short summary from an article page for sources
// whose feeds carry titles only.
type SummaryExtractor struct{}

func NewSummaryExtractor() *SummaryExtractor {
	return &SummaryExtractor{}
}

func (e *SummaryExtractor) Run(data []byte, pageURL string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("HTML data is empty")
	}

	parsedURL, _ := url.Parse(pageURL)

	article, err := readability.FromReader(bytes.NewReader(data), parsedURL)
	if err != nil {
		return "", fmt.Errorf("failed to extract content: %w", err)
	}

	summary := strings.TrimSpace(article.Excerpt)
	if summary == "" {
		summary = strings.Join(strings.Fields(article.TextContent), " ")
	}
	if summary == "" {
		return "", fmt.Errorf("no content extracted from HTML data")
	}

	slog.Debug("Summary extracted", "title", article.Title, "length", len(summary))

	return truncateRunes(summary, maxSummaryRunes), nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
