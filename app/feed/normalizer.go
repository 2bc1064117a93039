package feed

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

var ErrMissingField = errors.New("missing required field")

// NormalizationError rejects a single raw item; the rest of the batch is unaffected.
type NormalizationError struct {
	Source string
	Field  string
}

func (e *NormalizationError) Error() string {
	return fmt.Sprintf("item from %s: %s: %s", e.Source, ErrMissingField, e.Field)
}

func (e *NormalizationError) Unwrap() error {
	return ErrMissingField
}

var publishedLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339Nano,
	time.RFC3339,
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type Normalizer struct {
	Now func() time.Time
}

func NewNormalizer() *Normalizer {
	return &Normalizer{Now: time.Now}
}

// Run converts a raw item into a canonical NewsItem. It has no side effects;
// the returned item is complete or an error is returned.
func (n *Normalizer) Run(raw RawItem, source string) (NewsItem, error) {
	return n.RunAt(raw, source, n.Now())
}

// RunAt is Run with an explicit first-seen time, so a whole cycle shares one.
func (n *Normalizer) RunAt(raw RawItem, source string, seenAt time.Time) (NewsItem, error) {
	title := CleanText(raw.Title)
	if title == "" {
		return NewsItem{}, &NormalizationError{Source: source, Field: "title"}
	}

	link := CanonicalURL(raw.URL)
	if link == "" {
		return NewsItem{}, &NormalizationError{Source: source, Field: "url"}
	}

	seenAt = seenAt.UTC()
	publishedAt := seenAt
	if parsed, ok := parsePublished(raw); ok {
		publishedAt = parsed.UTC()
	}

	item := NewsItem{
		Source:      source,
		Sources:     []string{source},
		Title:       title,
		Summary:     CleanText(raw.Summary),
		URL:         link,
		PublishedAt: publishedAt,
		FirstSeenAt: seenAt,
		Category:    CategoryUnclassified,
	}
	item.ID = n.itemID(item, raw)

	return item, nil
}

// itemID is source independent for real links so that two sources reporting the
// same article resolve to one record. Without a usable link the identity falls
// back to source, title and the best known timestamp.
func (n *Normalizer) itemID(item NewsItem, raw RawItem) string {
	if IsAbsoluteHTTP(item.URL) {
		return hashKey("url", item.URL)
	}

	stamp := item.PublishedAt
	if _, ok := parsePublished(raw); !ok {
		stamp = item.FirstSeenAt
	}
	return hashKey("title", item.Source, Fold(item.Title), stamp.UTC().Format(time.RFC3339))
}

func hashKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])[:32]
}

func parsePublished(raw RawItem) (time.Time, bool) {
	if raw.PublishedAt != nil && !raw.PublishedAt.IsZero() {
		return *raw.PublishedAt, true
	}

	value := strings.TrimSpace(raw.PublishedRaw)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CleanText decodes entities, strips markup, normalises to NFC and collapses whitespace.
func CleanText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	s = stripMarkup(s)
	s = norm.NFC.String(s)

	return strings.Join(strings.Fields(s), " ")
}

// stripMarkup returns the text content of an HTML fragment. Entities are decoded
// exactly once, either by the HTML parser or by html.UnescapeString.
func stripMarkup(s string) string {
	if !strings.ContainsAny(s, "<>") {
		return html.UnescapeString(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return html.UnescapeString(s)
	}
	return doc.Text()
}

// Fold returns the Unicode case-folded form of s, used for case-insensitive matching.
func Fold(s string) string {
	return cases.Fold().String(s)
}
