package feed

import (
	"errors"
	"testing"
	"time"
)

func fixedNormalizer(now time.Time) *Normalizer {
	n := NewNormalizer()
	n.Now = func() time.Time { return now }
	return n
}

func TestNormalizer_TrimsAndCleansFields(t *testing.T) {
	now := time.Date(2025, 5, 24, 16, 0, 0, 0, time.UTC)
	normalizer := fixedNormalizer(now)

	raw := RawItem{
		Title:   "  Company didn&#8217;t   fix users&#8217; issues \n",
		URL:     " https://example.com/item1?utm_source=rss ",
		Summary: "<p>This article discusses <b>privacy</b> &amp; IoT.</p>",
	}

	item, err := normalizer.Run(raw, "Wired")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if item.Title != "Company didn’t fix users’ issues" {
		t.Errorf("Unexpected title: %q", item.Title)
	}
	if item.Summary != "This article discusses privacy & IoT." {
		t.Errorf("Unexpected summary: %q", item.Summary)
	}
	if item.URL != "https://example.com/item1" {
		t.Errorf("Expected canonical URL, got: %q", item.URL)
	}
	if item.Source != "Wired" || len(item.Sources) != 1 || item.Sources[0] != "Wired" {
		t.Errorf("Unexpected source attribution: %q %v", item.Source, item.Sources)
	}
	if !item.FirstSeenAt.Equal(now) {
		t.Errorf("Expected first seen %v, got %v", now, item.FirstSeenAt)
	}
	if !item.PublishedAt.Equal(now) {
		t.Errorf("Expected published time to fall back to first seen, got %v", item.PublishedAt)
	}
	if item.Category != CategoryUnclassified || item.Read || item.Notified {
		t.Errorf("Unexpected initial state: %+v", item)
	}
	if len(item.ID) != 32 {
		t.Errorf("Expected 32 character id, got %q", item.ID)
	}
}

func TestNormalizer_MissingFields(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		name  string
		raw   RawItem
		field string
	}{
		{"empty title", RawItem{Title: "   ", URL: "https://example.com/a"}, "title"},
		{"markup-only title", RawItem{Title: "<br/>", URL: "https://example.com/a"}, "title"},
		{"empty url", RawItem{Title: "Title", URL: " "}, "url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := normalizer.Run(tt.raw, "A")
			if !errors.Is(err, ErrMissingField) {
				t.Fatalf("Expected ErrMissingField, got: %v", err)
			}
			var normErr *NormalizationError
			if !errors.As(err, &normErr) {
				t.Fatalf("Expected *NormalizationError, got %T", err)
			}
			if normErr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, normErr.Field)
			}
		})
	}
}

func TestNormalizer_IDStableAcrossSummaryWhitespace(t *testing.T) {
	normalizer := NewNormalizer()

	a, err := normalizer.Run(RawItem{Title: "GPT-5 released", URL: "http://x/1", Summary: "a  b"}, "A")
	if err != nil {
		t.Fatal(err)
	}
	b, err := normalizer.Run(RawItem{Title: " GPT-5 released ", URL: "http://x/1/", Summary: "\ta b\n"}, "A")
	if err != nil {
		t.Fatal(err)
	}

	if a.ID != b.ID {
		t.Errorf("Expected identical ids, got %s and %s", a.ID, b.ID)
	}
}

func TestNormalizer_SameURLFromTwoSourcesSharesID(t *testing.T) {
	normalizer := NewNormalizer()

	a, _ := normalizer.Run(RawItem{Title: "GPT-5 released", URL: "http://x/1"}, "A")
	b, _ := normalizer.Run(RawItem{Title: "GPT-5 released", URL: "http://x/1"}, "B")

	if a.ID != b.ID {
		t.Errorf("Expected the same id for the same link, got %s and %s", a.ID, b.ID)
	}
	if a.Source != "A" || b.Source != "B" {
		t.Errorf("Expected each record to keep its source, got %s and %s", a.Source, b.Source)
	}
}

func TestNormalizer_TitleFallbackID(t *testing.T) {
	published := time.Date(2025, 5, 23, 14, 15, 0, 0, time.UTC)
	first := fixedNormalizer(time.Date(2025, 5, 24, 1, 0, 0, 0, time.UTC))
	later := fixedNormalizer(time.Date(2025, 5, 25, 1, 0, 0, 0, time.UTC))

	raw := RawItem{Title: "Quantum Breakthrough", URL: "urn:story:42", PublishedAt: &published}

	a, err := first.Run(raw, "A")
	if err != nil {
		t.Fatal(err)
	}
	b, _ := later.Run(raw, "A")
	c, _ := first.Run(raw, "B")
	d, _ := first.Run(RawItem{Title: "quantum breakthrough", URL: "urn:story:42", PublishedAt: &published}, "A")

	if a.ID != b.ID {
		t.Error("Expected id to depend on published time, not on ingestion time")
	}
	if a.ID == c.ID {
		t.Error("Expected title based ids to include the source")
	}
	if a.ID != d.ID {
		t.Error("Expected title based ids to ignore letter case")
	}
	if !a.PublishedAt.Equal(published) {
		t.Errorf("Expected published %v, got %v", published, a.PublishedAt)
	}
}

func TestNormalizer_ParsesRawPublishedText(t *testing.T) {
	normalizer := NewNormalizer()

	tests := []struct {
		raw      string
		expected time.Time
	}{
		{"Sat, 24 May 2025 10:30:00 GMT", time.Date(2025, 5, 24, 10, 30, 0, 0, time.UTC)},
		{"2025-05-24T15:30:00Z", time.Date(2025, 5, 24, 15, 30, 0, 0, time.UTC)},
		{"2025-05-23", time.Date(2025, 5, 23, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		item, err := normalizer.Run(RawItem{Title: "T", URL: "https://example.com/t", PublishedRaw: tt.raw}, "A")
		if err != nil {
			t.Fatal(err)
		}
		if !item.PublishedAt.Equal(tt.expected) {
			t.Errorf("PublishedRaw %q: expected %v, got %v", tt.raw, tt.expected, item.PublishedAt)
		}
	}
}
