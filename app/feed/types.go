package feed

import (
	"time"
)

const CategoryUnclassified = "unclassified"

// Source adapter output

// RawItem is a candidate item exactly as a source returned it. Any field may be
// empty or malformed; Normalizer is the only place that turns it into a NewsItem.
type RawItem struct {
	GUID         string
	Title        string
	URL          string
	Summary      string
	PublishedAt  *time.Time
	PublishedRaw string // unparsed date text when the source could not parse it
}

// Canonical record

type NewsItem struct {
	ID          string
	Source      string   // first source that reported the item
	Sources     []string // every source seen in the ingesting cycle, Sources[0] == Source
	Title       string
	Summary     string
	URL         string
	PublishedAt time.Time
	FirstSeenAt time.Time
	Category    string
	Read        bool
	Notified    bool
}

// HasSource reports whether name is attributed to the item.
func (i NewsItem) HasSource(name string) bool {
	for _, s := range i.Sources {
		if s == name {
			return true
		}
	}
	return i.Source == name
}

// Configuration types

const (
	SourceKindRSS     = "rss"
	SourceKindNewsAPI = "newsapi"
)

type SourceConfig struct {
	Name     string         // Derived from filename (without .yml extension)
	URL      string         `yaml:"url"`
	Kind     string         `yaml:"kind"`
	Settings SourceSettings `yaml:"settings"`
}

type SourceSettings struct {
	Enabled        bool   `yaml:"enabled"`
	Timeout        int    `yaml:"timeout"` // seconds, overrides the global per-source timeout
	MaxItems       int    `yaml:"max_items"`
	ExtractSummary bool   `yaml:"extract_summary"` // fetch the article page when an item has no summary
	APIKey         string `yaml:"api_key"`         // newsapi only, $VARS are expanded from the environment
}

type Rule struct {
	Category string   `yaml:"category"`
	Keywords []string `yaml:"keywords"`
}
