package feed

import (
	"bytes"
	"cmp"
	"fmt"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS, Atom or JSON feed document into raw candidate items.
func (p *Parser) Run(data []byte) ([]RawItem, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]RawItem, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		items = append(items, p.rawItem(item))
	}

	return items, nil
}

func (p *Parser) rawItem(item *gofeed.Item) RawItem {
	raw := RawItem{
		GUID:    item.GUID,
		Title:   item.Title,
		URL:     item.Link,
		Summary: cmp.Or(item.Description, item.Content),
	}

	switch {
	case item.PublishedParsed != nil:
		raw.PublishedAt = item.PublishedParsed
	case item.UpdatedParsed != nil:
		raw.PublishedAt = item.UpdatedParsed
	default:
		raw.PublishedRaw = cmp.Or(item.Published, item.Updated)
	}

	return raw
}
