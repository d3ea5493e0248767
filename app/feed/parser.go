package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// Parser is safe for concurrent use. gofeed.Parser keeps per-parse state in its
// translators and format parsers, so every Run gets its own.
type Parser struct {
	newParser func() *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		newParser: gofeed.NewParser,
	}
}

// Run parses RSS, Atom or JSON Feed data into the feed-level title and its raw entries.
func (p *Parser) Run(data []byte) (string, []RawEntry, error) {
	feed, err := p.newParser().Parse(bytes.NewReader(data))
	if err != nil {
		return "", nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.rawEntry(item))
	}

	return feed.Title, entries, nil
}

func (p *Parser) rawEntry(item *gofeed.Item) RawEntry {
	return RawEntry{
		Title:     optional(item.Title),
		Link:      optional(item.Link),
		Published: optional(item.Published),
		Updated:   optional(item.Updated),
		Summary:   optional(item.Description),
	}
}

// optional maps the zero value gofeed uses for absent elements to nil.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
