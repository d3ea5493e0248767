package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Normalize converts a raw entry from the source at sourceURL into an Entry.
// Entries are never dropped here.
func Normalize(raw RawEntry, feedTitle, sourceURL string) Entry {
	published := raw.Published
	if published == nil {
		published = raw.Updated
	}

	source := feedTitle
	if source == "" {
		source = sourceURL
	}

	return Entry{
		ID:           HashID(raw.Link, raw.Title),
		Title:        raw.Title,
		URL:          raw.Link,
		Source:       source,
		PublishedRaw: published,
		PublishedAt:  ParseDate(published),
		Summary:      raw.Summary,
	}
}

// ParseDate parses s with a best-effort parser. Timestamps without a zone are
// read as UTC. Returns nil on any failure.
func ParseDate(s *string) *time.Time {
	if s == nil {
		return nil
	}

	value := strings.TrimSpace(*s)
	if value == "" {
		return nil
	}

	parsed, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return nil
	}
	return &parsed
}
