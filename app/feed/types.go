package feed

import (
	"time"
)

// Feed processing types

// RawEntry is one entry as yielded by a feed source. Every field is optional.
type RawEntry struct {
	Title     *string
	Link      *string
	Published *string
	Updated   *string
	Summary   *string
}

// Entry is the canonical record produced by Normalize.
type Entry struct {
	ID           string
	Title        *string
	URL          *string
	Source       string
	PublishedRaw *string
	PublishedAt  *time.Time
	Summary      *string

	Score float64 // ranking artifact, never exported
}

// FetchResult is the outcome of fetching and parsing one source.
// Exactly one of Err or the feed data is meaningful.
type FetchResult struct {
	FeedTitle string
	Entries   []RawEntry
	Err       error
}

func (r FetchResult) OK() bool {
	return r.Err == nil
}

// SourceFailure records a source that contributed nothing to its category.
type SourceFailure struct {
	URL string
	Err error
}

type CategoryResult struct {
	Name     string
	Entries  []Entry
	Failures []SourceFailure
}

// Configuration types

type Config struct {
	Categories          CategoryList        `yaml:"categories"`
	Keywords            map[string][]string `yaml:"keywords"`
	MaxItemsPerCategory int                 `yaml:"max_items_per_category"`
	Settings            ConfigSettings      `yaml:"settings"`
}

type Category struct {
	Name    string
	Sources []string
}

// CategoryList keeps categories in the order they appear in the YAML document.
type CategoryList []Category

type ConfigSettings struct {
	Timeout     int    `yaml:"timeout"`     // seconds
	Concurrency int    `yaml:"concurrency"` // parallel fetches per category
	UserAgent   string `yaml:"user_agent"`
}

func (c *Config) KeywordsFor(category string) []string {
	if c.Keywords == nil {
		return nil
	}
	return c.Keywords[category]
}

func (c *Config) GetTimeout() time.Duration {
	if c.Settings.Timeout <= 0 {
		return DefaultTimeout * time.Second
	}
	return time.Duration(c.Settings.Timeout) * time.Second
}

func (l CategoryList) Get(name string) (Category, bool) {
	for _, category := range l {
		if category.Name == name {
			return category, true
		}
	}
	return Category{}, false
}
