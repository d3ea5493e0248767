package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type Collector struct {
	fetcher     Fetcher
	scorer      *Scorer
	concurrency int
}

func NewCollector(fetcher Fetcher, scorer *Scorer, concurrency int) *Collector {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	if scorer == nil {
		scorer = NewScorer()
	}
	return &Collector{
		fetcher:     fetcher,
		scorer:      scorer,
		concurrency: concurrency,
	}
}

// Collect runs every category of feedConfig independently and returns their
// results in configuration order.
func (c *Collector) Collect(ctx context.Context, feedConfig *Config) []CategoryResult {
	results := make([]CategoryResult, len(feedConfig.Categories))

	var wg sync.WaitGroup
	for i, category := range feedConfig.Categories {
		wg.Add(1)
		go func(i int, category Category) {
			defer wg.Done()
			results[i] = c.CollectCategory(ctx, category, feedConfig.KeywordsFor(category.Name), feedConfig.MaxItemsPerCategory)
		}(i, category)
	}
	wg.Wait()

	return results
}

// CollectCategory fetches all sources of one category, then normalizes,
// deduplicates, scores and ranks their entries. Source failures are logged and
// recorded, never returned.
func (c *Collector) CollectCategory(ctx context.Context, category Category, keywords []string, maxItems int) CategoryResult {
	start := time.Now()
	if maxItems <= 0 {
		maxItems = DefaultMaxItemsPerCategory
	}

	outcomes := c.fetchSources(ctx, category.Sources)

	result := CategoryResult{Name: category.Name}
	deduper := NewDeduper()
	candidates := make([]Entry, 0)
	duplicateCount := 0

	// Single writer: outcomes are merged in configured source order once all
	// fetches have finished.
	for i, outcome := range outcomes {
		sourceURL := category.Sources[i]
		if !outcome.OK() {
			slog.Warn("Source fetch failed",
				"category", category.Name,
				"url", sourceURL,
				"error", outcome.Err)
			result.Failures = append(result.Failures, SourceFailure{URL: sourceURL, Err: outcome.Err})
			continue
		}

		for _, raw := range outcome.Entries {
			entry := Normalize(raw, outcome.FeedTitle, sourceURL)
			if deduper.Seen(entry.URL, entry.Title) {
				duplicateCount++
				continue
			}
			candidates = append(candidates, entry)
		}
	}

	now := c.scorer.now()
	for i := range candidates {
		candidates[i].Score = ScoreAt(candidates[i], keywords, now)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	if len(candidates) > maxItems {
		candidates = candidates[:maxItems]
	}
	result.Entries = candidates

	slog.Info("Category collected",
		"category", category.Name,
		"duration", time.Since(start),
		"sources", len(category.Sources),
		"failed", len(result.Failures),
		"duplicates", duplicateCount,
		"kept", len(result.Entries))

	return result
}

// fetchSources fetches every source concurrently, bounded by the collector's
// concurrency. Each goroutine writes only its own slot.
func (c *Collector) fetchSources(ctx context.Context, sources []string) []FetchResult {
	outcomes := make([]FetchResult, len(sources))
	semaphore := make(chan struct{}, c.concurrency)

	var wg sync.WaitGroup
	for i, sourceURL := range sources {
		wg.Add(1)
		go func(i int, sourceURL string) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
			case <-ctx.Done():
				outcomes[i] = FetchResult{Err: ctx.Err()}
				return
			}
			defer func() { <-semaphore }()

			outcomes[i] = c.safeFetch(ctx, sourceURL)
		}(i, sourceURL)
	}
	wg.Wait()

	return outcomes
}

// safeFetch reports a panicking fetcher as a failed outcome.
func (c *Collector) safeFetch(ctx context.Context, sourceURL string) (result FetchResult) {
	defer func() {
		if r := recover(); r != nil {
			result = FetchResult{Err: fmt.Errorf("fetcher panicked: %v", r)}
		}
	}()
	return c.fetcher.Fetch(ctx, sourceURL)
}
