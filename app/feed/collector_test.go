package feed

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeFetcher serves canned results keyed by URL. Unknown URLs fail.
type fakeFetcher struct {
	results map[string]FetchResult
	panics  map[string]bool

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) FetchResult {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()

	if f.panics[url] {
		panic("boom")
	}
	result, ok := f.results[url]
	if !ok {
		return FetchResult{Err: errors.New("no such feed")}
	}
	return result
}

func fixedScorer() *Scorer {
	return &Scorer{Now: func() time.Time { return scoreNow }}
}

func rawEntry(link, title string, age time.Duration) RawEntry {
	published := scoreNow.Add(-age).Format(time.RFC3339)
	return RawEntry{Title: ptr(title), Link: ptr(link), Published: &published}
}

// captureLogs swaps the default logger for one writing to the returned buffer.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })
	return &buf
}

func warningLines(logs string) []string {
	var lines []string
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "level=WARN") {
			lines = append(lines, line)
		}
	}
	return lines
}

func TestCollectCategoryFailureIsolation(t *testing.T) {
	logs := captureLogs(t)

	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://b.example/rss": {
			FeedTitle: "B",
			Entries: []RawEntry{
				rawEntry("https://b.example/1", "One", time.Hour),
				rawEntry("https://b.example/2", "Two", 2*time.Hour),
			},
		},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 2)

	category := Category{Name: "Sports", Sources: []string{"https://a.example/rss", "https://b.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, nil, 25)

	if len(result.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(result.Entries))
	}
	for _, entry := range result.Entries {
		if entry.Source != "B" {
			t.Errorf("Expected entries from B only, got source '%s'", entry.Source)
		}
	}

	if len(result.Failures) != 1 {
		t.Fatalf("Expected 1 recorded failure, got %d", len(result.Failures))
	}
	if result.Failures[0].URL != "https://a.example/rss" {
		t.Errorf("Expected failure for 'https://a.example/rss', got '%s'", result.Failures[0].URL)
	}
	if result.Failures[0].Err == nil {
		t.Error("Expected failure cause to be kept")
	}

	warnings := warningLines(logs.String())
	if len(warnings) != 1 {
		t.Fatalf("Expected 1 warning, got %d: %v", len(warnings), warnings)
	}
	for _, want := range []string{"category=Sports", "url=https://a.example/rss", "no such feed"} {
		if !strings.Contains(warnings[0], want) {
			t.Errorf("Expected warning to contain '%s', got: %s", want, warnings[0])
		}
	}
}

func TestCollectCategoryBound(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://a.example/rss": {
			FeedTitle: "A",
			Entries: []RawEntry{
				rawEntry("https://a.example/5h", "Five", 5*time.Hour),
				rawEntry("https://a.example/1h", "One", time.Hour),
				rawEntry("https://a.example/4h", "Four", 4*time.Hour),
				rawEntry("https://a.example/2h", "Two", 2*time.Hour),
				rawEntry("https://a.example/3h", "Three", 3*time.Hour),
			},
		},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 1)

	category := Category{Name: "News", Sources: []string{"https://a.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, nil, 3)

	if len(result.Entries) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(result.Entries))
	}

	expected := []string{"One", "Two", "Three"}
	for i, title := range expected {
		if *result.Entries[i].Title != title {
			t.Errorf("Expected entry %d to be '%s', got '%s'", i, title, *result.Entries[i].Title)
		}
	}

	for i := 1; i < len(result.Entries); i++ {
		if result.Entries[i].Score > result.Entries[i-1].Score {
			t.Errorf("Expected descending scores, got %f after %f", result.Entries[i].Score, result.Entries[i-1].Score)
		}
	}
}

func TestCollectCategoryDefaultBound(t *testing.T) {
	entries := make([]RawEntry, 0, 30)
	for i := 0; i < 30; i++ {
		entries = append(entries, RawEntry{Link: ptr("https://a.example/" + string(rune('a'+i)))})
	}
	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://a.example/rss": {FeedTitle: "A", Entries: entries},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 1)

	category := Category{Name: "News", Sources: []string{"https://a.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, nil, 0)

	if len(result.Entries) != DefaultMaxItemsPerCategory {
		t.Errorf("Expected %d entries, got %d", DefaultMaxItemsPerCategory, len(result.Entries))
	}
}

func TestCollectCategoryDeduplicatesAcrossSources(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://a.example/rss": {
			FeedTitle: "A",
			Entries: []RawEntry{
				{Link: ptr("https://x/story"), Title: ptr(" Big  Story ")},
				{Link: ptr("https://x/story"), Title: ptr(" Big  Story ")},
			},
		},
		"https://b.example/rss": {
			FeedTitle: "B",
			Entries: []RawEntry{
				{Link: ptr("https://x/story"), Title: ptr("big story")},
				{Link: ptr("https://x/other"), Title: ptr("Other")},
			},
		},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 2)

	category := Category{Name: "News", Sources: []string{"https://a.example/rss", "https://b.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, nil, 25)

	if len(result.Entries) != 2 {
		t.Fatalf("Expected 2 entries after dedup, got %d", len(result.Entries))
	}

	// The first encounter survives, keeping its unnormalized identity
	first := result.Entries[0]
	if first.Source != "A" || *first.Title != " Big  Story " {
		t.Errorf("Expected first encounter from A to survive, got %s/%q", first.Source, *first.Title)
	}
	if first.ID != HashID(ptr("https://x/story"), ptr(" Big  Story ")) {
		t.Errorf("Expected identity of the surviving entry, got '%s'", first.ID)
	}

	seen := make(map[string]bool)
	for _, entry := range result.Entries {
		if seen[entry.ID] {
			t.Errorf("Duplicate identity in result: %s", entry.ID)
		}
		seen[entry.ID] = true
	}
}

func TestCollectCategoryNullSafe(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://a.example/rss": {
			Entries: []RawEntry{{Link: ptr("https://a.example/bare")}},
		},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 1)

	category := Category{Name: "News", Sources: []string{"https://a.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, []string{"anything"}, 25)

	if len(result.Entries) != 1 {
		t.Fatalf("Expected entry to be kept, got %d entries", len(result.Entries))
	}

	entry := result.Entries[0]
	if entry.Score != 0 {
		t.Errorf("Expected score 0.0, got %f", entry.Score)
	}
	if entry.Title != nil || entry.Summary != nil || entry.PublishedAt != nil {
		t.Error("Expected missing fields to stay nil")
	}
	if entry.Source != "https://a.example/rss" {
		t.Errorf("Expected source to fall back to the feed URL, got '%s'", entry.Source)
	}
}

func TestCollectCategoryStableTies(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://a.example/rss": {
			FeedTitle: "A",
			Entries: []RawEntry{
				{Link: ptr("https://a.example/1")},
				{Link: ptr("https://a.example/2")},
			},
		},
		"https://b.example/rss": {
			FeedTitle: "B",
			Entries: []RawEntry{
				{Link: ptr("https://b.example/3")},
				{Link: ptr("https://b.example/4")},
			},
		},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 2)

	category := Category{Name: "News", Sources: []string{"https://a.example/rss", "https://b.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, nil, 25)

	expected := []string{"https://a.example/1", "https://a.example/2", "https://b.example/3", "https://b.example/4"}
	if len(result.Entries) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(result.Entries))
	}
	for i, link := range expected {
		if *result.Entries[i].URL != link {
			t.Errorf("Expected entry %d to be '%s', got '%s'", i, link, *result.Entries[i].URL)
		}
	}
}

func TestCollectCategoryKeywordsRank(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://a.example/rss": {
			FeedTitle: "A",
			Entries: []RawEntry{
				{Link: ptr("https://a.example/plain"), Title: ptr("Weather update")},
				{Link: ptr("https://a.example/match"), Title: ptr("Championship final tonight")},
			},
		},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 1)

	category := Category{Name: "Sports", Sources: []string{"https://a.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, []string{"final"}, 25)

	if *result.Entries[0].URL != "https://a.example/match" {
		t.Errorf("Expected keyword match to rank first, got '%s'", *result.Entries[0].URL)
	}
	if !almostEqual(result.Entries[0].Score, 0.06) {
		t.Errorf("Expected score 0.06, got %f", result.Entries[0].Score)
	}
}

func TestCollectCategoryRecoversFromPanickingFetcher(t *testing.T) {
	fetcher := &fakeFetcher{
		results: map[string]FetchResult{
			"https://b.example/rss": {FeedTitle: "B", Entries: []RawEntry{{Link: ptr("https://b.example/1")}}},
		},
		panics: map[string]bool{"https://a.example/rss": true},
	}
	collector := NewCollector(fetcher, fixedScorer(), 2)

	category := Category{Name: "News", Sources: []string{"https://a.example/rss", "https://b.example/rss"}}
	result := collector.CollectCategory(context.Background(), category, nil, 25)

	if len(result.Entries) != 1 {
		t.Errorf("Expected 1 entry, got %d", len(result.Entries))
	}
	if len(result.Failures) != 1 {
		t.Errorf("Expected 1 failure, got %d", len(result.Failures))
	}
}

func TestCollectCategoryCancelledContext(t *testing.T) {
	fetcher := &fakeFetcher{results: map[string]FetchResult{}}
	collector := NewCollector(fetcher, fixedScorer(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	category := Category{Name: "News", Sources: []string{"https://a.example/rss", "https://b.example/rss"}}
	result := collector.CollectCategory(ctx, category, nil, 25)

	if len(result.Entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(result.Entries))
	}
	if len(result.Failures) != 2 {
		t.Errorf("Expected every source to fail, got %d failures", len(result.Failures))
	}
}

func TestCollectAllCategories(t *testing.T) {
	shared := RawEntry{Link: ptr("https://x/shared"), Title: ptr("Shared")}
	fetcher := &fakeFetcher{results: map[string]FetchResult{
		"https://a.example/rss": {FeedTitle: "A", Entries: []RawEntry{shared}},
		"https://b.example/rss": {FeedTitle: "B", Entries: []RawEntry{shared}},
	}}
	collector := NewCollector(fetcher, fixedScorer(), 2)

	feedConfig := &Config{
		Categories: CategoryList{
			{Name: "Zeta", Sources: []string{"https://a.example/rss"}},
			{Name: "Alpha", Sources: []string{"https://b.example/rss", "https://down.example/rss"}},
		},
		Keywords:            map[string][]string{"Alpha": {"shared"}},
		MaxItemsPerCategory: 25,
	}

	results := collector.Collect(context.Background(), feedConfig)

	if len(results) != 2 {
		t.Fatalf("Expected 2 category results, got %d", len(results))
	}
	if results[0].Name != "Zeta" || results[1].Name != "Alpha" {
		t.Errorf("Expected configuration order, got %s, %s", results[0].Name, results[1].Name)
	}

	// Dedup is scoped to one category
	if len(results[0].Entries) != 1 || len(results[1].Entries) != 1 {
		t.Errorf("Expected the shared entry in both categories, got %d and %d", len(results[0].Entries), len(results[1].Entries))
	}
	if results[0].Entries[0].Score != 0 {
		t.Errorf("Expected no keyword score for Zeta, got %f", results[0].Entries[0].Score)
	}
	if !almostEqual(results[1].Entries[0].Score, 0.06) {
		t.Errorf("Expected keyword score for Alpha, got %f", results[1].Entries[0].Score)
	}
	if len(results[1].Failures) != 1 {
		t.Errorf("Expected 1 failure in Alpha, got %d", len(results[1].Failures))
	}

	if len(fetcher.calls) != 3 {
		t.Errorf("Expected 3 fetches, got %d", len(fetcher.calls))
	}
}
