package tasks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lysyi3m/news-hub/app/database"
	"github.com/lysyi3m/news-hub/app/feed"
)

const testFeedsConfig = `
categories:
  Sports:
    - "https://a.example/rss"
    - "https://b.example/rss"
  Campus:
    - "https://c.example/rss"
keywords:
  Sports: ["final"]
max_items_per_category: 5
`

func writeFeedsConfig(t *testing.T, content string) string {
	t.Helper()

	configFile := filepath.Join(t.TempDir(), "feeds.yaml")
	if err := os.WriteFile(configFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return configFile
}

func loadConfigCache(t *testing.T, content string) (*feed.ConfigCache, string) {
	t.Helper()

	configFile := writeFeedsConfig(t, content)
	configCache := feed.NewConfigCache(configFile)
	if err := configCache.Run(); err != nil {
		t.Fatalf("Failed to load feed configuration: %v", err)
	}
	return configCache, configFile
}

func strPtr(s string) *string {
	return &s
}

// MockFetcher serves canned results keyed by URL. Unknown URLs fail.
type MockFetcher struct {
	mu      sync.Mutex
	results map[string]feed.FetchResult
	calls   int
}

func (m *MockFetcher) Fetch(ctx context.Context, url string) feed.FetchResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if result, ok := m.results[url]; ok {
		return result
	}
	return feed.FetchResult{Err: errors.New("connection refused")}
}

func (m *MockFetcher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func newMockFetcher() *MockFetcher {
	return &MockFetcher{results: map[string]feed.FetchResult{
		"https://b.example/rss": {
			FeedTitle: "B",
			Entries: []feed.RawEntry{
				{Title: strPtr("Cup final tonight"), Link: strPtr("https://b.example/1")},
				{Title: strPtr("Transfer news"), Link: strPtr("https://b.example/2")},
			},
		},
		"https://c.example/rss": {
			FeedTitle: "C",
			Entries: []feed.RawEntry{
				{Title: strPtr("Tuition vote"), Link: strPtr("https://c.example/1")},
			},
		},
	}}
}

// MockSnapshotRepository keeps snapshots in memory. The first failSaves saves fail.
type MockSnapshotRepository struct {
	mu        sync.Mutex
	snapshots []database.SnapshotRecord
	failSaves int
	saveCalls int
	pruneKeep int
}

var _ database.SnapshotRepository = (*MockSnapshotRepository)(nil)

func (m *MockSnapshotRepository) SaveSnapshot(snapshot database.SnapshotRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.saveCalls++
	if m.saveCalls <= m.failSaves {
		return errors.New("database is locked")
	}
	m.snapshots = append(m.snapshots, snapshot)
	return nil
}

func (m *MockSnapshotRepository) GetLatestSnapshot() (*database.SnapshotRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.snapshots) == 0 {
		return nil, nil
	}
	latest := m.snapshots[len(m.snapshots)-1]
	return &latest, nil
}

func (m *MockSnapshotRepository) GetSnapshotCount() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots), nil
}

func (m *MockSnapshotRepository) PruneSnapshots(keep int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pruneKeep = keep
	return 0, nil
}

type MockEntryRepository struct {
	mu      sync.Mutex
	entries []database.EntryRecord
	seenAt  time.Time
}

var _ database.EntryRepository = (*MockEntryRepository)(nil)

func (m *MockEntryRepository) UpsertEntries(entries []database.EntryRecord, seenAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	m.seenAt = seenAt
	return nil
}

func (m *MockEntryRepository) GetEntries(category string, limit int) ([]database.EntryRecord, error) {
	return nil, nil
}

func (m *MockEntryRepository) GetEntryCount(category string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries), nil
}
