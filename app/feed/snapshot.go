package feed

import (
	"sync/atomic"
	"time"
)

// Snapshot is the complete output of one aggregation run. It is not modified
// after BuildSnapshot returns.
type Snapshot struct {
	ID          string             `json:"id"`
	GeneratedAt time.Time          `json:"generated_at"`
	Categories  []CategorySnapshot `json:"categories"`
}

type CategorySnapshot struct {
	Name    string          `json:"name"`
	Entries []SnapshotEntry `json:"entries"`
}

// SnapshotEntry is the exported form of an Entry. It carries no score.
type SnapshotEntry struct {
	ID           string     `json:"id"`
	Title        *string    `json:"title"`
	URL          *string    `json:"url"`
	Source       string     `json:"source"`
	PublishedRaw *string    `json:"published"`
	PublishedAt  *time.Time `json:"published_dt"`
	Summary      *string    `json:"summary"`
}

// BuildSnapshot combines category results under one generation timestamp.
func BuildSnapshot(id string, results []CategoryResult, generatedAt time.Time) *Snapshot {
	snapshot := &Snapshot{
		ID:          id,
		GeneratedAt: generatedAt.UTC(),
		Categories:  make([]CategorySnapshot, 0, len(results)),
	}

	for _, result := range results {
		entries := make([]SnapshotEntry, 0, len(result.Entries))
		for _, entry := range result.Entries {
			entries = append(entries, SnapshotEntry{
				ID:           entry.ID,
				Title:        entry.Title,
				URL:          entry.URL,
				Source:       entry.Source,
				PublishedRaw: entry.PublishedRaw,
				PublishedAt:  entry.PublishedAt,
				Summary:      entry.Summary,
			})
		}
		snapshot.Categories = append(snapshot.Categories, CategorySnapshot{
			Name:    result.Name,
			Entries: entries,
		})
	}

	return snapshot
}

func (s *Snapshot) Category(name string) (*CategorySnapshot, bool) {
	for i := range s.Categories {
		if s.Categories[i].Name == name {
			return &s.Categories[i], true
		}
	}
	return nil, false
}

func (s *Snapshot) EntryCount() int {
	count := 0
	for _, category := range s.Categories {
		count += len(category.Entries)
	}
	return count
}

// SnapshotHolder publishes the latest snapshot to concurrent readers.
type SnapshotHolder struct {
	current atomic.Pointer[Snapshot]
}

func NewSnapshotHolder() *SnapshotHolder {
	return &SnapshotHolder{}
}

// Set publishes snapshot unless the holder already has a newer one. It reports
// whether snapshot was published.
func (h *SnapshotHolder) Set(snapshot *Snapshot) bool {
	for {
		current := h.current.Load()
		if current != nil && current.GeneratedAt.After(snapshot.GeneratedAt) {
			return false
		}
		if h.current.CompareAndSwap(current, snapshot) {
			return true
		}
	}
}

// Get returns the latest snapshot, or nil before the first run completes.
func (h *SnapshotHolder) Get() *Snapshot {
	return h.current.Load()
}
