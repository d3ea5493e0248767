package database

import (
	"time"
)

type SnapshotRepository interface {
	GetLatestSnapshot() (*SnapshotRecord, error)
	GetSnapshotCount() (int, error)

	SaveSnapshot(snapshot SnapshotRecord) error
	PruneSnapshots(keep int) (int64, error)
}

type EntryRepository interface {
	GetEntries(category string, limit int) ([]EntryRecord, error)
	GetEntryCount(category string) (int, error)

	UpsertEntries(entries []EntryRecord, seenAt time.Time) error
}
