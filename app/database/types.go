package database

import (
	"time"
)

type SnapshotRecord struct {
	ID            string
	GeneratedAt   time.Time
	CategoryCount int
	EntryCount    int
	Payload       []byte // Exported JSON document of the run
	CreatedAt     time.Time
}

type EntryRecord struct {
	ID           string // Identity hash, stable across runs
	Category     string
	Title        *string
	URL          *string
	Source       string
	PublishedRaw *string
	PublishedAt  *time.Time
	Summary      *string
	FirstSeenAt  time.Time
	LastSeenAt   time.Time
}
