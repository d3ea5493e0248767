package database

import (
	"database/sql"
	"fmt"
	"time"
)

type SnapshotStore struct {
	db *DB
}

var _ SnapshotRepository = (*SnapshotStore)(nil)

func NewSnapshotStore(db *DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// SaveSnapshot stores a snapshot. Saving an existing ID replaces the stored row.
func (r *SnapshotStore) SaveSnapshot(snapshot SnapshotRecord) error {
	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err := r.db.Exec(`
		INSERT INTO snapshots (id, generated_at, category_count, entry_count, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			generated_at = excluded.generated_at,
			category_count = excluded.category_count,
			entry_count = excluded.entry_count,
			payload = excluded.payload
	`, snapshot.ID, formatTime(snapshot.GeneratedAt), snapshot.CategoryCount, snapshot.EntryCount,
		string(snapshot.Payload), formatTime(createdAt))

	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// GetLatestSnapshot returns the most recently generated snapshot, or nil when none is stored
func (r *SnapshotStore) GetLatestSnapshot() (*SnapshotRecord, error) {
	var snapshot SnapshotRecord
	var generatedAt, createdAt, payload string

	err := r.db.QueryRow(`
		SELECT id, generated_at, category_count, entry_count, payload, created_at
		FROM snapshots
		ORDER BY generated_at DESC, created_at DESC
		LIMIT 1
	`).Scan(&snapshot.ID, &generatedAt, &snapshot.CategoryCount, &snapshot.EntryCount, &payload, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	if snapshot.GeneratedAt, err = parseTime(generatedAt); err != nil {
		return nil, err
	}
	if snapshot.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	snapshot.Payload = []byte(payload)

	return &snapshot, nil
}

func (r *SnapshotStore) GetSnapshotCount() (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get snapshot count: %w", err)
	}
	return count, nil
}

// PruneSnapshots deletes all but the keep most recent snapshots. keep <= 0 disables pruning.
func (r *SnapshotStore) PruneSnapshots(keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}

	result, err := r.db.Exec(`
		DELETE FROM snapshots
		WHERE id NOT IN (
			SELECT id FROM snapshots
			ORDER BY generated_at DESC, created_at DESC
			LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned snapshots: %w", err)
	}

	return deleted, nil
}
