package database

import (
	"database/sql"
	"fmt"
	"time"
)

type EntryStore struct {
	db *DB
}

var _ EntryRepository = (*EntryStore)(nil)

func NewEntryStore(db *DB) *EntryStore {
	return &EntryStore{db: db}
}

// UpsertEntries records entries seen in one run. New identities get first_seen_at = seenAt;
// known ones keep first_seen_at and have their fields and last_seen_at refreshed.
func (r *EntryStore) UpsertEntries(entries []EntryRecord, seenAt time.Time) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO entries (
			id, category, title, url, source, published_raw, published_at, summary,
			first_seen_at, last_seen_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id, category) DO UPDATE SET
			title = excluded.title,
			url = excluded.url,
			source = excluded.source,
			published_raw = excluded.published_raw,
			published_at = excluded.published_at,
			summary = excluded.summary,
			last_seen_at = excluded.last_seen_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare entry upsert: %w", err)
	}
	defer stmt.Close()

	seen := formatTime(seenAt)
	for _, entry := range entries {
		_, err := stmt.Exec(entry.ID, entry.Category, nullString(entry.Title), nullString(entry.URL),
			entry.Source, nullString(entry.PublishedRaw), formatNullTime(entry.PublishedAt),
			nullString(entry.Summary), seen, seen)
		if err != nil {
			return fmt.Errorf("failed to upsert entry %s in %s: %w", entry.ID, entry.Category, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit entries: %w", err)
	}

	return nil
}

// GetEntries returns the most recently seen entries of a category
func (r *EntryStore) GetEntries(category string, limit int) ([]EntryRecord, error) {
	rows, err := r.db.Query(`
		SELECT id, category, title, url, source, published_raw, published_at, summary,
		       first_seen_at, last_seen_at
		FROM entries
		WHERE category = ?
		ORDER BY last_seen_at DESC, first_seen_at DESC, id
		LIMIT ?
	`, category, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []EntryRecord
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// GetEntryCount counts stored entries of a category, or of all categories when category is empty
func (r *EntryStore) GetEntryCount(category string) (int, error) {
	var count int
	var err error

	if category == "" {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM entries`).Scan(&count)
	} else {
		err = r.db.QueryRow(`SELECT COUNT(*) FROM entries WHERE category = ?`, category).Scan(&count)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get entry count: %w", err)
	}

	return count, nil
}

func scanEntry(rows *sql.Rows) (EntryRecord, error) {
	var entry EntryRecord
	var title, url, publishedRaw, publishedAt, summary sql.NullString
	var firstSeenAt, lastSeenAt string

	err := rows.Scan(&entry.ID, &entry.Category, &title, &url, &entry.Source, &publishedRaw,
		&publishedAt, &summary, &firstSeenAt, &lastSeenAt)
	if err != nil {
		return EntryRecord{}, fmt.Errorf("failed to scan entry: %w", err)
	}

	entry.Title = stringPtr(title)
	entry.URL = stringPtr(url)
	entry.PublishedRaw = stringPtr(publishedRaw)
	entry.Summary = stringPtr(summary)

	if entry.PublishedAt, err = parseNullTime(publishedAt); err != nil {
		return EntryRecord{}, err
	}
	if entry.FirstSeenAt, err = parseTime(firstSeenAt); err != nil {
		return EntryRecord{}, err
	}
	if entry.LastSeenAt, err = parseTime(lastSeenAt); err != nil {
		return EntryRecord{}, err
	}

	return entry, nil
}
