package tasks

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/lysyi3m/news-hub/app/database"
	"github.com/lysyi3m/news-hub/app/feed"
)

// AggregateDeps are the collaborators shared by every aggregation run
type AggregateDeps struct {
	ConfigCache  *feed.ConfigCache
	HTTPClient   *http.Client
	Parser       *feed.Parser
	Fetcher      feed.Fetcher // overrides the HTTP fetcher when set
	Holder       *feed.SnapshotHolder
	SnapshotRepo database.SnapshotRepository
	EntryRepo    database.EntryRepository
	JSONExporter *feed.JSONExporter
	HTMLExporter *feed.HTMLExporter

	OutputDir     string
	KeepSnapshots int
	UserAgent     string
}

// AggregateTask collects every configured category, publishes the snapshot,
// stores it and writes the export files. A retried task resumes after the
// last completed stage instead of fetching again.
type AggregateTask struct {
	Task
	deps         AggregateDeps
	reloadConfig bool

	snapshot *feed.Snapshot
	failures int
	stored   bool
	exported bool

	superseded bool
}

func NewAggregateTask(trigger string, reloadConfig bool, deps AggregateDeps) *AggregateTask {
	return &AggregateTask{
		Task:         NewTask(TaskTypeAggregate, trigger),
		deps:         deps,
		reloadConfig: reloadConfig,
	}
}

// Snapshot returns the snapshot built by the task, or nil before collection finished
func (t *AggregateTask) Snapshot() *feed.Snapshot {
	return t.snapshot
}

func (t *AggregateTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if t.snapshot == nil {
		if err := t.collect(ctx); err != nil {
			return err
		}
	}

	if !t.stored {
		if err := t.store(); err != nil {
			return fmt.Errorf("failed to store snapshot: %w", err)
		}
		t.stored = true
	}

	if !t.exported {
		if t.deps.OutputDir != "" && !t.superseded {
			err := feed.WriteExports(t.deps.OutputDir, t.snapshot, t.deps.JSONExporter, t.deps.HTMLExporter)
			if err != nil {
				return fmt.Errorf("failed to write exports: %w", err)
			}
		}
		t.exported = true
	}

	slog.Info("Task completed",
		"type", string(t.Type),
		"trigger", t.Trigger,
		"snapshot", t.snapshot.ID,
		"duration", t.GetDuration(),
		"categories", len(t.snapshot.Categories),
		"entries", t.snapshot.EntryCount(),
		"failed_sources", t.failures)

	return nil
}

func (t *AggregateTask) collect(ctx context.Context) error {
	if t.reloadConfig {
		if err := t.deps.ConfigCache.Run(); err != nil {
			slog.Warn("Feed configuration reload failed, keeping previous configuration", "error", err)
		}
	}

	feedConfig, err := t.deps.ConfigCache.GetConfig()
	if err != nil {
		return fmt.Errorf("failed to get feed configuration: %w", err)
	}

	generatedAt := time.Now()
	collector := feed.NewCollector(t.fetcher(feedConfig), feed.NewScorer(), feedConfig.Settings.Concurrency)
	results := collector.Collect(ctx, feedConfig)

	for _, result := range results {
		t.failures += len(result.Failures)
	}

	t.snapshot = feed.BuildSnapshot(uuid.NewString(), results, generatedAt)
	if t.deps.Holder != nil && !t.deps.Holder.Set(t.snapshot) {
		// A run that started later already published; keep its exports too.
		t.superseded = true
		slog.Info("Snapshot superseded by a newer run", "snapshot", t.snapshot.ID)
	}

	return nil
}

func (t *AggregateTask) fetcher(feedConfig *feed.Config) feed.Fetcher {
	if t.deps.Fetcher != nil {
		return t.deps.Fetcher
	}

	httpClient := t.deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	parser := t.deps.Parser
	if parser == nil {
		parser = feed.NewParser()
	}

	userAgent := cmp.Or(feedConfig.Settings.UserAgent, t.deps.UserAgent)
	return feed.NewHTTPFetcher(httpClient, parser, userAgent, feedConfig.GetTimeout())
}

func (t *AggregateTask) store() error {
	if t.deps.SnapshotRepo == nil {
		return nil
	}

	payload, err := json.Marshal(t.snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	err = t.deps.SnapshotRepo.SaveSnapshot(database.SnapshotRecord{
		ID:            t.snapshot.ID,
		GeneratedAt:   t.snapshot.GeneratedAt,
		CategoryCount: len(t.snapshot.Categories),
		EntryCount:    t.snapshot.EntryCount(),
		Payload:       payload,
	})
	if err != nil {
		return err
	}

	if t.deps.EntryRepo != nil {
		if err := t.deps.EntryRepo.UpsertEntries(entryRecords(t.snapshot), t.snapshot.GeneratedAt); err != nil {
			return err
		}
	}

	pruned, err := t.deps.SnapshotRepo.PruneSnapshots(t.deps.KeepSnapshots)
	if err != nil {
		return err
	}
	if pruned > 0 {
		slog.Debug("Pruned old snapshots", "deleted", pruned, "keep", t.deps.KeepSnapshots)
	}

	return nil
}

func entryRecords(snapshot *feed.Snapshot) []database.EntryRecord {
	records := make([]database.EntryRecord, 0, snapshot.EntryCount())
	for _, category := range snapshot.Categories {
		for _, entry := range category.Entries {
			records = append(records, database.EntryRecord{
				ID:           entry.ID,
				Category:     category.Name,
				Title:        entry.Title,
				URL:          entry.URL,
				Source:       entry.Source,
				PublishedRaw: entry.PublishedRaw,
				PublishedAt:  entry.PublishedAt,
				Summary:      entry.Summary,
			})
		}
	}
	return records
}

// LoadLatestSnapshot publishes the most recently stored snapshot to holder.
// It reports whether a snapshot was found.
func LoadLatestSnapshot(repo database.SnapshotRepository, holder *feed.SnapshotHolder) (bool, error) {
	record, err := repo.GetLatestSnapshot()
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}

	var snapshot feed.Snapshot
	if err := json.Unmarshal(record.Payload, &snapshot); err != nil {
		return false, fmt.Errorf("failed to decode stored snapshot %s: %w", record.ID, err)
	}

	holder.Set(&snapshot)
	return true, nil
}
