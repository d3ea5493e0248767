package api

import (
	"github.com/lysyi3m/news-hub/app/database"
	"github.com/lysyi3m/news-hub/app/feed"
	"github.com/lysyi3m/news-hub/app/tasks"
)

type GeneratorInterface interface {
	Run(snapshot *feed.Snapshot, categoryName string) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type Handler struct {
	configCache  *feed.ConfigCache
	holder       *feed.SnapshotHolder
	snapshotRepo database.SnapshotRepository
	entryRepo    database.EntryRepository
	generator    GeneratorInterface
	jsonExporter *feed.JSONExporter
	htmlExporter *feed.HTMLExporter
	scheduler    tasks.TaskSchedulerInterface
}
