package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/news-hub/app/database"
	"github.com/lysyi3m/news-hub/app/feed"
	"github.com/lysyi3m/news-hub/app/tasks"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

func NewHandler(configCache *feed.ConfigCache, holder *feed.SnapshotHolder,
	snapshotRepo database.SnapshotRepository, entryRepo database.EntryRepository,
	generator GeneratorInterface, htmlExporter *feed.HTMLExporter,
	scheduler tasks.TaskSchedulerInterface) *Handler {
	return &Handler{
		configCache:  configCache,
		holder:       holder,
		snapshotRepo: snapshotRepo,
		entryRepo:    entryRepo,
		generator:    generator,
		jsonExporter: feed.NewJSONExporter(),
		htmlExporter: htmlExporter,
		scheduler:    scheduler,
	}
}

// currentSnapshot writes 503 and returns nil until the first aggregation finished
func (h *Handler) currentSnapshot(c *gin.Context) *feed.Snapshot {
	snapshot := h.holder.Get()
	if snapshot == nil {
		c.Header("Retry-After", "30")
		c.String(http.StatusServiceUnavailable, "No snapshot available yet")
		return nil
	}
	return snapshot
}

func setSnapshotHeaders(c *gin.Context, snapshot *feed.Snapshot) {
	c.Header("X-Snapshot-ID", snapshot.ID)
	c.Header("X-Last-Updated", snapshot.GeneratedAt.Format(time.RFC3339))
}

func (h *Handler) GetIndex(c *gin.Context) {
	snapshot := h.currentSnapshot(c)
	if snapshot == nil {
		return
	}

	page, err := h.htmlExporter.Run(snapshot)
	if err != nil {
		slog.Error("HTML rendering error", "snapshot", snapshot.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	setSnapshotHeaders(c, snapshot)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
}

func (h *Handler) GetSnapshotJSON(c *gin.Context) {
	snapshot := h.currentSnapshot(c)
	if snapshot == nil {
		return
	}

	data, err := h.jsonExporter.Run(snapshot)
	if err != nil {
		slog.Error("JSON rendering error", "snapshot", snapshot.ID, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	setSnapshotHeaders(c, snapshot)
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

func (h *Handler) GetCategoryRSS(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.Status(http.StatusBadRequest)
		return
	}

	snapshot := h.currentSnapshot(c)
	if snapshot == nil {
		return
	}

	category, ok := snapshot.Category(name)
	if !ok {
		slog.Debug("Category not in snapshot", "category", name)
		c.Status(http.StatusNotFound)
		return
	}

	rss, err := h.generator.Run(snapshot, name)
	if err != nil {
		slog.Error("RSS generation error", "category", name, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	setSnapshotHeaders(c, snapshot)
	c.Header("X-Feed-Items", strconv.Itoa(len(category.Entries)))
	c.Header("X-Category", name)
	c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(rss))
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp":             time.Now().In(time.Local).Format(time.RFC3339),
		"configured_categories": h.configCache.GetCategoryCount(),
	}

	if snapshot := h.holder.Get(); snapshot != nil {
		health["snapshot"] = map[string]interface{}{
			"id":           snapshot.ID,
			"generated_at": snapshot.GeneratedAt.Format(time.RFC3339),
			"age":          time.Since(snapshot.GeneratedAt).Round(time.Second).String(),
			"categories":   len(snapshot.Categories),
			"entries":      snapshot.EntryCount(),
		}
	}

	if count, err := h.snapshotRepo.GetSnapshotCount(); err == nil {
		health["stored_snapshots"] = count
	}

	if count, err := h.entryRepo.GetEntryCount(""); err == nil {
		health["stored_entries"] = count
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) APIListCategories(c *gin.Context) {
	feedConfig, err := h.configCache.GetConfig()
	if err != nil {
		slog.Error("Feed configuration not loaded", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed configuration not loaded"})
		return
	}

	snapshot := h.holder.Get()

	categories := make([]map[string]interface{}, 0, len(feedConfig.Categories))
	for _, category := range feedConfig.Categories {
		info := map[string]interface{}{
			"name":     category.Name,
			"sources":  category.Sources,
			"keywords": feedConfig.KeywordsFor(category.Name),
		}

		if snapshot != nil {
			if current, ok := snapshot.Category(category.Name); ok {
				info["current_entries"] = len(current.Entries)
			}
		}

		if count, err := h.entryRepo.GetEntryCount(category.Name); err == nil {
			info["stored_entries"] = count
		}

		categories = append(categories, info)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"categories":             categories,
		"total":                  len(categories),
		"max_items_per_category": feedConfig.MaxItemsPerCategory,
	})
}

func (h *Handler) APIGetCategoryEntries(c *gin.Context) {
	name := c.Param("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing category name parameter"})
		return
	}

	feedConfig, err := h.configCache.GetConfig()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Feed configuration not loaded"})
		return
	}
	if _, ok := feedConfig.Categories.Get(name); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Category not found"})
		return
	}

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(parsed, maxHistoryLimit)
	}

	records, err := h.entryRepo.GetEntries(name, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_entries", "category", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	entries := make([]map[string]interface{}, 0, len(records))
	for _, record := range records {
		entries = append(entries, map[string]interface{}{
			"id":            record.ID,
			"title":         record.Title,
			"url":           record.URL,
			"source":        record.Source,
			"published":     record.PublishedRaw,
			"published_dt":  record.PublishedAt,
			"summary":       record.Summary,
			"first_seen_at": record.FirstSeenAt,
			"last_seen_at":  record.LastSeenAt,
		})
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"category": name,
		"entries":  entries,
		"total":    len(entries),
	})
}

func (h *Handler) APIRefresh(c *gin.Context) {
	taskID, err := h.scheduler.EnqueueAggregation(tasks.TriggerAPI, true)
	if err != nil {
		slog.Error("Error enqueueing aggregation task", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue aggregation task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Aggregation enqueued",
		"task": gin.H{
			"id":   taskID,
			"type": tasks.TaskTypeAggregate,
		},
	})
}
