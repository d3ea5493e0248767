package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/news-hub/app/api"
	"github.com/lysyi3m/news-hub/app/cfg"
	"github.com/lysyi3m/news-hub/app/database"
	"github.com/lysyi3m/news-hub/app/feed"
	"github.com/lysyi3m/news-hub/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg.Debug)

	slog.Info("Starting News Hub", "version", appCfg.Version)

	configCache := feed.NewConfigCache(appCfg.FeedsFile)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load feed configuration", "file", appCfg.FeedsFile, "error", err)
		os.Exit(1)
	}
	slog.Info("Feed configuration loaded", "file", appCfg.FeedsFile, "categories", configCache.GetCategoryCount())

	db, err := database.NewConnection(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Debug("Database ready", "path", appCfg.DBPath, "migration_version", version, "dirty", dirty)

	snapshotRepo := database.NewSnapshotStore(db)
	entryRepo := database.NewEntryStore(db)
	holder := feed.NewSnapshotHolder()
	htmlExporter := feed.NewHTMLExporter("")

	deps := tasks.AggregateDeps{
		ConfigCache:   configCache,
		HTTPClient:    &http.Client{},
		Parser:        feed.NewParser(),
		Holder:        holder,
		SnapshotRepo:  snapshotRepo,
		EntryRepo:     entryRepo,
		JSONExporter:  feed.NewJSONExporter(),
		HTMLExporter:  htmlExporter,
		OutputDir:     appCfg.OutputDir,
		KeepSnapshots: appCfg.KeepSnapshots,
		UserAgent:     appCfg.UserAgent,
	}

	if appCfg.Once {
		if err := runOnce(deps); err != nil {
			slog.Error("Aggregation failed", "error", err)
			db.Close()
			os.Exit(1)
		}
		return
	}

	if found, err := tasks.LoadLatestSnapshot(snapshotRepo, holder); err != nil {
		slog.Warn("Failed to restore stored snapshot", "error", err)
	} else if found {
		slog.Info("Restored stored snapshot", "id", holder.Get().ID, "generated_at", holder.Get().GeneratedAt)
	}

	scheduler, err := tasks.NewScheduler(deps, appCfg.WorkerCount, appCfg.Schedule)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting background scheduler", "workers", appCfg.WorkerCount, "schedule", appCfg.Schedule)
	scheduler.Start()
	defer scheduler.Stop()

	baseURL := appCfg.BaseUrl
	if baseURL == "" {
		baseURL = "http://localhost:" + appCfg.Port
	}

	handler := api.NewHandler(configCache, holder, snapshotRepo, entryRepo,
		feed.NewGenerator(baseURL, appCfg.Version), htmlExporter, scheduler)
	router := api.NewServer(handler, appCfg.APIAccessKey, appCfg.Version)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", baseURL)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}
}

// runOnce aggregates synchronously and writes the export files
func runOnce(deps tasks.AggregateDeps) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	task := tasks.NewAggregateTask(tasks.TriggerOnce, false, deps)
	task.Start()
	if err := task.Execute(ctx); err != nil {
		return err
	}

	slog.Info("Exports written", "dir", deps.OutputDir,
		"json", feed.JSONFileName, "html", feed.HTMLFileName)
	return nil
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
