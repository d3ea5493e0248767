package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/news-hub.db" description:"SQLite database file"`
	OutputDir string `long:"output-dir" env:"OUTPUT_DIR" default:"./data" description:"Directory for exported feed.json and index.html"`

	// Application configuration
	FeedsFile     string `long:"feeds-file" env:"FEEDS_FILE" default:"./feeds.yaml" description:"Feed configuration file"`
	Port          string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl       string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`
	WorkerCount   int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for aggregation tasks"`
	Schedule      string `long:"schedule" env:"SCHEDULE" default:"@every 30m" description:"Cron schedule for aggregation runs"`
	KeepSnapshots int    `long:"keep-snapshots" env:"KEEP_SNAPSHOTS" default:"48" description:"Number of stored snapshots to retain"`
	APIAccessKey  string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	Once          bool   `long:"once" env:"ONCE" description:"Run a single aggregation, write exports and exit"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"News Hub/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses the given arguments instead of os.Args when args is non-nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	if raw.WorkerCount <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", raw.WorkerCount)
	}

	cfg := &Cfg{
		DBPath:        raw.DBPath,
		OutputDir:     raw.OutputDir,
		FeedsFile:     raw.FeedsFile,
		Port:          raw.Port,
		BaseUrl:       raw.BaseUrl,
		WorkerCount:   raw.WorkerCount,
		Schedule:      raw.Schedule,
		KeepSnapshots: raw.KeepSnapshots,
		APIAccessKey:  raw.APIAccessKey,
		Once:          raw.Once,
		UserAgent:     raw.UserAgent,
		Timezone:      raw.Timezone,
		Debug:         raw.Debug,
		Version:       GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
