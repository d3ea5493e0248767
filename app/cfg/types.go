package cfg

type Cfg struct {
	// Storage
	DBPath    string
	OutputDir string

	// Application configuration
	FeedsFile     string
	Port          string
	BaseUrl       string
	WorkerCount   int
	Schedule      string
	KeepSnapshots int
	APIAccessKey  string
	Once          bool

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
