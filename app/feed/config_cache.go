package feed

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	DefaultMaxItemsPerCategory = 25
	DefaultTimeout             = 30 // seconds
	DefaultConcurrency         = 4
)

type ConfigCache struct {
	configFile string
	config     *Config
	mu         sync.RWMutex
}

func NewConfigCache(configFile string) *ConfigCache {
	return &ConfigCache{
		configFile: configFile,
	}
}

// Run (re)loads the configuration file. The cached configuration is only
// replaced when the new one is valid.
func (cc *ConfigCache) Run() error {
	data, err := os.ReadFile(cc.configFile)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	feedConfig, err := ParseConfig(data)
	if err != nil {
		return fmt.Errorf("invalid config %s: %w", cc.configFile, err)
	}

	cc.mu.Lock()
	cc.config = feedConfig
	cc.mu.Unlock()

	slog.Debug("Configuration loaded",
		"file", cc.configFile,
		"categories", len(feedConfig.Categories),
		"max_items_per_category", feedConfig.MaxItemsPerCategory)

	return nil
}

func (cc *ConfigCache) GetConfig() (*Config, error) {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if cc.config == nil {
		return nil, fmt.Errorf("configuration %s not loaded", cc.configFile)
	}
	return cc.config, nil
}

func (cc *ConfigCache) GetCategoryCount() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()

	if cc.config == nil {
		return 0
	}
	return len(cc.config.Categories)
}

// ParseConfig decodes and validates a configuration document without caching it.
func ParseConfig(data []byte) (*Config, error) {
	var feedConfig Config
	if err := yaml.Unmarshal(data, &feedConfig); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&feedConfig)

	if err := validateConfig(&feedConfig); err != nil {
		return nil, err
	}

	return &feedConfig, nil
}

func setDefaults(feedConfig *Config) {
	if feedConfig.MaxItemsPerCategory == 0 {
		feedConfig.MaxItemsPerCategory = DefaultMaxItemsPerCategory
	}
	if feedConfig.Settings.Timeout == 0 {
		feedConfig.Settings.Timeout = DefaultTimeout
	}
	if feedConfig.Settings.Concurrency == 0 {
		feedConfig.Settings.Concurrency = DefaultConcurrency
	}
}

func validateConfig(feedConfig *Config) error {
	if feedConfig == nil {
		return fmt.Errorf("feedConfig is nil")
	}

	if len(feedConfig.Categories) == 0 {
		return fmt.Errorf("at least one category is required")
	}

	nonNegativeFields := map[string]int{
		"max items per category": feedConfig.MaxItemsPerCategory,
		"timeout":                feedConfig.Settings.Timeout,
		"concurrency":            feedConfig.Settings.Concurrency,
	}

	for fieldName, fieldValue := range nonNegativeFields {
		if fieldValue < 0 {
			return fmt.Errorf("%s must be non-negative", fieldName)
		}
	}

	known := make(map[string]bool, len(feedConfig.Categories))
	for _, category := range feedConfig.Categories {
		if category.Name == "" {
			return fmt.Errorf("category name is required")
		}
		if known[category.Name] {
			return fmt.Errorf("duplicate category: %s", category.Name)
		}
		known[category.Name] = true

		if len(category.Sources) == 0 {
			return fmt.Errorf("category %s must have at least one source", category.Name)
		}
		for i, source := range category.Sources {
			if !isFeedURL(source) {
				return fmt.Errorf("invalid source URL at index %d in category %s: %q", i, category.Name, source)
			}
		}
	}

	for name := range feedConfig.Keywords {
		if !known[name] {
			return fmt.Errorf("keywords configured for unknown category: %s", name)
		}
	}

	return nil
}

func isFeedURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// UnmarshalYAML decodes the categories mapping while preserving document order.
func (l *CategoryList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("categories must be a mapping of name to source URLs (line %d)", value.Line)
	}

	categories := make(CategoryList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var category Category
		if err := value.Content[i].Decode(&category.Name); err != nil {
			return fmt.Errorf("invalid category name at line %d: %w", value.Content[i].Line, err)
		}
		if err := value.Content[i+1].Decode(&category.Sources); err != nil {
			return fmt.Errorf("invalid sources for category %s: %w", category.Name, err)
		}
		categories = append(categories, category)
	}

	*l = categories
	return nil
}
