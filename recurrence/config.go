package recurrence

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxExpansionOccurrences caps how many excluded candidates inside the
	// range HasOccurrenceInRange examines before giving up.
	MaxExpansionOccurrences int

	// Expansion holds the limits Expand applies when the caller passes none.
	Expansion ExpansionOptions
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	MaxExpansionOccurrences: 100,
	Expansion:               DefaultExpansionOptions,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute, // Longer cache TTL
		MaxEntries:      5000,             // More cache entries
		CleanupInterval: 10 * time.Minute, // Less frequent cleanup
	},

	MaxExpansionOccurrences: 50,
	Expansion: ExpansionOptions{
		MaxOccurrences:    500,
		MaxTimeSpan:       365 * 24 * time.Hour,
		IncludeExceptions: true,
	},
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},

	MaxExpansionOccurrences: 200,
	Expansion: ExpansionOptions{
		MaxOccurrences:    200,
		MaxTimeSpan:       180 * 24 * time.Hour,
		IncludeExceptions: true,
	},
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,
	CacheConfig:  CacheConfig{}, // Not used

	MaxExpansionOccurrences: 1000,
	Expansion:               DefaultExpansionOptions,
}

var presets = map[string]EngineConfig{
	"default":          DefaultEngineConfig,
	"high-performance": HighPerformanceConfig,
	"low-memory":       LowMemoryConfig,
	"disabled-cache":   DisabledCacheConfig,
}

// configFile is the YAML shape read by LoadConfig. Durations accept days
// and weeks as well ("13w", "1d12h").
type configFile struct {
	Preset                  string `yaml:"preset"`
	MaxExpansionOccurrences *int   `yaml:"max_expansion_occurrences"`
	Cache                   *struct {
		Enabled         *bool  `yaml:"enabled"`
		TTL             string `yaml:"ttl"`
		MaxEntries      *int   `yaml:"max_entries"`
		CleanupInterval string `yaml:"cleanup_interval"`
	} `yaml:"cache"`
	Expansion *struct {
		MaxOccurrences    *int   `yaml:"max_occurrences"`
		MaxTimeSpan       string `yaml:"max_time_span"`
		IncludeExceptions *bool  `yaml:"include_exceptions"`
	} `yaml:"expansion"`
}

// LoadConfig reads an engine configuration from YAML. Values not present
// keep the ones of the selected preset ("default" when none is named).
//
//	preset: low-memory
//	cache:
//	  ttl: 1h
//	expansion:
//	  max_time_span: 13w
func LoadConfig(r io.Reader) (EngineConfig, error) {
	var file configFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return EngineConfig{}, fmt.Errorf("decode engine config: %w", err)
	}

	name := file.Preset
	if name == "" {
		name = "default"
	}
	config, ok := presets[name]
	if !ok {
		return EngineConfig{}, fmt.Errorf("unknown engine config preset %q", file.Preset)
	}

	if file.MaxExpansionOccurrences != nil {
		config.MaxExpansionOccurrences = *file.MaxExpansionOccurrences
	}
	if c := file.Cache; c != nil {
		if c.Enabled != nil {
			config.CacheEnabled = *c.Enabled
		}
		if c.MaxEntries != nil {
			config.CacheConfig.MaxEntries = *c.MaxEntries
		}
		if err := setDuration(&config.CacheConfig.TTL, "cache.ttl", c.TTL); err != nil {
			return EngineConfig{}, err
		}
		if err := setDuration(&config.CacheConfig.CleanupInterval, "cache.cleanup_interval", c.CleanupInterval); err != nil {
			return EngineConfig{}, err
		}
	}
	if x := file.Expansion; x != nil {
		if x.MaxOccurrences != nil {
			config.Expansion.MaxOccurrences = *x.MaxOccurrences
		}
		if x.IncludeExceptions != nil {
			config.Expansion.IncludeExceptions = *x.IncludeExceptions
		}
		if err := setDuration(&config.Expansion.MaxTimeSpan, "expansion.max_time_span", x.MaxTimeSpan); err != nil {
			return EngineConfig{}, err
		}
	}

	if config.CacheEnabled {
		if config.CacheConfig.MaxEntries <= 0 || config.CacheConfig.TTL <= 0 || config.CacheConfig.CleanupInterval <= 0 {
			return EngineConfig{}, fmt.Errorf("cache needs a positive ttl, max_entries and cleanup_interval")
		}
	}
	return config, nil
}

func setDuration(dst *time.Duration, key, value string) error {
	if value == "" {
		return nil
	}
	d, err := str2duration.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig, opts ...EngineOption) *Engine {
	e := &Engine{
		config: config,
		logger: slog.Default(),
	}
	if config.CacheEnabled {
		e.cache = NewRecurrenceCache(config.CacheConfig)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}
