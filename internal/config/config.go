// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"runtime"
	"time"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	Database Database `koanf:"database"`
	Cache    Cache    `koanf:"cache"`
	Ranking  Ranking  `koanf:"ranking"`
	Warm     Warm     `koanf:"warm"`
}

// Database locates the fact database.
type Database struct {
	// Driver is "sqlite" or "postgres".
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// Cache configures the ranking key list cache.
type Cache struct {
	// Backend is "memory" or "sqlite".
	Backend string `koanf:"backend"`
	// DSN is only used by the sqlite backend.
	DSN        string        `koanf:"dsn"`
	TTL        time.Duration `koanf:"ttl"`
	MaxEntries int           `koanf:"max_entries"`
}

// Ranking configures paging and miss handling.
type Ranking struct {
	PageSize       int  `koanf:"page_size"`
	CoalesceMisses bool `koanf:"coalesce_misses"`
}

// Warm configures cache precomputation.
type Warm struct {
	Workers int  `koanf:"workers"`
	OnStart bool `koanf:"on_start"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:  "info",
		LogFormat: "text",
		Addr:      ":9080",
		Database: Database{
			Driver: "sqlite",
			DSN:    "file:partystats.db?_pragma=busy_timeout(5000)",
		},
		Cache: Cache{
			Backend:    "memory",
			TTL:        30 * 24 * time.Hour,
			MaxEntries: 50_000,
		},
		Ranking: Ranking{
			PageSize:       10,
			CoalesceMisses: true,
		},
		Warm: Warm{
			Workers: runtime.NumCPU(),
			OnStart: false,
		},
	}
}
