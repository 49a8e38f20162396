package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix = "PARTYSTATS_"
	envFile   = ".env"
	// FileEnv names the variable holding an optional YAML config path.
	FileEnv = envPrefix + "CONFIG"
)

// sections are the nested config blocks. Env keys like
// PARTYSTATS_CACHE_MAX_ENTRIES split after the section name only.
var sections = []string{"database", "cache", "ranking", "warm"} //nolint:gochecknoglobals // fixed key table

// Load builds a Config by layering defaults, optional file, .env and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if PARTYSTATS_CONFIG is set
//  3. .env in the working directory, never overriding variables already set
//  4. env (prefix PARTYSTATS_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, envFile, err)
	}

	if path := os.Getenv(FileEnv); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("%w: env: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps PARTYSTATS_CACHE_MAX_ENTRIES to cache.max_entries and
// PARTYSTATS_LOG_LEVEL to log_level.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if i := strings.IndexByte(s, '_'); i > 0 && slices.Contains(sections, s[:i]) {
		return s[:i] + "." + s[i+1:]
	}
	return s
}

// Validate reports the first unusable setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Database.Driver != "sqlite" && c.Database.Driver != "postgres":
		return fmt.Errorf("%w: database.driver %q", ErrInvalidConfig, c.Database.Driver)
	case c.Database.DSN == "":
		return fmt.Errorf("%w: database.dsn must not be empty", ErrInvalidConfig)
	case c.Cache.Backend != "memory" && c.Cache.Backend != "sqlite":
		return fmt.Errorf("%w: cache.backend %q", ErrInvalidConfig, c.Cache.Backend)
	case c.Cache.Backend == "sqlite" && c.Cache.DSN == "":
		return fmt.Errorf("%w: cache.dsn is required for the sqlite cache", ErrInvalidConfig)
	case c.Cache.TTL <= 0:
		return fmt.Errorf("%w: cache.ttl must be positive", ErrInvalidConfig)
	case c.Cache.MaxEntries <= 0:
		return fmt.Errorf("%w: cache.max_entries must be positive", ErrInvalidConfig)
	case c.Ranking.PageSize <= 0:
		return fmt.Errorf("%w: ranking.page_size must be positive", ErrInvalidConfig)
	case c.Warm.Workers <= 0:
		return fmt.Errorf("%w: warm.workers must be positive", ErrInvalidConfig)
	}
	return nil
}
