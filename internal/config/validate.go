package config

import (
	"fmt"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Browser.NavigationTimeout <= 0 {
		return fmt.Errorf("browser.navigation_timeout must be > 0")
	}
	if cfg.Browser.WindowWidth < 0 || cfg.Browser.WindowHeight < 0 {
		return fmt.Errorf("browser window size must be >= 0")
	}

	if cfg.Fetcher.Timeout <= 0 {
		return fmt.Errorf("fetcher.timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.PolitenessDelay < 0 {
		return fmt.Errorf("fetcher.politeness_delay must be >= 0")
	}

	if cfg.Refresh.Concurrency < 1 {
		return fmt.Errorf("refresh.concurrency must be >= 1, got %d", cfg.Refresh.Concurrency)
	}
	if cfg.Refresh.Concurrency > 4 {
		return fmt.Errorf("refresh.concurrency must be <= 4 browser sessions, got %d", cfg.Refresh.Concurrency)
	}
	if cfg.Refresh.RunTimeout < 0 || cfg.Refresh.SourceTimeout < 0 {
		return fmt.Errorf("refresh timeouts must be >= 0")
	}
	if cfg.Refresh.Lock != "local" && cfg.Refresh.Lock != "redis" {
		return fmt.Errorf("refresh.lock must be 'local' or 'redis', got %q", cfg.Refresh.Lock)
	}

	switch cfg.Storage.Type {
	case "memory":
	case "mongodb":
		if cfg.Storage.MongoURI == "" || cfg.Storage.Database == "" || cfg.Storage.Collection == "" {
			return fmt.Errorf("storage.mongo_uri, storage.database and storage.collection are required for mongodb")
		}
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn is required for postgres")
		}
		if cfg.Storage.Table == "" {
			return fmt.Errorf("storage.table is required for postgres")
		}
	default:
		return fmt.Errorf("storage.type %q is not supported (valid: memory, mongodb, postgres)", cfg.Storage.Type)
	}

	if cfg.Snapshot.Enabled {
		switch cfg.Snapshot.Backend {
		case "memory", "redis":
		case "file", "sqlite":
			if cfg.Snapshot.Path == "" {
				return fmt.Errorf("snapshot.path is required for the %s backend", cfg.Snapshot.Backend)
			}
		default:
			return fmt.Errorf("snapshot.backend %q is not supported (valid: file, sqlite, redis, memory)", cfg.Snapshot.Backend)
		}
	}

	usesRedis := cfg.Refresh.Lock == "redis" || (cfg.Snapshot.Enabled && cfg.Snapshot.Backend == "redis")
	if usesRedis {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required")
		}
		if cfg.Redis.LockTTL <= 0 {
			return fmt.Errorf("redis.lock_ttl must be > 0")
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}
