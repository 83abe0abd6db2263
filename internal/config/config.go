package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for TrendScout.
type Config struct {
	Browser  BrowserConfig  `mapstructure:"browser"  yaml:"browser"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Refresh  RefreshConfig  `mapstructure:"refresh"  yaml:"refresh"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Snapshot SnapshotConfig `mapstructure:"snapshot" yaml:"snapshot"`
	Redis    RedisConfig    `mapstructure:"redis"    yaml:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"  yaml:"metrics"`
}

// BrowserConfig controls the headless browser used for listing pages.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless"           yaml:"headless"`
	BinPath           string        `mapstructure:"bin_path"           yaml:"bin_path"`
	ControlURL        string        `mapstructure:"control_url"        yaml:"control_url"`
	Stealth           bool          `mapstructure:"stealth"            yaml:"stealth"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	WindowWidth       int           `mapstructure:"window_width"       yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height"      yaml:"window_height"`
	UserAgent         string        `mapstructure:"user_agent"         yaml:"user_agent"`
	UserDataDir       string        `mapstructure:"user_data_dir"      yaml:"user_data_dir"`
}

// FetcherConfig controls the HTTP client used for detail pages.
type FetcherConfig struct {
	Timeout         time.Duration `mapstructure:"timeout"          yaml:"timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
	MaxRedirects    int           `mapstructure:"max_redirects"    yaml:"max_redirects"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"   yaml:"max_idle_conns"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	UserAgents      []string      `mapstructure:"user_agents"      yaml:"user_agents"`
	AcceptLanguage  string        `mapstructure:"accept_language"  yaml:"accept_language"`
}

// RefreshConfig controls orchestrator runs.
type RefreshConfig struct {
	Concurrency   int           `mapstructure:"concurrency"    yaml:"concurrency"`
	RunTimeout    time.Duration `mapstructure:"run_timeout"    yaml:"run_timeout"`
	SourceTimeout time.Duration `mapstructure:"source_timeout" yaml:"source_timeout"`
	SourcesFile   string        `mapstructure:"sources_file"   yaml:"sources_file"`
	Lock          string        `mapstructure:"lock"           yaml:"lock"` // local, redis
}

// StorageConfig selects the product record backend.
type StorageConfig struct {
	Type        string `mapstructure:"type"         yaml:"type"` // memory, mongodb, postgres
	MongoURI    string `mapstructure:"mongo_uri"    yaml:"mongo_uri"`
	Database    string `mapstructure:"database"     yaml:"database"`
	Collection  string `mapstructure:"collection"   yaml:"collection"`
	PostgresDSN string `mapstructure:"postgres_dsn" yaml:"postgres_dsn"`
	Table       string `mapstructure:"table"        yaml:"table"`
}

// SnapshotConfig controls the weekly market snapshot index.
type SnapshotConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Backend string `mapstructure:"backend" yaml:"backend"` // file, sqlite, redis, memory
	Path    string `mapstructure:"path"    yaml:"path"`
	Prefix  string `mapstructure:"prefix"  yaml:"prefix"`
}

// RedisConfig is shared by the Redis snapshot backend and run lock.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"     yaml:"addr"`
	Password string        `mapstructure:"password" yaml:"password"`
	DB       int           `mapstructure:"db"       yaml:"db"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			Stealth:           true,
			NavigationTimeout: 30 * time.Second,
			WindowWidth:       1366,
			WindowHeight:      900,
		},
		Fetcher: FetcherConfig{
			Timeout:         20 * time.Second,
			MaxBodySize:     5 * 1024 * 1024, // 5MB
			MaxRedirects:    5,
			MaxIdleConns:    20,
			PolitenessDelay: 1500 * time.Millisecond,
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
				"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
			},
			AcceptLanguage: "fr-FR,fr;q=0.9,en;q=0.8",
		},
		Refresh: RefreshConfig{
			Concurrency:   1,
			RunTimeout:    45 * time.Minute,
			SourceTimeout: 5 * time.Minute,
			Lock:          "local",
		},
		Storage: StorageConfig{
			Type:       "memory",
			MongoURI:   "mongodb://localhost:27017",
			Database:   "trendscout",
			Collection: "products",
			Table:      "products",
		},
		Snapshot: SnapshotConfig{
			Enabled: true,
			Backend: "file",
			Path:    "./data/market_snapshots.json",
			Prefix:  "trendscout:snapshot:",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			LockTTL: time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
