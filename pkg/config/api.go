package config

import "fmt"

const (
	// DefaultAPIListen is the default API server listen address.
	DefaultAPIListen = ":8911"

	// DefaultIndexInterval is the default background indexing interval.
	DefaultIndexInterval = "5m"

	// DefaultIndexConcurrency bounds parallel indexing work.
	DefaultIndexConcurrency = 4
)

// APIConfig is the root configuration for the history API service.
type APIConfig struct {
	Server   APIServerConfig   `yaml:"server" mapstructure:"server"`
	Database APIDatabaseConfig `yaml:"database" mapstructure:"database"`
	Indexing APIIndexingConfig `yaml:"indexing" mapstructure:"indexing"`
}

// APIServerConfig contains HTTP server settings.
type APIServerConfig struct {
	Listen      string          `yaml:"listen" mapstructure:"listen"`
	CORSOrigins []string        `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `yaml:"rate_limit,omitempty" mapstructure:"rate_limit"`
}

// RateLimitConfig contains per-IP rate limit settings.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerMinute int  `yaml:"requests_per_minute,omitempty" mapstructure:"requests_per_minute"`
}

// APIDatabaseConfig selects and configures the index database driver.
type APIDatabaseConfig struct {
	Driver   string                 `yaml:"driver" mapstructure:"driver"`
	SQLite   SQLiteDatabaseConfig   `yaml:"sqlite,omitempty" mapstructure:"sqlite"`
	Postgres PostgresDatabaseConfig `yaml:"postgres,omitempty" mapstructure:"postgres"`
}

// SQLiteDatabaseConfig contains SQLite settings.
type SQLiteDatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// PostgresDatabaseConfig contains PostgreSQL settings.
type PostgresDatabaseConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Database string `yaml:"database" mapstructure:"database"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}

// APIIndexingConfig controls the background history indexer.
type APIIndexingConfig struct {
	Enabled     bool   `yaml:"enabled" mapstructure:"enabled"`
	Interval    string `yaml:"interval,omitempty" mapstructure:"interval"`
	Concurrency int    `yaml:"concurrency,omitempty" mapstructure:"concurrency"`
}

// applyDefaults sets default values for unspecified API options.
func (c *APIConfig) applyDefaults() {
	if c.Server.Listen == "" {
		c.Server.Listen = DefaultAPIListen
	}

	if c.Server.RateLimit.Enabled && c.Server.RateLimit.RequestsPerMinute <= 0 {
		c.Server.RateLimit.RequestsPerMinute = 120
	}

	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}

	if c.Database.Driver == "sqlite" && c.Database.SQLite.Path == "" {
		c.Database.SQLite.Path = "./smart-reporter-index.db"
	}

	if c.Indexing.Interval == "" {
		c.Indexing.Interval = DefaultIndexInterval
	}

	if c.Indexing.Concurrency <= 0 {
		c.Indexing.Concurrency = DefaultIndexConcurrency
	}
}

// Validate checks the API configuration for errors.
func (c *APIConfig) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case "postgres":
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("postgres host is required")
		}

		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("postgres database is required")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	return nil
}
