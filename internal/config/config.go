package config

import (
	"fmt"
	"time"

	"github.com/voiscan/appindexor/internal/common"
	"github.com/voiscan/appindexor/internal/logger"
)

// Config represents the complete configuration for the indexer process.
type Config struct {
	// Chain contains the node and indexer endpoint configuration
	Chain ChainConfig `yaml:"chain" json:"chain" toml:"chain"`

	// DB contains the local SQLite store configuration
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Sync contains the block-loop pacing configuration
	Sync SyncConfig `yaml:"sync" json:"sync" toml:"sync"`

	// Numeraire lists the token ids price ratios are oriented toward
	Numeraire []string `yaml:"numeraire" json:"numeraire" toml:"numeraire"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ChainConfig represents the chain endpoint configuration.
type ChainConfig struct {
	// AlgodURL is the node REST endpoint used for block fetch and simulation
	AlgodURL string `yaml:"algod_url" json:"algod_url" toml:"algod_url"`

	// AlgodToken is the API token for the node endpoint
	AlgodToken string `yaml:"algod_token" json:"algod_token" toml:"algod_token"`

	// IndexerURL is the historical indexer REST endpoint used for event queries
	IndexerURL string `yaml:"indexer_url" json:"indexer_url" toml:"indexer_url"`

	// IndexerToken is the API token for the indexer endpoint
	IndexerToken string `yaml:"indexer_token" json:"indexer_token" toml:"indexer_token"`

	// RequestTimeout bounds every single HTTP request
	RequestTimeout common.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`
}

// ApplyDefaults sets default values for optional chain configuration fields.
func (c *ChainConfig) ApplyDefaults() {
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = common.NewDuration(10 * time.Second) //nolint:mnd
	}
}

// SyncConfig represents the block-loop pacing configuration.
type SyncConfig struct {
	// StartRound is the round to start from when no checkpoint exists yet
	StartRound uint64 `yaml:"start_round" json:"start_round" toml:"start_round"`

	// BlockTimeout bounds a single block fetch; on expiry the same round is retried
	BlockTimeout common.Duration `yaml:"block_timeout" json:"block_timeout" toml:"block_timeout"`

	// RetryDelay is the fixed delay before retrying a failed block fetch
	RetryDelay common.Duration `yaml:"retry_delay" json:"retry_delay" toml:"retry_delay"`

	// TipPollInterval is the delay applied after catching up with the chain tip
	TipPollInterval common.Duration `yaml:"tip_poll_interval" json:"tip_poll_interval" toml:"tip_poll_interval"`
}

// ApplyDefaults sets default values for optional sync configuration fields.
func (s *SyncConfig) ApplyDefaults() {
	if s.BlockTimeout.Duration == 0 {
		s.BlockTimeout = common.NewDuration(5 * time.Second) //nolint:mnd
	}
	if s.RetryDelay.Duration == 0 {
		s.RetryDelay = common.NewDuration(2 * time.Second) //nolint:mnd
	}
	if s.TipPollInterval.Duration == 0 {
		s.TipPollInterval = common.NewDuration(4 * time.Second) //nolint:mnd
	}
}

// DatabaseConfig represents the local SQLite store configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	// WAL mode is recommended so the read API can query concurrently
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := common.AllComponents[common.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[common.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if l == nil {
		return "info"
	}
	if level, ok := l.ComponentLevels[component]; ok {
		return common.ToLowerWithTrim(level)
	}
	return common.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l != nil && l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	// Format: "host:port" or ":port"
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" {
			return fmt.Errorf("path is required when metrics are enabled")
		}
		if m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()
	c.Sync.ApplyDefaults()
	c.DB.ApplyDefaults()

	if c.Logging != nil {
		c.Logging.ApplyDefaults()
	}

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Chain.AlgodURL == "" {
		return fmt.Errorf("chain.algod_url is required")
	}
	if c.Chain.IndexerURL == "" {
		return fmt.Errorf("chain.indexer_url is required")
	}

	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}

	if c.DB.JournalMode != "" && c.DB.JournalMode != "WAL" &&
		c.DB.JournalMode != "DELETE" && c.DB.JournalMode != "TRUNCATE" &&
		c.DB.JournalMode != "PERSIST" && c.DB.JournalMode != "MEMORY" {
		return fmt.Errorf("db.journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}

	if c.DB.Synchronous != "" && c.DB.Synchronous != "FULL" &&
		c.DB.Synchronous != "NORMAL" && c.DB.Synchronous != "OFF" {
		return fmt.Errorf("db.synchronous must be one of: FULL, NORMAL, OFF")
	}

	for i, id := range c.Numeraire {
		if _, err := common.ParseAppID(id); err != nil {
			return fmt.Errorf("numeraire[%d]: invalid token id '%s'", i, id)
		}
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
