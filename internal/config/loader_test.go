package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromYAML(t *testing.T) {
	path := writeConfigFile(t, "config.yaml", `
chain:
  algod_url: http://localhost:4001
  indexer_url: http://localhost:8980
  request_timeout: 15s
db:
  path: /tmp/appindexor.db
sync:
  start_round: 1000
  block_timeout: 5s
  retry_delay: 3s
numeraire:
  - "6779767"
  - "302189"
logging:
  default_level: debug
  development: true
metrics:
  enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4001", cfg.Chain.AlgodURL)
	assert.Equal(t, "http://localhost:8980", cfg.Chain.IndexerURL)
	assert.Equal(t, 15*time.Second, cfg.Chain.RequestTimeout.Duration)
	assert.Equal(t, uint64(1000), cfg.Sync.StartRound)
	assert.Equal(t, 3*time.Second, cfg.Sync.RetryDelay.Duration)
	assert.Equal(t, []string{"6779767", "302189"}, cfg.Numeraire)
	assert.Equal(t, "debug", cfg.Logging.DefaultLevel)

	// Defaults applied for unset fields.
	assert.Equal(t, "WAL", cfg.DB.JournalMode)
	assert.Equal(t, 4*time.Second, cfg.Sync.TipPollInterval.Duration)
	assert.Equal(t, ":9090", cfg.Metrics.ListenAddress)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromTOML(t *testing.T) {
	path := writeConfigFile(t, "config.toml", `
numeraire = ["6779767"]

[chain]
algod_url = "http://localhost:4001"
indexer_url = "http://localhost:8980"

[db]
path = "/tmp/appindexor.db"

[sync]
block_timeout = "10s"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/appindexor.db", cfg.DB.Path)
	assert.Equal(t, 10*time.Second, cfg.Sync.BlockTimeout.Duration)
	assert.Equal(t, 10*time.Second, cfg.Chain.RequestTimeout.Duration) // default
}

func TestLoadFromJSON(t *testing.T) {
	path := writeConfigFile(t, "config.json", `{
  "chain": {"algod_url": "http://localhost:4001", "indexer_url": "http://localhost:8980"},
  "db": {"path": "/tmp/appindexor.db"},
  "sync": {"retry_delay": "1s"}
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, time.Second, cfg.Sync.RetryDelay.Duration)
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	path := writeConfigFile(t, "config.ini", "chain=\n")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing algod url",
			mutate:  func(c *Config) { c.Chain.AlgodURL = "" },
			wantErr: "chain.algod_url is required",
		},
		{
			name:    "missing indexer url",
			mutate:  func(c *Config) { c.Chain.IndexerURL = "" },
			wantErr: "chain.indexer_url is required",
		},
		{
			name:    "missing db path",
			mutate:  func(c *Config) { c.DB.Path = "" },
			wantErr: "db.path is required",
		},
		{
			name:    "bad journal mode",
			mutate:  func(c *Config) { c.DB.JournalMode = "SIDEWAYS" },
			wantErr: "db.journal_mode",
		},
		{
			name:    "bad numeraire id",
			mutate:  func(c *Config) { c.Numeraire = []string{"not-an-id"} },
			wantErr: "numeraire[0]",
		},
		{
			name: "bad log level",
			mutate: func(c *Config) {
				c.Logging = &LoggingConfig{DefaultLevel: "loud"}
			},
			wantErr: "logging.default_level",
		},
		{
			name: "unknown log component",
			mutate: func(c *Config) {
				c.Logging = &LoggingConfig{
					DefaultLevel:    "info",
					ComponentLevels: map[string]string{"mystery": "debug"},
				}
			},
			wantErr: "unknown component",
		},
		{
			name: "bad metrics path",
			mutate: func(c *Config) {
				c.Metrics = &MetricsConfig{Enabled: true, ListenAddress: ":9090", Path: "metrics"}
			},
			wantErr: "path must start with '/'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{
				Chain: ChainConfig{
					AlgodURL:   "http://localhost:4001",
					IndexerURL: "http://localhost:8980",
				},
				DB: DatabaseConfig{Path: "/tmp/x.db"},
			}
			cfg.ApplyDefaults()
			tt.mutate(&cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetComponentLevel(t *testing.T) {
	lc := &LoggingConfig{
		DefaultLevel:    "info",
		ComponentLevels: map[string]string{"driver": "debug"},
	}

	assert.Equal(t, "debug", lc.GetComponentLevel("driver"))
	assert.Equal(t, "info", lc.GetComponentLevel("store"))

	var nilCfg *LoggingConfig
	assert.Equal(t, "info", nilCfg.GetComponentLevel("driver"))
}
