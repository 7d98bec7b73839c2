package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.Pipeline.MaxGroupSize)
	assert.Equal(t, "frequency_list.txt", cfg.Output.Path)
	assert.Equal(t, ".", cfg.Input.SearchDir)
	assert.False(t, cfg.Postgres.Enabled)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Kafka.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wikifreq.yaml")
	data := []byte(`
input:
  dump: enwiki.xml.bz2
pipeline:
  workers: 3
  maxBlocks: 10
  progressInterval: 2s
output:
  path: out.txt.zst
redis:
  enabled: true
  key: freq
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	t.Setenv("WF_WORKERS", "5")
	t.Setenv("WF_LOGGING_FORMAT", "json")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "enwiki.xml.bz2", cfg.Input.Dump)
	assert.Equal(t, 5, cfg.Pipeline.Workers)
	assert.Equal(t, 10, cfg.Pipeline.MaxBlocks)
	assert.Equal(t, 2*time.Second, cfg.Pipeline.ProgressInterval)
	assert.Equal(t, 100, cfg.Pipeline.MaxGroupSize)
	assert.Equal(t, "out.txt.zst", cfg.Output.Path)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "freq", cfg.Redis.Key)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoadRejectsMalformedNumericEnv(t *testing.T) {
	for _, name := range []string{"WF_WORKERS", "WF_POSTGRES_PORT", "WF_METRICS_PORT"} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, "abc")
			_, err := Load("")
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"negative workers":  func(c *Config) { c.Pipeline.Workers = -1 },
		"zero group size":   func(c *Config) { c.Pipeline.MaxGroupSize = 0 },
		"negative blocks":   func(c *Config) { c.Pipeline.MaxBlocks = -2 },
		"negative ns":       func(c *Config) { c.Filter.Namespaces = []int{0, -1} },
		"empty output":      func(c *Config) { c.Output.Path = "" },
		"bad compression":   func(c *Config) { c.Output.Compression = "lzma" },
		"bad table":         func(c *Config) { c.Postgres.Enabled = true; c.Postgres.Table = "words; drop" },
		"empty redis key":   func(c *Config) { c.Redis.Enabled = true; c.Redis.Key = "" },
		"kafka w/o brokers": func(c *Config) { c.Kafka.Enabled = true; c.Kafka.Brokers = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
