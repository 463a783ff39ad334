package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	errors "github.com/go-sif/etl/errors"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	require.Nil(t, cfg.Validate())
	require.Equal(t, 500, cfg.Sort.BucketSize)
	require.Equal(t, 10, cfg.Sort.BucketsCount)
	require.Equal(t, 0.9, cfg.Sort.MemoryCeiling)
	require.Equal(t, BackendMemory, cfg.Cache.Backend)
}

func TestValidateRejectsBadParameters(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		param  string
	}{
		{"bucket count", func(c *Config) { c.Sort.BucketsCount = 1 }, "sort.buckets_count"},
		{"bucket size", func(c *Config) { c.Sort.BucketSize = -1 }, "sort.bucket_size"},
		{"ceiling", func(c *Config) { c.Sort.MemoryCeiling = 1.5 }, "sort.memory_ceiling"},
		{"algorithm", func(c *Config) { c.Sort.Algorithm = "bogo" }, "sort.algorithm"},
		{"backend", func(c *Config) { c.Cache.Backend = "tape" }, "cache.backend"},
		{"filesystem path", func(c *Config) { c.Cache.Backend = BackendFilesystem }, "cache.path"},
		{"lru size", func(c *Config) { c.Cache.Backend = BackendLRU; c.Cache.Path = "/tmp"; c.Cache.LRU.Size = 2 }, "cache.lru.size"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.NotNil(t, err)
			cerr, ok := err.(errors.InvalidConfigError)
			require.True(t, ok)
			require.Equal(t, tc.param, cerr.Param)
		})
	}
}

func TestLoadFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "etl.yml")
	yamlContent := `
sort:
  algorithm: external
  bucket_size: 50
cache:
  backend: filesystem
  path: /var/tmp/etl
  redis:
    dial_timeout: 2s
`
	require.Nil(t, os.WriteFile(configPath, []byte(yamlContent), 0644))
	envPath := filepath.Join(dir, ".env")
	require.Nil(t, os.WriteFile(envPath, []byte("ETL_SORT_BUCKETS_COUNT=4\n"), 0644))
	t.Setenv("ETL_PIPELINE_BATCH_SIZE", "250")
	defer os.Unsetenv("ETL_SORT_BUCKETS_COUNT")

	cfg, err := Load(WithConfigFile(configPath), WithEnvFile(envPath))
	require.Nil(t, err)
	require.Equal(t, SortExternal, cfg.Sort.Algorithm)
	require.Equal(t, 50, cfg.Sort.BucketSize)
	require.Equal(t, 4, cfg.Sort.BucketsCount)
	require.Equal(t, 250, cfg.Pipeline.BatchSize)
	require.Equal(t, BackendFilesystem, cfg.Cache.Backend)
	require.Equal(t, "/var/tmp/etl", cfg.Cache.Path)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.DialTimeout)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(WithConfigFile("/nonexistent/etl.yml"))
	require.Nil(t, err)
	require.Equal(t, Default(), cfg)
}
