package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable override, e.g. ETL_SORT_BUCKET_SIZE
const EnvPrefix = "ETL"

type loaderConfig struct {
	configFile string
	envFile    string
}

// LoaderOption is a functional option for Load
type LoaderOption func(*loaderConfig)

// WithConfigFile reads a YAML (or any viper-supported) configuration file
func WithConfigFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.configFile = path }
}

// WithEnvFile loads a .env file into the process environment before reading overrides
func WithEnvFile(path string) LoaderOption {
	return func(lc *loaderConfig) { lc.envFile = path }
}

// Load builds a Config from, in increasing priority: defaults, the
// configuration file, the .env file and the process environment. Missing
// files are ignored. The result is validated.
func Load(opts ...LoaderOption) (Config, error) {
	var lc loaderConfig
	for _, opt := range opts {
		opt(&lc)
	}

	v := viper.New()
	setDefaults(v)

	if lc.configFile != "" && exists(lc.configFile) {
		v.SetConfigFile(lc.configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config file %s: %w", lc.configFile, err)
		}
	}
	if lc.envFile != "" && exists(lc.envFile) {
		if err := godotenv.Load(lc.envFile); err != nil {
			return Config{}, fmt.Errorf("failed to load env file %s: %w", lc.envFile, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so that AutomaticEnv can override keys absent from the file
func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.output", d.Log.Output)
	v.SetDefault("pipeline.batch_size", d.Pipeline.BatchSize)
	v.SetDefault("pipeline.parallelism", d.Pipeline.Parallelism)
	v.SetDefault("sort.algorithm", d.Sort.Algorithm)
	v.SetDefault("sort.bucket_size", d.Sort.BucketSize)
	v.SetDefault("sort.buckets_count", d.Sort.BucketsCount)
	v.SetDefault("sort.output_batch_size", d.Sort.OutputBatchSize)
	v.SetDefault("sort.memory_limit", d.Sort.MemoryLimit)
	v.SetDefault("sort.memory_ceiling", d.Sort.MemoryCeiling)
	v.SetDefault("cache.backend", d.Cache.Backend)
	v.SetDefault("cache.path", d.Cache.Path)
	v.SetDefault("cache.namespace", d.Cache.Namespace)
	v.SetDefault("cache.lru.size", d.Cache.LRU.Size)
	v.SetDefault("cache.lru.compressed_fraction", d.Cache.LRU.CompressedFraction)
	v.SetDefault("cache.redis.addr", d.Cache.Redis.Addr)
	v.SetDefault("cache.redis.password", d.Cache.Redis.Password)
	v.SetDefault("cache.redis.db", d.Cache.Redis.DB)
	v.SetDefault("cache.redis.dial_timeout", d.Cache.Redis.DialTimeout)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
