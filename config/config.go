// Package config loads engine configuration from a YAML file, a .env file
// and ETL_-prefixed environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/logging"
)

// Config is the root engine configuration
type Config struct {
	Log      logging.Config `mapstructure:"log"`
	Pipeline Pipeline       `mapstructure:"pipeline"`
	Sort     Sort           `mapstructure:"sort"`
	Cache    Cache          `mapstructure:"cache"`
}

// Pipeline configures pipeline construction
type Pipeline struct {
	BatchSize   int `mapstructure:"batch_size"`  // default batch size used by the batch size rule
	Parallelism int `mapstructure:"parallelism"` // default parallelism of Parallelize()
}

// Sort configures the sort operator
type Sort struct {
	Algorithm       string  `mapstructure:"algorithm"` // memory or external
	BucketSize      int     `mapstructure:"bucket_size"`
	BucketsCount    int     `mapstructure:"buckets_count"`
	OutputBatchSize int     `mapstructure:"output_batch_size"`
	MemoryLimit     uint64  `mapstructure:"memory_limit"` // bytes; 0 detects the limit
	MemoryCeiling   float64 `mapstructure:"memory_ceiling"`
}

// Cache configures the cache used by the sort operator
type Cache struct {
	Backend   string `mapstructure:"backend"` // memory, filesystem, lru or redis
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
	LRU       LRU    `mapstructure:"lru"`
	Redis     Redis  `mapstructure:"redis"`
}

// LRU configures the tiered in-memory cache
type LRU struct {
	Size               int     `mapstructure:"size"`
	CompressedFraction float64 `mapstructure:"compressed_fraction"`
}

// Redis configures the remote cache
type Redis struct {
	Addr        string        `mapstructure:"addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	DialTimeout time.Duration `mapstructure:"dial_timeout"`
}

const (
	// SortMemory sorts in memory, falling back to the external sort above the memory ceiling
	SortMemory = "memory"
	// SortExternal always uses the external bucketed merge sort
	SortExternal = "external"

	// BackendMemory selects cache/memory
	BackendMemory = "memory"
	// BackendFilesystem selects cache/filesystem
	BackendFilesystem = "filesystem"
	// BackendLRU selects cache/lru
	BackendLRU = "lru"
	// BackendRedis selects cache/redis
	BackendRedis = "redis"
)

// Default returns a Config with every default applied
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills in every unset field
func (c *Config) ApplyDefaults() {
	c.Log.ApplyDefaults()
	if c.Pipeline.BatchSize == 0 {
		c.Pipeline.BatchSize = 1000
	}
	if c.Pipeline.Parallelism == 0 {
		c.Pipeline.Parallelism = 4
	}
	if c.Sort.Algorithm == "" {
		c.Sort.Algorithm = SortMemory
	}
	if c.Sort.BucketSize == 0 {
		c.Sort.BucketSize = 500
	}
	if c.Sort.BucketsCount == 0 {
		c.Sort.BucketsCount = 10
	}
	if c.Sort.OutputBatchSize == 0 {
		c.Sort.OutputBatchSize = 1000
	}
	if c.Sort.MemoryCeiling == 0 {
		c.Sort.MemoryCeiling = 0.9
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendMemory
	}
	if c.Cache.Namespace == "" {
		c.Cache.Namespace = "etl"
	}
	if c.Cache.LRU.Size == 0 {
		c.Cache.LRU.Size = 100
	}
	if c.Cache.LRU.CompressedFraction == 0 {
		c.Cache.LRU.CompressedFraction = 0.5
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.Cache.Redis.DialTimeout == 0 {
		c.Cache.Redis.DialTimeout = 5 * time.Second
	}
}

// Validate returns an errors.InvalidConfigError describing the first unusable parameter
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return errors.InvalidConfigError{Param: "log", Value: c.Log, Reason: err.Error()}
	}
	if c.Pipeline.BatchSize < 1 {
		return errors.InvalidConfigError{Param: "pipeline.batch_size", Value: c.Pipeline.BatchSize, Reason: "must be at least 1"}
	}
	if c.Pipeline.Parallelism < 1 {
		return errors.InvalidConfigError{Param: "pipeline.parallelism", Value: c.Pipeline.Parallelism, Reason: "must be at least 1"}
	}
	switch c.Sort.Algorithm {
	case SortMemory, SortExternal:
	default:
		return errors.InvalidConfigError{Param: "sort.algorithm", Value: c.Sort.Algorithm, Reason: fmt.Sprintf("must be one of [%s, %s]", SortMemory, SortExternal)}
	}
	if c.Sort.BucketSize < 1 {
		return errors.InvalidConfigError{Param: "sort.bucket_size", Value: c.Sort.BucketSize, Reason: "must be at least 1"}
	}
	if c.Sort.BucketsCount < 2 {
		return errors.InvalidConfigError{Param: "sort.buckets_count", Value: c.Sort.BucketsCount, Reason: "must be at least 2"}
	}
	if c.Sort.OutputBatchSize < 1 {
		return errors.InvalidConfigError{Param: "sort.output_batch_size", Value: c.Sort.OutputBatchSize, Reason: "must be at least 1"}
	}
	if c.Sort.MemoryCeiling <= 0 || c.Sort.MemoryCeiling > 1 {
		return errors.InvalidConfigError{Param: "sort.memory_ceiling", Value: c.Sort.MemoryCeiling, Reason: "must be within (0, 1]"}
	}
	return c.Cache.Validate()
}

// Validate returns an errors.InvalidConfigError describing the first unusable cache parameter
func (c *Cache) Validate() error {
	switch strings.ToLower(c.Backend) {
	case BackendMemory, BackendRedis:
	case BackendFilesystem:
		if c.Path == "" {
			return errors.InvalidConfigError{Param: "cache.path", Value: c.Path, Reason: "is required by the filesystem backend"}
		}
	case BackendLRU:
		if c.LRU.Size < 5 {
			return errors.InvalidConfigError{Param: "cache.lru.size", Value: c.LRU.Size, Reason: "must be at least 5"}
		}
		if c.LRU.CompressedFraction < 0 || c.LRU.CompressedFraction >= 1 {
			return errors.InvalidConfigError{Param: "cache.lru.compressed_fraction", Value: c.LRU.CompressedFraction, Reason: "must be within [0, 1)"}
		}
		if c.Path == "" {
			return errors.InvalidConfigError{Param: "cache.path", Value: c.Path, Reason: "is required by the lru backend for evicted entries"}
		}
	default:
		return errors.InvalidConfigError{Param: "cache.backend", Value: c.Backend, Reason: "must be one of [memory, filesystem, lru, redis]"}
	}
	return nil
}
