// Package cache builds the etl.Cache selected by configuration
package cache

import (
	"context"
	"fmt"
	"strings"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/cache/filesystem"
	"github.com/go-sif/etl/cache/lru"
	"github.com/go-sif/etl/cache/memory"
	"github.com/go-sif/etl/cache/redis"
	"github.com/go-sif/etl/config"
	errors "github.com/go-sif/etl/errors"
)

// New creates the cache backend named by cfg.Backend
func New(ctx context.Context, cfg config.Cache) (etl.Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch strings.ToLower(cfg.Backend) {
	case config.BackendMemory:
		return memory.New(), nil
	case config.BackendFilesystem:
		return filesystem.New(cfg.Path)
	case config.BackendLRU:
		backing, err := filesystem.New(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("unable to create lru backing cache: %w", err)
		}
		return lru.New(&lru.Config{
			Size:               cfg.LRU.Size,
			CompressedFraction: cfg.LRU.CompressedFraction,
			Backing:            backing,
		})
	case config.BackendRedis:
		return redis.Dial(ctx, cfg.Redis, cfg.Namespace)
	}
	return nil, errors.InvalidConfigError{Param: "cache.backend", Value: cfg.Backend, Reason: "unknown cache backend"}
}
