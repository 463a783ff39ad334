// Package sorting orders streams of batches which may not fit in memory. The
// external sort scatters the stream into sorted buckets held in an etl.Cache
// and merges them back with a min-heap; the memory sort avoids the cache
// entirely until a memory ceiling is crossed.
package sorting

import (
	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/config"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/logging"
	"github.com/rs/zerolog"
)

// New builds the Sorter described by cfg, storing buckets in cache. Both
// sorts produce batches of the same size, whichever one ends up running.
func New(cfg config.Sort, cache etl.Cache, logger zerolog.Logger) (Sorter, error) {
	logger = logging.WithComponent(logger, "sort")
	output := cfg.OutputBatchSize
	if output == 0 {
		output = DefaultOutputBatchSize
	}
	external := &ExternalSort{
		Cache:           cache,
		BucketSize:      cfg.BucketSize,
		BucketsCount:    cfg.BucketsCount,
		OutputBatchSize: output,
		Logger:          logger,
	}
	if err := external.validate(); err != nil {
		return nil, err
	}
	switch cfg.Algorithm {
	case config.SortExternal:
		return external, nil
	case config.SortMemory, "":
		return &MemorySort{
			Limit:           cfg.MemoryLimit,
			Ceiling:         cfg.MemoryCeiling,
			Fallback:        external,
			OutputBatchSize: output,
			Logger:          logger,
		}, nil
	default:
		return nil, errors.InvalidConfigError{Param: "sort.algorithm", Value: cfg.Algorithm, Reason: "must be memory or external"}
	}
}
