package sorting

import (
	"context"
	"runtime"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/rs/zerolog"
)

// DefaultMemoryCeiling is the share of the memory limit MemorySort may use
const DefaultMemoryCeiling = 0.9

// DefaultOutputBatchSize is the number of rows per batch produced by MemorySort
const DefaultOutputBatchSize = 1000

// MemorySort buffers the whole stream and sorts it in memory. Memory use is
// sampled after every batch; once it crosses Ceiling*Limit the buffered rows
// and the rest of the stream are handed to Fallback instead.
type MemorySort struct {
	Limit           uint64  // bytes. 0 uses DetectMemoryLimit.
	Ceiling         float64 // fraction of Limit, in (0, 1]. 0 uses DefaultMemoryCeiling.
	Fallback        Sorter  // used above the ceiling. Without one, the sort fails with errors.MemoryLimitExceededError.
	OutputBatchSize int     // rows per output batch. 0 uses DefaultOutputBatchSize.
	Probe           func() uint64
	Logger          zerolog.Logger
}

// HeapInUse reports the bytes of heap currently allocated
func HeapInUse() uint64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return m.HeapAlloc
}

func (s *MemorySort) ceiling() (uint64, error) {
	fraction := s.Ceiling
	if fraction == 0 {
		fraction = DefaultMemoryCeiling
	}
	if fraction < 0 || fraction > 1 {
		return 0, errors.InvalidConfigError{Param: "Ceiling", Value: s.Ceiling, Reason: "must be within (0, 1]"}
	}
	limit := s.Limit
	if limit == 0 {
		limit = DetectMemoryLimit()
	}
	return uint64(float64(limit) * fraction), nil
}

// Sort implements Sorter
func (s *MemorySort) Sort(ctx context.Context, iter etl.RowsIterator, keys etl.SortKeySet) (etl.RowsIterator, error) {
	ceiling, err := s.ceiling()
	if err != nil {
		iter.Close()
		return nil, err
	}
	probe := s.Probe
	if probe == nil {
		probe = HeapInUse
	}
	var buf []etl.Row
	for {
		batch, ok, err := iter.Next(ctx)
		if err != nil {
			iter.Close()
			return nil, err
		}
		if !ok {
			break
		}
		buf = append(buf, batch.All()...)
		if used := probe(); used > ceiling {
			if s.Fallback == nil {
				iter.Close()
				return nil, errors.MemoryLimitExceededError{Used: used, Ceiling: ceiling}
			}
			s.Logger.Info().
				Uint64("used", used).
				Uint64("ceiling", ceiling).
				Int("buffered", len(buf)).
				Msg("memory ceiling exceeded, falling back to external sort")
			return s.Fallback.Sort(ctx, prepend(etl.NewRows(buf...), iter), keys)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}
	size := s.OutputBatchSize
	if size < 1 {
		size = DefaultOutputBatchSize
	}
	sorted := etl.NewRows(buf...).SortBy(keys...)
	return etl.NewSliceIterator(sorted.Chunk(size)...), nil
}

// prepend yields head, then every batch of tail
func prepend(head etl.Rows, tail etl.RowsIterator) etl.RowsIterator {
	sent := false
	return etl.NewFuncIterator(func(ctx context.Context) (etl.Rows, bool, error) {
		if !sent {
			sent = true
			return head, true, nil
		}
		return tail.Next(ctx)
	}, tail.Close)
}
