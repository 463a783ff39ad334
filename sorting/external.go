package sorting

import (
	"container/heap"
	"context"
	"fmt"
	"sync/atomic"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

const (
	// DefaultBucketSize is the scatter window used when none is configured
	DefaultBucketSize = 500
	// DefaultBucketsCount is the merge fan-in used when none is configured
	DefaultBucketsCount = 10
)

// A Sorter orders a stream of batches by a SortKeySet. The returned iterator
// is lazy and one-shot. Sorters always close the input iterator.
type Sorter interface {
	Sort(ctx context.Context, iter etl.RowsIterator, keys etl.SortKeySet) (etl.RowsIterator, error)
}

// ExternalSort is a scatter/merge sort whose intermediate runs live in a
// Cache. Scatter sorts windows of BucketSize rows into buckets; merge
// repeatedly k-way merges chunks of BucketsCount buckets until one remains.
type ExternalSort struct {
	Cache           etl.Cache
	BucketSize      int // rows per scatter window and per cached page. 0 uses the first batch size, at least DefaultBucketSize.
	BucketsCount    int // merge fan-in, at least 2. 0 uses DefaultBucketsCount.
	OutputBatchSize int // rows per output batch. 0 uses the scatter window.
	Logger          zerolog.Logger
}

func (s *ExternalSort) validate() error {
	if s.Cache == nil {
		return errors.InvalidConfigError{Param: "Cache", Value: nil, Reason: "an external sort requires a cache"}
	}
	if s.BucketSize < 0 {
		return errors.InvalidConfigError{Param: "BucketSize", Value: s.BucketSize, Reason: "must be at least 1"}
	}
	if s.BucketsCount < 0 || s.BucketsCount == 1 {
		return errors.InvalidConfigError{Param: "BucketsCount", Value: s.BucketsCount, Reason: "must be at least 2"}
	}
	if s.OutputBatchSize < 0 {
		return errors.InvalidConfigError{Param: "OutputBatchSize", Value: s.OutputBatchSize, Reason: "must be at least 1"}
	}
	return nil
}

// Sort implements Sorter
func (s *ExternalSort) Sort(ctx context.Context, iter etl.RowsIterator, keys etl.SortKeySet) (etl.RowsIterator, error) {
	if err := s.validate(); err != nil {
		iter.Close()
		return nil, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		iter.Close()
		return nil, err
	}
	r := &externalRun{
		sort:      s,
		keys:      keys,
		namespace: fmt.Sprintf("sort/%s", id),
		window:    s.BucketSize,
		fanIn:     s.BucketsCount,
	}
	if r.fanIn == 0 {
		r.fanIn = DefaultBucketsCount
	}
	return r.run(ctx, iter)
}

// externalRun holds the state of a single Sort call
type externalRun struct {
	sort      *ExternalSort
	keys      etl.SortKeySet
	namespace string
	window    int
	fanIn     int
	counter   int64
}

func (r *externalRun) nextID() string {
	return fmt.Sprintf("%s/%d", r.namespace, atomic.AddInt64(&r.counter, 1))
}

func (r *externalRun) run(ctx context.Context, iter etl.RowsIterator) (etl.RowsIterator, error) {
	ids, err := r.scatter(ctx, iter)
	if err != nil {
		r.discard(context.WithoutCancel(ctx), ids)
		return nil, err
	}
	r.sort.Logger.Debug().Str("run", r.namespace).Int("buckets", len(ids)).Int("window", r.window).Msg("scatter complete")
	final, err := r.merge(ctx, ids)
	if err != nil {
		return nil, err
	}
	if final == "" {
		return etl.NewSliceIterator(), nil
	}
	reader, err := OpenBucket(ctx, r.sort.Cache, final)
	if err != nil {
		r.discard(context.WithoutCancel(ctx), []string{final})
		return nil, err
	}
	size := r.sort.OutputBatchSize
	if size < 1 {
		size = r.window
	}
	return etl.NewFuncIterator(func(ctx context.Context) (etl.Rows, bool, error) {
		batch := make([]etl.Row, 0, size)
		for len(batch) < size {
			row, ok, err := reader.Next(ctx)
			if err != nil {
				return etl.Rows{}, false, err
			}
			if !ok {
				break
			}
			batch = append(batch, row)
		}
		if len(batch) == 0 {
			return etl.Rows{}, false, nil
		}
		return etl.NewRows(batch...), true, nil
	}, func() error {
		return reader.Discard(context.Background())
	}), nil
}

// scatter splits the input into sorted buckets, in arrival order
func (r *externalRun) scatter(ctx context.Context, iter etl.RowsIterator) (ids []string, err error) {
	defer func() {
		if cerr := iter.Close(); err == nil {
			err = cerr
		}
	}()
	var buf []etl.Row
	for {
		batch, ok, err := iter.Next(ctx)
		if err != nil {
			return ids, err
		}
		if !ok {
			break
		}
		if r.window == 0 {
			r.window = DefaultBucketSize
			if batch.Len() > r.window {
				r.window = batch.Len()
			}
		}
		buf = append(buf, batch.All()...)
		for len(buf) >= r.window {
			id, err := r.persist(ctx, buf[:r.window])
			if err != nil {
				return ids, err
			}
			ids = append(ids, id)
			buf = append([]etl.Row(nil), buf[r.window:]...)
		}
	}
	if len(buf) > 0 {
		id, err := r.persist(ctx, buf)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// persist sorts rows and writes them as a new bucket
func (r *externalRun) persist(ctx context.Context, rows []etl.Row) (string, error) {
	sorted := etl.NewRows(rows...).SortBy(r.keys...)
	w := NewBucketWriter(r.sort.Cache, r.nextID(), r.window)
	for _, row := range sorted.All() {
		if err := w.Append(ctx, row); err != nil {
			w.Discard(context.WithoutCancel(ctx))
			return "", err
		}
	}
	if err := w.Close(ctx); err != nil {
		w.Discard(context.WithoutCancel(ctx))
		return "", err
	}
	return w.ID(), nil
}

// merge reduces ids to a single bucket. On failure every remaining bucket is
// discarded.
func (r *externalRun) merge(ctx context.Context, ids []string) (string, error) {
	for pass := 1; len(ids) > 1; pass++ {
		var next []string
		for start := 0; start < len(ids); start += r.fanIn {
			end := start + r.fanIn
			if end > len(ids) {
				end = len(ids)
			}
			chunk := ids[start:end]
			if len(chunk) == 1 {
				next = append(next, chunk[0])
				continue
			}
			merged, err := r.mergeChunk(ctx, chunk)
			if err != nil {
				cleanup := context.WithoutCancel(ctx)
				r.discard(cleanup, next)
				r.discard(cleanup, ids[end:])
				return "", err
			}
			next = append(next, merged)
		}
		r.sort.Logger.Debug().Str("run", r.namespace).Int("pass", pass).Int("buckets", len(next)).Msg("merge pass complete")
		ids = next
	}
	if len(ids) == 0 {
		return "", nil
	}
	return ids[0], nil
}

// mergeChunk k-way merges the buckets of chunk into a new bucket. Consumed
// buckets delete themselves as they are read.
func (r *externalRun) mergeChunk(ctx context.Context, chunk []string) (id string, err error) {
	readers := make([]*BucketReader, 0, len(chunk))
	w := NewBucketWriter(r.sort.Cache, r.nextID(), r.window)
	defer func() {
		if err == nil {
			return
		}
		cleanup := context.WithoutCancel(ctx)
		for _, reader := range readers {
			reader.Discard(cleanup)
		}
		r.discard(cleanup, chunk[len(readers):])
		w.Discard(cleanup)
	}()

	h := &rowHeap{keys: r.keys}
	for position, bucket := range chunk {
		reader, err := OpenBucket(ctx, r.sort.Cache, bucket)
		if err != nil {
			return "", err
		}
		readers = append(readers, reader)
		row, ok, err := reader.Next(ctx)
		if err != nil {
			return "", err
		}
		if ok {
			h.items = append(h.items, heapItem{row: row, position: position})
		}
	}
	heap.Init(h)
	for h.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		item := heap.Pop(h).(heapItem)
		if err := w.Append(ctx, item.row); err != nil {
			return "", err
		}
		row, ok, err := readers[item.position].Next(ctx)
		if err != nil {
			return "", err
		}
		if ok {
			heap.Push(h, heapItem{row: row, position: item.position})
		}
	}
	if err := w.Close(ctx); err != nil {
		return "", err
	}
	return w.ID(), nil
}

// discard removes buckets, logging rather than returning failures
func (r *externalRun) discard(ctx context.Context, ids []string) {
	var multierr *multierror.Error
	for _, id := range ids {
		multierr = multierror.Append(multierr, DiscardBucket(ctx, r.sort.Cache, id))
	}
	if err := multierr.ErrorOrNil(); err != nil {
		r.sort.Logger.Warn().Err(err).Str("run", r.namespace).Msg("unable to discard sort buckets")
	}
}
