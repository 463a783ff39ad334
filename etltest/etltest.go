// Package etltest provides fixtures shared by the engine's tests
package etltest

import (
	"context"
	"sync"

	etl "github.com/go-sif/etl"
)

// Rows produces a batch of n rows with sequential "id" entries starting at from
func Rows(from int, n int) etl.Rows {
	rows := make([]etl.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = etl.R("id", from+i)
	}
	return etl.NewRows(rows...)
}

// Batches produces consecutive batches of the given sizes with sequential "id" entries starting at 0
func Batches(sizes ...int) []etl.Rows {
	out := make([]etl.Rows, len(sizes))
	next := 0
	for i, size := range sizes {
		out[i] = Rows(next, size)
		next += size
	}
	return out
}

// IDs returns the "id" entry of every row in batches, in order
func IDs(batches ...etl.Rows) []int {
	var ids []int
	for _, b := range batches {
		for i := 0; i < b.Len(); i++ {
			ids = append(ids, b.At(i).Value("id").(int))
		}
	}
	return ids
}

// Sizes returns the length of every batch
func Sizes(batches []etl.Rows) []int {
	out := make([]int, len(batches))
	for i, b := range batches {
		out[i] = b.Len()
	}
	return out
}

// Positions counts the batches flagged first and last
func Positions(batches []etl.Rows) (firsts int, lasts int) {
	for _, b := range batches {
		if b.IsFirst() {
			firsts++
		}
		if b.IsLast() {
			lasts++
		}
	}
	return
}

// Extractor replays a fixed list of batches on every Extract
type Extractor struct {
	batches []etl.Rows
	lock    sync.Mutex
	pulled  int
	closed  int
}

// NewExtractor creates an Extractor over batches
func NewExtractor(batches ...etl.Rows) *Extractor {
	return &Extractor{batches: batches}
}

// Extract implements etl.Extractor
func (e *Extractor) Extract(ctx context.Context) (etl.RowsIterator, error) {
	next := 0
	return etl.NewFuncIterator(func(ctx context.Context) (etl.Rows, bool, error) {
		if next >= len(e.batches) {
			return etl.Rows{}, false, nil
		}
		b := e.batches[next]
		next++
		e.lock.Lock()
		e.pulled++
		e.lock.Unlock()
		return b, true, nil
	}, func() error {
		e.lock.Lock()
		e.closed++
		e.lock.Unlock()
		return nil
	}), nil
}

// Pulled returns the number of batches handed out so far
func (e *Extractor) Pulled() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.pulled
}

// Closed returns the number of iterators closed so far
func (e *Extractor) Closed() int {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.closed
}

// Loader records every batch it is given. It is safe for concurrent use.
type Loader struct {
	lock    sync.Mutex
	batches []etl.Rows
}

// Load implements etl.Loader
func (l *Loader) Load(ctx context.Context, rows etl.Rows) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.batches = append(l.batches, rows)
	return nil
}

// Batches returns the batches loaded so far
func (l *Loader) Batches() []etl.Rows {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]etl.Rows(nil), l.batches...)
}

// BulkLoader is a Loader which prefers large batches
type BulkLoader struct {
	Loader
	Preferred int
}

// PreferredBatchSize implements etl.BatchSizePreferrer
func (l *BulkLoader) PreferredBatchSize() int {
	return l.Preferred
}

// Transformer applies fn to every row
func Transformer(fn func(etl.Row) etl.Row) etl.Transformer {
	return etl.TransformerFunc(func(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
		return rows.Map(fn), nil
	})
}

// Failing returns a Transformer which always fails with err
func Failing(err error) etl.Transformer {
	return etl.TransformerFunc(func(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
		return etl.Rows{}, err
	})
}
