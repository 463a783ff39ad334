package pipeline

import (
	"context"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
)

// Batching re-chunks the output of its inner pipeline into batches of
// exactly Size rows before the pipes added to it run. The final batch holds
// the remainder and may be smaller; an empty remainder produces no batch.
type Batching struct {
	inner Pipeline
	size  int
	next  *Synchronous
}

// NewBatching wraps inner. size must be at least 1.
func NewBatching(inner Pipeline, size int) (*Batching, error) {
	if size < 1 {
		return nil, errors.InvalidConfigError{Param: "batch size", Value: size, Reason: "must be at least 1"}
	}
	return &Batching{inner: inner, size: size, next: downstream(inner)}, nil
}

// Size returns the target batch size
func (b *Batching) Size() int {
	return b.size
}

// Inner returns the decorated pipeline
func (b *Batching) Inner() Pipeline {
	return b.inner
}

// Add appends a pipe which runs against the re-chunked batches
func (b *Batching) Add(pipe etl.Pipe) Pipeline {
	b.next.Add(pipe)
	return b
}

// Pipes returns the pipes of the inner pipeline followed by the pipes added to this one
func (b *Batching) Pipes() []etl.Pipe {
	return append(b.inner.Pipes(), b.next.Pipes()...)
}

// Source returns the inner pipeline's source
func (b *Batching) Source() etl.Extractor {
	return b.inner.Source()
}

// SetSource sets the inner pipeline's source
func (b *Batching) SetSource(source etl.Extractor) Pipeline {
	b.inner.SetSource(source)
	return b
}

// Clean returns an empty Batching pipeline of the same size around a clean inner pipeline
func (b *Batching) Clean() Pipeline {
	inner := b.inner.Clean()
	return &Batching{inner: inner, size: b.size, next: downstream(inner)}
}

// Process implements Pipeline
func (b *Batching) Process(ctx context.Context) (etl.RowsIterator, error) {
	upstream, err := b.inner.Process(ctx)
	if err != nil {
		return nil, err
	}
	return b.next.bind(&iteratorExtractor{iter: &rebatchingIterator{upstream: upstream, size: b.size}}).Process(ctx)
}

type rebatchingIterator struct {
	upstream  etl.RowsIterator
	size      int
	buffer    []etl.Row
	exhausted bool
}

func (it *rebatchingIterator) Next(ctx context.Context) (etl.Rows, bool, error) {
	for len(it.buffer) < it.size && !it.exhausted {
		batch, ok, err := it.upstream.Next(ctx)
		if err != nil {
			return etl.Rows{}, false, err
		}
		if !ok {
			it.exhausted = true
			break
		}
		it.buffer = append(it.buffer, batch.All()...)
	}
	if len(it.buffer) == 0 {
		return etl.Rows{}, false, nil
	}
	n := it.size
	if n > len(it.buffer) {
		n = len(it.buffer)
	}
	out := etl.NewRows(it.buffer[:n]...)
	it.buffer = it.buffer[n:]
	return out, true, nil
}

func (it *rebatchingIterator) Close() error {
	it.buffer = nil
	return it.upstream.Close()
}
