package pipeline

import (
	"context"

	etl "github.com/go-sif/etl"
)

// Collecting concatenates the entire output of its inner pipeline into a
// single batch, which is both first and last, before the pipes added to it
// run. An empty stream still produces one, empty, batch. The whole stream is
// held in memory.
type Collecting struct {
	inner Pipeline
	next  *Synchronous
}

// NewCollecting wraps inner
func NewCollecting(inner Pipeline) *Collecting {
	return &Collecting{inner: inner, next: downstream(inner)}
}

// Inner returns the decorated pipeline
func (c *Collecting) Inner() Pipeline {
	return c.inner
}

// Add appends a pipe which runs against the collected batch
func (c *Collecting) Add(pipe etl.Pipe) Pipeline {
	c.next.Add(pipe)
	return c
}

// Pipes returns the pipes of the inner pipeline followed by the pipes added to this one
func (c *Collecting) Pipes() []etl.Pipe {
	return append(c.inner.Pipes(), c.next.Pipes()...)
}

// Source returns the inner pipeline's source
func (c *Collecting) Source() etl.Extractor {
	return c.inner.Source()
}

// SetSource sets the inner pipeline's source
func (c *Collecting) SetSource(source etl.Extractor) Pipeline {
	c.inner.SetSource(source)
	return c
}

// Clean returns an empty Collecting pipeline around a clean inner pipeline
func (c *Collecting) Clean() Pipeline {
	return NewCollecting(c.inner.Clean())
}

// Process implements Pipeline
func (c *Collecting) Process(ctx context.Context) (etl.RowsIterator, error) {
	upstream, err := c.inner.Process(ctx)
	if err != nil {
		return nil, err
	}
	return c.next.bind(&iteratorExtractor{iter: &blockingIterator{upstream: upstream, fold: collectAll}}).Process(ctx)
}

func collectAll(ctx context.Context, upstream etl.RowsIterator) (etl.Rows, error) {
	var all []etl.Row
	for {
		batch, ok, err := upstream.Next(ctx)
		if err != nil {
			return etl.Rows{}, err
		}
		if !ok {
			return etl.NewRows(all...), nil
		}
		all = append(all, batch.All()...)
	}
}

// blockingIterator exhausts its upstream on the first pull and yields the result of fold once
type blockingIterator struct {
	upstream etl.RowsIterator
	fold     func(ctx context.Context, upstream etl.RowsIterator) (etl.Rows, error)
	done     bool
}

func (it *blockingIterator) Next(ctx context.Context) (etl.Rows, bool, error) {
	if it.done {
		return etl.Rows{}, false, nil
	}
	it.done = true
	out, err := it.fold(ctx, it.upstream)
	if err != nil {
		return etl.Rows{}, false, err
	}
	return out, true, nil
}

func (it *blockingIterator) Close() error {
	it.done = true
	return it.upstream.Close()
}
