package pipeline

import (
	"context"
	"sync"
	"time"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"golang.org/x/sync/errgroup"
)

// Parallelizing splits every batch produced by its inner pipeline into
// Parallelism near-equal chunks and runs each chunk through its own copy of
// the pipes added to it, concurrently. Chunks are yielded in order, and the
// first and last flags follow the chunks' positions in the overall stream.
// Pipes added to a Parallelizing pipeline, and anything they share, must be
// safe for concurrent use.
type Parallelizing struct {
	inner       Pipeline
	parallelism int
	next        *Synchronous
}

// NewParallelizing wraps inner. parallelism must be at least 1.
func NewParallelizing(inner Pipeline, parallelism int) (*Parallelizing, error) {
	if parallelism < 1 {
		return nil, errors.InvalidConfigError{Param: "parallelism", Value: parallelism, Reason: "must be at least 1"}
	}
	return &Parallelizing{inner: inner, parallelism: parallelism, next: downstream(inner)}, nil
}

// Parallelism returns the number of chunks each batch is split into
func (p *Parallelizing) Parallelism() int {
	return p.parallelism
}

// Inner returns the decorated pipeline
func (p *Parallelizing) Inner() Pipeline {
	return p.inner
}

// Add appends a pipe which runs against every chunk
func (p *Parallelizing) Add(pipe etl.Pipe) Pipeline {
	p.next.Add(pipe)
	return p
}

// Pipes returns the pipes of the inner pipeline followed by the pipes added to this one
func (p *Parallelizing) Pipes() []etl.Pipe {
	return append(p.inner.Pipes(), p.next.Pipes()...)
}

// Source returns the inner pipeline's source
func (p *Parallelizing) Source() etl.Extractor {
	return p.inner.Source()
}

// SetSource sets the inner pipeline's source
func (p *Parallelizing) SetSource(source etl.Extractor) Pipeline {
	p.inner.SetSource(source)
	return p
}

// Clean returns an empty Parallelizing pipeline of the same parallelism around a clean inner pipeline
func (p *Parallelizing) Clean() Pipeline {
	inner := p.inner.Clean()
	return &Parallelizing{inner: inner, parallelism: p.parallelism, next: downstream(inner)}
}

// Process implements Pipeline
func (p *Parallelizing) Process(ctx context.Context) (etl.RowsIterator, error) {
	upstream, err := p.inner.Process(ctx)
	if err != nil {
		return nil, err
	}
	return &parallelIterator{decorator: p, upstream: upstream}, nil
}

type parallelIterator struct {
	decorator *Parallelizing
	upstream  etl.RowsIterator
	queue     []etl.Rows
	started   bool
	done      bool
	pending   etl.Rows
	hasNext   bool
	first     bool
	once      sync.Once
}

func (it *parallelIterator) Next(ctx context.Context) (etl.Rows, bool, error) {
	if len(it.queue) > 0 {
		out := it.queue[0]
		it.queue = it.queue[1:]
		return out, true, nil
	}
	if it.done {
		return etl.Rows{}, false, nil
	}
	if !it.started {
		it.started = true
		batch, ok, err := it.upstream.Next(ctx)
		if err != nil {
			it.done = true
			return etl.Rows{}, false, err
		}
		it.pending, it.hasNext, it.first = batch, ok, true
	}
	if !it.hasNext {
		it.done = true
		return etl.Rows{}, false, nil
	}
	current, isFirst := it.pending, it.first
	next, ok, err := it.upstream.Next(ctx)
	if err != nil {
		it.done = true
		return etl.Rows{}, false, err
	}
	it.pending, it.hasNext, it.first = next, ok, false

	results, err := it.run(ctx, current, isFirst, !ok)
	if err != nil {
		it.done = true
		return etl.Rows{}, false, err
	}
	it.queue = results[1:]
	return results[0], true, nil
}

// run splits batch into chunks and processes them concurrently, returning the results in chunk order
func (it *parallelIterator) run(ctx context.Context, batch etl.Rows, isFirst bool, isLast bool) ([]etl.Rows, error) {
	chunks := batch.Split(it.decorator.parallelism)
	if len(chunks) == 0 {
		chunks = []etl.Rows{batch}
	}
	results := make([]etl.Rows, len(chunks))
	rs := it.decorator.next.opts.stats
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(it.decorator.parallelism)
	for i, chunk := range chunks {
		chunk = chunk.WithPosition(isFirst && i == 0, isLast && i == len(chunks)-1)
		chain := it.decorator.next.bind(nil)
		g.Go(func() error {
			if rs != nil {
				rs.BatchIn(gctx, chunk.Len())
			}
			start := time.Now()
			out, err := chain.apply(gctx, chunk)
			if err != nil {
				return err
			}
			if rs != nil {
				rs.BatchOut(gctx, out.Len(), time.Since(start))
			}
			results[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (it *parallelIterator) Close() (err error) {
	it.once.Do(func() {
		it.done = true
		it.queue = nil
		err = it.upstream.Close()
	})
	return
}
