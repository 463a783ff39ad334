package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	iutil "github.com/go-sif/etl/internal/util"
	"github.com/go-sif/etl/logging"
	"github.com/rs/zerolog"
)

// Synchronous pulls batches from its source one at a time, marks the first
// and last batch of the stream, and applies its pipes in order. It looks one
// batch ahead of the consumer so that the last batch is known before its
// pipes run.
type Synchronous struct {
	opts   options
	source etl.Extractor
	pipes  []etl.Pipe
	logger zerolog.Logger
}

// NewSynchronous creates an empty Synchronous pipeline
func NewSynchronous(opts ...Option) *Synchronous {
	o := options{errorHandler: etl.ThrowError(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Synchronous{opts: o, logger: logging.WithComponent(o.logger, "pipeline")}
}

// Add appends a pipe
func (s *Synchronous) Add(pipe etl.Pipe) Pipeline {
	s.pipes = append(s.pipes, pipe)
	return s
}

// Pipes returns a copy of the pipe list
func (s *Synchronous) Pipes() []etl.Pipe {
	out := make([]etl.Pipe, len(s.pipes))
	copy(out, s.pipes)
	return out
}

// Source returns the attached source, or nil
func (s *Synchronous) Source() etl.Extractor {
	return s.source
}

// SetSource attaches a source
func (s *Synchronous) SetSource(source etl.Extractor) Pipeline {
	s.source = source
	return s
}

// Clean returns an empty Synchronous pipeline with the same options
func (s *Synchronous) Clean() Pipeline {
	return &Synchronous{opts: s.opts, logger: s.logger}
}

// bind returns a copy of this pipeline, pipes included, reading from source
func (s *Synchronous) bind(source etl.Extractor) *Synchronous {
	return &Synchronous{opts: s.opts, logger: s.logger, pipes: s.Pipes(), source: source}
}

// ErrorHandler returns the policy applied when a pipe fails
func (s *Synchronous) ErrorHandler() etl.ErrorHandler {
	return s.opts.errorHandler
}

// Process extracts from the source and returns a lazy iterator over the
// processed batches
func (s *Synchronous) Process(ctx context.Context) (etl.RowsIterator, error) {
	if s.source == nil {
		return nil, fmt.Errorf("pipeline has no source")
	}
	upstream, err := s.source.Extract(ctx)
	if err != nil {
		return nil, err
	}
	if s.opts.stats != nil {
		s.opts.stats.Start()
	}
	return &syncIterator{pipeline: s, upstream: upstream}, nil
}

// apply runs the pipe chain against a batch whose position flags are already
// set, restoring those flags after every pipe. Errors returned are fatal;
// skipped batches are returned as they were when the failing pipe ran.
func (s *Synchronous) apply(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
	first, last := rows.IsFirst(), rows.IsLast()
	for i, pipe := range s.pipes {
		start := time.Now()
		out, err := iutil.SafeApply(ctx, pipe, rows)
		if s.opts.stats != nil {
			s.opts.stats.PipeRan(ctx, pipe.Name(), time.Since(start))
		}
		if err != nil {
			perr := errors.PipeError{Index: i, Pipe: pipe.Name(), Cause: err}
			if s.opts.errorHandler.Decide(perr, rows) == etl.Fatal {
				return rows, perr
			}
			s.logger.Warn().Err(perr).Int("rows", rows.Len()).Msg("skipping remaining pipes for batch")
			if s.opts.stats != nil {
				s.opts.stats.BatchSkipped(ctx, pipe.Name())
			}
			return rows, nil
		}
		if pipe.IsTransformer() {
			rows = out.WithPosition(first, last)
		}
	}
	return rows, nil
}

type syncIterator struct {
	pipeline *Synchronous
	upstream etl.RowsIterator
	started  bool
	done     bool
	pending  etl.Rows
	hasNext  bool
	once     sync.Once
}

func (it *syncIterator) Next(ctx context.Context) (etl.Rows, bool, error) {
	if it.done {
		return etl.Rows{}, false, nil
	}
	if err := ctx.Err(); err != nil {
		return etl.Rows{}, false, err
	}
	if !it.started {
		it.started = true
		first, ok, err := it.upstream.Next(ctx)
		if err != nil {
			return etl.Rows{}, false, it.fail(err)
		}
		if !ok {
			it.finish()
			return etl.Rows{}, false, nil
		}
		it.pending, it.hasNext = first.WithPosition(true, false), true
	}
	if !it.hasNext {
		it.finish()
		return etl.Rows{}, false, nil
	}
	current := it.pending
	next, ok, err := it.upstream.Next(ctx)
	if err != nil {
		return etl.Rows{}, false, it.fail(err)
	}
	it.pending, it.hasNext = next.WithPosition(false, false), ok
	current = current.WithPosition(current.IsFirst(), !ok)

	rs := it.pipeline.opts.stats
	if rs != nil {
		rs.BatchIn(ctx, current.Len())
	}
	start := time.Now()
	out, err := it.pipeline.apply(ctx, current)
	if err != nil {
		return etl.Rows{}, false, it.fail(err)
	}
	if rs != nil {
		rs.BatchOut(ctx, out.Len(), time.Since(start))
	}
	return out, true, nil
}

func (it *syncIterator) fail(err error) error {
	it.done = true
	it.pipeline.logger.Error().Err(err).Msg("pipeline failed")
	return err
}

func (it *syncIterator) finish() {
	it.done = true
	if rs := it.pipeline.opts.stats; rs != nil {
		rs.Finish()
	}
}

func (it *syncIterator) Close() (err error) {
	it.once.Do(func() {
		it.done = true
		err = it.upstream.Close()
	})
	return
}
