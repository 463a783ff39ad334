// Package pipeline executes chains of Pipes against the batches produced by
// an Extractor. The Synchronous pipeline is the core executor; Batching,
// Collecting, Parallelizing and GroupBy decorate another pipeline, reshaping
// its output stream before it reaches the Pipes added after them.
package pipeline

import (
	"context"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/stats"
	"github.com/rs/zerolog"
)

// A Pipeline owns an ordered list of Pipes and a source. Process consumes the
// source once; Clean yields a fresh pipeline with the same configuration but
// no pipes and no source.
type Pipeline interface {
	Add(pipe etl.Pipe) Pipeline
	Pipes() []etl.Pipe
	Source() etl.Extractor
	SetSource(source etl.Extractor) Pipeline
	Process(ctx context.Context) (etl.RowsIterator, error)
	Clean() Pipeline
}

// A Decorator is a Pipeline which reshapes the output of another Pipeline
type Decorator interface {
	Pipeline
	Inner() Pipeline
}

// Option configures a Synchronous pipeline
type Option func(*options)

type options struct {
	errorHandler etl.ErrorHandler
	logger       zerolog.Logger
	stats        *stats.RunStatistics
}

// WithErrorHandler sets the policy applied when a pipe fails. The default is etl.ThrowError().
func WithErrorHandler(h etl.ErrorHandler) Option {
	return func(o *options) { o.errorHandler = h }
}

// WithLogger sets the logger used to report skipped batches
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithStatistics records run statistics into rs
func WithStatistics(rs *stats.RunStatistics) Option {
	return func(o *options) { o.stats = rs }
}

// Run processes p, invoking sink (which may be nil) with every output batch
func Run(ctx context.Context, p Pipeline, sink func(etl.Rows) error) error {
	iter, err := p.Process(ctx)
	if err != nil {
		return err
	}
	return etl.Drain(ctx, iter, sink)
}

// Collect processes p and returns every output batch, in order
func Collect(ctx context.Context, p Pipeline) ([]etl.Rows, error) {
	var out []etl.Rows
	err := Run(ctx, p, func(batch etl.Rows) error {
		out = append(out, batch)
		return nil
	})
	return out, err
}

// AsExtractor exposes the output of p as an Extractor
func AsExtractor(p Pipeline) etl.Extractor {
	return etl.ExtractorFunc(p.Process)
}

// Unwrap returns the innermost, undecorated Pipeline of p
func Unwrap(p Pipeline) Pipeline {
	for {
		d, ok := p.(Decorator)
		if !ok {
			return p
		}
		p = d.Inner()
	}
}

// downstream builds the executor for the pipes added after a decorator,
// sharing the configuration of the innermost pipeline
func downstream(inner Pipeline) *Synchronous {
	if s, ok := Unwrap(inner).(*Synchronous); ok {
		return s.Clean().(*Synchronous)
	}
	return NewSynchronous()
}

// iteratorExtractor is a one-shot Extractor handing out an already opened iterator
type iteratorExtractor struct {
	iter etl.RowsIterator
}

func (e *iteratorExtractor) Extract(ctx context.Context) (etl.RowsIterator, error) {
	return e.iter, nil
}
