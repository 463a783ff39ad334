// Package dataframe offers a fluent way of assembling a pipeline: each call
// appends a pipe (through the optimizer) or wraps the pipeline built so far
// in a decorator. The first configuration error is recorded and returned by
// the terminal call, so chains need not be checked step by step.
package dataframe

import (
	"context"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/accumulators"
	"github.com/go-sif/etl/cache"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/logging"
	"github.com/go-sif/etl/operations/transform"
	"github.com/go-sif/etl/operations/util"
	"github.com/go-sif/etl/pipeline"
	"github.com/go-sif/etl/pipeline/optimizer"
	"github.com/go-sif/etl/sorting"
)

// A DataFrame is a pipeline under construction
type DataFrame struct {
	opts options
	base *pipeline.Synchronous // configured template every stage is cloned from
	pipe pipeline.Pipeline
	err  error
}

// Read starts a DataFrame over source
func Read(source etl.Extractor, opts ...Option) *DataFrame {
	o := options{handler: etl.ThrowError()}
	for _, opt := range opts {
		opt(&o)
	}
	o.cfg.ApplyDefaults()
	if o.optimizer == nil {
		o.optimizer = optimizer.New(
			optimizer.WithLogger(o.logger),
			optimizer.WithRules(
				&optimizer.BatchSizeRule{DefaultSize: o.cfg.Pipeline.BatchSize},
				&optimizer.LimitPushdownRule{},
				&optimizer.PartitionPushdownRule{},
			),
		)
	}
	pipelineOpts := []pipeline.Option{
		pipeline.WithErrorHandler(o.handler),
		pipeline.WithLogger(o.logger),
	}
	if o.stats != nil {
		pipelineOpts = append(pipelineOpts, pipeline.WithStatistics(o.stats))
	}
	df := &DataFrame{opts: o, base: pipeline.NewSynchronous(pipelineOpts...)}
	if source == nil {
		df.err = errors.InvalidConfigError{Param: "source", Value: nil, Reason: "a DataFrame requires a source"}
		df.pipe = df.base
		return df
	}
	df.pipe = df.base.Clean().SetSource(source)
	if err := o.cfg.Validate(); err != nil {
		df.err = err
	}
	return df
}

// Err returns the first configuration error recorded so far
func (df *DataFrame) Err() error {
	return df.err
}

// Pipeline returns the pipeline built so far
func (df *DataFrame) Pipeline() pipeline.Pipeline {
	return df.pipe
}

func (df *DataFrame) add(pipe etl.Pipe) *DataFrame {
	if df.err != nil {
		return df
	}
	// a limit must see the ordered output of a Parallelizing pipeline, not its chunks
	if _, parallel := df.pipe.(*pipeline.Parallelizing); parallel && pipe.IsTransformer() {
		if _, limits := pipe.Transformer().(etl.Limiter); limits {
			df.pipe = df.base.Clean().SetSource(pipeline.AsExtractor(df.pipe))
		}
	}
	df.pipe = df.opts.optimizer.Optimize(pipe, df.pipe)
	return df
}

func (df *DataFrame) wrap(fn func(p pipeline.Pipeline) (pipeline.Pipeline, error)) *DataFrame {
	if df.err != nil {
		return df
	}
	p, err := fn(df.pipe)
	if err != nil {
		df.err = err
		return df
	}
	df.pipe = p
	return df
}

// Transform appends a Transformer
func (df *DataFrame) Transform(t etl.Transformer) *DataFrame {
	return df.add(etl.TransformerPipe(t))
}

// Map appends a per-row transformation
func (df *DataFrame) Map(fn func(row etl.Row) (etl.Row, error)) *DataFrame {
	return df.Transform(transform.Map(fn))
}

// Filter keeps the rows for which fn returns true
func (df *DataFrame) Filter(fn func(row etl.Row) (bool, error)) *DataFrame {
	return df.Transform(transform.Filter(fn))
}

// Where keeps the rows whose entry compares to value as op requires. It may
// be pushed into a partitioned source.
func (df *DataFrame) Where(entry string, op etl.Operator, value interface{}) *DataFrame {
	if df.err == nil {
		if err := (etl.PartitionPredicate{Entry: entry, Op: op, Value: value}).Valid(); err != nil {
			df.err = errors.InvalidConfigError{Param: "operator", Value: op, Reason: err.Error()}
			return df
		}
	}
	return df.Transform(transform.Where(entry, op, value))
}

// Limit truncates the stream to its first n rows. It may be pushed into the
// source. After Parallelize, the limit and the pipes appended after it run
// serially over the reassembled stream.
func (df *DataFrame) Limit(n int) *DataFrame {
	if df.err == nil && n < 0 {
		df.err = errors.InvalidConfigError{Param: "limit", Value: n, Reason: "must not be negative"}
		return df
	}
	return df.Transform(transform.Limit(n))
}

// Select keeps only the named entries, in the given order
func (df *DataFrame) Select(names ...string) *DataFrame {
	return df.Transform(transform.Select(names...))
}

// Drop removes the named entries
func (df *DataFrame) Drop(names ...string) *DataFrame {
	return df.Transform(transform.Drop(names...))
}

// Rename renames an entry
func (df *DataFrame) Rename(from string, to string) *DataFrame {
	return df.Transform(transform.Rename(from, to))
}

// WithEntry sets an entry to the value computed by fn
func (df *DataFrame) WithEntry(name string, fn func(row etl.Row) (interface{}, error)) *DataFrame {
	return df.Transform(transform.WithEntry(name, fn))
}

// Load appends a Loader
func (df *DataFrame) Load(l etl.Loader) *DataFrame {
	return df.add(etl.LoaderPipe(l))
}

// BatchSize regroups the stream into batches of n rows
func (df *DataFrame) BatchSize(n int) *DataFrame {
	return df.wrap(func(p pipeline.Pipeline) (pipeline.Pipeline, error) {
		return pipeline.NewBatching(p, n)
	})
}

// Collect gathers the whole stream into a single batch
func (df *DataFrame) Collect() *DataFrame {
	return df.wrap(func(p pipeline.Pipeline) (pipeline.Pipeline, error) {
		return pipeline.NewCollecting(p), nil
	})
}

// Parallelize runs the pipes appended afterwards on parallelism chunks of
// each batch concurrently. A parallelism of 0 uses the configured default.
func (df *DataFrame) Parallelize(parallelism int) *DataFrame {
	if parallelism == 0 {
		parallelism = df.opts.cfg.Pipeline.Parallelism
	}
	return df.wrap(func(p pipeline.Pipeline) (pipeline.Pipeline, error) {
		return pipeline.NewParallelizing(p, parallelism)
	})
}

// GroupBy folds the stream into one row per distinct key
func (df *DataFrame) GroupBy(keys []string, aggregations ...accumulators.Aggregation) *DataFrame {
	return df.wrap(func(p pipeline.Pipeline) (pipeline.Pipeline, error) {
		return pipeline.NewGroupBy(p, keys, aggregations...)
	})
}

// SortBy orders the whole stream. The pipeline built so far becomes the
// input of the sort, and the pipes appended afterwards read its output.
func (df *DataFrame) SortBy(refs ...etl.SortReference) *DataFrame {
	return df.wrap(func(p pipeline.Pipeline) (pipeline.Pipeline, error) {
		if len(refs) == 0 {
			return nil, errors.InvalidConfigError{Param: "sort keys", Value: refs, Reason: "at least one sort reference is required"}
		}
		if df.opts.cache == nil {
			c, err := cache.New(context.Background(), df.opts.cfg.Cache)
			if err != nil {
				return nil, err
			}
			df.opts.cache = c
		}
		sorter, err := sorting.New(df.opts.cfg.Sort, df.opts.cache, df.opts.logger)
		if err != nil {
			return nil, err
		}
		source := sorting.Extractor(pipeline.AsExtractor(p), sorter, etl.SortKeySet(refs))
		return df.base.Clean().SetSource(source), nil
	})
}

// Iterator starts the pipeline and returns its output stream
func (df *DataFrame) Iterator(ctx context.Context) (etl.RowsIterator, error) {
	if df.err != nil {
		return nil, df.err
	}
	l := logging.WithComponent(df.opts.logger, "dataframe")
	l.Debug().
		Int("pipes", len(df.pipe.Pipes())).
		Msg("starting pipeline")
	return df.pipe.Process(ctx)
}

// Run drives the pipeline to completion, invoking sink (which may be nil)
// with every output batch
func (df *DataFrame) Run(ctx context.Context, sink func(etl.Rows) error) error {
	iter, err := df.Iterator(ctx)
	if err != nil {
		return err
	}
	return etl.Drain(ctx, iter, sink)
}

// Fetch drives the pipeline to completion and returns its output as a single batch
func (df *DataFrame) Fetch(ctx context.Context) (etl.Rows, error) {
	iter, err := df.Iterator(ctx)
	if err != nil {
		return etl.Rows{}, err
	}
	return util.Collect(ctx, iter, 0)
}

// Accumulate drives the pipeline to completion, folding its output into a
// single Row with one entry per aggregation
func (df *DataFrame) Accumulate(ctx context.Context, aggregations ...accumulators.Aggregation) (etl.Row, error) {
	iter, err := df.Iterator(ctx)
	if err != nil {
		return etl.Row{}, err
	}
	return util.Accumulate(ctx, iter, aggregations...)
}
