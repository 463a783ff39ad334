package dataframe

import (
	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/config"
	"github.com/go-sif/etl/pipeline/optimizer"
	"github.com/go-sif/etl/stats"
	"github.com/rs/zerolog"
)

// Option configures a DataFrame
type Option func(*options)

type options struct {
	cfg       config.Config
	cache     etl.Cache
	logger    zerolog.Logger
	handler   etl.ErrorHandler
	optimizer *optimizer.Optimizer
	stats     *stats.RunStatistics
}

// WithConfig sets the engine configuration. Unset fields take their defaults.
func WithConfig(cfg config.Config) Option {
	return func(o *options) { o.cfg = cfg }
}

// WithCache sets the Cache used by SortBy. By default one is built from the
// cache section of the configuration the first time it is needed.
func WithCache(c etl.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithLogger sets the logger handed to the pipeline, optimizer and sorter
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithErrorHandler sets the policy applied when a pipe fails. The default is etl.ThrowError().
func WithErrorHandler(h etl.ErrorHandler) Option {
	return func(o *options) { o.handler = h }
}

// WithOptimizer replaces the optimizer pipes are appended through
func WithOptimizer(opt *optimizer.Optimizer) Option {
	return func(o *options) { o.optimizer = opt }
}

// WithStatistics records run statistics into rs
func WithStatistics(rs *stats.RunStatistics) Option {
	return func(o *options) { o.stats = rs }
}
