// Package optimizer rewrites pipelines as pipes are appended to them. Each
// Rule recognises a pattern it can prove safe to rewrite and declines
// otherwise.
package optimizer

import (
	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/logging"
	"github.com/go-sif/etl/pipeline"
	"github.com/rs/zerolog"
)

// A Rule rewrites a pipeline when a pipe is about to be appended to it. When
// Applies returns true, Rewrite is responsible for appending the pipe, or
// for dropping it when the rewrite makes it redundant.
type Rule interface {
	Applies(pipe etl.Pipe, p pipeline.Pipeline) bool
	Rewrite(pipe etl.Pipe, p pipeline.Pipeline) pipeline.Pipeline
}

// Optimizer evaluates its rules in order; the first applicable rule wins
type Optimizer struct {
	rules  []Rule
	logger zerolog.Logger
}

// Option configures an Optimizer
type Option func(*Optimizer)

// WithLogger sets the logger rewrites are reported to
func WithLogger(logger zerolog.Logger) Option {
	return func(o *Optimizer) { o.logger = logging.WithComponent(logger, "optimizer") }
}

// WithRules replaces the rule set
func WithRules(rules ...Rule) Option {
	return func(o *Optimizer) { o.rules = rules }
}

// New creates an Optimizer with the default rules: batch size, limit
// pushdown and partition pushdown, in that order
func New(opts ...Option) *Optimizer {
	o := &Optimizer{logger: zerolog.Nop()}
	o.rules = []Rule{
		&BatchSizeRule{DefaultSize: DefaultBatchSize},
		&LimitPushdownRule{},
		&PartitionPushdownRule{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Rules returns the rule set, in evaluation order
func (o *Optimizer) Rules() []Rule {
	return append([]Rule(nil), o.rules...)
}

// Optimize appends pipe to p, applying the first rule which applies
func (o *Optimizer) Optimize(pipe etl.Pipe, p pipeline.Pipeline) pipeline.Pipeline {
	for _, rule := range o.rules {
		if rule.Applies(pipe, p) {
			o.logger.Debug().
				Str("rule", ruleName(rule)).
				Str("pipe", pipe.Name()).
				Msg("rewriting pipeline")
			return rule.Rewrite(pipe, p)
		}
	}
	o.logger.Debug().Str("pipe", pipe.Name()).Msg("no rule applies, appending pipe")
	return p.Add(pipe)
}

func ruleName(r Rule) string {
	switch r.(type) {
	case *BatchSizeRule:
		return "batch_size"
	case *LimitPushdownRule:
		return "limit_pushdown"
	case *PartitionPushdownRule:
		return "partition_pushdown"
	default:
		return "custom"
	}
}

// plainTransformers returns the pipes of p when p is an undecorated
// Synchronous pipeline whose pipes are all transformers
func plainTransformers(p pipeline.Pipeline) ([]etl.Transformer, bool) {
	s, ok := p.(*pipeline.Synchronous)
	if !ok {
		return nil, false
	}
	pipes := s.Pipes()
	out := make([]etl.Transformer, len(pipes))
	for i, pipe := range pipes {
		if !pipe.IsTransformer() {
			return nil, false
		}
		out[i] = pipe.Transformer()
	}
	return out, true
}
