package optimizer

import (
	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/pipeline"
)

// DefaultBatchSize is used by BatchSizeRule when a loader does not name a size
const DefaultBatchSize = 1000

// BatchSizeRule wraps the pipeline in a Batching decorator before a loader
// which prefers large batches is appended, unless the pipeline is already
// reshaped by a Batching, Collecting or Parallelizing decorator. Loaders
// preferring a size below 1 get DefaultSize.
type BatchSizeRule struct {
	DefaultSize int
}

// Applies implements Rule
func (r *BatchSizeRule) Applies(pipe etl.Pipe, p pipeline.Pipeline) bool {
	if !pipe.IsLoader() {
		return false
	}
	pref, ok := pipe.Loader().(etl.BatchSizePreferrer)
	if !ok || pref.PreferredBatchSize() == 1 {
		return false
	}
	switch p.(type) {
	case *pipeline.Batching, *pipeline.Collecting, *pipeline.Parallelizing:
		return false
	}
	return true
}

// Rewrite implements Rule
func (r *BatchSizeRule) Rewrite(pipe etl.Pipe, p pipeline.Pipeline) pipeline.Pipeline {
	size := pipe.Loader().(etl.BatchSizePreferrer).PreferredBatchSize()
	if size < 1 {
		size = r.DefaultSize
	}
	if size < 1 {
		size = DefaultBatchSize
	}
	b, err := pipeline.NewBatching(p, size)
	if err != nil {
		return p.Add(pipe)
	}
	return b.Add(pipe)
}

// LimitPushdownRule hands a limit to the source, and drops the limiting
// transformer, when every pipe before it preserves cardinality
type LimitPushdownRule struct{}

// Applies implements Rule
func (r *LimitPushdownRule) Applies(pipe etl.Pipe, p pipeline.Pipeline) bool {
	if !pipe.IsTransformer() {
		return false
	}
	limiter, ok := pipe.Transformer().(etl.Limiter)
	if !ok || limiter.Limit() < 0 {
		return false
	}
	if _, ok := p.Source().(etl.LimitableExtractor); !ok {
		return false
	}
	transformers, ok := plainTransformers(p)
	if !ok {
		return false
	}
	for _, t := range transformers {
		if !etl.IsCardinalityPreserving(t) {
			return false
		}
	}
	return true
}

// Rewrite implements Rule
func (r *LimitPushdownRule) Rewrite(pipe etl.Pipe, p pipeline.Pipeline) pipeline.Pipeline {
	p.Source().(etl.LimitableExtractor).SetLimit(pipe.Transformer().(etl.Limiter).Limit())
	return p
}

// PartitionPushdownRule turns a filter on a partition entry into a partition
// filter on the source, and drops the filter, when every pipe before it is a
// row filter which leaves entries untouched. A limit already held by the
// source, or a limiting pipe, blocks the rewrite since filtering first would
// change which rows fall within the limit.
type PartitionPushdownRule struct{}

// Applies implements Rule
func (r *PartitionPushdownRule) Applies(pipe etl.Pipe, p pipeline.Pipeline) bool {
	if !pipe.IsTransformer() {
		return false
	}
	provider, ok := pipe.Transformer().(etl.PartitionPredicateProvider)
	if !ok {
		return false
	}
	predicate, ok := provider.PartitionPredicate()
	if !ok || predicate.Valid() != nil {
		return false
	}
	source, ok := p.Source().(etl.PartitionedExtractor)
	if !ok || !contains(source.PartitionColumns(), predicate.Entry) {
		return false
	}
	if limitable, ok := source.(etl.LimitableExtractor); ok && limitable.Limited() {
		return false
	}
	transformers, ok := plainTransformers(p)
	if !ok {
		return false
	}
	for _, t := range transformers {
		if _, limits := t.(etl.Limiter); limits || !etl.IsEntriesPreserving(t) {
			return false
		}
	}
	return true
}

// Rewrite implements Rule
func (r *PartitionPushdownRule) Rewrite(pipe etl.Pipe, p pipeline.Pipeline) pipeline.Pipeline {
	predicate, _ := pipe.Transformer().(etl.PartitionPredicateProvider).PartitionPredicate()
	p.Source().(etl.PartitionedExtractor).SetPartitionFilter(predicate)
	return p
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
