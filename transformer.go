package etl

import "context"

// A Transformer maps a batch to a new batch. Transformers must not mutate
// their input.
type Transformer interface {
	Transform(ctx context.Context, rows Rows) (Rows, error)
}

// TransformerFunc adapts a function into a Transformer
type TransformerFunc func(ctx context.Context, rows Rows) (Rows, error)

// Transform implements Transformer
func (f TransformerFunc) Transform(ctx context.Context, rows Rows) (Rows, error) {
	return f(ctx, rows)
}

// CardinalityPreserving is implemented by Transformers which neither add,
// remove nor reorder Rows
type CardinalityPreserving interface {
	PreservesCardinality() bool
}

// EntriesPreserving is implemented by Transformers which never change the
// value of an existing entry, nor rename or remove it
type EntriesPreserving interface {
	PreservesEntries() bool
}

// A Limiter is a Transformer which truncates its stream to the first Limit() rows
type Limiter interface {
	Transformer
	Limit() int
}

// A PartitionPredicateProvider is a filtering Transformer whose predicate can
// be expressed as a PartitionPredicate
type PartitionPredicateProvider interface {
	Transformer
	PartitionPredicate() (PartitionPredicate, bool)
}

// IsCardinalityPreserving returns true iff t declares that it preserves cardinality
func IsCardinalityPreserving(t Transformer) bool {
	cp, ok := t.(CardinalityPreserving)
	return ok && cp.PreservesCardinality()
}

// IsEntriesPreserving returns true iff t declares that it preserves entries
func IsEntriesPreserving(t Transformer) bool {
	ep, ok := t.(EntriesPreserving)
	return ok && ep.PreservesEntries()
}
