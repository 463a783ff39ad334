package transform

import (
	"context"

	etl "github.com/go-sif/etl"
	iutil "github.com/go-sif/etl/internal/util"
	"github.com/hashicorp/go-multierror"
)

// FilterTransformer keeps the Rows of a batch which satisfy a function
type FilterTransformer struct {
	fn iutil.FilterFunc
}

// Filter keeps only the Rows for which fn returns true
func Filter(fn func(row etl.Row) (bool, error)) *FilterTransformer {
	return &FilterTransformer{fn: iutil.SafeFilterFunc(fn)}
}

// Transform implements etl.Transformer
func (f *FilterTransformer) Transform(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
	var multierr *multierror.Error
	out := make([]etl.Row, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		keep, err := f.fn(rows.At(i))
		if err != nil {
			multierr = multierror.Append(multierr, err)
			continue
		}
		if keep {
			out = append(out, rows.At(i))
		}
	}
	if multierr != nil {
		multierr.ErrorFormat = iutil.FormatMultiError
	}
	if err := multierr.ErrorOrNil(); err != nil {
		return etl.Rows{}, err
	}
	return etl.NewRows(out...), nil
}

// PreservesEntries implements etl.EntriesPreserving
func (f *FilterTransformer) PreservesEntries() bool {
	return true
}

// WhereTransformer keeps the Rows of a batch which satisfy a simple comparison
type WhereTransformer struct {
	predicate etl.PartitionPredicate
}

// Where keeps only the Rows whose entry satisfies op against value. When
// entry identifies partitions of the source, the comparison may be pushed
// down to the source instead.
func Where(entry string, op etl.Operator, value interface{}) *WhereTransformer {
	return &WhereTransformer{predicate: etl.PartitionPredicate{Entry: entry, Op: op, Value: value}}
}

// Transform implements etl.Transformer
func (w *WhereTransformer) Transform(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
	if err := w.predicate.Valid(); err != nil {
		return etl.Rows{}, err
	}
	return rows.Filter(w.predicate.MatchesRow), nil
}

// PartitionPredicate implements etl.PartitionPredicateProvider
func (w *WhereTransformer) PartitionPredicate() (etl.PartitionPredicate, bool) {
	return w.predicate, true
}

// PreservesEntries implements etl.EntriesPreserving
func (w *WhereTransformer) PreservesEntries() bool {
	return true
}
