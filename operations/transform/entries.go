package transform

import (
	"context"

	etl "github.com/go-sif/etl"
	iutil "github.com/go-sif/etl/internal/util"
	"github.com/hashicorp/go-multierror"
)

// EntriesTransformer rewrites the entries of every Row without changing the
// number or order of Rows
type EntriesTransformer struct {
	fn func(row etl.Row) (etl.Row, error)
}

// Transform implements etl.Transformer
func (e *EntriesTransformer) Transform(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
	var multierr *multierror.Error
	out := make([]etl.Row, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		row, err := e.fn(rows.At(i))
		if err != nil {
			multierr = multierror.Append(multierr, err)
			continue
		}
		out[i] = row
	}
	if multierr != nil {
		multierr.ErrorFormat = iutil.FormatMultiError
	}
	if err := multierr.ErrorOrNil(); err != nil {
		return etl.Rows{}, err
	}
	return etl.NewRows(out...), nil
}

// PreservesCardinality implements etl.CardinalityPreserving
func (e *EntriesTransformer) PreservesCardinality() bool {
	return true
}

// Select keeps only the named entries of every Row, in the given order
func Select(names ...string) *EntriesTransformer {
	return &EntriesTransformer{fn: func(row etl.Row) (etl.Row, error) {
		return row.Select(names...)
	}}
}

// Drop removes the named entries from every Row. Missing entries are ignored.
func Drop(names ...string) *EntriesTransformer {
	return &EntriesTransformer{fn: func(row etl.Row) (etl.Row, error) {
		return row.Remove(names...), nil
	}}
}

// Rename renames the entry from to to in every Row
func Rename(from string, to string) *EntriesTransformer {
	return &EntriesTransformer{fn: func(row etl.Row) (etl.Row, error) {
		return row.Rename(from, to)
	}}
}

// WithEntry sets the entry name of every Row to the value fn computes from
// it, appending the entry when it does not exist
func WithEntry(name string, fn func(row etl.Row) (interface{}, error)) *EntriesTransformer {
	safe := iutil.SafeMapFunc(func(row etl.Row) (etl.Row, error) {
		v, err := fn(row)
		if err != nil {
			return etl.Row{}, err
		}
		return row.Set(name, v), nil
	})
	return &EntriesTransformer{fn: safe}
}
