package transform

import (
	"context"

	etl "github.com/go-sif/etl"
	iutil "github.com/go-sif/etl/internal/util"
	"github.com/hashicorp/go-multierror"
)

// MapTransformer applies a function to every Row of a batch
type MapTransformer struct {
	fn iutil.MapFunc
}

// Map transforms every Row of a batch. Panics are recovered into errors; the
// errors of every failing Row in a batch are reported together.
func Map(fn func(row etl.Row) (etl.Row, error)) *MapTransformer {
	return &MapTransformer{fn: iutil.SafeMapFunc(fn)}
}

// Transform implements etl.Transformer
func (m *MapTransformer) Transform(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
	var multierr *multierror.Error
	out := make([]etl.Row, 0, rows.Len())
	for i := 0; i < rows.Len(); i++ {
		row, err := m.fn(rows.At(i))
		if err != nil {
			multierr = multierror.Append(multierr, err)
			continue
		}
		out = append(out, row)
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
func (m *MapTransformer) PreservesCardinality() bool {
	return true
}
