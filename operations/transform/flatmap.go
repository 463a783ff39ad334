package transform

import (
	"context"
	"fmt"

	etl "github.com/go-sif/etl"
	iutil "github.com/go-sif/etl/internal/util"
	"github.com/hashicorp/go-multierror"
)

// FlatMapTransformer replaces every Row with zero or more Rows
type FlatMapTransformer struct {
	fn func(row etl.Row) ([]etl.Row, error)
}

// FlatMap replaces every Row of a batch with the Rows fn produces for it, in order
func FlatMap(fn func(row etl.Row) ([]etl.Row, error)) *FlatMapTransformer {
	return &FlatMapTransformer{fn: fn}
}

func (f *FlatMapTransformer) safe(row etl.Row) (result []etl.Row, err error) {
	defer func() {
		if r := recover(); r != nil {
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("FlatMap Panic: %w\nRow: %s\n%s", anErr, row.String(), iutil.GetTrace())
			} else {
				err = fmt.Errorf("FlatMap Panic: %v\nRow: %s\n%s", r, row.String(), iutil.GetTrace())
			}
		} else if err != nil {
			err = fmt.Errorf("FlatMap Error: %w\nRow: %s", err, row.String())
		}
	}()
	result, err = f.fn(row)
	return
}

// Transform implements etl.Transformer
func (f *FlatMapTransformer) Transform(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
	var multierr *multierror.Error
	var out []etl.Row
	for i := 0; i < rows.Len(); i++ {
		produced, err := f.safe(rows.At(i))
		if err != nil {
			multierr = multierror.Append(multierr, err)
			continue
		}
		out = append(out, produced...)
	}
	if multierr != nil {
		multierr.ErrorFormat = iutil.FormatMultiError
	}
	if err := multierr.ErrorOrNil(); err != nil {
		return etl.Rows{}, err
	}
	return etl.NewRows(out...), nil
}
