// Package util provides terminal operations which consume a whole stream
package util

import (
	"context"
	"fmt"

	etl "github.com/go-sif/etl"
)

// Collect gathers every Row of a stream into a single batch. When limit is
// positive, a stream holding more than limit Rows is an error; this guards
// against collecting an unbounded stream. iter is always closed.
func Collect(ctx context.Context, iter etl.RowsIterator, limit int) (etl.Rows, error) {
	var all []etl.Row
	err := etl.Drain(ctx, iter, func(batch etl.Rows) error {
		if limit > 0 && len(all)+batch.Len() > limit {
			return fmt.Errorf("cannot collect more than %d rows", limit)
		}
		all = append(all, batch.All()...)
		return nil
	})
	if err != nil {
		return etl.Rows{}, err
	}
	return etl.NewRows(all...), nil
}
