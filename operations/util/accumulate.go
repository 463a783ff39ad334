package util

import (
	"context"
	"fmt"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/accumulators"
	errors "github.com/go-sif/etl/errors"
)

// Accumulate folds every Row of a stream into a single Row holding one entry
// per aggregation. iter is closed once the stream is consumed.
func Accumulate(ctx context.Context, iter etl.RowsIterator, aggs ...accumulators.Aggregation) (etl.Row, error) {
	seen := make(map[string]struct{}, len(aggs))
	for _, a := range aggs {
		if a.New == nil {
			iter.Close()
			return etl.Row{}, errors.InvalidConfigError{Param: "aggregation", Value: a.As, Reason: "has no accumulator"}
		}
		if _, ok := seen[a.As]; ok {
			iter.Close()
			return etl.Row{}, errors.InvalidConfigError{Param: "aggregation", Value: a.As, Reason: "is listed more than once"}
		}
		seen[a.As] = struct{}{}
	}
	acc := accumulators.Compose(aggs...)()
	err := etl.Drain(ctx, iter, func(batch etl.Rows) error {
		for i := 0; i < batch.Len(); i++ {
			if err := acc.Accumulate(batch.At(i)); err != nil {
				return fmt.Errorf("unable to accumulate row %s: %w", batch.At(i), err)
			}
		}
		return nil
	})
	if err != nil {
		return etl.Row{}, err
	}
	return etl.NewRow(acc.Entries()...)
}
