package util

import (
	"context"
	"fmt"

	etl "github.com/go-sif/etl"
)

// MapFunc transforms a single Row
type MapFunc func(row etl.Row) (etl.Row, error)

// FilterFunc decides whether a Row is kept
type FilterFunc func(row etl.Row) (keep bool, err error)

// SafeMapFunc wraps a MapFunc such that panics are recovered and nice error messages are constructed
func SafeMapFunc(mapFn MapFunc) (safeMapFn MapFunc) {
	return func(row etl.Row) (result etl.Row, err error) {
		defer func() {
			if r := recover(); r != nil {
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Map Panic: %w\nRow: %s\n%s", anErr, row.String(), GetTrace())
				} else {
					err = fmt.Errorf("Map Panic: %v\nRow: %s\n%s", r, row.String(), GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("Map Error: %w\nRow: %s", err, row.String())
			}
		}()
		result, err = mapFn(row)
		return
	}
}

// SafeFilterFunc wraps a FilterFunc such that panics are recovered and nice error messages are constructed
func SafeFilterFunc(filterFn FilterFunc) (safeFilterFn FilterFunc) {
	return func(row etl.Row) (keep bool, err error) {
		defer func() {
			if r := recover(); r != nil {
				if anErr, ok := r.(error); ok {
					err = fmt.Errorf("Filter Panic: %w\nRow: %s\n%s", anErr, row.String(), GetTrace())
				} else {
					err = fmt.Errorf("Filter Panic: %v\nRow: %s\n%s", r, row.String(), GetTrace())
				}
			} else if err != nil {
				err = fmt.Errorf("Filter Error: %w\nRow: %s", err, row.String())
			}
		}()
		keep, err = filterFn(row)
		return
	}
}

// SafeApply runs a Pipe against a batch such that panics are recovered into errors
func SafeApply(ctx context.Context, pipe etl.Pipe, rows etl.Rows) (result etl.Rows, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = rows
			if anErr, ok := r.(error); ok {
				err = fmt.Errorf("%s Panic: %w\n%s", pipe.Name(), anErr, GetTrace())
			} else {
				err = fmt.Errorf("%s Panic: %v\n%s", pipe.Name(), r, GetTrace())
			}
		}
	}()
	result, err = pipe.Apply(ctx, rows)
	return
}
