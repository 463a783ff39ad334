package sorting

import (
	"context"

	etl "github.com/go-sif/etl"
)

// Extractor sorts everything upstream produces each time it is extracted
func Extractor(upstream etl.Extractor, sorter Sorter, keys etl.SortKeySet) etl.Extractor {
	return etl.ExtractorFunc(func(ctx context.Context) (etl.RowsIterator, error) {
		iter, err := upstream.Extract(ctx)
		if err != nil {
			return nil, err
		}
		return sorter.Sort(ctx, iter, keys)
	})
}
