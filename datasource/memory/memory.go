// Package memory provides an Extractor over Rows held in memory
package memory

import (
	"bytes"
	"context"
	"sync"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/datasource"
)

// DataSource is an in-memory list of Rows, served in fixed-size batches.
// It honours limit and partition filter hints.
type DataSource struct {
	rows             []etl.Row
	batchSize        int
	partitionColumns []string
	lock             sync.Mutex
	limit            int
	filters          []etl.PartitionPredicate
}

// New creates a DataSource over rows. Entries named by partitionColumns are
// treated as partition keys, so that comparisons against them may be pushed
// down into the DataSource. A batchSize below 1 falls back to
// datasource.DefaultBatchSize.
func New(rows []etl.Row, batchSize int, partitionColumns ...string) *DataSource {
	if batchSize < 1 {
		batchSize = datasource.DefaultBatchSize
	}
	copied := make([]etl.Row, len(rows))
	copy(copied, rows)
	return &DataSource{
		rows:             copied,
		batchSize:        batchSize,
		partitionColumns: partitionColumns,
		limit:            -1,
	}
}

// FromBytes parses each buffer in data with parser and creates a DataSource
// over the combined Rows, in order
func FromBytes(data [][]byte, parser datasource.Parser, batchSize int, partitionColumns ...string) (*DataSource, error) {
	var rows []etl.Row
	for _, buf := range data {
		parsed, err := datasource.ReadAll(parser, bytes.NewReader(buf))
		if err != nil {
			return nil, err
		}
		rows = append(rows, parsed...)
	}
	return New(rows, batchSize, partitionColumns...), nil
}

// BatchSize returns the maximum number of Rows per batch
func (ds *DataSource) BatchSize() int {
	return ds.batchSize
}

// SetLimit implements etl.LimitableExtractor. The smallest limit wins.
func (ds *DataSource) SetLimit(n int) {
	ds.lock.Lock()
	defer ds.lock.Unlock()
	if n < 0 {
		n = 0
	}
	if ds.limit < 0 || n < ds.limit {
		ds.limit = n
	}
}

// Limited implements etl.LimitableExtractor
func (ds *DataSource) Limited() bool {
	ds.lock.Lock()
	defer ds.lock.Unlock()
	return ds.limit >= 0
}

// PartitionColumns implements etl.PartitionedExtractor
func (ds *DataSource) PartitionColumns() []string {
	return append([]string(nil), ds.partitionColumns...)
}

// SetPartitionFilter implements etl.PartitionedExtractor. Filters accumulate;
// a Row is served only if it satisfies all of them.
func (ds *DataSource) SetPartitionFilter(p etl.PartitionPredicate) {
	ds.lock.Lock()
	defer ds.lock.Unlock()
	ds.filters = append(ds.filters, p)
}

// Extract implements etl.Extractor
func (ds *DataSource) Extract(ctx context.Context) (etl.RowsIterator, error) {
	ds.lock.Lock()
	limit := ds.limit
	filters := append([]etl.PartitionPredicate(nil), ds.filters...)
	ds.lock.Unlock()
	for _, f := range filters {
		if err := f.Valid(); err != nil {
			return nil, err
		}
	}

	idx := 0
	served := 0
	return etl.NewFuncIterator(func(ctx context.Context) (etl.Rows, bool, error) {
		if err := ctx.Err(); err != nil {
			return etl.Rows{}, false, err
		}
		batch := make([]etl.Row, 0, ds.batchSize)
		for idx < len(ds.rows) && len(batch) < ds.batchSize {
			if limit >= 0 && served >= limit {
				break
			}
			row := ds.rows[idx]
			idx++
			if !matchesAll(filters, row) {
				continue
			}
			batch = append(batch, row)
			served++
		}
		if len(batch) == 0 {
			return etl.Rows{}, false, nil
		}
		return etl.NewRows(batch...), true, nil
	}, nil), nil
}

func matchesAll(filters []etl.PartitionPredicate, row etl.Row) bool {
	for _, f := range filters {
		if !f.MatchesRow(row) {
			return false
		}
	}
	return true
}
