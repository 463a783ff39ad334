// Package memorystream provides an Extractor over a continuous stream of
// generated data. Without a limit hint such a stream may never end.
package memorystream

import (
	"bytes"
	"context"
	"sync"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/datasource"
)

// A Generator produces the next buffer of raw data, or nil once it is done
type Generator func() []byte

// DataSource round-robins over a list of Generators, parsing each buffer they
// produce into a batch
type DataSource struct {
	generators []Generator
	parser     datasource.Parser
	batchSize  int
	lock       sync.Mutex
	limit      int
}

// New creates a streaming DataSource. Each generated buffer yields at most
// batchSize Rows per batch.
func New(generators []Generator, batchSize int, parser datasource.Parser) *DataSource {
	if batchSize < 1 {
		batchSize = datasource.DefaultBatchSize
	}
	return &DataSource{generators: generators, parser: parser, batchSize: batchSize, limit: -1}
}

// SetLimit implements etl.LimitableExtractor. The smallest limit wins.
func (ms *DataSource) SetLimit(n int) {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	if n < 0 {
		n = 0
	}
	if ms.limit < 0 || n < ms.limit {
		ms.limit = n
	}
}

// Limited implements etl.LimitableExtractor
func (ms *DataSource) Limited() bool {
	ms.lock.Lock()
	defer ms.lock.Unlock()
	return ms.limit >= 0
}

// Extract implements etl.Extractor
func (ms *DataSource) Extract(ctx context.Context) (etl.RowsIterator, error) {
	ms.lock.Lock()
	limit := ms.limit
	ms.lock.Unlock()

	live := make([]Generator, len(ms.generators))
	copy(live, ms.generators)
	next := 0
	served := 0
	var reader datasource.RowReader
	return etl.NewFuncIterator(func(ctx context.Context) (etl.Rows, bool, error) {
		for {
			if err := ctx.Err(); err != nil {
				return etl.Rows{}, false, err
			}
			if limit >= 0 && served >= limit {
				return etl.Rows{}, false, nil
			}
			if reader == nil {
				if len(live) == 0 {
					return etl.Rows{}, false, nil
				}
				next = next % len(live)
				buf := live[next]()
				if buf == nil {
					// generator exhausted
					live = append(live[:next], live[next+1:]...)
					continue
				}
				next++
				r, err := ms.parser.Parse(bytes.NewReader(buf))
				if err != nil {
					return etl.Rows{}, false, err
				}
				reader = r
			}
			size := ms.batchSize
			if limit >= 0 && limit-served < size {
				size = limit - served
			}
			batch, more, err := datasource.ReadBatch(reader, size)
			if err != nil {
				return etl.Rows{}, false, err
			}
			if !more {
				reader = nil
			}
			if batch.Empty() {
				continue
			}
			served += batch.Len()
			return batch, true, nil
		}
	}, nil), nil
}
