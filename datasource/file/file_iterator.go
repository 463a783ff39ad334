package file

import (
	"context"
	"fmt"
	"os"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/datasource"
)

// fileIterator reads files one after another, producing batches which never
// span two files
type fileIterator struct {
	source  *DataSource
	files   []target
	next    int
	limit   int
	served  int
	current *os.File
	reader  datasource.RowReader
	parts   []etl.Entry
	closed  bool
}

// Next implements etl.RowsIterator
func (fi *fileIterator) Next(ctx context.Context) (etl.Rows, bool, error) {
	for {
		if fi.closed {
			return etl.Rows{}, false, nil
		}
		if err := ctx.Err(); err != nil {
			return etl.Rows{}, false, err
		}
		if fi.limit >= 0 && fi.served >= fi.limit {
			return etl.Rows{}, false, fi.Close()
		}
		if fi.reader == nil {
			if fi.next >= len(fi.files) {
				return etl.Rows{}, false, fi.Close()
			}
			if err := fi.open(fi.files[fi.next]); err != nil {
				return etl.Rows{}, false, err
			}
			fi.next++
		}
		size := fi.source.conf.BatchSize
		if fi.limit >= 0 && fi.limit-fi.served < size {
			size = fi.limit - fi.served
		}
		batch, more, err := datasource.ReadBatch(fi.reader, size)
		if err != nil {
			return etl.Rows{}, false, fmt.Errorf("unable to parse %s: %w", fi.current.Name(), err)
		}
		if !more {
			if err := fi.closeCurrent(); err != nil {
				return etl.Rows{}, false, err
			}
		}
		if batch.Empty() {
			continue
		}
		if len(fi.parts) > 0 {
			batch = batch.Map(fi.withPartitions)
		}
		fi.served += batch.Len()
		return batch, true, nil
	}
}

func (fi *fileIterator) open(t target) error {
	f, err := os.Open(t.path)
	if err != nil {
		return err
	}
	reader, err := fi.source.parser.Parse(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("unable to parse %s: %w", t.path, err)
	}
	fi.current = f
	fi.reader = reader
	fi.parts = t.partitions
	return nil
}

// withPartitions appends the directory partition entries to row. A partition
// value replaces any entry of the same name read from the file.
func (fi *fileIterator) withPartitions(row etl.Row) etl.Row {
	for _, p := range fi.parts {
		row = row.Set(p.Name, p.Value)
	}
	return row
}

func (fi *fileIterator) closeCurrent() error {
	fi.reader = nil
	if fi.current == nil {
		return nil
	}
	err := fi.current.Close()
	fi.current = nil
	return err
}

// Close implements etl.RowsIterator
func (fi *fileIterator) Close() error {
	if fi.closed {
		return nil
	}
	fi.closed = true
	return fi.closeCurrent()
}
