// Package datasource defines the contract between Extractors which read raw
// bytes and the Parsers which turn those bytes into Rows.
package datasource

import (
	"io"
	"strconv"
	"strings"

	etl "github.com/go-sif/etl"
)

// DefaultBatchSize is the number of Rows per batch used when none is configured
const DefaultBatchSize = 128

// A RowReader yields Rows parsed from an underlying stream, one at a time.
// Next returns false once the stream is exhausted.
type RowReader interface {
	Next() (etl.Row, bool, error)
}

// A Parser turns a stream of bytes into Rows
type Parser interface {
	Parse(r io.Reader) (RowReader, error)
}

// ReadBatch pulls up to size Rows from reader. The returned bool is false
// once reader is exhausted, in which case the batch may still hold the
// remaining Rows.
func ReadBatch(reader RowReader, size int) (etl.Rows, bool, error) {
	if size < 1 {
		size = DefaultBatchSize
	}
	batch := make([]etl.Row, 0, size)
	for len(batch) < size {
		row, ok, err := reader.Next()
		if err != nil {
			return etl.Rows{}, false, err
		}
		if !ok {
			return etl.NewRows(batch...), false, nil
		}
		batch = append(batch, row)
	}
	return etl.NewRows(batch...), true, nil
}

// ReadAll parses every Row from r
func ReadAll(parser Parser, r io.Reader) ([]etl.Row, error) {
	reader, err := parser.Parse(r)
	if err != nil {
		return nil, err
	}
	var rows []etl.Row
	for {
		row, ok, err := reader.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// ParseValue interprets a textual value, such as the "2021" of a "year=2021"
// partition segment or a delimited field. Integers become int64, other numbers
// float64, true/false become bool and everything else is kept as a string.
func ParseValue(s string) interface{} {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && strings.ContainsAny(s, "0123456789") {
		return f
	}
	if s == "true" || s == "false" {
		return s == "true"
	}
	return s
}
