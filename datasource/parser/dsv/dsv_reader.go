package dsv

import (
	"encoding/csv"
	"io"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/datasource"
)

type rowReader struct {
	parser *Parser
	reader *csv.Reader
	names  []string
	done   bool
}

// Next returns the next record as a Row
func (dr *rowReader) Next() (etl.Row, bool, error) {
	if dr.done {
		return etl.Row{}, false, nil
	}
	record, err := dr.reader.Read()
	if err == io.EOF {
		dr.done = true
		return etl.Row{}, false, nil
	} else if err != nil {
		return etl.Row{}, false, err
	}
	row, err := scanRow(dr.parser.conf, dr.names, record)
	if err != nil {
		return etl.Row{}, false, err
	}
	return row, true, nil
}

// scanRow converts a record into a Row, according to the configured names
func scanRow(conf *ParserConf, names []string, record []string) (etl.Row, error) {
	entries := make([]etl.Entry, len(record))
	for i, field := range record {
		var value interface{}
		switch {
		// check for a nil value
		case len(field) == 0 || field == conf.NilValue:
			value = nil
		case conf.InferTypes:
			value = datasource.ParseValue(field)
		default:
			value = field
		}
		entries[i] = etl.E(names[i], value)
	}
	return etl.NewRow(entries...)
}
