// Package dsv parses delimiter-separated data (CSV, TSV and friends) using encoding/csv
package dsv

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/go-sif/etl/datasource"
)

// ParserConf configures a DSV Parser
type ParserConf struct {
	Columns     []string // Entry names, in field order. When empty, the first record of each stream is read as a header.
	HeaderLines int      // The number of lines to ignore from the beginning of each stream, before any header. Defaults to 0.
	Delimiter   rune     // The delimiter separating fields. Defaults to ,
	Comment     rune     // Lines beginning with the comment character are ignored. Cannot be equal to the Delimiter. Defaults to no comment character.
	NilValue    string   // A special string which represents nil values in the dataset. Defaults to "" (the empty string).
	InferTypes  bool     // Convert integer, float and boolean fields. Otherwise every value is a string.
}

// Parser produces Rows from DSV data
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new DSV Parser
func CreateParser(conf *ParserConf) *Parser {
	if conf == nil {
		conf = &ParserConf{}
	}
	if conf.Delimiter == 0 {
		conf.Delimiter = ','
	}
	return &Parser{conf: conf}
}

// Parse implements datasource.Parser
func (p *Parser) Parse(r io.Reader) (datasource.RowReader, error) {
	if p.conf.Comment != 0 && p.conf.Comment == p.conf.Delimiter {
		return nil, fmt.Errorf("comment character %q cannot equal the delimiter", p.conf.Comment)
	}
	reader := csv.NewReader(r)
	reader.Comma = p.conf.Delimiter
	reader.Comment = p.conf.Comment
	reader.FieldsPerRecord = -1

	// ignore header lines, if configured to do so
	for i := 0; i < p.conf.HeaderLines; i++ {
		_, err := reader.Read()
		if err == io.EOF {
			return &rowReader{parser: p, reader: reader, done: true}, nil
		} else if err != nil {
			return nil, err
		}
	}

	names := p.conf.Columns
	if len(names) == 0 {
		header, err := reader.Read()
		if err == io.EOF {
			return &rowReader{parser: p, reader: reader, done: true}, nil
		} else if err != nil {
			return nil, err
		}
		names = append([]string(nil), header...)
	}
	reader.FieldsPerRecord = len(names)
	reader.ReuseRecord = true
	return &rowReader{parser: p, reader: reader, names: names}, nil
}
