package jsonl

import (
	"bufio"
	"io"

	"github.com/go-sif/etl/datasource"
)

// ParserConf configures a JSONL Parser, suitable for JSON lines data
type ParserConf struct {
	Columns       []string // gjson paths to extract; each becomes an entry of the same name. Defaults to every top-level key.
	HeaderLines   int      // The number of lines to ignore from the beginning of each stream. Defaults to 0.
	Comment       rune     // Lines beginning with the comment character are ignored. Defaults to no comment character.
	MaxBufferSize int      // Maximum size in bytes of the buffer used to read lines
}

// Parser produces Rows from JSONL data
type Parser struct {
	conf *ParserConf
}

// CreateParser returns a new JSONL Parser. Columns are parsed lazily from each
// line of JSON using their name, which should be a gjson path. Values within
// the JSON which do not correspond to a column are ignored.
func CreateParser(conf *ParserConf) *Parser {
	if conf == nil {
		conf = &ParserConf{}
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	return &Parser{conf: conf}
}

// Parse implements datasource.Parser
func (p *Parser) Parse(r io.Reader) (datasource.RowReader, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), p.conf.MaxBufferSize)
	// ignore header lines, if configured to do so
	for i := 0; i < p.conf.HeaderLines; i++ {
		scanner.Scan()
		if err := scanner.Err(); err != nil {
			return nil, err
		}
	}
	return &rowReader{parser: p, scanner: scanner}, nil
}
