package jsonl

import (
	"bufio"
	"fmt"
	"strings"

	etl "github.com/go-sif/etl"
)

type rowReader struct {
	parser  *Parser
	scanner *bufio.Scanner
	line    int
}

// Next returns the next Row, skipping blank and comment lines
func (jr *rowReader) Next() (etl.Row, bool, error) {
	for jr.scanner.Scan() {
		jr.line++
		text := strings.TrimSpace(jr.scanner.Text())
		if len(text) == 0 {
			continue
		}
		if jr.parser.conf.Comment != 0 && strings.HasPrefix(text, string(jr.parser.conf.Comment)) {
			continue
		}
		row, err := ParseJSONRow(jr.parser.conf.Columns, text)
		if err != nil {
			return etl.Row{}, false, fmt.Errorf("line %d: %w", jr.line, err)
		}
		return row, true, nil
	}
	if err := jr.scanner.Err(); err != nil {
		return etl.Row{}, false, err
	}
	return etl.Row{}, false, nil
}
