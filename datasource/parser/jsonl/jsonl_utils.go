package jsonl

import (
	"fmt"
	"strconv"
	"strings"

	etl "github.com/go-sif/etl"
	"github.com/tidwall/gjson"
)

// ParseJSONRow builds a Row from a single JSON document. With no columns,
// every top-level key becomes an entry, in document order. Otherwise each
// column is a gjson path and paths absent from the document produce nil.
func ParseJSONRow(columns []string, doc string) (etl.Row, error) {
	if !gjson.Valid(doc) {
		return etl.Row{}, fmt.Errorf("invalid JSON: %.64s", doc)
	}
	parsed := gjson.Parse(doc)
	var entries []etl.Entry
	if len(columns) == 0 {
		if !parsed.IsObject() {
			return etl.Row{}, fmt.Errorf("JSON line is not an object: %.64s", doc)
		}
		parsed.ForEach(func(key, value gjson.Result) bool {
			entries = append(entries, etl.E(key.String(), toValue(value)))
			return true
		})
	} else {
		for _, col := range columns {
			entries = append(entries, etl.E(col, toValue(parsed.Get(col))))
		}
	}
	return etl.NewRow(entries...)
}

// toValue converts a gjson result into a plain Go value
func toValue(r gjson.Result) interface{} {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.String:
		return r.Str
	case gjson.Number:
		if !strings.ContainsAny(r.Raw, ".eE") {
			if i, err := strconv.ParseInt(r.Raw, 10, 64); err == nil {
				return i
			}
		}
		return r.Num
	case gjson.JSON:
		return r.Value()
	default:
		// path not present
		return nil
	}
}
