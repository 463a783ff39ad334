package jsonl

import (
	"strings"
	"testing"

	"github.com/go-sif/etl/datasource"
	"github.com/stretchr/testify/require"
)

const people = `{"name": "Sean", "meta": { "index": 1, "first": "Sean", "last": "McIntyre"}}
{"name": "Chris", "meta": { "index": 3, "first": "Chris", "last": "Dickson"}}

{"name": "Phil", "meta": { "index": 2.5, "first": "Phil", "last": "Laliberté"}, "tags": ["a", "b"]}`

func TestJSONLParserPaths(t *testing.T) {
	parser := CreateParser(&ParserConf{
		Columns: []string{"name", "meta.index", "meta.last", "meta.missing"},
	})
	rows, err := datasource.ReadAll(parser, strings.NewReader(people))
	require.Nil(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"name", "meta.index", "meta.last", "meta.missing"}, rows[0].Names())
	require.Equal(t, int64(1), rows[0].Value("meta.index"))
	require.Equal(t, 2.5, rows[2].Value("meta.index"))
	require.Equal(t, "Laliberté", rows[2].Value("meta.last"))
	require.Nil(t, rows[1].Value("meta.missing"))
	require.True(t, rows[1].Has("meta.missing"))
}

func TestJSONLParserTopLevelKeys(t *testing.T) {
	parser := CreateParser(nil)
	rows, err := datasource.ReadAll(parser, strings.NewReader(people))
	require.Nil(t, err)
	require.Equal(t, []string{"name", "meta"}, rows[0].Names())
	require.Equal(t, []string{"name", "meta", "tags"}, rows[2].Names())
	require.Equal(t, []interface{}{"a", "b"}, rows[2].Value("tags"))
	meta, ok := rows[0].Value("meta").(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "McIntyre", meta["last"])
}

func TestJSONLParserHeaderAndComments(t *testing.T) {
	data := "ignored header\n# a comment\n{\"id\": 1}\n# another\n{\"id\": 2}\n"
	parser := CreateParser(&ParserConf{HeaderLines: 1, Comment: '#'})
	rows, err := datasource.ReadAll(parser, strings.NewReader(data))
	require.Nil(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(2), rows[1].Value("id"))
}

func TestJSONLParserInvalidLine(t *testing.T) {
	parser := CreateParser(nil)
	_, err := datasource.ReadAll(parser, strings.NewReader("{\"id\": 1}\n{\"id\": \n"))
	require.NotNil(t, err)
	require.Contains(t, err.Error(), "line 2")

	_, err = datasource.ReadAll(parser, strings.NewReader("[1, 2]\n"))
	require.NotNil(t, err)
}
