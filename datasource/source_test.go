package datasource

import (
	"testing"

	etl "github.com/go-sif/etl"
	"github.com/stretchr/testify/require"
)

type sliceReader struct {
	rows []etl.Row
}

func (s *sliceReader) Next() (etl.Row, bool, error) {
	if len(s.rows) == 0 {
		return etl.Row{}, false, nil
	}
	r := s.rows[0]
	s.rows = s.rows[1:]
	return r, true, nil
}

func TestReadBatch(t *testing.T) {
	reader := &sliceReader{rows: []etl.Row{etl.R("id", 0), etl.R("id", 1), etl.R("id", 2)}}
	batch, more, err := ReadBatch(reader, 2)
	require.Nil(t, err)
	require.True(t, more)
	require.Equal(t, 2, batch.Len())
	batch, more, err = ReadBatch(reader, 2)
	require.Nil(t, err)
	require.False(t, more)
	require.Equal(t, 1, batch.Len())
	require.Equal(t, 2, batch.At(0).Value("id"))
}

func TestParseValue(t *testing.T) {
	require.Equal(t, int64(2021), ParseValue("2021"))
	require.Equal(t, 1.5, ParseValue("1.5"))
	require.Equal(t, true, ParseValue("true"))
	require.Equal(t, "NaN", ParseValue("NaN"))
	require.Equal(t, "Inf", ParseValue("Inf"))
	require.Equal(t, "us-east", ParseValue("us-east"))
}
