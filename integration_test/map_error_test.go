package integration_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/dataframe"
	"github.com/go-sif/etl/datasource/memory"
	"github.com/go-sif/etl/datasource/parser/jsonl"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/stats"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func jsonSource(t *testing.T, n int, batchSize int) *memory.DataSource {
	data := make([][]byte, n)
	for i := range data {
		data[i] = []byte(fmt.Sprintf("{\"id\": %d, \"col1\": \"row-%d\"}\n", i, i))
	}
	source, err := memory.FromBytes(data, jsonl.CreateParser(nil), batchSize)
	require.Nil(t, err)
	return source
}

func failOnSeven(row etl.Row) (etl.Row, error) {
	if row.Value("id") == int64(7) {
		return row, fmt.Errorf("unable to handle row %v", row.Value("id"))
	}
	return row.Set("mapped", true), nil
}

func TestMapErrorIsFatal(t *testing.T) {
	defer goleak.VerifyNone(t)
	_, err := dataframe.Read(jsonSource(t, 20, 5)).
		Parallelize(3).
		Map(failOnSeven).
		Fetch(context.Background())
	var perr errors.PipeError
	require.True(t, stderrors.As(err, &perr))
	require.Contains(t, err.Error(), "unable to handle row 7")
}

func TestMapErrorIsSkipped(t *testing.T) {
	defer goleak.VerifyNone(t)
	rs := stats.New()
	rows, err := dataframe.Read(jsonSource(t, 20, 5), dataframe.WithErrorHandler(etl.SkipRows()), dataframe.WithStatistics(rs)).
		Map(failOnSeven).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, 20, rows.Len())
	unmapped := 0
	for i := 0; i < rows.Len(); i++ {
		if rows.At(i).Value("mapped") == nil {
			unmapped++
		}
	}
	// the whole batch holding row 7 skips the map
	require.Equal(t, 5, unmapped)
	require.Equal(t, int64(1), rs.GetNumBatchesSkipped())
}
