package integration_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/dataframe"
	"github.com/go-sif/etl/datasource/memorystream"
	"github.com/go-sif/etl/datasource/parser/jsonl"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func counterGenerator(offset int) memorystream.Generator {
	next := offset
	return func() []byte {
		line := fmt.Sprintf("{\"col1\": %d}\n", next)
		next += 100
		return []byte(line)
	}
}

func TestLimitedStream(t *testing.T) {
	defer goleak.VerifyNone(t)
	generators := make([]memorystream.Generator, 4)
	for i := range generators {
		generators[i] = counterGenerator(i)
	}
	source := memorystream.New(generators, 6, jsonl.CreateParser(&jsonl.ParserConf{Columns: []string{"col1"}}))

	var lock sync.Mutex
	var seen []string
	rows, err := dataframe.Read(source).
		Limit(25).
		Parallelize(2).
		WithEntry("res", func(row etl.Row) (interface{}, error) {
			res := fmt.Sprintf("%d_res", row.Value("col1"))
			lock.Lock()
			seen = append(seen, res)
			lock.Unlock()
			return res, nil
		}).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, 25, rows.Len())
	require.Len(t, seen, 25)
	require.Equal(t, "0_res", rows.At(0).Value("res"))
	require.Equal(t, "1_res", rows.At(1).Value("res"))
}

func TestCancelledStream(t *testing.T) {
	defer goleak.VerifyNone(t)
	source := memorystream.New([]memorystream.Generator{counterGenerator(0)}, 2, jsonl.CreateParser(nil))
	ctx, cancel := context.WithCancel(context.Background())
	batches := 0
	err := dataframe.Read(source).Run(ctx, func(etl.Rows) error {
		batches++
		if batches == 3 {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 3, batches)
}
