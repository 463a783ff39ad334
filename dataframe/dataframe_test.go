package dataframe

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/accumulators"
	memcache "github.com/go-sif/etl/cache/memory"
	"github.com/go-sif/etl/config"
	"github.com/go-sif/etl/datasource/memory"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/etltest"
	jsonlloader "github.com/go-sif/etl/loader/jsonl"
	memloader "github.com/go-sif/etl/loader/memory"
	"github.com/go-sif/etl/logging"
	"github.com/go-sif/etl/pipeline"
	"github.com/go-sif/etl/stats"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func yearRows(n int) []etl.Row {
	rows := make([]etl.Row, n)
	for i := 0; i < n; i++ {
		rows[i] = etl.R("id", i, "year", 2018+i%3)
	}
	return rows
}

func TestMapFilterFetch(t *testing.T) {
	out, err := Read(memory.New(yearRows(10), 3)).
		Map(func(row etl.Row) (etl.Row, error) {
			return row.Set("double", row.Value("id").(int)*2), nil
		}).
		Filter(func(row etl.Row) (bool, error) {
			return row.Value("id").(int)%2 == 0, nil
		}).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, []int{0, 2, 4, 6, 8}, etltest.IDs(out))
	require.Equal(t, 16, out.At(4).Value("double"))
}

func TestLimitIsPushedIntoSource(t *testing.T) {
	df := Read(memory.New(yearRows(10), 3)).Limit(4)
	require.Empty(t, df.Pipeline().Pipes())
	out, err := df.Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, []int{0, 1, 2, 3}, etltest.IDs(out))
}

func TestWhereIsPushedIntoPartitionedSource(t *testing.T) {
	df := Read(memory.New(yearRows(9), 2, "year")).Where("year", etl.Equal, 2019)
	require.Empty(t, df.Pipeline().Pipes())
	out, err := df.Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, []int{1, 4, 7}, etltest.IDs(out))
}

func TestWhereAfterLimitIsNotPushedBelowIt(t *testing.T) {
	df := Read(memory.New(yearRows(9), 3, "year")).
		Limit(2).
		Where("year", etl.Equal, 2019)
	require.Len(t, df.Pipeline().Pipes(), 1)
	out, err := df.Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, []int{1}, etltest.IDs(out))
}

func TestLimitAfterParallelizeKeepsFirstRows(t *testing.T) {
	defer goleak.VerifyNone(t)

	for i := 0; i < 25; i++ {
		df := Read(memory.New(yearRows(40), 40)).
			Parallelize(4).
			Map(func(row etl.Row) (etl.Row, error) {
				return row.Set("double", row.Value("id").(int)*2), nil
			}).
			Limit(5)
		require.IsType(t, &pipeline.Synchronous{}, df.Pipeline())
		out, err := df.Fetch(context.Background())
		require.Nil(t, err)
		require.Equal(t, []int{0, 1, 2, 3, 4}, etltest.IDs(out))
		require.Equal(t, 8, out.At(4).Value("double"))
	}
}

func TestLoadBatchesForBulkLoader(t *testing.T) {
	l := &etltest.BulkLoader{Preferred: 4}
	df := Read(memory.New(yearRows(10), 1)).Load(l)
	require.IsType(t, &pipeline.Batching{}, df.Pipeline())
	require.Nil(t, df.Run(context.Background(), nil))
	require.Equal(t, []int{4, 4, 2}, etltest.Sizes(l.Batches()))
}

func TestLoadPassesBatchesThrough(t *testing.T) {
	var buf bytes.Buffer
	collected := memloader.New()
	out, err := Read(memory.New(yearRows(3), 2)).
		Select("id").
		Load(jsonlloader.New(&buf)).
		Load(collected).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, 3, out.Len())
	require.Equal(t, 3, collected.Len())
	require.Equal(t, "{\"id\":0}\n{\"id\":1}\n{\"id\":2}\n", buf.String())
}

func TestGroupByThenSortBy(t *testing.T) {
	out, err := Read(memory.New(yearRows(10), 3), WithCache(memcache.New())).
		GroupBy([]string{"year"}, accumulators.Counter("n")).
		SortBy(etl.Desc("year")).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, 3, out.Len())
	require.Equal(t, 2020, out.At(0).Value("year"))
	require.Equal(t, int64(3), out.At(0).Value("n"))
	require.Equal(t, 2018, out.At(2).Value("year"))
	require.Equal(t, int64(4), out.At(2).Value("n"))
}

func TestExternalSortBy(t *testing.T) {
	cfg := config.Default()
	cfg.Sort.Algorithm = config.SortExternal
	cfg.Sort.BucketSize = 3
	cfg.Sort.BucketsCount = 2
	cfg.Sort.OutputBatchSize = 4
	backing := memcache.New()
	df := Read(memory.New(yearRows(11), 2), WithConfig(cfg), WithCache(backing)).
		SortBy(etl.Asc("year"), etl.Desc("id")).
		Select("id")
	out, err := df.Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, []int{9, 6, 3, 0, 10, 7, 4, 1, 8, 5, 2}, etltest.IDs(out))
	require.Equal(t, 0, backing.Len())
}

func TestSortByBuildsCacheFromConfig(t *testing.T) {
	out, err := Read(memory.New(yearRows(5), 2)).
		SortBy(etl.Desc("id")).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, []int{4, 3, 2, 1, 0}, etltest.IDs(out))
}

func TestCollectAndBatchSize(t *testing.T) {
	var sizes []int
	err := Read(memory.New(yearRows(7), 2)).
		Collect().
		BatchSize(3).
		Run(context.Background(), func(batch etl.Rows) error {
			sizes = append(sizes, batch.Len())
			return nil
		})
	require.Nil(t, err)
	require.Equal(t, []int{3, 3, 1}, sizes)
}

func TestParallelize(t *testing.T) {
	defer goleak.VerifyNone(t)
	out, err := Read(memory.New(yearRows(20), 5)).
		Parallelize(4).
		Map(func(row etl.Row) (etl.Row, error) {
			return row.Set("seen", true), nil
		}).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, 20, out.Len())
	ids := etltest.IDs(out)
	for i := range ids {
		require.Equal(t, i, ids[i])
	}
}

func TestConfigurationErrorsAreDeferred(t *testing.T) {
	tests := []struct {
		name string
		df   *DataFrame
	}{
		{"batch size", Read(memory.New(yearRows(3), 1)).BatchSize(0)},
		{"parallelism", Read(memory.New(yearRows(3), 1)).Parallelize(-1)},
		{"sort keys", Read(memory.New(yearRows(3), 1)).SortBy()},
		{"operator", Read(memory.New(yearRows(3), 1)).Where("id", etl.Operator("~"), 1)},
		{"limit", Read(memory.New(yearRows(3), 1)).Limit(-1)},
		{"source", Read(nil)},
		{"config", Read(memory.New(yearRows(3), 1), WithConfig(config.Config{Sort: config.Sort{Algorithm: "bogo"}}))},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			loaded := memloader.New()
			df := test.df.Load(loaded)
			require.NotNil(t, df.Err())
			err := df.Run(context.Background(), nil)
			require.ErrorAs(t, err, &errors.InvalidConfigError{})
			require.Equal(t, 0, loaded.Len())
		})
	}
}

func TestErrorHandler(t *testing.T) {
	failing := func(row etl.Row) (etl.Row, error) {
		if row.Value("id").(int) == 2 {
			return row, fmt.Errorf("bad row")
		}
		return row.Set("ok", true), nil
	}

	_, err := Read(memory.New(yearRows(4), 1)).Map(failing).Fetch(context.Background())
	var perr errors.PipeError
	require.True(t, stderrors.As(err, &perr))

	out, err := Read(memory.New(yearRows(4), 1), WithErrorHandler(etl.SkipRows())).
		Map(failing).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, 4, out.Len())
	require.Nil(t, out.At(2).Value("ok"))
	require.Equal(t, true, out.At(3).Value("ok"))
}

func TestStatisticsAndLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter(logging.Config{Level: "debug", Format: "json"}, &buf)
	rs := stats.New()
	out, err := Read(memory.New(yearRows(6), 2), WithStatistics(rs), WithLogger(logger)).
		Limit(3).
		Fetch(context.Background())
	require.Nil(t, err)
	require.Equal(t, 3, out.Len())
	require.Equal(t, int64(3), rs.GetNumRowsIn())
	require.Equal(t, int64(3), rs.GetNumRowsOut())
	require.Contains(t, buf.String(), "limit_pushdown")
	require.Contains(t, buf.String(), "starting pipeline")
}

func TestIteratorCanBeAbandoned(t *testing.T) {
	iter, err := Read(memory.New(yearRows(10), 2)).Iterator(context.Background())
	require.Nil(t, err)
	batch, ok, err := iter.Next(context.Background())
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 2, batch.Len())
	require.Nil(t, iter.Close())
	_, ok, err = iter.Next(context.Background())
	require.Nil(t, err)
	require.False(t, ok)
}

func TestAccumulate(t *testing.T) {
	row, err := Read(memory.New(yearRows(9), 4)).
		Where("year", etl.GreaterThan, 2018).
		Accumulate(context.Background(), accumulators.Counter("n"), accumulators.Maximum("id", "max_id"))
	require.Nil(t, err)
	require.Equal(t, int64(6), row.Value("n"))
	require.Equal(t, 8, row.Value("max_id"))
}
