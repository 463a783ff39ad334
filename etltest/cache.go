package etltest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/stretchr/testify/require"
)

// CacheContract checks the behaviour every etl.Cache must share. The cache
// should be empty.
func CacheContract(t *testing.T, c etl.Cache) {
	ctx := context.Background()

	// missing keys
	_, err := c.Get(ctx, "missing")
	require.Equal(t, errors.KeyNotFoundError{Key: "missing"}, err)
	ok, err := c.Has(ctx, "missing")
	require.Nil(t, err)
	require.False(t, ok)
	require.Nil(t, c.Delete(ctx, "missing"))

	// each entry kind
	row := etl.R("id", 1, "name", "one")
	require.Nil(t, c.Set(ctx, "row", etl.RowCacheEntry(row)))
	require.Nil(t, c.Set(ctx, "rows", etl.RowsCacheEntry(Rows(0, 3).WithPosition(true, true))))
	require.Nil(t, c.Set(ctx, "index", etl.IndexCacheEntry("a", "b")))

	entry, err := c.Get(ctx, "row")
	require.Nil(t, err)
	got, ok := entry.Row()
	require.True(t, ok)
	require.True(t, row.Equal(got))

	entry, err = c.Get(ctx, "rows")
	require.Nil(t, err)
	rows, ok := entry.Rows()
	require.True(t, ok)
	require.Equal(t, []int{0, 1, 2}, IDs(rows))
	require.False(t, rows.IsFirst())

	entry, err = c.Get(ctx, "index")
	require.Nil(t, err)
	index, ok := entry.Index()
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, index)
	_, ok = entry.Row()
	require.False(t, ok)

	// overwrite
	require.Nil(t, c.Set(ctx, "index", etl.IndexCacheEntry("c")))
	entry, err = c.Get(ctx, "index")
	require.Nil(t, err)
	index, _ = entry.Index()
	require.Equal(t, []string{"c"}, index)

	// delete
	ok, err = c.Has(ctx, "row")
	require.Nil(t, err)
	require.True(t, ok)
	require.Nil(t, c.Delete(ctx, "row"))
	_, err = c.Get(ctx, "row")
	require.IsType(t, errors.KeyNotFoundError{}, err)

	// concurrent use
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("concurrent/%d", i)
			require.Nil(t, c.Set(ctx, key, etl.RowCacheEntry(etl.R("id", i))))
			entry, err := c.Get(ctx, key)
			require.Nil(t, err)
			r, _ := entry.Row()
			require.Equal(t, i, r.Value("id"))
		}(i)
	}
	wg.Wait()

	// clear
	require.Nil(t, c.Clear(ctx))
	for _, key := range []string{"rows", "index", "concurrent/3"} {
		ok, err := c.Has(ctx, key)
		require.Nil(t, err)
		require.False(t, ok, key)
	}
}
