package lru

import (
	"context"
	"fmt"
	"testing"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/cache/memory"
	"github.com/go-sif/etl/etltest"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func newLRU(t *testing.T, size int, fraction float64) (*Cache, *memory.Cache) {
	backing := memory.New()
	c, err := New(&Config{Size: size, CompressedFraction: fraction, Backing: backing})
	require.Nil(t, err)
	t.Cleanup(func() { c.Close() })
	return c, backing
}

func TestLRUCacheContract(t *testing.T) {
	c, _ := newLRU(t, 5, 0.4)
	etltest.CacheContract(t, c)
}

func TestLRUCacheTiers(t *testing.T) {
	c, backing := newLRU(t, 5, 0.4)
	for i := 0; i < 8; i++ {
		require.Nil(t, c.Set(ctx, fmt.Sprintf("k%d", i), etl.RowCacheEntry(etl.R("id", i))))
	}
	hot, compressed := c.Len()
	require.Equal(t, 3, hot)
	require.Equal(t, 2, compressed)
	require.Equal(t, 3, backing.Len())

	// the oldest entry comes back from the backing cache and is promoted
	entry, err := c.Get(ctx, "k0")
	require.Nil(t, err)
	row, _ := entry.Row()
	require.Equal(t, 0, row.Value("id"))
	has, err := backing.Has(ctx, "k0")
	require.Nil(t, err)
	require.False(t, has)
	// promotion pushed another entry out
	require.Equal(t, 3, backing.Len())

	// compressed entries are promoted too
	entry, err = c.Get(ctx, "k4")
	require.Nil(t, err)
	row, _ = entry.Row()
	require.Equal(t, 4, row.Value("id"))

	// every key is still reachable exactly once
	for i := 0; i < 8; i++ {
		ok, err := c.Has(ctx, fmt.Sprintf("k%d", i))
		require.Nil(t, err)
		require.True(t, ok)
	}
	hot, compressed = c.Len()
	require.Equal(t, 8, hot+compressed+backing.Len())
}

func TestLRUCacheDeleteReachesBacking(t *testing.T) {
	c, backing := newLRU(t, 5, 0.2)
	for i := 0; i < 6; i++ {
		require.Nil(t, c.Set(ctx, fmt.Sprintf("k%d", i), etl.IndexCacheEntry("x")))
	}
	require.Equal(t, 1, backing.Len())
	require.Nil(t, c.Delete(ctx, "k0"))
	require.Equal(t, 0, backing.Len())
	_, err := c.Get(ctx, "k0")
	require.IsType(t, errors.KeyNotFoundError{}, err)
}

func TestLRUCacheInvalidConfig(t *testing.T) {
	_, err := New(&Config{Size: 4, Backing: memory.New()})
	require.IsType(t, errors.InvalidConfigError{}, err)
	_, err = New(&Config{Size: 10, CompressedFraction: 1, Backing: memory.New()})
	require.IsType(t, errors.InvalidConfigError{}, err)
	_, err = New(&Config{Size: 10})
	require.IsType(t, errors.InvalidConfigError{}, err)
}
