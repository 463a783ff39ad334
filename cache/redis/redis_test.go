package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/config"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/etltest"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func TestRedisCache(t *testing.T) {
	s := miniredis.RunT(t)
	c, err := Dial(ctx, config.Redis{Addr: s.Addr(), DialTimeout: time.Second}, "etl")
	require.Nil(t, err)
	defer c.Close()
	etltest.CacheContract(t, c)
}

func TestRedisCacheNamespaces(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	defer client.Close()
	a := New(client, "a")
	b := New(client, "b")
	require.Nil(t, a.Set(ctx, "k", etl.IndexCacheEntry("x")))
	require.Nil(t, b.Set(ctx, "k", etl.IndexCacheEntry("y")))
	require.True(t, s.Exists("a:k"))

	require.Nil(t, a.Clear(ctx))
	ok, err := a.Has(ctx, "k")
	require.Nil(t, err)
	require.False(t, ok)
	entry, err := b.Get(ctx, "k")
	require.Nil(t, err)
	index, _ := entry.Index()
	require.Equal(t, []string{"y"}, index)
}

func TestRedisCacheCorruptEntry(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	defer client.Close()
	require.Nil(t, s.Set("etl:k", "garbage"))
	_, err := New(client, "etl").Get(ctx, "k")
	require.IsType(t, errors.CorruptEntryError{}, err)
}

func TestRedisCacheUnreachable(t *testing.T) {
	s := miniredis.RunT(t)
	addr := s.Addr()
	s.Close()
	_, err := Dial(ctx, config.Redis{Addr: addr, DialTimeout: 100 * time.Millisecond}, "etl")
	require.NotNil(t, err)
}
