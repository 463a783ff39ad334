package sorting

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"testing"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/cache/memory"
	"github.com/go-sif/etl/config"
	errors "github.com/go-sif/etl/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var ctx = context.Background()

func idRows(ids ...int) etl.Rows {
	rows := make([]etl.Row, len(ids))
	for i, id := range ids {
		rows[i] = etl.R("id", id, "seq", i)
	}
	return etl.NewRows(rows...)
}

func drain(t *testing.T, iter etl.RowsIterator) []etl.Row {
	all, err := etl.CollectRows(ctx, iter)
	require.Nil(t, err)
	return all.All()
}

func ids(rows []etl.Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Value("id").(int)
	}
	return out
}

// singles yields every row of rows as its own batch
func singles(rows etl.Rows) etl.RowsIterator {
	return etl.NewSliceIterator(rows.Chunk(1)...)
}

func TestExternalSortExample(t *testing.T) {
	cache := memory.New()
	s := &ExternalSort{Cache: cache, BucketSize: 2, BucketsCount: 2}
	iter, err := s.Sort(ctx, singles(idRows(5, 3, 4, 1, 2)), etl.SortKeySet{etl.Asc("id")})
	require.Nil(t, err)
	require.Equal(t, []int{1, 2, 3, 4, 5}, ids(drain(t, iter)))
	// every bucket was consumed
	require.Equal(t, 0, cache.Len())
}

func TestExternalSortPreservesMultiset(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	input := make([]int, 257)
	for i := range input {
		input[i] = rnd.Intn(40)
	}
	expected := append([]int(nil), input...)
	sort.Ints(expected)
	for _, bucketSize := range []int{1, 2, 7, 64, 1000} {
		for _, count := range []int{2, 3, 10} {
			cache := memory.New()
			s := &ExternalSort{Cache: cache, BucketSize: bucketSize, BucketsCount: count, OutputBatchSize: 13}
			iter, err := s.Sort(ctx, etl.NewSliceIterator(idRows(input...).Chunk(5)...), etl.SortKeySet{etl.Asc("id")})
			require.Nil(t, err)
			rows := drain(t, iter)
			require.Equal(t, expected, ids(rows), fmt.Sprintf("bucket size %d, count %d", bucketSize, count))
			// stable: equal ids keep their arrival order
			for i := 1; i < len(rows); i++ {
				if rows[i].Value("id") == rows[i-1].Value("id") {
					require.Less(t, rows[i-1].Value("seq").(int), rows[i].Value("seq").(int))
				}
			}
			require.Equal(t, 0, cache.Len())
		}
	}
}

func TestExternalSortDescendingAndTies(t *testing.T) {
	rows := etl.NewRows(
		etl.R("g", "a", "v", 1),
		etl.R("g", "b", "v", 2),
		etl.R("g", "a", "v", 3),
		etl.R("g", "b", "v", 1),
		etl.R("g", "c", "v", nil),
	)
	s := &ExternalSort{Cache: memory.New(), BucketSize: 2, BucketsCount: 2}
	iter, err := s.Sort(ctx, etl.NewSliceIterator(rows), etl.SortKeySet{etl.Asc("g"), etl.Desc("v")})
	require.Nil(t, err)
	out := drain(t, iter)
	var got []string
	for _, r := range out {
		got = append(got, fmt.Sprintf("%v%v", r.Value("g"), r.Value("v")))
	}
	require.Equal(t, []string{"a3", "a1", "b2", "b1", "c<nil>"}, got)
}

func TestExternalSortOutputBatches(t *testing.T) {
	s := &ExternalSort{Cache: memory.New(), BucketSize: 3}
	iter, err := s.Sort(ctx, singles(idRows(9, 8, 7, 6, 5, 4, 3)), etl.SortKeySet{etl.Asc("id")})
	require.Nil(t, err)
	var sizes []int
	require.Nil(t, etl.Drain(ctx, iter, func(b etl.Rows) error {
		sizes = append(sizes, b.Len())
		return nil
	}))
	require.Equal(t, []int{3, 3, 1}, sizes)
}

func TestExternalSortEmpty(t *testing.T) {
	cache := memory.New()
	s := &ExternalSort{Cache: cache}
	iter, err := s.Sort(ctx, etl.NewSliceIterator(), etl.SortKeySet{etl.Asc("id")})
	require.Nil(t, err)
	require.Len(t, drain(t, iter), 0)
	require.Equal(t, 0, cache.Len())
}

func TestExternalSortEarlyCloseDiscards(t *testing.T) {
	cache := memory.New()
	s := &ExternalSort{Cache: cache, BucketSize: 2, OutputBatchSize: 1}
	iter, err := s.Sort(ctx, singles(idRows(4, 3, 2, 1, 0, 9, 8)), etl.SortKeySet{etl.Asc("id")})
	require.Nil(t, err)
	batch, ok, err := iter.Next(ctx)
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, 0, batch.At(0).Value("id"))
	require.True(t, cache.Len() > 0)
	require.Nil(t, iter.Close())
	require.Equal(t, 0, cache.Len())
}

func TestExternalSortInvalidConfig(t *testing.T) {
	keys := etl.SortKeySet{etl.Asc("id")}
	tests := []*ExternalSort{
		{},
		{Cache: memory.New(), BucketSize: -1},
		{Cache: memory.New(), BucketsCount: 1},
		{Cache: memory.New(), OutputBatchSize: -3},
	}
	for _, s := range tests {
		_, err := s.Sort(ctx, etl.NewSliceIterator(), keys)
		require.IsType(t, errors.InvalidConfigError{}, err)
	}
}

// failingCache fails every Set after the first n
type failingCache struct {
	*memory.Cache
	remaining int
}

func (f *failingCache) Set(ctx context.Context, key string, entry etl.CacheEntry) error {
	if f.remaining <= 0 {
		return fmt.Errorf("cache unavailable")
	}
	f.remaining--
	return f.Cache.Set(ctx, key, entry)
}

func TestExternalSortMergeFailureReturnsNothing(t *testing.T) {
	backing := memory.New()
	// enough writes to scatter 8 single-row buckets, but not to merge them
	cache := &failingCache{Cache: backing, remaining: 16 + 3}
	s := &ExternalSort{Cache: cache, BucketSize: 1, BucketsCount: 2}
	iter, err := s.Sort(ctx, singles(idRows(8, 7, 6, 5, 4, 3, 2, 1)), etl.SortKeySet{etl.Asc("id")})
	require.NotNil(t, err)
	require.Nil(t, iter)
	require.Equal(t, 0, backing.Len())
}

func TestExternalSortScatterFailure(t *testing.T) {
	backing := memory.New()
	cache := &failingCache{Cache: backing, remaining: 5}
	s := &ExternalSort{Cache: cache, BucketSize: 2}
	_, err := s.Sort(ctx, singles(idRows(5, 4, 3, 2, 1, 0)), etl.SortKeySet{etl.Asc("id")})
	require.NotNil(t, err)
	require.Equal(t, 0, backing.Len())
}

func TestBucketRoundTrip(t *testing.T) {
	cache := memory.New()
	w := NewBucketWriter(cache, "b", 2)
	for _, id := range []int{1, 2, 3} {
		require.Nil(t, w.Append(ctx, etl.R("id", id)))
	}
	require.Nil(t, w.Close(ctx))
	require.Equal(t, 3, w.Len())
	// index plus two pages
	require.Equal(t, 3, cache.Len())
	entry, err := cache.Get(ctx, "b")
	require.Nil(t, err)
	pages, ok := entry.Index()
	require.True(t, ok)
	require.Equal(t, []string{"b/0", "b/1"}, pages)

	r, err := OpenBucket(ctx, cache, "b")
	require.Nil(t, err)
	var got []int
	for {
		row, ok, err := r.Next(ctx)
		require.Nil(t, err)
		if !ok {
			break
		}
		got = append(got, row.Value("id").(int))
	}
	require.Equal(t, []int{1, 2, 3}, got)
	require.Equal(t, 0, cache.Len())
}

func TestBucketDiscard(t *testing.T) {
	cache := memory.New()
	w := NewBucketWriter(cache, "b", 1)
	require.Nil(t, w.Append(ctx, etl.R("id", 1)))
	require.Nil(t, w.Append(ctx, etl.R("id", 2)))
	require.Nil(t, w.Close(ctx))
	r, err := OpenBucket(ctx, cache, "b")
	require.Nil(t, err)
	_, _, err = r.Next(ctx)
	require.Nil(t, err)
	require.Nil(t, r.Discard(ctx))
	require.Equal(t, 0, cache.Len())
	// discarding an unknown bucket is not an error
	require.Nil(t, DiscardBucket(ctx, cache, "missing"))
	_, err = OpenBucket(ctx, cache, "missing")
	require.IsType(t, errors.KeyNotFoundError{}, err)
}

func TestOpenBucketWrongKind(t *testing.T) {
	cache := memory.New()
	require.Nil(t, cache.Set(ctx, "b", etl.RowCacheEntry(etl.R("id", 1))))
	_, err := OpenBucket(ctx, cache, "b")
	require.IsType(t, errors.CorruptEntryError{}, err)
}

func TestMemorySort(t *testing.T) {
	s := &MemorySort{Limit: 1 << 40, OutputBatchSize: 2, Probe: func() uint64 { return 0 }}
	iter, err := s.Sort(ctx, singles(idRows(5, 3, 4, 1, 2)), etl.SortKeySet{etl.Asc("id")})
	require.Nil(t, err)
	var sizes []int
	var got []int
	require.Nil(t, etl.Drain(ctx, iter, func(b etl.Rows) error {
		sizes = append(sizes, b.Len())
		got = append(got, ids(b.All())...)
		return nil
	}))
	require.Equal(t, []int{2, 2, 1}, sizes)
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)
}

func TestMemorySortFallbackIsEquivalent(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	input := make([]int, 120)
	for i := range input {
		input[i] = rnd.Intn(25)
	}
	keys := etl.SortKeySet{etl.Desc("id")}

	unconstrained := &MemorySort{Limit: 1 << 40, Probe: func() uint64 { return 0 }}
	iter, err := unconstrained.Sort(ctx, etl.NewSliceIterator(idRows(input...).Chunk(10)...), keys)
	require.Nil(t, err)
	expected := drain(t, iter)

	cache := memory.New()
	calls := 0
	constrained := &MemorySort{
		Limit:    1000,
		Fallback: &ExternalSort{Cache: cache, BucketSize: 8, BucketsCount: 3},
		Probe: func() uint64 {
			calls++
			if calls > 3 {
				return 1 << 20
			}
			return 0
		},
	}
	iter, err = constrained.Sort(ctx, etl.NewSliceIterator(idRows(input...).Chunk(10)...), keys)
	require.Nil(t, err)
	actual := drain(t, iter)
	require.Equal(t, 4, calls)
	require.Equal(t, len(expected), len(actual))
	for i := range expected {
		require.True(t, expected[i].Equal(actual[i]))
	}
	require.Equal(t, 0, cache.Len())
}

func TestMemorySortWithoutFallback(t *testing.T) {
	s := &MemorySort{Limit: 100, Probe: func() uint64 { return 1000 }}
	_, err := s.Sort(ctx, singles(idRows(1, 2)), etl.SortKeySet{etl.Asc("id")})
	require.Equal(t, errors.MemoryLimitExceededError{Used: 1000, Ceiling: 90}, err)

	s = &MemorySort{Limit: 100, Ceiling: 1.5}
	_, err = s.Sort(ctx, singles(idRows(1, 2)), etl.SortKeySet{etl.Asc("id")})
	require.IsType(t, errors.InvalidConfigError{}, err)
}

func TestDetectMemoryLimit(t *testing.T) {
	require.True(t, DetectMemoryLimit() > 0)
}

func TestSortingExtractor(t *testing.T) {
	upstream := etl.ExtractorFunc(func(ctx context.Context) (etl.RowsIterator, error) {
		return singles(idRows(3, 1, 2)), nil
	})
	ex := Extractor(upstream, &ExternalSort{Cache: memory.New(), BucketSize: 2}, etl.SortKeySet{etl.Asc("id")})
	for i := 0; i < 2; i++ {
		iter, err := ex.Extract(ctx)
		require.Nil(t, err)
		require.Equal(t, []int{1, 2, 3}, ids(drain(t, iter)))
	}
}

func TestNewFromConfig(t *testing.T) {
	cfg := config.Default().Sort
	s, err := New(cfg, memory.New(), zerolog.Nop())
	require.Nil(t, err)
	ms, ok := s.(*MemorySort)
	require.True(t, ok)
	require.IsType(t, &ExternalSort{}, ms.Fallback)

	cfg.Algorithm = config.SortExternal
	s, err = New(cfg, memory.New(), zerolog.Nop())
	require.Nil(t, err)
	require.IsType(t, &ExternalSort{}, s)

	cfg.Algorithm = "quantum"
	_, err = New(cfg, memory.New(), zerolog.Nop())
	require.IsType(t, errors.InvalidConfigError{}, err)
}

func TestNewUsesOneOutputBatchSize(t *testing.T) {
	input := make([]int, 1200)
	for i := range input {
		input[i] = len(input) - i
	}
	for _, algorithm := range []string{config.SortMemory, config.SortExternal} {
		cfg := config.Sort{Algorithm: algorithm, BucketSize: 100, MemoryLimit: 1 << 40}
		s, err := New(cfg, memory.New(), zerolog.Nop())
		require.Nil(t, err)
		iter, err := s.Sort(ctx, etl.NewSliceIterator(idRows(input...).Chunk(100)...), etl.SortKeySet{etl.Asc("id")})
		require.Nil(t, err)
		var sizes []int
		require.Nil(t, etl.Drain(ctx, iter, func(b etl.Rows) error {
			sizes = append(sizes, b.Len())
			return nil
		}), algorithm)
		require.Equal(t, []int{DefaultOutputBatchSize, 200}, sizes, algorithm)
	}
}
