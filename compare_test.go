package etl

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCompareValuesAcrossKinds(t *testing.T) {
	now := time.Now()
	ordered := []interface{}{nil, false, true, -1, uint8(2), 2.5, "a", "b", now, now.Add(time.Second), []byte("a"), struct{}{}}
	for i := range ordered {
		for j := range ordered {
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			require.Equal(t, want, CompareValues(ordered[i], ordered[j]), "%v vs %v", ordered[i], ordered[j])
		}
	}
}

func TestCompareNumbers(t *testing.T) {
	require.Equal(t, 0, CompareValues(1, int64(1)))
	require.Equal(t, 0, CompareValues(uint32(3), 3.0))
	require.Equal(t, -1, CompareValues(int64(-1), uint64(math.MaxUint64)))
	require.Equal(t, 1, CompareValues(uint64(math.MaxUint64), int64(math.MaxInt64)))
	require.Equal(t, -1, CompareValues(math.NaN(), math.Inf(-1)))
	require.Equal(t, 0, CompareValues(math.NaN(), math.NaN()))
	require.Equal(t, 1, CompareValues(float32(1.5), 1))
}

func TestSortKeySetCompare(t *testing.T) {
	keys := SortKeySet{Asc("a"), Desc("b")}
	require.Equal(t, -1, keys.Compare(R("a", 1, "b", 1), R("a", 2, "b", 9)))
	require.Equal(t, -1, keys.Compare(R("a", 1, "b", 9), R("a", 1, "b", 1)))
	require.Equal(t, 0, keys.Compare(R("a", 1, "b", 1, "c", 5), R("a", 1, "b", 1)))
	require.True(t, keys.Less(R("b", 1), R("a", 1)))
	require.Equal(t, "b DESC", Desc("b").String())
	require.Equal(t, "a ASC", Asc("a").String())
}
