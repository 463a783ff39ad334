package etl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionPredicate(t *testing.T) {
	tests := []struct {
		op    Operator
		value interface{}
		want  bool
	}{
		{Equal, 2019, true},
		{Equal, int64(2019), true},
		{NotEqual, 2019, false},
		{LessThan, 2020, true},
		{LessThanOrEqual, 2019, true},
		{GreaterThan, 2019, false},
		{GreaterThanOrEqual, 2018, true},
		{Operator("~"), 2019, false},
	}
	for _, test := range tests {
		p := PartitionPredicate{Entry: "year", Op: test.op, Value: test.value}
		require.Equal(t, test.want, p.MatchesRow(R("year", 2019)), p.String())
	}
	p := PartitionPredicate{Entry: "year", Op: Equal, Value: 2019}
	require.False(t, p.MatchesRow(R("month", 1)))
	require.Nil(t, p.Valid())
	require.NotNil(t, PartitionPredicate{Entry: "year", Op: "~"}.Valid())
	require.Equal(t, "year = 2019", p.String())
}

func TestDecisions(t *testing.T) {
	require.Equal(t, Fatal, ThrowError().Decide(nil, Rows{}))
	require.Equal(t, Skip, SkipRows().Decide(nil, Rows{}))
	require.Equal(t, "skip", Skip.String())
	require.Equal(t, "fatal", Fatal.String())
}
