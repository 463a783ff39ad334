package etl

import (
	"context"
	"fmt"
)

// An Extractor produces a lazy, possibly infinite, sequence of batches
type Extractor interface {
	Extract(ctx context.Context) (RowsIterator, error)
}

// ExtractorFunc adapts a function into an Extractor
type ExtractorFunc func(ctx context.Context) (RowsIterator, error)

// Extract implements Extractor
func (f ExtractorFunc) Extract(ctx context.Context) (RowsIterator, error) {
	return f(ctx)
}

// A LimitableExtractor accepts a hint that no more than n rows will be consumed
type LimitableExtractor interface {
	Extractor
	SetLimit(n int)
	Limited() bool // Limited returns true once a limit has been set
}

// A PartitionedExtractor reads data laid out in partitions (e.g. directories)
// named by entries, and is able to skip entire partitions which do not match
// a predicate
type PartitionedExtractor interface {
	Extractor
	PartitionColumns() []string              // PartitionColumns returns the entry names which identify partitions
	SetPartitionFilter(p PartitionPredicate) // SetPartitionFilter adds a predicate partitions must satisfy
}

// Operator is a comparison used within a PartitionPredicate
type Operator string

const (
	// Equal matches values equal to the predicate value
	Equal Operator = "="
	// NotEqual matches values not equal to the predicate value
	NotEqual Operator = "!="
	// LessThan matches values smaller than the predicate value
	LessThan Operator = "<"
	// LessThanOrEqual matches values smaller than or equal to the predicate value
	LessThanOrEqual Operator = "<="
	// GreaterThan matches values larger than the predicate value
	GreaterThan Operator = ">"
	// GreaterThanOrEqual matches values larger than or equal to the predicate value
	GreaterThanOrEqual Operator = ">="
)

// PartitionPredicate is a simple comparison between a named entry and a constant
type PartitionPredicate struct {
	Entry string
	Op    Operator
	Value interface{}
}

// Matches returns true iff value satisfies this predicate
func (p PartitionPredicate) Matches(value interface{}) bool {
	c := CompareValues(value, p.Value)
	switch p.Op {
	case Equal:
		return c == 0
	case NotEqual:
		return c != 0
	case LessThan:
		return c < 0
	case LessThanOrEqual:
		return c <= 0
	case GreaterThan:
		return c > 0
	case GreaterThanOrEqual:
		return c >= 0
	default:
		return false
	}
}

// MatchesRow evaluates this predicate against the named entry of row. Rows
// lacking the entry do not match.
func (p PartitionPredicate) MatchesRow(row Row) bool {
	v, err := row.Get(p.Entry)
	if err != nil {
		return false
	}
	return p.Matches(v)
}

// Valid returns an error if this predicate uses an unknown operator
func (p PartitionPredicate) Valid() error {
	switch p.Op {
	case Equal, NotEqual, LessThan, LessThanOrEqual, GreaterThan, GreaterThanOrEqual:
		return nil
	}
	return fmt.Errorf("unknown partition predicate operator %q", p.Op)
}

// String returns a string representation of this PartitionPredicate
func (p PartitionPredicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Entry, p.Op, p.Value)
}
