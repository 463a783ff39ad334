package etl

import "fmt"

// Order is the direction of a SortReference
type Order int

const (
	// Ascending sorts smaller values first
	Ascending Order = iota
	// Descending sorts larger values first
	Descending
)

// SortReference names an entry and the direction in which to order by it
type SortReference struct {
	Entry string
	Order Order
}

// Asc produces an ascending SortReference
func Asc(entry string) SortReference {
	return SortReference{Entry: entry, Order: Ascending}
}

// Desc produces a descending SortReference
func Desc(entry string) SortReference {
	return SortReference{Entry: entry, Order: Descending}
}

// String returns a string representation of this SortReference
func (s SortReference) String() string {
	if s.Order == Descending {
		return fmt.Sprintf("%s DESC", s.Entry)
	}
	return fmt.Sprintf("%s ASC", s.Entry)
}

// SortKeySet is an ordered list of SortReferences. Rows are compared
// lexicographically: later references only break ties of earlier ones.
type SortKeySet []SortReference

// Compare returns a negative number if a sorts before b, a positive number if
// it sorts after, and 0 if they are equal on every reference. Missing entries
// compare as nil.
func (k SortKeySet) Compare(a Row, b Row) int {
	for _, ref := range k {
		left, right := a.Value(ref.Entry), b.Value(ref.Entry)
		if ref.Order == Descending {
			left, right = right, left
		}
		if c := CompareValues(left, right); c != 0 {
			return c
		}
	}
	return 0
}

// Less reports whether a sorts strictly before b
func (k SortKeySet) Less(a Row, b Row) bool {
	return k.Compare(a, b) < 0
}
