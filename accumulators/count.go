package accumulators

import etl "github.com/go-sif/etl"

// Counter returns an Aggregation counting rows into the entry as
func Counter(as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return new(Count) }}
}

// Count counts records
type Count struct {
	count int64
}

// GetCount returns the row count from this Accumulator
func (a *Count) GetCount() int64 {
	return a.count
}

// Accumulate adds a row to this Accumulator
func (a *Count) Accumulate(row etl.Row) error {
	a.count++
	return nil
}

// Result implements Accumulator
func (a *Count) Result() interface{} {
	return a.count
}
