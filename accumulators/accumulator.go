// Package accumulators provides the incremental aggregations folded by the
// GroupBy pipeline decorator.
package accumulators

import (
	etl "github.com/go-sif/etl"
)

// An Accumulator folds Rows into a running aggregate, one Row at a time.
// Memory use must be bounded by the size of the aggregate rather than the
// number of Rows accumulated (Collect being the deliberate exception).
type Accumulator interface {
	Accumulate(row etl.Row) error // Accumulate adds a row to this Accumulator
	Result() interface{}          // Result returns the current aggregate
}

// Aggregation names the entry an Accumulator's result is written to, and
// produces a fresh Accumulator for every group
type Aggregation struct {
	As  string
	New func() Accumulator
}

// Compose returns a factory for Composed Accumulators over aggs, in order
func Compose(aggs ...Aggregation) func() *Composed {
	return func() *Composed {
		accs := make([]Accumulator, len(aggs))
		names := make([]string, len(aggs))
		for i, a := range aggs {
			accs[i] = a.New()
			names[i] = a.As
		}
		return &Composed{accs: accs, names: names}
	}
}

// Composed composes other Accumulators
type Composed struct {
	accs  []Accumulator
	names []string
}

// GetResults returns the contained Accumulators, so that their results may be accessed
func (c *Composed) GetResults() []Accumulator {
	return c.accs
}

// Accumulate adds a row to all contained Accumulators
func (c *Composed) Accumulate(row etl.Row) error {
	for _, a := range c.accs {
		if err := a.Accumulate(row); err != nil {
			return err
		}
	}
	return nil
}

// Entries returns the result of every contained Accumulator as a named Entry
func (c *Composed) Entries() []etl.Entry {
	out := make([]etl.Entry, len(c.accs))
	for i, a := range c.accs {
		out[i] = etl.Entry{Name: c.names[i], Value: a.Result()}
	}
	return out
}
