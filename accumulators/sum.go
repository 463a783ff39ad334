package accumulators

import (
	"fmt"

	etl "github.com/go-sif/etl"
)

// Adder returns an Aggregation summing the entry named entry into the entry as
func Adder(entry string, as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return &Sum{entry: entry} }}
}

// Sum sums numeric entry values. The result is an int64 while every value
// seen is an integer, and a float64 otherwise. Nil values are ignored.
type Sum struct {
	entry    string
	isum     int64
	fsum     float64
	floating bool
}

// GetSum returns the sum from this Accumulator as a float64
func (a *Sum) GetSum() float64 {
	if a.floating {
		return a.fsum
	}
	return float64(a.isum)
}

// Accumulate adds a row to this Accumulator
func (a *Sum) Accumulate(row etl.Row) error {
	v, err := row.Get(a.entry)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	i, f, isInt, err := toNumber(v)
	if err != nil {
		return fmt.Errorf("cannot sum entry %s: %w", a.entry, err)
	}
	if isInt && !a.floating {
		a.isum += i
		return nil
	}
	if !a.floating {
		a.floating = true
		a.fsum = float64(a.isum)
	}
	if isInt {
		a.fsum += float64(i)
	} else {
		a.fsum += f
	}
	return nil
}

// Result implements Accumulator
func (a *Sum) Result() interface{} {
	if a.floating {
		return a.fsum
	}
	return a.isum
}

// Averager returns an Aggregation averaging the entry named entry into the entry as
func Averager(entry string, as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return &Avg{sum: Sum{entry: entry}} }}
}

// Avg averages numeric entry values, ignoring nil. Its result is nil until a value is seen.
type Avg struct {
	sum   Sum
	count int64
}

// Accumulate adds a row to this Accumulator
func (a *Avg) Accumulate(row etl.Row) error {
	if row.Value(a.sum.entry) == nil && row.Has(a.sum.entry) {
		return nil
	}
	if err := a.sum.Accumulate(row); err != nil {
		return err
	}
	a.count++
	return nil
}

// Result implements Accumulator
func (a *Avg) Result() interface{} {
	if a.count == 0 {
		return nil
	}
	return a.sum.GetSum() / float64(a.count)
}

func toNumber(v interface{}) (int64, float64, bool, error) {
	switch n := v.(type) {
	case int:
		return int64(n), 0, true, nil
	case int8:
		return int64(n), 0, true, nil
	case int16:
		return int64(n), 0, true, nil
	case int32:
		return int64(n), 0, true, nil
	case int64:
		return n, 0, true, nil
	case uint:
		return int64(n), 0, true, nil
	case uint8:
		return int64(n), 0, true, nil
	case uint16:
		return int64(n), 0, true, nil
	case uint32:
		return int64(n), 0, true, nil
	case uint64:
		return int64(n), 0, true, nil
	case float32:
		return 0, float64(n), false, nil
	case float64:
		return 0, n, false, nil
	default:
		return 0, 0, false, fmt.Errorf("%v (%T) is not a number", v, v)
	}
}
