package accumulators

import etl "github.com/go-sif/etl"

// Minimum returns an Aggregation keeping the smallest value of entry
func Minimum(entry string, as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return &Extremum{entry: entry, sign: -1} }}
}

// Maximum returns an Aggregation keeping the largest value of entry
func Maximum(entry string, as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return &Extremum{entry: entry, sign: 1} }}
}

// Extremum keeps the smallest or largest non-nil value of an entry, by etl.CompareValues
type Extremum struct {
	entry string
	sign  int
	value interface{}
	seen  bool
}

// Accumulate adds a row to this Accumulator
func (a *Extremum) Accumulate(row etl.Row) error {
	v, err := row.Get(a.entry)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if !a.seen || etl.CompareValues(v, a.value)*a.sign > 0 {
		a.value = v
		a.seen = true
	}
	return nil
}

// Result implements Accumulator
func (a *Extremum) Result() interface{} {
	return a.value
}

// Firster returns an Aggregation keeping the first value of entry
func Firster(entry string, as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return &First{entry: entry} }}
}

// First keeps the first value seen for an entry
type First struct {
	entry string
	value interface{}
	seen  bool
}

// Accumulate adds a row to this Accumulator
func (a *First) Accumulate(row etl.Row) error {
	if a.seen {
		return nil
	}
	v, err := row.Get(a.entry)
	if err != nil {
		return err
	}
	a.value, a.seen = v, true
	return nil
}

// Result implements Accumulator
func (a *First) Result() interface{} {
	return a.value
}

// Laster returns an Aggregation keeping the last value of entry
func Laster(entry string, as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return &Last{entry: entry} }}
}

// Last keeps the last value seen for an entry
type Last struct {
	entry string
	value interface{}
}

// Accumulate adds a row to this Accumulator
func (a *Last) Accumulate(row etl.Row) error {
	v, err := row.Get(a.entry)
	if err != nil {
		return err
	}
	a.value = v
	return nil
}

// Result implements Accumulator
func (a *Last) Result() interface{} {
	return a.value
}

// Collector returns an Aggregation gathering every value of entry into a slice
func Collector(entry string, as string) Aggregation {
	return Aggregation{As: as, New: func() Accumulator { return &Collect{entry: entry} }}
}

// Collect gathers every value of an entry, in arrival order
type Collect struct {
	entry  string
	values []interface{}
}

// Accumulate adds a row to this Accumulator
func (a *Collect) Accumulate(row etl.Row) error {
	v, err := row.Get(a.entry)
	if err != nil {
		return err
	}
	a.values = append(a.values, v)
	return nil
}

// Result implements Accumulator
func (a *Collect) Result() interface{} {
	out := make([]interface{}, len(a.values))
	copy(out, a.values)
	return out
}
