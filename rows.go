package etl

import (
	"sort"
	"strings"
)

// Rows is an ordered batch of Rows moving through a pipeline. The first and
// last flags describe the batch's position within its stream and are assigned
// by the pipeline which yields it; any value set elsewhere is overwritten.
type Rows struct {
	rows    []Row
	isFirst bool
	isLast  bool
}

// NewRows creates a batch holding rows, in order
func NewRows(rows ...Row) Rows {
	copied := make([]Row, len(rows))
	copy(copied, rows)
	return Rows{rows: copied}
}

// Len returns the number of Rows in this batch
func (r Rows) Len() int {
	return len(r.rows)
}

// Empty returns true iff this batch holds no Rows
func (r Rows) Empty() bool {
	return len(r.rows) == 0
}

// At returns the Row at index i
func (r Rows) At(i int) Row {
	return r.rows[i]
}

// All returns a copy of the Rows in this batch
func (r Rows) All() []Row {
	out := make([]Row, len(r.rows))
	copy(out, r.rows)
	return out
}

// IsFirst returns true iff this is the first batch of its stream
func (r Rows) IsFirst() bool {
	return r.isFirst
}

// IsLast returns true iff this is the last batch of its stream
func (r Rows) IsLast() bool {
	return r.isLast
}

// WithPosition returns a copy of this batch carrying the given position flags
func (r Rows) WithPosition(first bool, last bool) Rows {
	r.isFirst = first
	r.isLast = last
	return r
}

// Slice returns the Rows in [from, to) as a new batch without position flags
func (r Rows) Slice(from int, to int) Rows {
	return NewRows(r.rows[from:to]...)
}

// Chunk splits this batch into consecutive batches of at most size Rows. An
// empty batch produces no chunks.
func (r Rows) Chunk(size int) []Rows {
	if size < 1 {
		size = 1
	}
	chunks := make([]Rows, 0, (len(r.rows)+size-1)/size)
	for from := 0; from < len(r.rows); from += size {
		to := from + size
		if to > len(r.rows) {
			to = len(r.rows)
		}
		chunks = append(chunks, r.Slice(from, to))
	}
	return chunks
}

// Split divides this batch into at most parts contiguous batches of
// near-equal size. Earlier parts receive the remainder. Parts which would be
// empty are omitted.
func (r Rows) Split(parts int) []Rows {
	if parts < 1 {
		parts = 1
	}
	if parts > len(r.rows) {
		parts = len(r.rows)
	}
	out := make([]Rows, 0, parts)
	if parts == 0 {
		return out
	}
	size := len(r.rows) / parts
	rem := len(r.rows) % parts
	from := 0
	for i := 0; i < parts; i++ {
		to := from + size
		if i < rem {
			to++
		}
		out = append(out, r.Slice(from, to))
		from = to
	}
	return out
}

// Append returns a new batch with rows added to the end of this one
func (r Rows) Append(rows ...Row) Rows {
	out := make([]Row, 0, len(r.rows)+len(rows))
	out = append(out, r.rows...)
	out = append(out, rows...)
	return Rows{rows: out, isFirst: r.isFirst, isLast: r.isLast}
}

// Merge returns a new batch holding the Rows of this batch followed by the Rows of others, in order
func (r Rows) Merge(others ...Rows) Rows {
	total := len(r.rows)
	for _, o := range others {
		total += len(o.rows)
	}
	out := make([]Row, 0, total)
	out = append(out, r.rows...)
	for _, o := range others {
		out = append(out, o.rows...)
	}
	return Rows{rows: out, isFirst: r.isFirst, isLast: r.isLast}
}

// Map returns a new batch produced by applying fn to every Row
func (r Rows) Map(fn func(Row) Row) Rows {
	out := make([]Row, len(r.rows))
	for i, row := range r.rows {
		out[i] = fn(row)
	}
	return Rows{rows: out, isFirst: r.isFirst, isLast: r.isLast}
}

// Filter returns a new batch holding only the Rows for which keep returns true
func (r Rows) Filter(keep func(Row) bool) Rows {
	out := make([]Row, 0, len(r.rows))
	for _, row := range r.rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	return Rows{rows: out, isFirst: r.isFirst, isLast: r.isLast}
}

// SortBy returns a new batch sorted stably by the given references
func (r Rows) SortBy(refs ...SortReference) Rows {
	keys := SortKeySet(refs)
	out := r.All()
	sort.SliceStable(out, func(i, j int) bool {
		return keys.Compare(out[i], out[j]) < 0
	})
	return Rows{rows: out, isFirst: r.isFirst, isLast: r.isLast}
}

// String returns a string representation of this batch
func (r Rows) String() string {
	var res strings.Builder
	res.WriteString("[")
	for i, row := range r.rows {
		if i > 0 {
			res.WriteString(", ")
		}
		res.WriteString(row.String())
	}
	res.WriteString("]")
	return res.String()
}
