package etl

import (
	"fmt"
	"strings"

	errors "github.com/go-sif/etl/errors"
)

// Entry is a single named value within a Row
type Entry struct {
	Name  string
	Value interface{}
}

// E is a shorthand constructor for an Entry
func E(name string, value interface{}) Entry {
	return Entry{Name: name, Value: value}
}

// Row is an ordered set of uniquely named entries. Rows are immutable: every
// method which alters a Row returns a new one and leaves the receiver intact.
// The zero Row is a valid, empty Row.
type Row struct {
	entries []Entry
	index   map[string]int
}

// NewRow builds a Row from entries, in order. Entry names must be unique.
func NewRow(entries ...Entry) (Row, error) {
	index := make(map[string]int, len(entries))
	copied := make([]Entry, len(entries))
	for i, e := range entries {
		if _, ok := index[e.Name]; ok {
			return Row{}, errors.DuplicateEntryError{Name: e.Name}
		}
		index[e.Name] = i
		copied[i] = e
	}
	return Row{entries: copied, index: index}, nil
}

// MustRow is like NewRow, but panics if entry names are not unique
func MustRow(entries ...Entry) Row {
	row, err := NewRow(entries...)
	if err != nil {
		panic(err)
	}
	return row
}

// R builds a Row from alternating names and values, e.g. R("id", 1, "name", "a").
// It panics on an odd number of arguments, non-string names or duplicate names.
func R(namesAndValues ...interface{}) Row {
	if len(namesAndValues)%2 != 0 {
		panic(fmt.Sprintf("R expects name/value pairs, got %d arguments", len(namesAndValues)))
	}
	entries := make([]Entry, 0, len(namesAndValues)/2)
	for i := 0; i < len(namesAndValues); i += 2 {
		name, ok := namesAndValues[i].(string)
		if !ok {
			panic(fmt.Sprintf("R expects a string entry name at position %d, got %T", i, namesAndValues[i]))
		}
		entries = append(entries, Entry{Name: name, Value: namesAndValues[i+1]})
	}
	return MustRow(entries...)
}

// Len returns the number of entries in this Row
func (r Row) Len() int {
	return len(r.entries)
}

// Has returns true iff this Row contains an entry with the given name
func (r Row) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Get returns the value of the named entry
func (r Row) Get(name string) (interface{}, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, errors.EntryNotFoundError{Name: name}
	}
	return r.entries[i].Value, nil
}

// Value returns the value of the named entry, or nil if it does not exist
func (r Row) Value(name string) interface{} {
	if i, ok := r.index[name]; ok {
		return r.entries[i].Value
	}
	return nil
}

// Names returns entry names in order
func (r Row) Names() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

// Entries returns a copy of this Row's entries, in order
func (r Row) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Set returns a new Row with the named entry replaced, or appended if absent
func (r Row) Set(name string, value interface{}) Row {
	entries := r.Entries()
	if i, ok := r.index[name]; ok {
		entries[i].Value = value
		return Row{entries: entries, index: r.index}
	}
	entries = append(entries, Entry{Name: name, Value: value})
	index := make(map[string]int, len(entries))
	for k, v := range r.index {
		index[k] = v
	}
	index[name] = len(entries) - 1
	return Row{entries: entries, index: index}
}

// Remove returns a new Row without the named entries. Unknown names are ignored.
func (r Row) Remove(names ...string) Row {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	entries := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if _, ok := drop[e.Name]; !ok {
			entries = append(entries, e)
		}
	}
	return MustRow(entries...)
}

// Select returns a new Row containing only the named entries, in the requested order
func (r Row) Select(names ...string) (Row, error) {
	entries := make([]Entry, 0, len(names))
	for _, n := range names {
		i, ok := r.index[n]
		if !ok {
			return Row{}, errors.EntryNotFoundError{Name: n}
		}
		entries = append(entries, r.entries[i])
	}
	return NewRow(entries...)
}

// Rename returns a new Row in which the entry from is called to
func (r Row) Rename(from string, to string) (Row, error) {
	i, ok := r.index[from]
	if !ok {
		return Row{}, errors.EntryNotFoundError{Name: from}
	}
	entries := r.Entries()
	entries[i].Name = to
	return NewRow(entries...)
}

// Merge returns a new Row holding the entries of r followed by the entries of o
func (r Row) Merge(o Row) (Row, error) {
	entries := make([]Entry, 0, len(r.entries)+len(o.entries))
	entries = append(entries, r.entries...)
	entries = append(entries, o.entries...)
	return NewRow(entries...)
}

// Equal returns true iff both Rows hold the same entries in the same order
func (r Row) Equal(o Row) bool {
	if len(r.entries) != len(o.entries) {
		return false
	}
	for i, e := range r.entries {
		if e.Name != o.entries[i].Name || CompareValues(e.Value, o.entries[i].Value) != 0 {
			return false
		}
	}
	return true
}

// String returns a string representation of this Row
func (r Row) String() string {
	var res strings.Builder
	fmt.Fprint(&res, "{")
	for i, e := range r.entries {
		if i > 0 {
			fmt.Fprint(&res, ", ")
		}
		fmt.Fprintf(&res, "%s: %v", e.Name, e.Value)
	}
	fmt.Fprint(&res, "}")
	return res.String()
}
