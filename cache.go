package etl

import "context"

// EntryKind identifies what a CacheEntry holds
type EntryKind int

const (
	// RowEntry holds a single Row
	RowEntry EntryKind = iota + 1
	// RowsEntry holds a batch
	RowsEntry
	// IndexEntry holds a list of child keys
	IndexEntry
)

// CacheEntry is a value stored in a Cache. It holds exactly one of a Row, a
// batch or an index of child keys.
type CacheEntry struct {
	kind  EntryKind
	row   Row
	rows  Rows
	index []string
}

// RowCacheEntry wraps a Row
func RowCacheEntry(row Row) CacheEntry {
	return CacheEntry{kind: RowEntry, row: row}
}

// RowsCacheEntry wraps a batch. Position flags are not retained.
func RowsCacheEntry(rows Rows) CacheEntry {
	return CacheEntry{kind: RowsEntry, rows: rows.WithPosition(false, false)}
}

// IndexCacheEntry wraps a list of child keys
func IndexCacheEntry(keys ...string) CacheEntry {
	copied := make([]string, len(keys))
	copy(copied, keys)
	return CacheEntry{kind: IndexEntry, index: copied}
}

// Kind returns what this entry holds
func (c CacheEntry) Kind() EntryKind {
	return c.kind
}

// Row returns the Row held by this entry, if any
func (c CacheEntry) Row() (Row, bool) {
	return c.row, c.kind == RowEntry
}

// Rows returns the batch held by this entry, if any
func (c CacheEntry) Rows() (Rows, bool) {
	return c.rows, c.kind == RowsEntry
}

// Index returns a copy of the child keys held by this entry, if any
func (c CacheEntry) Index() ([]string, bool) {
	if c.kind != IndexEntry {
		return nil, false
	}
	out := make([]string, len(c.index))
	copy(out, c.index)
	return out, true
}

// A Cache is a key-addressed store of CacheEntries shared by pipelines and
// sorts. Implementations must be safe for concurrent use. Get returns an
// errors.KeyNotFoundError when key is absent; Delete of an absent key is not
// an error.
type Cache interface {
	Get(ctx context.Context, key string) (CacheEntry, error)
	Set(ctx context.Context, key string, entry CacheEntry) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
