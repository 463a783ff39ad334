// Package memory provides a Loader which keeps every batch it receives
package memory

import (
	"context"
	"sync"

	etl "github.com/go-sif/etl"
)

// Loader collects batches in memory. It is safe for concurrent use, so it may
// sit downstream of a Parallelizing pipeline.
type Loader struct {
	lock    sync.Mutex
	batches []etl.Rows
	rows    int
}

// New creates an empty Loader
func New() *Loader {
	return &Loader{}
}

// Load implements etl.Loader
func (l *Loader) Load(ctx context.Context, rows etl.Rows) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.batches = append(l.batches, rows)
	l.rows += rows.Len()
	return nil
}

// Batches returns the loaded batches, in arrival order
func (l *Loader) Batches() []etl.Rows {
	l.lock.Lock()
	defer l.lock.Unlock()
	return append([]etl.Rows(nil), l.batches...)
}

// Rows returns every loaded Row as a single batch
func (l *Loader) Rows() etl.Rows {
	l.lock.Lock()
	defer l.lock.Unlock()
	return etl.NewRows().Merge(l.batches...)
}

// Len returns the number of loaded Rows
func (l *Loader) Len() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.rows
}

// Reset forgets every loaded batch
func (l *Loader) Reset() {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.batches = nil
	l.rows = 0
}
