package etl

import (
	"context"
	"sync"
)

// RowsIterator is a lazy, one-shot, pull-based sequence of batches. Next
// returns the next batch and true, or false once the sequence is exhausted.
// Close releases any resources held by the iterator and may be called at any
// point, including before exhaustion; further calls to Next after Close
// report exhaustion.
type RowsIterator interface {
	Next(ctx context.Context) (Rows, bool, error)
	Close() error
}

// SliceIterator iterates over a fixed list of batches
type SliceIterator struct {
	batches []Rows
	next    int
}

// NewSliceIterator creates a RowsIterator over batches
func NewSliceIterator(batches ...Rows) *SliceIterator {
	return &SliceIterator{batches: batches}
}

// Next implements RowsIterator
func (s *SliceIterator) Next(ctx context.Context) (Rows, bool, error) {
	if err := ctx.Err(); err != nil {
		return Rows{}, false, err
	}
	if s.next >= len(s.batches) {
		return Rows{}, false, nil
	}
	b := s.batches[s.next]
	s.next++
	return b, true, nil
}

// Close implements RowsIterator
func (s *SliceIterator) Close() error {
	s.next = len(s.batches)
	return nil
}

// FuncIterator adapts a pull function and an optional close function into a
// RowsIterator. The close function runs at most once.
type FuncIterator struct {
	next    func(ctx context.Context) (Rows, bool, error)
	close   func() error
	once    sync.Once
	closed  bool
	closeMu sync.Mutex
}

// NewFuncIterator creates a FuncIterator
func NewFuncIterator(next func(ctx context.Context) (Rows, bool, error), close func() error) *FuncIterator {
	return &FuncIterator{next: next, close: close}
}

// Next implements RowsIterator
func (f *FuncIterator) Next(ctx context.Context) (Rows, bool, error) {
	f.closeMu.Lock()
	closed := f.closed
	f.closeMu.Unlock()
	if closed {
		return Rows{}, false, nil
	}
	return f.next(ctx)
}

// Close implements RowsIterator
func (f *FuncIterator) Close() (err error) {
	f.once.Do(func() {
		f.closeMu.Lock()
		f.closed = true
		f.closeMu.Unlock()
		if f.close != nil {
			err = f.close()
		}
	})
	return
}

// Drain pulls every remaining batch from iter, invoking fn on each, then closes iter
func Drain(ctx context.Context, iter RowsIterator, fn func(Rows) error) (err error) {
	defer func() {
		if cerr := iter.Close(); err == nil {
			err = cerr
		}
	}()
	for {
		batch, ok, err := iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if fn != nil {
			if err := fn(batch); err != nil {
				return err
			}
		}
	}
}

// CollectRows drains iter into a single batch holding every row, in order
func CollectRows(ctx context.Context, iter RowsIterator) (Rows, error) {
	var all []Row
	err := Drain(ctx, iter, func(batch Rows) error {
		all = append(all, batch.rows...)
		return nil
	})
	if err != nil {
		return Rows{}, err
	}
	return Rows{rows: all}, nil
}
