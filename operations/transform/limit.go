package transform

import (
	"context"
	"sync"

	etl "github.com/go-sif/etl"
)

// LimitTransformer passes through the first n Rows of its stream. Once the
// limit is reached, every further batch is emptied.
type LimitTransformer struct {
	limit int
	lock  sync.Mutex
	seen  int
}

// Limit truncates a stream to its first n Rows
func Limit(n int) *LimitTransformer {
	if n < 0 {
		n = 0
	}
	return &LimitTransformer{limit: n}
}

// Limit implements etl.Limiter
func (l *LimitTransformer) Limit() int {
	return l.limit
}

// Transform implements etl.Transformer
func (l *LimitTransformer) Transform(ctx context.Context, rows etl.Rows) (etl.Rows, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	remaining := l.limit - l.seen
	if remaining <= 0 {
		return etl.NewRows(), nil
	}
	if rows.Len() <= remaining {
		l.seen += rows.Len()
		return rows, nil
	}
	l.seen = l.limit
	return rows.Slice(0, remaining), nil
}

// PreservesEntries implements etl.EntriesPreserving
func (l *LimitTransformer) PreservesEntries() bool {
	return true
}
