package etl

import "context"

// A Loader writes a batch somewhere. The batch is passed on unchanged to the
// next pipe.
type Loader interface {
	Load(ctx context.Context, rows Rows) error
}

// LoaderFunc adapts a function into a Loader
type LoaderFunc func(ctx context.Context, rows Rows) error

// Load implements Loader
func (f LoaderFunc) Load(ctx context.Context, rows Rows) error {
	return f(ctx, rows)
}

// BatchSizePreferrer is implemented by Loaders which are more efficient when
// given large batches
type BatchSizePreferrer interface {
	PreferredBatchSize() int
}
