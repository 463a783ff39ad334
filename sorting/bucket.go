package sorting

import (
	"context"
	stderrors "errors"
	"fmt"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/hashicorp/go-multierror"
)

// pageKey names the n-th page of a bucket
func pageKey(id string, n int) string {
	return fmt.Sprintf("%s/%d", id, n)
}

// BucketWriter persists a sorted run of Rows as a bucket: an index entry
// under the bucket id listing page keys, each page a batch of Rows
type BucketWriter struct {
	cache    etl.Cache
	id       string
	pageSize int
	buf      []etl.Row
	pages    []string
	rows     int
}

// NewBucketWriter creates a BucketWriter for bucket id
func NewBucketWriter(cache etl.Cache, id string, pageSize int) *BucketWriter {
	if pageSize < 1 {
		pageSize = DefaultBucketSize
	}
	return &BucketWriter{cache: cache, id: id, pageSize: pageSize}
}

// ID returns the bucket id
func (w *BucketWriter) ID() string {
	return w.id
}

// Len returns the number of Rows appended so far
func (w *BucketWriter) Len() int {
	return w.rows
}

// Append adds row to the bucket, writing a page whenever one fills up
func (w *BucketWriter) Append(ctx context.Context, row etl.Row) error {
	w.buf = append(w.buf, row)
	w.rows++
	if len(w.buf) >= w.pageSize {
		return w.flush(ctx)
	}
	return nil
}

func (w *BucketWriter) flush(ctx context.Context) error {
	if len(w.buf) == 0 {
		return nil
	}
	key := pageKey(w.id, len(w.pages))
	if err := w.cache.Set(ctx, key, etl.RowsCacheEntry(etl.NewRows(w.buf...))); err != nil {
		return err
	}
	w.pages = append(w.pages, key)
	w.buf = nil
	return nil
}

// Close writes any buffered Rows and the bucket index
func (w *BucketWriter) Close(ctx context.Context) error {
	if err := w.flush(ctx); err != nil {
		return err
	}
	return w.cache.Set(ctx, w.id, etl.IndexCacheEntry(w.pages...))
}

// Discard removes every page written so far
func (w *BucketWriter) Discard(ctx context.Context) error {
	w.buf = nil
	var multierr *multierror.Error
	for _, key := range w.pages {
		multierr = multierror.Append(multierr, w.cache.Delete(ctx, key))
	}
	multierr = multierror.Append(multierr, w.cache.Delete(ctx, w.id))
	w.pages = nil
	return multierr.ErrorOrNil()
}

// BucketReader is a lazy cursor over a bucket. Each page is deleted from the
// cache as soon as it has been loaded, and the index once the last page was.
type BucketReader struct {
	cache etl.Cache
	id    string
	pages []string
	next  int
	page  etl.Rows
	pos   int
	done  bool
}

// OpenBucket reads the index of bucket id
func OpenBucket(ctx context.Context, cache etl.Cache, id string) (*BucketReader, error) {
	entry, err := cache.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	pages, ok := entry.Index()
	if !ok {
		return nil, errors.CorruptEntryError{Key: id, Cause: fmt.Errorf("expected an index entry, found kind %d", entry.Kind())}
	}
	return &BucketReader{cache: cache, id: id, pages: pages}, nil
}

// ID returns the bucket id
func (r *BucketReader) ID() string {
	return r.id
}

// Next returns the next Row of the bucket, or false once it is exhausted
func (r *BucketReader) Next(ctx context.Context) (etl.Row, bool, error) {
	for r.pos >= r.page.Len() {
		if r.done {
			return etl.Row{}, false, nil
		}
		if r.next >= len(r.pages) {
			r.done = true
			if err := r.cache.Delete(ctx, r.id); err != nil {
				return etl.Row{}, false, err
			}
			return etl.Row{}, false, nil
		}
		key := r.pages[r.next]
		entry, err := r.cache.Get(ctx, key)
		if err != nil {
			return etl.Row{}, false, err
		}
		rows, ok := entry.Rows()
		if !ok {
			return etl.Row{}, false, errors.CorruptEntryError{Key: key, Cause: fmt.Errorf("expected a rows entry, found kind %d", entry.Kind())}
		}
		if err := r.cache.Delete(ctx, key); err != nil {
			return etl.Row{}, false, err
		}
		r.next++
		r.page = rows
		r.pos = 0
	}
	row := r.page.At(r.pos)
	r.pos++
	return row, true, nil
}

// Discard deletes the unread pages and the index of the bucket
func (r *BucketReader) Discard(ctx context.Context) error {
	if r.done {
		return nil
	}
	r.done = true
	r.page = etl.Rows{}
	var multierr *multierror.Error
	for ; r.next < len(r.pages); r.next++ {
		multierr = multierror.Append(multierr, r.cache.Delete(ctx, r.pages[r.next]))
	}
	multierr = multierror.Append(multierr, r.cache.Delete(ctx, r.id))
	return multierr.ErrorOrNil()
}

// DiscardBucket deletes bucket id and all of its pages. Missing buckets are
// ignored.
func DiscardBucket(ctx context.Context, cache etl.Cache, id string) error {
	r, err := OpenBucket(ctx, cache, id)
	if err != nil {
		var notFound errors.KeyNotFoundError
		if stderrors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return r.Discard(ctx)
}
