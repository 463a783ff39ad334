// Package filesystem provides an etl.Cache which stores one file per key in a
// local directory
package filesystem

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/internal/codec"
	"github.com/hashicorp/go-multierror"
	"github.com/moby/locker"
)

// Cache stores entries as lz4-compressed files named by the xxhash of their
// key. The key itself is recorded within each file, and a file is only ever
// replaced or removed on behalf of the key it holds. Locks are taken per file.
type Cache struct {
	root  string
	locks *locker.Locker
	hash  func(string) uint64
}

// New creates a Cache rooted at dir, creating the directory if necessary
func New(dir string) (*Cache, error) {
	if dir == "" {
		return nil, errors.InvalidConfigError{Param: "cache.path", Value: dir, Reason: "a directory is required"}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Cache{root: dir, locks: locker.New(), hash: xxhash.Sum64String}, nil
}

// Root returns the directory holding cache files
func (c *Cache) Root() string {
	return c.root
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.root, fmt.Sprintf("%016x.entry", c.hash(key)))
}

// read decodes the file at path. exists is false when there is no such file.
func read(path string) (stored string, entry etl.CacheEntry, exists bool, err error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return "", etl.CacheEntry{}, false, nil
	} else if err != nil {
		return "", etl.CacheEntry{}, false, err
	}
	defer f.Close()
	stored, entry, err = codec.Decode(f)
	return stored, entry, true, err
}

// Get implements etl.Cache
func (c *Cache) Get(ctx context.Context, key string) (etl.CacheEntry, error) {
	path := c.path(key)
	c.locks.Lock(path)
	defer c.locks.Unlock(path)
	stored, entry, exists, err := read(path)
	if !exists && err == nil {
		return etl.CacheEntry{}, errors.KeyNotFoundError{Key: key}
	}
	if err != nil {
		if !exists {
			return etl.CacheEntry{}, err
		}
		return etl.CacheEntry{}, errors.CorruptEntryError{Key: key, Cause: err}
	}
	if stored != key {
		// another key with the same hash
		return etl.CacheEntry{}, errors.KeyNotFoundError{Key: key}
	}
	return entry, nil
}

// occupant returns the key held by the file at path, or "" when the file is
// missing or unreadable. Callers hold the lock on path.
func occupant(path string) string {
	stored, _, exists, err := read(path)
	if !exists || err != nil {
		return ""
	}
	return stored
}

// Set implements etl.Cache. The entry is written to a temporary file and
// renamed into place. Setting a key whose hash is held by another key fails
// with errors.KeyCollisionError.
func (c *Cache) Set(ctx context.Context, key string, entry etl.CacheEntry) error {
	path := c.path(key)
	c.locks.Lock(path)
	defer c.locks.Unlock(path)
	if stored := occupant(path); stored != "" && stored != key {
		return errors.KeyCollisionError{Key: key, Occupant: stored}
	}
	tmp, err := os.CreateTemp(c.root, "set-*.tmp")
	if err != nil {
		return err
	}
	if err := codec.Encode(tmp, key, entry); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Has implements etl.Cache
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	_, err := c.Get(ctx, key)
	var notFound errors.KeyNotFoundError
	if stderrors.As(err, &notFound) {
		return false, nil
	}
	return err == nil, err
}

// Delete implements etl.Cache. A file held by another key is left alone.
func (c *Cache) Delete(ctx context.Context, key string) error {
	path := c.path(key)
	c.locks.Lock(path)
	defer c.locks.Unlock(path)
	if stored := occupant(path); stored != "" && stored != key {
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Clear implements etl.Cache, removing every file under the cache directory
func (c *Cache) Clear(ctx context.Context) error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return err
	}
	var multierr *multierror.Error
	for _, e := range entries {
		multierr = multierror.Append(multierr, os.RemoveAll(filepath.Join(c.root, e.Name())))
	}
	return multierr.ErrorOrNil()
}
