// Package lru provides a tiered etl.Cache. Recently used entries are kept as
// they are, less recently used ones are kept zstd-compressed, and the rest
// are evicted to a backing cache.
package lru

import (
	"container/list"
	"context"
	"sync"

	etl "github.com/go-sif/etl"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/internal/codec"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/zstd"
	"github.com/moby/locker"
)

// Config configures an LRU Cache
type Config struct {
	Size               int       // total number of entries held in memory, at least 5
	CompressedFraction float64   // share of Size held compressed, within [0, 1)
	Backing            etl.Cache // receives entries evicted from memory
}

// Cache is an LRU cache over two in-memory tiers and a backing cache. An
// entry lives in exactly one tier; reading it promotes it to the front of the
// uncompressed tier.
type Cache struct {
	config       Config
	compressor   *zstd.Encoder
	decompressor *zstd.Decoder
	plocks       *locker.Locker // per-key locks, held across tiers

	lock           sync.Mutex // guards everything below
	hot            map[string]*list.Element
	recentHot      *list.List // back is oldest, front is newest
	compressed     map[string]*list.Element
	recentCompress *list.List // back is oldest, front is newest
	evicting       map[string]*eviction
	maxHot         int
	maxCompressed  int
}

type hotEntry struct {
	key   string
	value etl.CacheEntry
}

type compressedEntry struct {
	key   string
	value []byte
}

// an entry on its way to the backing cache. It stays readable until written.
type eviction struct {
	key   string
	value []byte
}

// New produces an LRU Cache
func New(config *Config) (*Cache, error) {
	if config.Size < 5 {
		return nil, errors.InvalidConfigError{Param: "cache.lru.size", Value: config.Size, Reason: "must be at least 5"}
	}
	if config.CompressedFraction < 0 || config.CompressedFraction >= 1 {
		return nil, errors.InvalidConfigError{Param: "cache.lru.compressed_fraction", Value: config.CompressedFraction, Reason: "must be within [0, 1)"}
	}
	if config.Backing == nil {
		return nil, errors.InvalidConfigError{Param: "Backing", Value: nil, Reason: "an LRU cache requires a backing cache"}
	}
	maxHot := int(float64(config.Size) * (1 - config.CompressedFraction))
	if maxHot < 1 {
		maxHot = 1
	}
	// init compressor/decompressor
	compressor, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, err
	}
	decompressor, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Cache{
		config:         *config,
		compressor:     compressor,
		decompressor:   decompressor,
		plocks:         locker.New(),
		hot:            make(map[string]*list.Element),
		recentHot:      list.New(),
		compressed:     make(map[string]*list.Element),
		recentCompress: list.New(),
		evicting:       make(map[string]*eviction),
		maxHot:         maxHot,
		maxCompressed:  config.Size - maxHot,
	}, nil
}

// Close releases the compression resources of this Cache. The backing cache
// is left untouched.
func (c *Cache) Close() error {
	c.decompressor.Close()
	return c.compressor.Close()
}

// Len returns the number of entries held in each in-memory tier
func (c *Cache) Len() (hot int, compressed int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.recentHot.Len(), c.recentCompress.Len()
}

// Set implements etl.Cache
func (c *Cache) Set(ctx context.Context, key string, entry etl.CacheEntry) error {
	c.plocks.Lock(key)
	c.lock.Lock()
	c.remove(key)
	evicted, err := c.insert(key, entry)
	c.lock.Unlock()
	c.plocks.Unlock(key)
	if err != nil {
		return err
	}
	return c.evict(ctx, evicted)
}

// Get implements etl.Cache
func (c *Cache) Get(ctx context.Context, key string) (etl.CacheEntry, error) {
	c.plocks.Lock(key)
	entry, evicted, err := c.get(ctx, key)
	c.plocks.Unlock(key)
	if err != nil {
		return etl.CacheEntry{}, err
	}
	return entry, c.evict(ctx, evicted)
}

func (c *Cache) get(ctx context.Context, key string) (etl.CacheEntry, []*eviction, error) {
	c.lock.Lock()
	if e, ok := c.hot[key]; ok {
		c.recentHot.MoveToFront(e)
		c.lock.Unlock()
		return e.Value.(*hotEntry).value, nil, nil
	}
	var raw []byte
	if e, ok := c.compressed[key]; ok {
		raw = e.Value.(*compressedEntry).value
		c.recentCompress.Remove(e)
		delete(c.compressed, key)
	} else if ev, ok := c.evicting[key]; ok {
		raw = ev.value
		delete(c.evicting, key)
	}
	c.lock.Unlock()

	var entry etl.CacheEntry
	if raw != nil {
		decoded, err := c.decompress(key, raw)
		if err != nil {
			return etl.CacheEntry{}, nil, err
		}
		entry = decoded
	} else {
		fromDisk, err := c.config.Backing.Get(ctx, key)
		if err != nil {
			return etl.CacheEntry{}, nil, err
		}
		if err := c.config.Backing.Delete(ctx, key); err != nil {
			return etl.CacheEntry{}, nil, err
		}
		entry = fromDisk
	}

	// promote
	c.lock.Lock()
	defer c.lock.Unlock()
	evicted, err := c.insert(key, entry)
	return entry, evicted, err
}

// Has implements etl.Cache. It does not affect recency.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	c.plocks.Lock(key)
	defer c.plocks.Unlock(key)
	c.lock.Lock()
	_, hot := c.hot[key]
	_, compressed := c.compressed[key]
	_, evicting := c.evicting[key]
	c.lock.Unlock()
	if hot || compressed || evicting {
		return true, nil
	}
	return c.config.Backing.Has(ctx, key)
}

// Delete implements etl.Cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	c.plocks.Lock(key)
	defer c.plocks.Unlock(key)
	c.lock.Lock()
	c.remove(key)
	c.lock.Unlock()
	return c.config.Backing.Delete(ctx, key)
}

// Clear implements etl.Cache
func (c *Cache) Clear(ctx context.Context) error {
	c.lock.Lock()
	c.hot = make(map[string]*list.Element)
	c.recentHot.Init()
	c.compressed = make(map[string]*list.Element)
	c.recentCompress.Init()
	c.evicting = make(map[string]*eviction)
	c.lock.Unlock()
	return c.config.Backing.Clear(ctx)
}

// remove drops key from every in-memory tier. Callers hold c.lock.
func (c *Cache) remove(key string) {
	if e, ok := c.hot[key]; ok {
		c.recentHot.Remove(e)
		delete(c.hot, key)
	}
	if e, ok := c.compressed[key]; ok {
		c.recentCompress.Remove(e)
		delete(c.compressed, key)
	}
	delete(c.evicting, key)
}

// insert places entry at the front of the hot tier and cascades overflow
// down the tiers. Callers hold c.lock.
func (c *Cache) insert(key string, entry etl.CacheEntry) ([]*eviction, error) {
	c.hot[key] = c.recentHot.PushFront(&hotEntry{key: key, value: entry})
	for c.recentHot.Len() > c.maxHot {
		oldest := c.recentHot.Back()
		c.recentHot.Remove(oldest)
		he := oldest.Value.(*hotEntry)
		delete(c.hot, he.key)
		raw, err := c.compress(he.key, he.value)
		if err != nil {
			// keep it uncompressed rather than lose it
			c.hot[he.key] = c.recentHot.PushBack(he)
			return nil, err
		}
		c.compressed[he.key] = c.recentCompress.PushFront(&compressedEntry{key: he.key, value: raw})
	}
	var evicted []*eviction
	for c.recentCompress.Len() > c.maxCompressed {
		oldest := c.recentCompress.Back()
		c.recentCompress.Remove(oldest)
		ce := oldest.Value.(*compressedEntry)
		delete(c.compressed, ce.key)
		ev := &eviction{key: ce.key, value: ce.value}
		c.evicting[ce.key] = ev
		evicted = append(evicted, ev)
	}
	return evicted, nil
}

// evict writes entries to the backing cache, unless they were read, replaced
// or deleted in the meantime
func (c *Cache) evict(ctx context.Context, evicted []*eviction) error {
	var multierr *multierror.Error
	for _, ev := range evicted {
		multierr = multierror.Append(multierr, c.evictOne(ctx, ev))
	}
	return multierr.ErrorOrNil()
}

func (c *Cache) evictOne(ctx context.Context, ev *eviction) error {
	c.plocks.Lock(ev.key)
	defer c.plocks.Unlock(ev.key)
	c.lock.Lock()
	current, ok := c.evicting[ev.key]
	c.lock.Unlock()
	if !ok || current != ev {
		return nil
	}
	entry, err := c.decompress(ev.key, ev.value)
	if err != nil {
		return err
	}
	if err := c.config.Backing.Set(ctx, ev.key, entry); err != nil {
		return err
	}
	c.lock.Lock()
	delete(c.evicting, ev.key)
	c.lock.Unlock()
	return nil
}

func (c *Cache) compress(key string, entry etl.CacheEntry) ([]byte, error) {
	raw, err := codec.MarshalRaw(key, entry)
	if err != nil {
		return nil, err
	}
	return c.compressor.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func (c *Cache) decompress(key string, value []byte) (etl.CacheEntry, error) {
	raw, err := c.decompressor.DecodeAll(value, nil)
	if err != nil {
		return etl.CacheEntry{}, errors.CorruptEntryError{Key: key, Cause: err}
	}
	_, entry, err := codec.UnmarshalRaw(raw)
	if err != nil {
		return etl.CacheEntry{}, errors.CorruptEntryError{Key: key, Cause: err}
	}
	return entry, nil
}
