// Package redis provides an etl.Cache backed by a Redis server
package redis

import (
	"context"
	stderrors "errors"

	etl "github.com/go-sif/etl"
	"github.com/go-sif/etl/config"
	errors "github.com/go-sif/etl/errors"
	"github.com/go-sif/etl/internal/codec"
	goredis "github.com/redis/go-redis/v9"
)

// scanCount is the page size used when scanning keys to clear
const scanCount = 256

// Cache stores lz4-compressed entries under namespaced keys. Timeouts and
// connection failures surface as ordinary errors.
type Cache struct {
	client    goredis.UniversalClient
	namespace string
}

// New wraps an existing client. Every key is prefixed with "namespace:".
func New(client goredis.UniversalClient, namespace string) *Cache {
	return &Cache{client: client, namespace: namespace}
}

// Dial connects to the server described by cfg and checks it is reachable
func Dial(ctx context.Context, cfg config.Redis, namespace string) (*Cache, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return New(client, namespace), nil
}

// Close closes the underlying client
func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) key(key string) string {
	if c.namespace == "" {
		return key
	}
	return c.namespace + ":" + key
}

// Get implements etl.Cache
func (c *Cache) Get(ctx context.Context, key string) (etl.CacheEntry, error) {
	buf, err := c.client.Get(ctx, c.key(key)).Bytes()
	if stderrors.Is(err, goredis.Nil) {
		return etl.CacheEntry{}, errors.KeyNotFoundError{Key: key}
	} else if err != nil {
		return etl.CacheEntry{}, err
	}
	_, entry, err := codec.Unmarshal(buf)
	if err != nil {
		return etl.CacheEntry{}, errors.CorruptEntryError{Key: key, Cause: err}
	}
	return entry, nil
}

// Set implements etl.Cache
func (c *Cache) Set(ctx context.Context, key string, entry etl.CacheEntry) error {
	buf, err := codec.Marshal(key, entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(key), buf, 0).Err()
}

// Has implements etl.Cache
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete implements etl.Cache
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

// Clear implements etl.Cache. Only keys within the namespace are removed;
// without a namespace the whole database is flushed.
func (c *Cache) Clear(ctx context.Context) error {
	if c.namespace == "" {
		return c.client.FlushDB(ctx).Err()
	}
	iter := c.client.Scan(ctx, 0, c.namespace+":*", scanCount).Iterator()
	batch := make([]string, 0, scanCount)
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == scanCount {
			if err := c.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return c.client.Del(ctx, batch...).Err()
	}
	return nil
}
