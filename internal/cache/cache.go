package cache

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// generationStripes buckets keys for invalidation tracking. Two keys sharing a
// stripe only cost a skipped cache write.
const generationStripes = 256

// Cache combines a Store with the invalidation Bus. Concurrent loads of the
// same key in this process share one remote call.
type Cache struct {
	store  Store
	bus    Bus
	group  singleflight.Group
	gens   [generationStripes]atomic.Uint64
	logger *slog.Logger
}

func New(store Store, bus Bus, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{store: store, bus: bus, logger: logger}
}

func (c *Cache) Bus() Bus { return c.bus }

// Invalidate drops the entries and announces the keys on the bus. Both steps
// are attempted even if the first fails.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.String()
		c.generation(names[i]).Add(1)
		c.group.Forget(names[i])
	}
	delErr := c.store.Delete(ctx, names...)
	if delErr != nil {
		delErr = fmt.Errorf("delete cache entries: %w", delErr)
	}
	pubErr := c.bus.Publish(ctx, keys...)
	if pubErr != nil {
		pubErr = fmt.Errorf("publish invalidation: %w", pubErr)
	}
	return errors.Join(delErr, pubErr)
}

// Fetch returns the cached value for key or loads, stores and returns it. A
// broken store degrades to calling load directly.
func Fetch[T any](ctx context.Context, c *Cache, key Key, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	name := key.String()
	var cached T
	err := c.store.Get(ctx, name, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		c.logger.Warn("cache read failed", "key", name, "error", err)
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		// Callers share this load, so one of them going away must not fail
		// the rest.
		ctx := context.WithoutCancel(ctx)
		gen := c.generation(name)
		before := gen.Load()
		loaded, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if gen.Load() != before {
			// Invalidated mid-load: hand the result to the waiting callers
			// but keep it out of the store.
			return loaded, nil
		}
		if err := c.store.Set(ctx, name, loaded, ttl); err != nil {
			c.logger.Warn("cache write failed", "key", name, "error", err)
		}
		if gen.Load() != before {
			if err := c.store.Delete(ctx, name); err != nil {
				c.logger.Warn("cache delete failed", "key", name, "error", err)
			}
		}
		return loaded, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func (c *Cache) generation(name string) *atomic.Uint64 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return &c.gens[h.Sum32()%generationStripes]
}
