package cache

import (
	"context"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Bus fans invalidated keys out to subscribers.
type Bus interface {
	Publish(ctx context.Context, keys ...Key) error
	// Subscribe returns a channel of invalidated keys and a function that
	// must be called to release it.
	Subscribe() (<-chan Key, func())
}

const subscriberBuffer = 64

// MemoryBus delivers to subscribers in this process. A subscriber that falls
// behind by more than its buffer misses keys rather than stalling publishers.
type MemoryBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Key
	logger *slog.Logger
}

func NewMemoryBus(logger *slog.Logger) *MemoryBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &MemoryBus{subs: make(map[int]chan Key), logger: logger}
}

func (b *MemoryBus) Publish(_ context.Context, keys ...Key) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, key := range keys {
		for id, ch := range b.subs {
			select {
			case ch <- key:
			default:
				b.logger.Warn("invalidation dropped for slow subscriber", "subscriber", id, "key", key.String())
			}
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe() (<-chan Key, func()) {
	ch := make(chan Key, subscriberBuffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// RedisBus relays invalidations between portal replicas over Redis pub/sub.
// Publish only writes to Redis; Run delivers every message, including this
// replica's own, to local subscribers.
type RedisBus struct {
	client  *redis.Client
	channel string
	local   *MemoryBus
	logger  *slog.Logger
}

func NewRedisBus(client *redis.Client, channel string, logger *slog.Logger) *RedisBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisBus{client: client, channel: channel, local: NewMemoryBus(logger), logger: logger}
}

func (b *RedisBus) Publish(ctx context.Context, keys ...Key) error {
	for _, key := range keys {
		if err := b.client.Publish(ctx, b.channel, key.String()).Err(); err != nil {
			return err
		}
	}
	return nil
}

func (b *RedisBus) Subscribe() (<-chan Key, func()) {
	return b.local.Subscribe()
}

// Run forwards messages from Redis until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) error {
	ps := b.client.Subscribe(ctx, b.channel)
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return err
	}
	b.logger.Info("invalidation relay subscribed", "channel", b.channel)

	msgs := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			key, err := ParseKey(msg.Payload)
			if err != nil {
				b.logger.Warn("ignoring invalidation", "payload", msg.Payload, "error", err)
				continue
			}
			b.local.Publish(ctx, key)
		}
	}
}
