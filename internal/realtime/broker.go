package realtime

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/supportdeskhq/tenantcore/pkg/logger"
)

// Broker is the cross-node fan-out transport behind the hub. One
// subscription per group; the hub reference-counts them as connections
// join and leave.
type Broker interface {
	Publish(ctx context.Context, group string, payload []byte) error
	Subscribe(ctx context.Context, group string, handler func(payload []byte)) error
	Unsubscribe(group string)
	Close()
}

const channelPrefix = "realtime:"

// RedisBroker fans events out over redis pub/sub, one channel per group.
type RedisBroker struct {
	client *redis.Client
	log    *logger.Logger

	mu   sync.Mutex
	subs map[string]*redis.PubSub
}

func NewRedisBroker(client *redis.Client, log *logger.Logger) *RedisBroker {
	return &RedisBroker{
		client: client,
		log:    log,
		subs:   make(map[string]*redis.PubSub),
	}
}

func (b *RedisBroker) Publish(ctx context.Context, group string, payload []byte) error {
	return b.client.Publish(ctx, channelPrefix+group, payload).Err()
}

func (b *RedisBroker) Subscribe(ctx context.Context, group string, handler func(payload []byte)) error {
	b.mu.Lock()
	if _, exists := b.subs[group]; exists {
		b.mu.Unlock()
		return nil
	}
	pubsub := b.client.Subscribe(ctx, channelPrefix+group)
	b.subs[group] = pubsub
	b.mu.Unlock()

	go func() {
		defer func() {
			pubsub.Close()
			b.mu.Lock()
			delete(b.subs, group)
			b.mu.Unlock()
		}()

		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (b *RedisBroker) Unsubscribe(group string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if pubsub, exists := b.subs[group]; exists {
		pubsub.Close()
		delete(b.subs, group)
	}
}

func (b *RedisBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for group, pubsub := range b.subs {
		pubsub.Close()
		delete(b.subs, group)
	}
}

// MemoryBroker is an in-process broker for single-node deployments and
// tests. Delivery is asynchronous like the redis broker's.
type MemoryBroker struct {
	mu       sync.RWMutex
	handlers map[string]func(payload []byte)
	closed   bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{handlers: make(map[string]func(payload []byte))}
}

func (b *MemoryBroker) Publish(ctx context.Context, group string, payload []byte) error {
	b.mu.RLock()
	handler, ok := b.handlers[group]
	b.mu.RUnlock()
	if ok {
		handler(payload)
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, group string, handler func(payload []byte)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.handlers[group] = handler
	return nil
}

func (b *MemoryBroker) Unsubscribe(group string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, group)
}

func (b *MemoryBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string]func(payload []byte))
}
