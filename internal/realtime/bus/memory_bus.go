package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/alanpentz/course-platform/internal/realtime"
)

// MemoryBus is an in-process Bus for local runs without redis and for tests.
// Delivery is synchronous on the publishing goroutine.
type MemoryBus struct {
	mu        sync.RWMutex
	channel   string
	handlers  map[string][]func([]byte)
	published []realtime.Event
	closed    bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{channel: DefaultEventsChannel, handlers: map[string][]func([]byte){}}
}

func (b *MemoryBus) Publish(ctx context.Context, ev realtime.Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("memory bus closed")
	}
	b.published = append(b.published, ev)
	b.mu.Unlock()
	return b.PublishRaw(ctx, b.channel, raw)
}

// PublishRaw delivers payload to every subscriber of channel.
func (b *MemoryBus) PublishRaw(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	hs := append([]func([]byte){}, b.handlers[channel]...)
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return fmt.Errorf("memory bus closed")
	}
	for _, h := range hs {
		h(payload)
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, channel string, onPayload func(payload []byte)) error {
	if onPayload == nil {
		return fmt.Errorf("onPayload callback required")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[channel] = append(b.handlers[channel], onPayload)
	return nil
}

// Published returns a copy of every event passed to Publish.
func (b *MemoryBus) Published() []realtime.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]realtime.Event(nil), b.published...)
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = map[string][]func([]byte){}
	return nil
}
