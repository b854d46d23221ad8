// Package cache provides an in-process fallback for the cache interfaces so
// the desk runs without Redis when no external cache is configured.
package cache

import (
	"context"
	"sync"
)

// MemBus is an in-process domain.SignalBus. Delivery is best-effort: a
// subscriber that cannot keep up drops messages rather than blocking the
// publishing poll loop.
type MemBus struct {
	mu   sync.RWMutex
	subs map[string][]chan []byte
}

func NewMemBus() *MemBus {
	return &MemBus{subs: make(map[string][]chan []byte)}
}

func (b *MemBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[channel] {
		select {
		case ch <- payload:
		default:
		}
	}
	return nil
}

func (b *MemBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	out := make(chan []byte, 128)

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], out)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		chans := b.subs[channel]
		for i, ch := range chans {
			if ch == out {
				b.subs[channel] = append(chans[:i], chans[i+1:]...)
				break
			}
		}
		b.mu.Unlock()
		close(out)
	}()

	return out, nil
}
