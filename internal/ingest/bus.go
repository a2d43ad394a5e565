package ingest

import (
	"sync"

	"example.com/wearsync/internal/transfer"
)

// Bus fans decoded live samples out to any number of subscribers. Delivery
// is best-effort with single-slot buffers: a slow subscriber sees the most
// recent sample, never a backlog. Nothing on this path is persisted.
type Bus struct {
	mu          sync.Mutex
	subscribers map[chan transfer.LiveSample]struct{}
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[chan transfer.LiveSample]struct{})}
}

// Subscribe registers a receiver. The returned cancel func must be called
// when the subscriber is done.
func (b *Bus) Subscribe() (<-chan transfer.LiveSample, func()) {
	ch := make(chan transfer.LiveSample, 1)

	b.mu.Lock()
	b.subscribers[ch] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		delete(b.subscribers, ch)
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers sample to every subscriber without blocking.
func (b *Bus) Publish(sample transfer.LiveSample) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subscribers {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- sample:
		default:
		}
	}
}
