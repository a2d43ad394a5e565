// Package sensor exposes the wearable's continuous sensor feeds as
// observable cells holding the most recent reading.
package sensor

import (
	"sync"
	"time"
)

// Reading is one snapshot of the combined sensor state.
type Reading struct {
	HeartRate  float64
	GyroX      float64
	GyroY      float64
	GyroZ      float64
	ObservedAt time.Time
}

// Cell holds the latest Reading and fans updates out to watchers.
// Watchers receive with overwrite semantics: a slow watcher observes the
// most recent value, never a backlog.
type Cell struct {
	mu       sync.Mutex
	latest   Reading
	hasValue bool
	watchers map[chan Reading]struct{}
}

// NewCell constructs an empty Cell.
func NewCell() *Cell {
	return &Cell{watchers: make(map[chan Reading]struct{})}
}

// Set replaces the latest reading and notifies watchers without blocking.
func (c *Cell) Set(r Reading) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.latest = r
	c.hasValue = true
	for ch := range c.watchers {
		// Drop-then-send keeps only the freshest value in the buffer.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- r:
		default:
		}
	}
}

// Latest returns the most recent reading, if any has been observed yet.
func (c *Cell) Latest() (Reading, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest, c.hasValue
}

// Watch registers a single-slot channel that receives subsequent updates.
// The returned cancel func must be called when the watcher is done.
func (c *Cell) Watch() (<-chan Reading, func()) {
	ch := make(chan Reading, 1)

	c.mu.Lock()
	c.watchers[ch] = struct{}{}
	if c.hasValue {
		ch <- c.latest
	}
	c.mu.Unlock()

	cancel := func() {
		c.mu.Lock()
		delete(c.watchers, ch)
		c.mu.Unlock()
	}
	return ch, cancel
}
