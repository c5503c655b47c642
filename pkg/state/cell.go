// Package state holds the latest published battery metrics.
package state

import (
	"sync"
	"sync/atomic"

	"github.com/charlie0129/battwatch/pkg/metrics"
)

// Cell is a single-slot, overwrite-on-write string container.
// Get is lock-free and safe from any goroutine. Set is expected to be called
// from a single writer, but concurrent writers will not corrupt it.
type Cell struct {
	v atomic.Pointer[string]

	mu   sync.Mutex
	subs map[chan string]struct{}
}

// NewCell returns a Cell holding metrics.Unknown.
func NewCell() *Cell {
	c := &Cell{subs: make(map[chan string]struct{})}
	v := metrics.Unknown
	c.v.Store(&v)
	return c
}

// Get returns the latest value.
func (c *Cell) Get() string {
	return *c.v.Load()
}

// Set stores v and notifies subscribers if it differs from the previous value.
// It reports whether the value changed.
func (c *Cell) Set(v string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if *c.v.Load() == v {
		return false
	}
	c.v.Store(&v)

	for ch := range c.subs {
		offer(ch, v)
	}
	return true
}

// Subscribe returns a channel that receives the current value right away and
// every later change. Only the newest undelivered value is kept for a slow
// reader, so Set never blocks. Call cancel to release the subscription; the
// channel is closed afterwards. cancel may be called more than once.
func (c *Cell) Subscribe() (<-chan string, func()) {
	ch := make(chan string, 1)

	c.mu.Lock()
	c.subs[ch] = struct{}{}
	ch <- *c.v.Load()
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, ch)
			close(ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

// offer replaces whatever is pending in ch with v. Must hold c.mu.
func offer(ch chan string, v string) {
	for {
		select {
		case ch <- v:
			return
		default:
		}
		// Drop the stale value; the reader only cares about the latest one.
		select {
		case <-ch:
		default:
		}
	}
}
