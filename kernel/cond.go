package kernel

import "sync"

// Cond is an edge-triggered condition.
//
// Waiters grab the Ready channel while holding their own state lock,
// release that lock, and block on the channel (usually through a
// Deadline). Signal wakes all pending waiters and resets the
// condition, so a waiter must re-check its predicate after waking.
// The zero value is ready to use.
type Cond struct {
	mu sync.Mutex
	ch chan struct{}
}

// Ready returns a channel that is closed by the next Signal.
func (c *Cond) Ready() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch == nil {
		c.ch = make(chan struct{})
	}
	return c.ch
}

// Signal wakes all pending waiters and resets the condition.
func (c *Cond) Signal() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ch != nil {
		close(c.ch)
		c.ch = nil
	}
}
