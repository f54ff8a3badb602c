package clock

import (
	"sync"
	"time"
)

// FakeClock is a deterministic Clock. Time only moves when Advance is
// called. It is safe for concurrent use.
//
// AfterFunc callbacks run synchronously inside Advance with the clock
// unlocked, so a callback may schedule further timers. A callback must not
// call Advance.
type FakeClock struct {
	mu      sync.Mutex
	changed *sync.Cond
	now     time.Time
	waiters []*waiter
	seq     uint64
}

type waiter struct {
	deadline time.Time
	seq      uint64
	ch       chan time.Time
	fn       func()
	done     bool
}

// NewFake returns a FakeClock set to initial.
func NewFake(initial time.Time) *FakeClock {
	c := &FakeClock{now: initial}
	c.changed = sync.NewCond(&c.mu)
	return c
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After registers a channel waiter.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.add(&waiter{deadline: c.now.Add(d), ch: ch})
	return ch
}

// AfterFunc registers a callback waiter. A non-positive d still waits for
// the next Advance so callers never re-enter themselves.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := &waiter{deadline: c.now.Add(max(d, 0)), fn: f}
	c.add(w)
	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if w.done {
			return false
		}
		w.done = true
		c.changed.Broadcast()
		return true
	}}
}

func (c *FakeClock) add(w *waiter) {
	c.seq++
	w.seq = c.seq
	c.waiters = append(c.waiters, w)
	c.changed.Broadcast()
}

// Advance moves the clock forward by d, firing every waiter whose deadline
// falls inside the window in deadline order. The clock reads each waiter's
// deadline while it fires, so callbacks that reschedule themselves are
// anchored to their own deadline rather than to the end of the window.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		w := c.nextDue(target)
		if w == nil {
			break
		}
		w.done = true
		if w.deadline.After(c.now) {
			c.now = w.deadline
		}
		if w.ch != nil {
			w.ch <- c.now
			continue
		}
		c.mu.Unlock()
		w.fn()
		c.mu.Lock()
	}
	c.now = target
	c.prune()
	c.changed.Broadcast()
	c.mu.Unlock()
}

// nextDue returns the earliest pending waiter due at or before target.
// Ties fire in registration order.
func (c *FakeClock) nextDue(target time.Time) *waiter {
	var next *waiter
	for _, w := range c.waiters {
		if w.done || w.deadline.After(target) {
			continue
		}
		if next == nil || w.deadline.Before(next.deadline) ||
			(w.deadline.Equal(next.deadline) && w.seq < next.seq) {
			next = w
		}
	}
	return next
}

func (c *FakeClock) prune() {
	live := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.done {
			live = append(live, w)
		}
	}
	c.waiters = live
}

// PendingCount returns the number of waiters that have neither fired nor
// been stopped.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending()
}

func (c *FakeClock) pending() int {
	n := 0
	for _, w := range c.waiters {
		if !w.done {
			n++
		}
	}
	return n
}

// WaitForTimers blocks until at least n waiters are pending. Tests use it to
// synchronize with a goroutine that is about to sleep on the clock.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pending() < n {
		c.changed.Wait()
	}
}
