package visits

import (
	"sync"
	"time"

	"github.com/foodstand/guestkit/internal/clock"
)

// Debouncer delivers the last value passed to Trigger once no further
// trigger has arrived for the configured delay. It holds a single slot: a
// new trigger cancels the pending one.
type Debouncer[T any] struct {
	clock clock.Clock
	delay time.Duration
	fn    func(T)

	mu     sync.Mutex
	timer  clock.Timer
	gen    uint64
	closed bool
}

// NewDebouncer creates a Debouncer calling fn on the timer goroutine
func NewDebouncer[T any](c clock.Clock, delay time.Duration, fn func(T)) *Debouncer[T] {
	return &Debouncer[T]{clock: c, delay: delay, fn: fn}
}

// Trigger (re)schedules delivery of v
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// a timer that lost the race with Stop or a later Trigger
		if d.closed || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fn(v)
	})
}

// Close cancels the pending value and ignores later triggers
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.cancel()
}

// cancel drops the pending value, if any, and reports whether one was pending
func (d *Debouncer[T]) cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}
