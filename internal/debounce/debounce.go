// Package debounce coalesces bursts of calls into a single invocation.
//
// # Usage
//
//	d := debounce.New(500*time.Millisecond, func(pos string) { store(pos) })
//	d.Call("a")
//	d.Call("b") // only "b" is stored, 500ms after this call
package debounce

import (
	"sync"
	"time"
)

// Option configures a Debouncer.
type Option func(*options)

type options struct {
	leading bool
}

// WithLeading makes the first call of a quiet window fire immediately.
// Calls that follow within the wait period are dropped.
func WithLeading() Option {
	return func(o *options) {
		o.leading = true
	}
}

// Debouncer delays fn until wait has elapsed since the most recent Call.
type Debouncer[T any] struct {
	mu      sync.Mutex
	fn      func(T)
	wait    time.Duration
	leading bool

	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New creates a Debouncer around fn.
func New[T any](wait time.Duration, fn func(T), opts ...Option) *Debouncer[T] {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	return &Debouncer[T]{
		fn:      fn,
		wait:    wait,
		leading: o.leading,
	}
}

// Call schedules fn with arg, cancelling any pending invocation.
func (d *Debouncer[T]) Call(arg T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	callNow := d.leading && d.timer == nil
	if d.timer != nil {
		d.timer.Stop()
	}

	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() {
		d.fire(gen, arg)
	})
	d.mu.Unlock()

	if callNow {
		d.fn(arg)
	}
}

// fire runs on the timer goroutine. A timer superseded by a later Call
// may still fire after Stop returned false; gen filters those out.
func (d *Debouncer[T]) fire(gen uint64, arg T) {
	d.mu.Lock()
	if gen != d.gen || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	leading := d.leading
	d.mu.Unlock()

	if !leading {
		d.fn(arg)
	}
}

// Pending reports whether an invocation or a leading-edge window is armed.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels any pending invocation. Subsequent calls are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
