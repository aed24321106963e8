package editor

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a content change is delivered.
const DefaultDebounce = 500 * time.Millisecond

// Timer is a stoppable pending call.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f after d. time.AfterFunc satisfies it through
// RealAfterFunc.
type AfterFunc func(d time.Duration, f func()) Timer

// RealAfterFunc wraps time.AfterFunc.
func RealAfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Debouncer delivers the last pushed value once pushes stop for the delay.
// The latest value is never dropped: Flush delivers it immediately.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	after   AfterFunc
	deliver func(string)

	timer   Timer
	pending string
	has     bool
	gen     uint64
}

// NewDebouncer creates a trailing-edge debouncer. A nil after uses real
// timers.
func NewDebouncer(delay time.Duration, after AfterFunc, deliver func(string)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	if after == nil {
		after = RealAfterFunc
	}
	return &Debouncer{delay: delay, after: after, deliver: deliver}
}

// Push records v as the latest value and restarts the quiet period.
func (d *Debouncer) Push(v string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.pending, d.has = v, true
	d.gen++
	gen := d.gen
	d.timer = d.after(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || !d.has {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()
	d.deliver(v)
}

// Flush delivers the pending value now, if any. It reports whether a value
// was delivered.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.has {
		d.mu.Unlock()
		return false
	}
	v := d.take()
	d.mu.Unlock()
	d.deliver(v)
	return true
}

// Cancel drops the pending value.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.take()
}

// Take removes and returns the pending value without delivering it. A Push
// after Take schedules normally.
func (d *Debouncer) Take() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.has {
		return "", false
	}
	return d.take(), true
}

// Pending returns the value waiting to be delivered.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.has
}

// take clears the pending state. Callers hold mu.
func (d *Debouncer) take() string {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.pending
	d.pending, d.has = "", false
	d.gen++
	return v
}
