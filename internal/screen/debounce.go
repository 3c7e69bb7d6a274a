package screen

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before a typed search is sent.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer collapses a burst of calls into the last one, run once the burst
// has been quiet for the delay.
//
// Every Trigger, Flush or Stop retires the previously scheduled call, even
// when its timer already fired and is waiting for the lock.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn for the end of the quiet period, replacing whatever
// was scheduled.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.retireLocked()
	seq := d.seq
	d.timer = time.AfterFunc(d.delay, func() {
		if d.claim(seq) {
			fn()
		}
	})
}

// Flush drops the scheduled call and runs fn now, in the caller's goroutine.
func (d *Debouncer) Flush(fn func()) {
	d.Stop()
	fn()
}

// Stop drops the scheduled call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.retireLocked()
}

// Pending reports whether a call is waiting for its quiet period.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Delay returns the quiet period.
func (d *Debouncer) Delay() time.Duration {
	return d.delay
}

func (d *Debouncer) retireLocked() {
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// claim reports whether the call scheduled as seq is still current.
func (d *Debouncer) claim(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if seq != d.seq {
		return false
	}
	d.timer = nil
	return true
}
