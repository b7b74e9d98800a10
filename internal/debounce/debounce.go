// Package debounce delays a call until input has been quiet for a while.
package debounce

import (
	"sync"
	"time"

	"tokoku/client/internal/clock"
)

type Debouncer struct {
	mu      sync.Mutex
	after   clock.AfterFunc
	delay   time.Duration
	timer   clock.Timer
	seq     uint64
	stopped bool
}

// New returns a debouncer. A nil after uses real timers.
func New(after clock.AfterFunc, delay time.Duration) *Debouncer {
	if after == nil {
		after = clock.Real
	}
	return &Debouncer{after: after, delay: delay}
}

// Trigger cancels the pending call, if any, and schedules fn after the delay.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.after(d.delay, func() {
		d.mu.Lock()
		current := seq == d.seq && !d.stopped
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fn()
		}
	})
}

// Cancel drops the pending call but keeps the debouncer usable.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Stop cancels the pending call; later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.seq++
}
