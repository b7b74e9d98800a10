package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake records scheduled callbacks and fires them on Advance.
type Fake struct {
	mu      sync.Mutex
	now     time.Duration
	pending []*fakeTimer
}

type fakeTimer struct {
	fake    *Fake
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// AfterFunc satisfies the AfterFunc signature.
func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fake: f, at: f.now + d, fn: fn}
	f.pending = append(f.pending, t)
	return t
}

// Advance moves fake time forward and runs every due callback in order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	f.now += d
	due := make([]*fakeTimer, 0, len(f.pending))
	kept := f.pending[:0]
	for _, t := range f.pending {
		switch {
		case t.stopped:
		case t.at <= f.now:
			t.fired = true
			due = append(due, t)
		default:
			kept = append(kept, t)
		}
	}
	f.pending = kept
	f.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })

	for _, t := range due {
		t.fn()
	}
}

// Pending reports how many live timers are scheduled.
func (f *Fake) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.pending {
		if !t.stopped {
			n++
		}
	}
	return n
}
