package debounce

import (
	"testing"
	"time"

	"tokoku/client/internal/clock"
)

func TestTriggerRestartsDelay(t *testing.T) {
	fake := &clock.Fake{}
	d := New(fake.AfterFunc, 500*time.Millisecond)

	var calls []string
	for _, q := range []string{"m", "mi", "mie"} {
		q := q
		d.Trigger(func() { calls = append(calls, q) })
		fake.Advance(300 * time.Millisecond)
	}
	if len(calls) != 0 {
		t.Fatalf("no call expected while typing, got %v", calls)
	}
	fake.Advance(200 * time.Millisecond)
	if len(calls) != 1 || calls[0] != "mie" {
		t.Fatalf("expected one call with the last input, got %v", calls)
	}
}

func TestStopCancelsAndDisables(t *testing.T) {
	fake := &clock.Fake{}
	d := New(fake.AfterFunc, 500*time.Millisecond)

	called := 0
	d.Trigger(func() { called++ })
	d.Stop()
	d.Trigger(func() { called++ })
	fake.Advance(time.Second)

	if called != 0 {
		t.Fatalf("stopped debouncer must not fire, called=%d", called)
	}
	if fake.Pending() != 0 {
		t.Fatalf("stop should leave no timers, pending=%d", fake.Pending())
	}
}

func TestCancelKeepsDebouncerUsable(t *testing.T) {
	fake := &clock.Fake{}
	d := New(fake.AfterFunc, 100*time.Millisecond)

	called := 0
	d.Trigger(func() { called++ })
	d.Cancel()
	fake.Advance(time.Second)
	d.Trigger(func() { called++ })
	fake.Advance(time.Second)

	if called != 1 {
		t.Fatalf("expected exactly one call after cancel, got %d", called)
	}
}
