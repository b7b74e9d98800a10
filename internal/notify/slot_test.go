package notify

import (
	"testing"
	"time"

	"tokoku/client/internal/clock"
)

func TestSlotShowsOneMessageAndSelfClears(t *testing.T) {
	fake := &clock.Fake{}
	slot := NewSlot(fake.AfterFunc, 3*time.Second)

	slot.Success("Transaksi berhasil")
	msg, ok := slot.Current()
	if !ok || msg.Text != "Transaksi berhasil" || msg.Kind != KindSuccess {
		t.Fatalf("unexpected current message: %+v ok=%v", msg, ok)
	}

	fake.Advance(2 * time.Second)
	if _, ok := slot.Current(); !ok {
		t.Fatalf("message cleared too early")
	}
	fake.Advance(time.Second)
	if _, ok := slot.Current(); ok {
		t.Fatalf("message should clear after its duration")
	}
}

func TestSlotReplacementKeepsSingleTimer(t *testing.T) {
	fake := &clock.Fake{}
	slot := NewSlot(fake.AfterFunc, 3*time.Second)

	for i := 0; i < 20; i++ {
		slot.Info("scan")
		fake.Advance(500 * time.Millisecond)
	}
	if got := fake.Pending(); got != 1 {
		t.Fatalf("expected exactly one pending dismiss timer, got %d", got)
	}

	slot.Error("stok tidak cukup")
	fake.Advance(2 * time.Second)
	msg, ok := slot.Current()
	if !ok || msg.Kind != KindError {
		t.Fatalf("replacement message should still be visible, got %+v ok=%v", msg, ok)
	}
	fake.Advance(time.Second)
	if _, ok := slot.Current(); ok {
		t.Fatalf("replacement should clear on its own timer")
	}
}

func TestStaleExpiryIsIgnored(t *testing.T) {
	var fired []func()
	after := func(d time.Duration, fn func()) clock.Timer {
		fired = append(fired, fn)
		return noopTimer{}
	}
	slot := NewSlot(after, time.Second)

	slot.Info("first")
	slot.Info("second")
	// A timer that could not be stopped in time still runs.
	fired[0]()
	if msg, ok := slot.Current(); !ok || msg.Text != "second" {
		t.Fatalf("stale expiry cleared the newer message: %+v ok=%v", msg, ok)
	}
	fired[1]()
	if _, ok := slot.Current(); ok {
		t.Fatalf("current expiry should clear")
	}
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

func TestSubscribersSeeShowAndClear(t *testing.T) {
	fake := &clock.Fake{}
	slot := NewSlot(fake.AfterFunc, time.Second)

	var events []bool
	cancel := slot.Subscribe(func(_ Message, visible bool) { events = append(events, visible) })

	slot.Success("ok")
	slot.Dismiss()
	slot.Dismiss()
	cancel()
	slot.Success("ignored")

	if len(events) != 2 || !events[0] || events[1] {
		t.Fatalf("unexpected events: %v", events)
	}
	if fake.Pending() != 1 {
		t.Fatalf("dismiss should stop the timer; pending=%d", fake.Pending())
	}
}
