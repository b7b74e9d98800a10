// Package notify implements the single-slot, self-clearing message used for
// the global toast and the scan banner.
package notify

import (
	"sync"
	"time"

	"tokoku/client/internal/clock"
)

type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
	KindInfo    Kind = "info"
)

type Message struct {
	Text     string
	Kind     Kind
	Duration time.Duration
}

// Listener is told about every change; visible is false once the slot clears.
type Listener func(msg Message, visible bool)

// Slot shows at most one message with at most one pending dismiss timer.
// A new message replaces the current one and its timer.
type Slot struct {
	mu        sync.Mutex
	after     clock.AfterFunc
	duration  time.Duration
	current   Message
	visible   bool
	timer     clock.Timer
	seq       uint64
	listeners map[uint64]Listener
	nextID    uint64
}

// NewSlot builds a slot. A nil after uses real timers.
func NewSlot(after clock.AfterFunc, duration time.Duration) *Slot {
	if after == nil {
		after = clock.Real
	}
	if duration <= 0 {
		duration = 3 * time.Second
	}
	return &Slot{after: after, duration: duration, listeners: map[uint64]Listener{}}
}

// Show replaces the visible message. A zero duration uses the slot default.
func (s *Slot) Show(kind Kind, text string, duration time.Duration) {
	if duration <= 0 {
		duration = s.duration
	}
	msg := Message{Text: text, Kind: kind, Duration: duration}

	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.current, s.visible = msg, true
	s.timer = s.after(duration, func() { s.expire(seq) })
	listeners := s.snapshot()
	s.mu.Unlock()

	notifyAll(listeners, msg, true)
}

func (s *Slot) Success(text string) { s.Show(KindSuccess, text, 0) }
func (s *Slot) Error(text string)   { s.Show(KindError, text, 0) }
func (s *Slot) Info(text string)    { s.Show(KindInfo, text, 0) }

// Dismiss clears the slot now.
func (s *Slot) Dismiss() {
	s.mu.Lock()
	if !s.visible {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
	msg := s.clear()
	listeners := s.snapshot()
	s.mu.Unlock()

	notifyAll(listeners, msg, false)
}

// Current returns the visible message, if any.
func (s *Slot) Current() (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.visible
}

// Subscribe registers fn and returns its cancel func.
func (s *Slot) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// expire runs on the timer goroutine; a stale seq means a newer message
// already owns the slot.
func (s *Slot) expire(seq uint64) {
	s.mu.Lock()
	if seq != s.seq || !s.visible {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	msg := s.clear()
	listeners := s.snapshot()
	s.mu.Unlock()

	notifyAll(listeners, msg, false)
}

func (s *Slot) clear() Message {
	msg := s.current
	s.current, s.visible = Message{}, false
	return msg
}

func (s *Slot) snapshot() []Listener {
	out := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		out = append(out, l)
	}
	return out
}

func notifyAll(listeners []Listener, msg Message, visible bool) {
	for _, l := range listeners {
		l(msg, visible)
	}
}
