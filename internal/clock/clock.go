// Package clock lets timer-driven components run on fake time in tests.
package clock

import "time"

// Timer is the part of *time.Timer the components need.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules fn to run once after d.
type AfterFunc func(d time.Duration, fn func()) Timer

// Real is the AfterFunc backed by time.AfterFunc.
func Real(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
