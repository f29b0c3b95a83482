// Package clock abstracts time so the executor's scheduling decisions
// (reset timeouts, snapshot ticks) can be driven deterministically in tests.
package clock

import "time"

// Clock is the time source used throughout jailcall instead of calling the
// time package directly. Production code uses Real; tests use a Fake.
type Clock interface {
	Now() time.Time
	// AfterFunc schedules fn to run once after d elapses and returns a
	// Timer that can cancel it. Mirrors time.AfterFunc.
	AfterFunc(d time.Duration, fn func()) Timer
	// NewTicker returns a ticker that fires every d. Mirrors time.NewTicker.
	NewTicker(d time.Duration) Ticker
}

// Timer cancels a scheduled AfterFunc callback.
type Timer interface {
	Stop() bool
}

// Ticker delivers periodic ticks on a channel and can be stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// Real is the production Clock backed by the standard library.
var Real Clock = realClock{}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}

func (realClock) NewTicker(d time.Duration) Ticker {
	return realTicker{time.NewTicker(d)}
}

type realTicker struct{ t *time.Ticker }

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }
