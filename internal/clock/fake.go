package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake is a manually-advanced Clock for deterministic tests. It starts at
// an arbitrary fixed instant; call Advance to move it forward, which fires
// any AfterFunc callbacks and ticker ticks whose time has come.
type Fake struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*fakeTimer
	tickers []*fakeTicker
}

// NewFake returns a Fake clock starting at the given instant.
func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

type fakeTimer struct {
	fake    *Fake
	at      time.Time
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	already := t.stopped
	t.stopped = true
	return !already
}

func (f *Fake) AfterFunc(d time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{fake: f, at: f.now.Add(d), fn: fn}
	f.timers = append(f.timers, t)
	return t
}

type fakeTicker struct {
	fake   *Fake
	period time.Duration
	next   time.Time
	ch     chan time.Time
	done   bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.fake.mu.Lock()
	defer t.fake.mu.Unlock()
	t.done = true
}

func (f *Fake) NewTicker(d time.Duration) Ticker {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTicker{fake: f, period: d, next: f.now.Add(d), ch: make(chan time.Time, 1)}
	f.tickers = append(f.tickers, t)
	return t
}

// Advance moves the fake clock forward by d, firing any timers and ticks
// whose deadline falls within the new interval, in chronological order.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)

	type event struct {
		at time.Time
		fn func()
	}
	var events []event

	for _, t := range f.timers {
		if !t.stopped && !t.at.After(target) {
			t.stopped = true
			fn := t.fn
			events = append(events, event{t.at, fn})
		}
	}
	for _, t := range f.tickers {
		for !t.done && !t.next.After(target) {
			tick := t.next
			t.next = t.next.Add(t.period)
			ch := t.ch
			events = append(events, event{tick, func() {
				select {
				case ch <- tick:
				default:
				}
			}})
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].at.Before(events[j].at) })
	f.now = target
	f.mu.Unlock()

	for _, e := range events {
		e.fn()
	}
}
