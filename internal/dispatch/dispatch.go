// Package dispatch provides the worker pools Sync commands run on (spec
// §4.5 "Dispatcher selection"), so a blocking command body can never
// starve an executor's mailbox goroutine.
package dispatch

import (
	"sync"

	"github.com/panjf2000/ants/v2"
)

// Dispatcher runs a blocking function off of the caller's goroutine.
type Dispatcher interface {
	Go(fn func())
}

// defaultPoolSize bounds the shared pool used by keys that didn't request
// a pinned dispatcher.
const defaultPoolSize = 256

// SharedPool is the default dispatcher kind: one process-wide worker pool
// (backed by github.com/panjf2000/ants, the pack's concrete goroutine-pool
// library) shared across every key that doesn't ask for a pinned worker.
// Using a shared pool for the default case, and a dedicated goroutine per
// pinned key, mirrors spec §4.5's distinction between "default shared
// pool" (warn once) and "configured pinned worker" (isolated).
type SharedPool struct {
	once sync.Once
	pool *ants.Pool
}

var sharedPool SharedPool

// Default returns the process-wide shared dispatcher, creating it lazily
// on first use.
func Default() *SharedPool {
	sharedPool.once.Do(func() {
		p, err := ants.NewPool(defaultPoolSize, ants.WithNonblocking(false))
		if err != nil {
			// ants.NewPool only fails on a non-positive size, which
			// defaultPoolSize never is; a nil pool here would be a
			// programming error, not a runtime condition to recover from.
			panic("jailcall: failed to create default dispatch pool: " + err.Error())
		}
		sharedPool.pool = p
	})
	return &sharedPool
}

func (s *SharedPool) Go(fn func()) {
	// ants.Pool.Submit blocks (non-blocking=false) if every worker is
	// busy and the pool is at capacity, providing natural backpressure
	// instead of spawning unbounded goroutines.
	if err := s.pool.Submit(fn); err != nil {
		// Submission only fails once the pool has been released; run fn
		// on a fresh goroutine rather than silently dropping the
		// command.
		go fn()
	}
}

// Pinned is a dedicated single-goroutine worker for one command key,
// guaranteeing that a slow Sync body never competes with other keys for a
// shared pool's workers.
type Pinned struct {
	jobs chan func()
	quit chan struct{}
}

// NewPinned starts the pinned worker goroutine. Call Close to stop it.
func NewPinned() *Pinned {
	p := &Pinned{jobs: make(chan func()), quit: make(chan struct{})}
	go p.loop()
	return p
}

func (p *Pinned) loop() {
	for {
		select {
		case fn := <-p.jobs:
			fn()
		case <-p.quit:
			return
		}
	}
}

func (p *Pinned) Go(fn func()) {
	select {
	case p.jobs <- fn:
	case <-p.quit:
	}
}

// Close stops the pinned worker. In-flight work is allowed to finish;
// no further Go calls are accepted after Close returns.
func (p *Pinned) Close() {
	close(p.quit)
}
