// Package executor implements the per-key mailbox goroutine (spec
// component C5): the single serialization point that receives
// submissions, runs commands through the timeout/dispatch layers, reports
// outcomes to the stats aggregator, drives the breaker, and completes the
// caller's reply exactly once per spec §8.1.
package executor

import "time"

// DispatcherKind selects which worker pool Sync commands run on (spec
// §4.5).
type DispatcherKind int

const (
	// DispatcherDefault runs Sync bodies on the shared process-wide pool.
	DispatcherDefault DispatcherKind = iota
	// DispatcherPinned runs Sync bodies on a dedicated per-key goroutine.
	DispatcherPinned
)

// Config is one key's MsgConfig (spec §3.3), minus the key itself.
type Config struct {
	MaxFailures  uint32
	CallTimeout  time.Duration
	ResetTimeout time.Duration
	Dispatcher   DispatcherKind
}

// DefaultConfig returns the spec §6.2 defaults.
func DefaultConfig() Config {
	return Config{
		MaxFailures:  5,
		CallTimeout:  time.Second,
		ResetTimeout: 5 * time.Second,
		Dispatcher:   DispatcherDefault,
	}
}
