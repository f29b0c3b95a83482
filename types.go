package jailcall

import (
	"time"

	"github.com/vnykmshr/jailcall/internal/executor"
)

// CommandKey identifies an isolated failure domain: every command
// submitted under the same key shares one breaker, one stats window, and
// one dispatcher.
type CommandKey string

// DispatcherKind selects the worker pool a Sync command runs on. Aliased
// from internal/executor the way the teacher's root package aliases
// internal/breaker's exported types (autobreaker.go: "type CircuitBreaker
// = breaker.CircuitBreaker"), so callers never import the internal
// package directly.
type DispatcherKind = executor.DispatcherKind

const (
	// DispatcherDefault runs Sync command bodies on a shared process-wide
	// worker pool. This is the default; a key using it logs one warning
	// the first time a Sync command runs under it, since a slow body can
	// starve other keys sharing the pool.
	DispatcherDefault = executor.DispatcherDefault
	// DispatcherPinned runs Sync command bodies for this key on a
	// dedicated goroutine, isolating it from every other key.
	DispatcherPinned = executor.DispatcherPinned
)

// MsgConfig is one command key's tunables (spec §3.3 / §6.2).
type MsgConfig struct {
	// MaxFailures sets the timeout-count trip guard evaluated against each
	// stats snapshot: a snapshot holding at least MaxFailures-1 timeouts
	// opens the breaker.
	MaxFailures uint32
	// CallTimeout bounds how long a single call may run before it is
	// reported as a Timeout. Zero disables the timeout.
	CallTimeout time.Duration
	// ResetTimeout is how long the breaker stays Open before allowing a
	// single HalfOpen probe.
	ResetTimeout time.Duration
	// Dispatcher selects the worker pool Sync commands run on. Ignored
	// for Async commands.
	Dispatcher DispatcherKind
}

// DefaultMsgConfig returns the spec §6.2 defaults: MaxFailures 5 (a
// snapshot with 4 timeouts trips the breaker), a 1s call timeout, a 5s
// reset timeout, and the shared default dispatcher.
func DefaultMsgConfig() MsgConfig {
	cfg := executor.DefaultConfig()
	return MsgConfig{
		MaxFailures:  cfg.MaxFailures,
		CallTimeout:  cfg.CallTimeout,
		ResetTimeout: cfg.ResetTimeout,
		Dispatcher:   cfg.Dispatcher,
	}
}

func (c MsgConfig) toExecutorConfig() executor.Config {
	return executor.Config{
		MaxFailures:  c.MaxFailures,
		CallTimeout:  c.CallTimeout,
		ResetTimeout: c.ResetTimeout,
		Dispatcher:   c.Dispatcher,
	}
}
