package jailcall

import (
	"github.com/vnykmshr/jailcall/internal/breaker"
	"github.com/vnykmshr/jailcall/internal/stats"
)

// BreakerState is a key's circuit breaker state, aliased from
// internal/breaker the same way DispatcherKind is aliased from
// internal/executor.
type BreakerState = breaker.State

const (
	StateClosed   = breaker.Closed
	StateOpen     = breaker.Open
	StateHalfOpen = breaker.HalfOpen
)

// CallStats is the per-window outcome counters from the most recent stats
// snapshot.
type CallStats = stats.CallStats

// LatencyPercentiles is the per-window latency summary from the most
// recent stats snapshot.
type LatencyPercentiles = stats.LatencyPercentiles

// Diagnostics is a point-in-time read of one key's health, grounded in the
// teacher's internal/breaker/diagnostics.go (Diagnostics struct with
// Name/State/Metrics).
type Diagnostics struct {
	State   BreakerState
	Stats   CallStats
	Latency LatencyPercentiles
}

// Diagnostics reads key's current breaker state and most recent stats
// snapshot. It returns the zero Diagnostics and false if key has no
// executor yet (no command has ever been submitted under it).
func (d *Defender) Diagnostics(key CommandKey) (Diagnostics, bool) {
	d.mu.Lock()
	ex, ok := d.executors[key]
	d.mu.Unlock()
	if !ok {
		return Diagnostics{}, false
	}

	diag := ex.Diagnostics()
	return Diagnostics{
		State:   diag.State,
		Stats:   diag.LastSnapshot.Stats,
		Latency: diag.LastSnapshot.Latency,
	}, true
}
