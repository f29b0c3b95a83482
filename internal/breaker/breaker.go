// Package breaker implements the per-key circuit breaker state machine
// (spec component C4): CLOSED / OPEN / HALF-OPEN, consuming stats
// snapshots and probe outcomes to decide admission.
//
// Unlike the teacher's lock-free design (atomic.Int32 state, CompareAndSwap
// transitions so Execute() could be called from any goroutine), this
// Breaker has plain, unsynchronized fields. Spec §5 mandates a single
// serialization point per key — the executor's mailbox goroutine — and
// this type is only ever touched from there, so the CAS dance the teacher
// needed to arbitrate concurrent callers is dead weight here. Adapting the
// teacher's state machine to the spec's concurrency model meant deleting
// the atomics, not keeping them for show.
package breaker

import (
	"time"

	"github.com/vnykmshr/jailcall/internal/stats"
)

// State is the circuit breaker state.
type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Decision is what the breaker says to do with a newly arrived submission.
type Decision int

const (
	// DecisionAdmit: Closed state, run the command normally.
	DecisionAdmit Decision = iota
	// DecisionProbe: HalfOpen and no probe is in flight; this submission
	// becomes the probe.
	DecisionProbe
	// DecisionStash: HalfOpen and a probe is already in flight; hold this
	// submission until the probe resolves.
	DecisionStash
	// DecisionReject: Open; fail fast with the remaining open duration.
	DecisionReject
)

// ProbeOutcome is what the executor reports back after the single
// in-flight HalfOpen probe call completes.
type ProbeOutcome int

const (
	ProbeSucceeded ProbeOutcome = iota
	ProbeFailed
)

// Config mirrors spec's MsgConfig, minus CallTimeout/Dispatcher which are
// owned by the executor and dispatch layers respectively.
type Config struct {
	MaxFailures  uint32
	ResetTimeout time.Duration
}

// Breaker holds per-key circuit state. Zero value is not usable; construct
// with New.
type Breaker struct {
	cfg Config

	state    State
	openedAt time.Time
	resetAt  time.Time

	// probeInFlight tracks the HalfOpen "at most one probe" invariant
	// (spec §3.2).
	probeInFlight bool
}

// New creates a breaker in the Closed state.
func New(cfg Config) *Breaker {
	return &Breaker{cfg: cfg, state: Closed}
}

// State returns the current state. Read-only accessor for diagnostics;
// never call from outside the owning executor goroutine.
func (b *Breaker) State() State { return b.state }

// Decide classifies an incoming submission under the current state.
// remaining is only meaningful when the decision is DecisionReject.
func (b *Breaker) Decide(now time.Time) (decision Decision, remaining time.Duration) {
	switch b.state {
	case Closed:
		return DecisionAdmit, 0
	case Open:
		r := b.resetAt.Sub(now)
		if r < 0 {
			r = 0
		}
		return DecisionReject, r
	case HalfOpen:
		if !b.probeInFlight {
			b.probeInFlight = true
			return DecisionProbe, 0
		}
		return DecisionStash, 0
	}
	return DecisionReject, 0
}

// EvaluateSnapshot applies a just-arrived stats snapshot to a Closed
// breaker. It is a no-op outside Closed (spec §4.4: "A snapshot arriving
// while Open is accepted ... but cannot cause a transition"; HalfOpen
// transitions are driven by probe outcome, not snapshots, per the
// transition table).
//
// The trip guard is intentionally `Timeout >= MaxFailures-1`, not
// `Timeout >= MaxFailures`: the snapshot already includes the sample that
// pushes the count over the threshold, so the breaker opens on a snapshot
// holding MaxFailures-1 timeouts (2 timeouts for MaxFailures=3), one
// sample before the literal threshold. Spec §4.4 calls this out as
// required-exact behavior, not an approximation, so do not "fix" the -1
// away.
//
// Returns true if the breaker just transitioned Closed -> Open, in which
// case the caller must schedule the corresponding TryCloseBreaker timer.
func (b *Breaker) EvaluateSnapshot(snap stats.Snapshot, now time.Time) bool {
	if b.state != Closed {
		return false
	}
	threshold := uint64(b.cfg.MaxFailures)
	if threshold == 0 {
		threshold = 1
	}
	if snap.Stats.Timeout < threshold-1 {
		return false
	}
	b.state = Open
	b.openedAt = now
	b.resetAt = now.Add(b.cfg.ResetTimeout)
	return true
}

// TryClose applies a TryCloseBreaker timer firing. It is idempotent: a
// timer that fires after an intervening transition away from Open is a
// no-op (spec §4.4 edge policy and §8.1 invariant).
func (b *Breaker) TryClose() bool {
	if b.state != Open {
		return false
	}
	b.state = HalfOpen
	b.probeInFlight = false
	return true
}

// ResolveProbe applies the outcome of the single in-flight HalfOpen probe.
// Calling this when not HalfOpen, or with no probe in flight, is a
// programming error in the executor and is treated as a no-op rather than
// panicking (state corruption must never be possible here, per spec §7's
// "must not corrupt state").
//
// Returns the new state plus, on ProbeFailed, the new resetAt the executor
// must schedule a fresh TryCloseBreaker timer for.
func (b *Breaker) ResolveProbe(outcome ProbeOutcome, now time.Time) (newState State, resetAt time.Time) {
	if b.state != HalfOpen || !b.probeInFlight {
		return b.state, b.resetAt
	}
	b.probeInFlight = false
	switch outcome {
	case ProbeSucceeded:
		b.state = Closed
	case ProbeFailed:
		b.state = Open
		b.openedAt = now
		b.resetAt = now.Add(b.cfg.ResetTimeout)
	}
	return b.state, b.resetAt
}

// OpenedAt and ResetAt expose the current Open window for diagnostics.
func (b *Breaker) OpenedAt() time.Time { return b.openedAt }
func (b *Breaker) ResetAt() time.Time  { return b.resetAt }
