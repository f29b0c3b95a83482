package executor

import (
	"time"

	"github.com/vnykmshr/jailcall/internal/command"
)

// Outcome is what a submission eventually receives. Exactly one Outcome is
// ever delivered per submission (spec §8.1).
type Outcome struct {
	Value any
	Err   error
}

// message is the executor mailbox's sum type. Only the executor's own
// goroutine ever reads from the mailbox, so these types need no
// synchronization of their own.
type message interface{ isMessage() }

// submitMsg is a new (or re-submitted, for CmdFallback) command arriving
// at this key.
type submitMsg struct {
	cmd   *command.Erased
	reply chan Outcome
	start time.Time

	// fallbackChain records the CmdFallback commands already traversed for
	// this logical submission, so VisitedBy can bound self-referential
	// fallback recursion (spec §3.2).
	fallbackChain []*command.Erased
}

func (submitMsg) isMessage() {}

// pendingCall is the bookkeeping the executor keeps for a submission that
// has been admitted and is running (or whose probe is in flight).
type pendingCall struct {
	cmd           *command.Erased
	reply         chan Outcome
	start         time.Time
	isProbe       bool
	fallbackChain []*command.Erased
	// probeID correlates a HalfOpen probe's admission and resolution log
	// lines; empty for non-probe calls.
	probeID string
}

// outcomeMsg reports that a dispatched call finished, win or lose against
// its deadline.
type outcomeMsg struct {
	call  *pendingCall
	value any
	err   error
	timedOut bool
}

func (outcomeMsg) isMessage() {}

// tryCloseMsg is delivered by a TryCloseBreaker timer (spec §4.4).
type tryCloseMsg struct{}

func (tryCloseMsg) isMessage() {}

// diagnosticsQueryMsg asks the executor goroutine for a point-in-time
// read of its breaker state and last stats snapshot.
type diagnosticsQueryMsg struct {
	reply chan Diagnostics
}

func (diagnosticsQueryMsg) isMessage() {}
