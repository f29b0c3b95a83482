package executor

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vnykmshr/jailcall/internal/breaker"
	"github.com/vnykmshr/jailcall/internal/clock"
	"github.com/vnykmshr/jailcall/internal/command"
	"github.com/vnykmshr/jailcall/internal/dispatch"
	"github.com/vnykmshr/jailcall/internal/jailerrors"
	"github.com/vnykmshr/jailcall/internal/stats"
	"github.com/vnykmshr/jailcall/jaillog"
)

// mailboxCapacity bounds the executor's inbox. Submissions and outcome
// reports share one channel (spec §5: "a single FIFO mailbox"); this only
// needs to be large enough to never apply backpressure to the executor's
// own outcome-posting goroutines under normal load.
const mailboxCapacity = 1024

// snapshotInterval is how often the stats aggregator is ticked and handed
// to the breaker. It equals the aggregator's total window
// (stats.DefaultBuckets * stats.DefaultBucketWidth) so every bucket is
// reported on exactly once per tick.
const snapshotInterval = stats.DefaultBuckets * stats.DefaultBucketWidth

// Executor is the per-key mailbox goroutine (component C5). Construct with
// New; call Close when the key is no longer needed.
type Executor struct {
	key string
	cfg Config
	clk clock.Clock
	log jaillog.Logger

	mailbox chan message
	done    chan struct{}

	brk   *breaker.Breaker
	stat  *stats.Aggregator
	stash *stash

	dispatcher dispatch.Dispatcher
	ownsPinned *dispatch.Pinned

	resetTimer clock.Timer
	ticker     clock.Ticker

	warnedDefaultDispatch bool
	lastSnapshot          stats.Snapshot
}

// Diagnostics is a point-in-time read of a key's health (grounded in the
// teacher's internal/breaker/diagnostics.go), useful for health-check
// endpoints and debugging.
type Diagnostics struct {
	State        breaker.State
	LastSnapshot stats.Snapshot
}

// New creates and starts the mailbox goroutine for key.
func New(key string, cfg Config, clk clock.Clock, log jaillog.Logger) *Executor {
	if log == nil {
		log = jaillog.Nop
	}

	e := &Executor{
		key:     key,
		cfg:     cfg,
		clk:     clk,
		log:     log,
		mailbox: make(chan message, mailboxCapacity),
		done:    make(chan struct{}),
		brk:     breaker.New(breaker.Config{MaxFailures: cfg.MaxFailures, ResetTimeout: cfg.ResetTimeout}),
		stat:    stats.New(clk.Now()),
		stash:   newStash(),
		ticker:  clk.NewTicker(snapshotInterval),
	}

	if cfg.Dispatcher == DispatcherPinned {
		e.ownsPinned = dispatch.NewPinned()
		e.dispatcher = e.ownsPinned
	} else {
		e.dispatcher = dispatch.Default()
	}

	go e.loop()
	return e
}

// Close stops the mailbox goroutine and any dedicated worker it owns.
// In-flight calls are allowed to finish; their outcome reports are
// discarded once Close has returned.
func (e *Executor) Close() {
	select {
	case <-e.done:
		return
	default:
		close(e.done)
	}
}

// Submit runs cmd through this key's executor and blocks for the single
// outcome (spec §8.1). ctx is not passed on to the command body and does
// not bound the call: Async bodies receive a context derived from
// context.Background() whose only deadline is cfg.CallTimeout (spec §5,
// "no external cancellation").
func (e *Executor) Submit(ctx context.Context, cmd *command.Erased) (any, error) {
	reply := make(chan Outcome, 1)
	e.SubmitToReply(ctx, cmd, reply)
	out := <-reply
	return out.Value, out.Err
}

// SubmitToReply is the non-blocking half of Submit, for callers that want
// to manage their own completion channel. The root package does not
// expose it; its Submit goes through Executor.Submit.
func (e *Executor) SubmitToReply(ctx context.Context, cmd *command.Erased, reply chan Outcome) {
	m := submitMsg{cmd: cmd, reply: reply, start: e.clk.Now()}
	// Check done first: once closed, the buffered mailbox would still
	// accept the send, and nothing would ever answer it.
	select {
	case <-e.done:
		reply <- Outcome{Err: &jailerrors.ConfigError{Msg: "submitted to a closed executor"}}
		return
	default:
	}
	select {
	case e.mailbox <- m:
	case <-e.done:
		reply <- Outcome{Err: &jailerrors.ConfigError{Msg: "submitted to a closed executor"}}
	}
}

// Diagnostics returns a point-in-time read of this key's breaker state and
// most recent stats snapshot. Safe to call from any goroutine: it posts a
// query message through the same mailbox every other message travels
// through, rather than reaching into executor fields directly.
func (e *Executor) Diagnostics() Diagnostics {
	reply := make(chan Diagnostics, 1)
	select {
	case e.mailbox <- diagnosticsQueryMsg{reply: reply}:
	case <-e.done:
		return Diagnostics{}
	}
	select {
	case d := <-reply:
		return d
	case <-e.done:
		return Diagnostics{}
	}
}

func (e *Executor) loop() {
	defer func() {
		e.ticker.Stop()
		if e.ownsPinned != nil {
			e.ownsPinned.Close()
		}
	}()

	for {
		select {
		case msg := <-e.mailbox:
			switch m := msg.(type) {
			case submitMsg:
				e.handleSubmit(m)
			case outcomeMsg:
				e.handleOutcome(m)
			case tryCloseMsg:
				e.handleTryClose()
			case diagnosticsQueryMsg:
				m.reply <- Diagnostics{State: e.brk.State(), LastSnapshot: e.lastSnapshot}
			}
		case now := <-e.ticker.C():
			e.handleSnapshot(now)
		case <-e.done:
			return
		}
	}
}

func (e *Executor) handleSubmit(m submitMsg) {
	now := e.clk.Now()
	decision, remaining := e.brk.Decide(now)

	switch decision {
	case breaker.DecisionReject:
		e.stat.Report(stats.EventBreakerOpenRejected, 0, now)
		e.completeWithFallback(m, &jailerrors.BreakerOpenError{Remaining: remaining})
	case breaker.DecisionStash:
		if e.stash.len() >= stashCap {
			e.log.Warnw("stash full, rejecting submission", "key", e.key)
			e.completeWithFallback(m, &jailerrors.BreakerOpenError{Remaining: 0})
			return
		}
		e.stash.push(m)
	case breaker.DecisionProbe:
		e.dispatchCommand(m, true, now)
	case breaker.DecisionAdmit:
		e.dispatchCommand(m, false, now)
	}
}

func (e *Executor) dispatchCommand(m submitMsg, isProbe bool, now time.Time) {
	pc := &pendingCall{
		cmd:           m.cmd,
		reply:         m.reply,
		start:         now,
		isProbe:       isProbe,
		fallbackChain: m.fallbackChain,
	}
	if isProbe {
		pc.probeID = uuid.NewString()
		e.log.Infow("admitting half-open probe", "key", e.key, "probe_id", pc.probeID)
	}

	switch m.cmd.Kind {
	case command.Async:
		go e.runAsync(pc)
	case command.Sync:
		if e.cfg.Dispatcher == DispatcherDefault && !e.warnedDefaultDispatch {
			e.warnedDefaultDispatch = true
			e.log.Warnw("sync command running on the default shared dispatcher; "+
				"configure a pinned dispatcher if this command blocks for a while",
				"key", e.key)
		}
		// Go is handed off from its own goroutine, not called directly on
		// the mailbox goroutine: both SharedPool.Go (ants.Submit with
		// WithNonblocking(false)) and Pinned.Go (unbuffered channel send)
		// block their caller until a worker is free, and the mailbox must
		// never await anything (spec §5).
		go e.dispatcher.Go(func() { e.runSync(pc) })
	}
}

func (e *Executor) runAsync(pc *pendingCall) {
	out := raceAsync(e.cfg.CallTimeout, pc.cmd)
	e.postOutcome(pc, out)
}

func (e *Executor) runSync(pc *pendingCall) {
	out := raceSync(e.cfg.CallTimeout, pc.cmd)
	e.postOutcome(pc, out)
}

func (e *Executor) postOutcome(pc *pendingCall, out raceOutcome) {
	msg := outcomeMsg{call: pc, value: out.value, err: out.err, timedOut: out.timedOut}
	select {
	case e.mailbox <- msg:
	case <-e.done:
	}
}

func (e *Executor) handleOutcome(m outcomeMsg) {
	now := e.clk.Now()
	latency := now.Sub(m.call.start)

	var kind stats.EventKind
	success := false
	var callErr error

	switch {
	case m.timedOut:
		kind = stats.EventTimeout
		callErr = &jailerrors.TimeoutError{After: e.cfg.CallTimeout}
	case m.err != nil:
		kind = stats.EventError
		callErr = m.err
	default:
		kind = stats.EventSuccess
		success = true
	}
	e.stat.Report(kind, latency, now)

	if m.call.isProbe {
		e.resolveProbe(m.call.probeID, success, now)
	}

	if success {
		e.completeReply(m.call.reply, m.value, nil)
		return
	}

	orig := submitMsg{cmd: m.call.cmd, reply: m.call.reply, fallbackChain: m.call.fallbackChain, start: m.call.start}
	e.completeWithFallback(orig, callErr)
}

func (e *Executor) resolveProbe(probeID string, success bool, now time.Time) {
	outcome := breaker.ProbeFailed
	if success {
		outcome = breaker.ProbeSucceeded
	}
	newState, resetAt := e.brk.ResolveProbe(outcome, now)

	switch newState {
	case breaker.Closed:
		e.log.Infow("breaker closed after successful probe", "key", e.key, "probe_id", probeID)
		e.drainStash()
	case breaker.Open:
		e.log.Warnw("half-open probe failed, breaker reopened", "key", e.key, "probe_id", probeID)
		e.scheduleTryClose(resetAt.Sub(now))
		e.drainStash()
	}
}

// drainStash replays every stashed submission through handleSubmit against
// the breaker's now-current state. Called synchronously from within the
// mailbox goroutine (not re-posted to the mailbox), so the replay is
// ordered immediately after the probe resolution that triggered it and
// before any other queued mailbox message.
func (e *Executor) drainStash() {
	for _, m := range e.stash.popAll() {
		e.handleSubmit(m)
	}
}

func (e *Executor) handleTryClose() {
	if e.brk.TryClose() {
		e.log.Infow("breaker half-open, admitting next submission as probe", "key", e.key)
	}
}

func (e *Executor) handleSnapshot(now time.Time) {
	snap := e.stat.Tick(now)
	e.lastSnapshot = snap
	if e.brk.EvaluateSnapshot(snap, now) {
		e.log.Warnw("breaker opened", "key", e.key,
			"timeouts", snap.Stats.Timeout, "errors", snap.Stats.Err)
		e.scheduleTryClose(e.brk.ResetAt().Sub(now))
	}
}

func (e *Executor) scheduleTryClose(d time.Duration) {
	if e.resetTimer != nil {
		e.resetTimer.Stop()
	}
	e.resetTimer = e.clk.AfterFunc(d, func() {
		select {
		case e.mailbox <- tryCloseMsg{}:
		case <-e.done:
		}
	})
}

// completeWithFallback resolves a failed (or rejected) submission per spec
// §4.3: no fallback surfaces the error, a static fallback substitutes its
// value, and a command fallback is resubmitted through this same executor
// unless doing so would revisit a command already in the chain.
func (e *Executor) completeWithFallback(orig submitMsg, primaryErr error) {
	cmd := orig.cmd
	switch cmd.Fallback {
	case command.NoFallback:
		e.completeReply(orig.reply, nil, primaryErr)
	case command.StaticFallback:
		e.completeReply(orig.reply, cmd.StaticValue, nil)
	case command.CmdFallback:
		if command.VisitedBy(cmd, orig.fallbackChain) {
			e.log.Warnw("fallback cycle detected, surfacing primary error", "key", e.key)
			e.completeReply(orig.reply, nil, primaryErr)
			return
		}
		chain := append(append([]*command.Erased{}, orig.fallbackChain...), cmd)
		fb := submitMsg{cmd: cmd.Cmd, reply: orig.reply, fallbackChain: chain, start: e.clk.Now()}
		select {
		case e.mailbox <- fb:
		case <-e.done:
		}
	}
}

func (e *Executor) completeReply(reply chan Outcome, value any, err error) {
	select {
	case reply <- Outcome{Value: value, Err: err}:
	default:
		// reply is buffered(1) and written exactly once per submission by
		// construction; a full channel here would mean a submission was
		// completed twice, which must never happen rather than be allowed
		// to block the mailbox goroutine.
	}
}
