package jailcall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/jailcall/internal/clock"
)

// This file exercises every seed end-to-end scenario and the invariants
// that aren't already incidentally covered by jailcall_test.go, driven
// entirely through the root package's public surface.

func TestScenario1SuccessPassThrough(t *testing.T) {
	d := NewDefender()
	defer d.Close()

	cmd := Async(func(ctx context.Context) (string, error) { return "succFuture", nil })
	v, err := Submit(context.Background(), d, "scenario-1", cmd)
	require.NoError(t, err)
	require.Equal(t, "succFuture", v)
}

func TestScenario2ErrorPassThrough(t *testing.T) {
	d := NewDefender()
	defer d.Close()

	boom := errors.New("E")
	cmd := Async(func(ctx context.Context) (string, error) { return "", boom })
	_, err := Submit(context.Background(), d, "scenario-2", cmd)
	require.ErrorIs(t, err, boom)
}

// TestScenario3BreakerOpensOnSlowCalls matches the seed scenario's outcome
// sequence (Timeout, Timeout, BreakerOpen, BreakerOpen) with max-failures=3,
// which is the config that satisfies the §8.1 off-by-one invariant
// (maxFailures-1 Timeouts precede the first BreakerOpen) for exactly two
// leading timeouts.
func TestScenario3BreakerOpensOnSlowCalls(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	d := NewDefender(WithClock(fc), WithCommandConfig("scenario-3", MsgConfig{
		MaxFailures:  3,
		CallTimeout:  200 * time.Millisecond,
		ResetTimeout: 2 * time.Minute,
		Dispatcher:   DispatcherDefault,
	}))
	defer d.Close()

	slow := Async(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	classify := func(err error) string {
		var openErr *BreakerOpenError
		switch {
		case errors.As(err, &openErr):
			return "BreakerOpen"
		case err != nil:
			return "Timeout"
		default:
			return "Success"
		}
	}

	var outcomes []string
	_, err := Submit(context.Background(), d, "scenario-3", slow)
	outcomes = append(outcomes, classify(err))

	_, err = Submit(context.Background(), d, "scenario-3", slow)
	outcomes = append(outcomes, classify(err))

	// Reveal the two timeouts to the breaker by ticking the stats window.
	fc.Advance(snapshotInterval)
	drain := Async(func(ctx context.Context) (string, error) { return "ok", nil })
	_, _ = Submit(context.Background(), d, "scenario-3", drain)

	_, err = Submit(context.Background(), d, "scenario-3", slow)
	outcomes = append(outcomes, classify(err))

	_, err = Submit(context.Background(), d, "scenario-3", slow)
	outcomes = append(outcomes, classify(err))

	require.Equal(t, []string{"Timeout", "Timeout", "BreakerOpen", "BreakerOpen"}, outcomes)
}

func TestScenario4StaticFallback(t *testing.T) {
	d := NewDefender()
	defer d.Close()

	cmd := Async(func(ctx context.Context) (string, error) {
		return "", errors.New("E")
	}).WithStaticFallback("yey1")

	v, err := Submit(context.Background(), d, "scenario-4", cmd)
	require.NoError(t, err)
	require.Equal(t, "yey1", v)
}

func TestScenario5CmdFallback(t *testing.T) {
	d := NewDefender()
	defer d.Close()

	cmd1 := Async(func(ctx context.Context) (string, error) { return "yes1", nil })
	cmd2 := Async(func(ctx context.Context) (string, error) {
		return "", errors.New("E")
	}).WithCmdFallback(cmd1)

	v, err := Submit(context.Background(), d, "scenario-5", cmd2)
	require.NoError(t, err)
	require.Equal(t, "yes1", v)
}

// TestScenario6SyncPathKeepsMailboxResponsive submits a slow sync command on
// a pinned dispatcher, then shows the executor's own mailbox (a separate
// goroutine from the pinned worker running the slow body) can still answer
// a Diagnostics query well before the slow call finishes.
func TestScenario6SyncPathKeepsMailboxResponsive(t *testing.T) {
	d := NewDefender(WithCommandConfig("scenario-6", MsgConfig{
		MaxFailures:  5,
		CallTimeout:  time.Second,
		ResetTimeout: 5 * time.Second,
		Dispatcher:   DispatcherPinned,
	}))
	defer d.Close()

	slow := Sync(func() (string, error) {
		time.Sleep(150 * time.Millisecond)
		return "yes2", nil
	})

	var wg sync.WaitGroup
	wg.Add(1)
	var got string
	var submitErr error
	go func() {
		defer wg.Done()
		got, submitErr = Submit(context.Background(), d, "scenario-6", slow)
	}()

	// Give the dispatcher a moment to pick up the sync body, then confirm
	// the mailbox answers a query long before the 150ms sleep elapses.
	time.Sleep(10 * time.Millisecond)
	start := time.Now()
	_, ok := d.Diagnostics("scenario-6")
	require.True(t, ok)
	require.Less(t, time.Since(start), 100*time.Millisecond)

	wg.Wait()
	require.NoError(t, submitErr)
	require.Equal(t, "yes2", got)
}

// TestScenario7SyncBreakerOpens mirrors scenario 3 but with sync commands
// on a pinned dispatcher, confirming the breaker trips identically
// regardless of dispatch path.
func TestScenario7SyncBreakerOpens(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	d := NewDefender(WithClock(fc), WithCommandConfig("scenario-7", MsgConfig{
		MaxFailures:  3,
		CallTimeout:  200 * time.Millisecond,
		ResetTimeout: time.Minute,
		Dispatcher:   DispatcherPinned,
	}))
	defer d.Close()

	slow := Sync(func() (string, error) {
		time.Sleep(time.Second)
		return "", errors.New("should not complete before timeout")
	})

	_, err1 := Submit(context.Background(), d, "scenario-7", slow)
	_, err2 := Submit(context.Background(), d, "scenario-7", slow)
	require.Error(t, err1)
	require.Error(t, err2)

	fc.Advance(snapshotInterval)
	drain := Sync(func() (string, error) { return "ok", nil })
	_, _ = Submit(context.Background(), d, "scenario-7", drain)

	_, err3 := Submit(context.Background(), d, "scenario-7", slow)
	var openErr *BreakerOpenError
	require.ErrorAs(t, err3, &openErr)
}

// TestInvariantExactlyOneOutcomePerSubmission submits concurrently across
// several keys and checks every call returns exactly one outcome (no
// deadlocks, no double replies, no missing replies).
func TestInvariantExactlyOneOutcomePerSubmission(t *testing.T) {
	d := NewDefender()
	defer d.Close()

	const n = 50
	var wg sync.WaitGroup
	wg.Add(n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			cmd := Async(func(ctx context.Context) (int, error) { return i, nil })
			v, err := Submit(context.Background(), d, "invariant-key", cmd)
			if err == nil && v != i {
				err = errors.New("value mismatch")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
}

// TestInvariantStaticFallbackRoundTrip: submit(cmd with StaticFallback(v),
// execute fails) => outcome equals v, for several values of v.
func TestInvariantStaticFallbackRoundTrip(t *testing.T) {
	d := NewDefender()
	defer d.Close()

	for _, want := range []string{"a", "b", "c"} {
		cmd := Async(func(ctx context.Context) (string, error) {
			return "", errors.New("fails")
		}).WithStaticFallback(want)
		got, err := Submit(context.Background(), d, "roundtrip-key", cmd)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

// TestHalfOpenProbeSuccessDrainsStash trips a breaker, lets it transition
// to HalfOpen, then shows a submission arriving while the probe is still
// in flight is stashed rather than rejected or run concurrently, and is
// replayed once the probe succeeds and the breaker closes.
func TestHalfOpenProbeSuccessDrainsStash(t *testing.T) {
	fc := clock.NewFake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	d := NewDefender(WithClock(fc), WithCommandConfig("stash-key", MsgConfig{
		MaxFailures:  1,
		CallTimeout:  10 * time.Millisecond,
		ResetTimeout: 50 * time.Millisecond,
		Dispatcher:   DispatcherDefault,
	}))
	defer d.Close()

	slow := Async(func(ctx context.Context) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	_, err := Submit(context.Background(), d, "stash-key", slow)
	require.Error(t, err)

	fc.Advance(snapshotInterval) // reveals the timeout; Closed -> Open
	time.Sleep(20 * time.Millisecond)

	fc.Advance(50 * time.Millisecond) // fires the scheduled TryClose; Open -> HalfOpen
	time.Sleep(20 * time.Millisecond)

	probeGate := make(chan struct{})
	probe := Async(func(ctx context.Context) (string, error) {
		<-probeGate
		return "probe-ok", nil
	})

	probeDone := make(chan struct{})
	go func() {
		v, err := Submit(context.Background(), d, "stash-key", probe)
		require.NoError(t, err)
		require.Equal(t, "probe-ok", v)
		close(probeDone)
	}()
	time.Sleep(20 * time.Millisecond) // let the probe be admitted first

	stashed := Async(func(ctx context.Context) (string, error) { return "stashed-ok", nil })
	stashedDone := make(chan struct{})
	var stashedVal string
	var stashedErr error
	go func() {
		stashedVal, stashedErr = Submit(context.Background(), d, "stash-key", stashed)
		close(stashedDone)
	}()
	time.Sleep(20 * time.Millisecond) // let it be admitted as Stash, not a second probe

	close(probeGate)
	<-probeDone
	<-stashedDone

	require.NoError(t, stashedErr)
	require.Equal(t, "stashed-ok", stashedVal)
}

// TestSelfReferentialCmdFallbackSurfacesPrimaryError confirms a command
// whose fallback is itself doesn't loop forever and surfaces the primary
// failure, at the root package level (internal/executor has the same test
// against the lower-level Executor directly).
func TestSelfReferentialCmdFallbackSurfacesPrimaryError(t *testing.T) {
	d := NewDefender()
	defer d.Close()

	primaryErr := errors.New("primary failed")

	var self Command[string]
	self = Async(func(ctx context.Context) (string, error) {
		return "", primaryErr
	})
	self = self.WithCmdFallback(self)

	_, err := Submit(context.Background(), d, "self-ref-key", self)
	require.ErrorIs(t, err, primaryErr)
}
