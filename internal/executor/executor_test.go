package executor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vnykmshr/jailcall/internal/clock"
	"github.com/vnykmshr/jailcall/internal/command"
	"github.com/vnykmshr/jailcall/internal/jailerrors"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func asyncCmd(fn func(ctx context.Context) (any, error)) *command.Erased {
	return &command.Erased{Kind: command.Async, RunAsync: fn}
}

func newTestExecutor(t *testing.T, cfg Config) (*Executor, *clock.Fake) {
	t.Helper()
	fc := clock.NewFake(epoch)
	e := New("test-key", cfg, fc, nil)
	t.Cleanup(e.Close)
	return e, fc
}

func TestSubmitSuccessPassesThrough(t *testing.T) {
	e, _ := newTestExecutor(t, DefaultConfig())
	cmd := asyncCmd(func(ctx context.Context) (any, error) { return 42, nil })

	v, err := e.Submit(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, 42, v)
}

func TestSubmitErrorPassesThrough(t *testing.T) {
	e, _ := newTestExecutor(t, DefaultConfig())
	boom := errors.New("boom")
	cmd := asyncCmd(func(ctx context.Context) (any, error) { return nil, boom })

	v, err := e.Submit(context.Background(), cmd)
	require.Nil(t, v)
	require.ErrorIs(t, err, boom)
}

func TestStaticFallbackAppliesOnError(t *testing.T) {
	e, _ := newTestExecutor(t, DefaultConfig())
	cmd := asyncCmd(func(ctx context.Context) (any, error) { return nil, errors.New("boom") })
	cmd.Fallback = command.StaticFallback
	cmd.StaticValue = "fallback-value"

	v, err := e.Submit(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "fallback-value", v)
}

func TestCmdFallbackRoutesThroughSameExecutor(t *testing.T) {
	e, _ := newTestExecutor(t, DefaultConfig())
	primary := asyncCmd(func(ctx context.Context) (any, error) { return nil, errors.New("primary failed") })
	fb := asyncCmd(func(ctx context.Context) (any, error) { return "from-fallback", nil })
	primary.Fallback = command.CmdFallback
	primary.Cmd = fb

	v, err := e.Submit(context.Background(), primary)
	require.NoError(t, err)
	require.Equal(t, "from-fallback", v)
}

func TestSelfReferentialCmdFallbackSurfacesPrimaryError(t *testing.T) {
	e, _ := newTestExecutor(t, DefaultConfig())
	primaryErr := errors.New("primary failed")
	primary := asyncCmd(func(ctx context.Context) (any, error) { return nil, primaryErr })
	primary.Fallback = command.CmdFallback
	primary.Cmd = primary // self-referential

	v, err := e.Submit(context.Background(), primary)
	require.Nil(t, v)
	require.ErrorIs(t, err, primaryErr)
}

func TestBreakerOpensAfterThresholdTimeoutsAndRejectsFastAfter(t *testing.T) {
	cfg := Config{MaxFailures: 3, CallTimeout: 10 * time.Millisecond, ResetTimeout: time.Minute, Dispatcher: DispatcherDefault}
	e, fc := newTestExecutor(t, cfg)

	slow := asyncCmd(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	// First two timeouts: still Closed, each submission genuinely attempts
	// the call and times out against the real 10ms deadline.
	for i := 0; i < 2; i++ {
		_, err := e.Submit(context.Background(), slow)
		require.Error(t, err)
	}

	// Advance the fake clock so the aggregator's snapshot tick fires and
	// evaluates the breaker against the two recorded timeouts. With
	// MaxFailures=3 the trip guard fires at Timeout >= MaxFailures-1 == 2.
	fc.Advance(snapshotInterval)
	waitForMailboxDrain(e)

	_, err := e.Submit(context.Background(), slow)
	var openErr *jailerrors.BreakerOpenError
	require.ErrorAs(t, err, &openErr)
}

// waitForMailboxDrain gives the executor goroutine a moment to process
// whatever was just posted (the fake clock's ticker fire is asynchronous
// with respect to the test goroutine). A zero-cost Submit of a fast no-op
// command round-trips through the mailbox and only returns once every
// message queued ahead of it has been handled, since the mailbox is FIFO.
func waitForMailboxDrain(e *Executor) {
	noop := asyncCmd(func(ctx context.Context) (any, error) { return nil, nil })
	_, _ = e.Submit(context.Background(), noop)
}

func TestHalfOpenProbeSucceedsAfterResetTimeout(t *testing.T) {
	cfg := Config{MaxFailures: 1, CallTimeout: 10 * time.Millisecond, ResetTimeout: 50 * time.Millisecond, Dispatcher: DispatcherDefault}
	e, fc := newTestExecutor(t, cfg)

	slow := asyncCmd(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := e.Submit(context.Background(), slow)
	require.Error(t, err)

	fc.Advance(snapshotInterval)
	waitForMailboxDrain(e)

	fc.Advance(cfg.ResetTimeout)

	fast := asyncCmd(func(ctx context.Context) (any, error) { return "ok", nil })
	v, err := e.Submit(context.Background(), fast)
	require.NoError(t, err)
	require.Equal(t, "ok", v)
}

func TestSyncCommandRunsOnPinnedDispatcher(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dispatcher = DispatcherPinned
	e, _ := newTestExecutor(t, cfg)

	cmd := &command.Erased{Kind: command.Sync, RunSync: func() (any, error) { return "sync-ok", nil }}
	v, err := e.Submit(context.Background(), cmd)
	require.NoError(t, err)
	require.Equal(t, "sync-ok", v)
}
