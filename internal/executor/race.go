package executor

import (
	"context"
	"errors"
	"time"

	"github.com/vnykmshr/jailcall/internal/command"
	"github.com/vnykmshr/jailcall/internal/timeout"
)

// raceOutcome is the executor's internal view of a finished call, after
// translating internal/timeout's generic Outcome[any] into the
// success/error/timedOut trichotomy handleOutcome needs.
type raceOutcome struct {
	value    any
	err      error
	timedOut bool
}

func raceAsync(d time.Duration, cmd *command.Erased) raceOutcome {
	out := timeout.Race(d, func() (any, error) {
		ctx := context.Background()
		if d > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d)
			defer cancel()
		}
		return cmd.WithContext(ctx)
	})
	ro := toRaceOutcome(out)
	// A ctx-respecting body racing its own context's deadline against C2's
	// timer can win the select (timeout.Race sees ResultValue) and still
	// return context.DeadlineExceeded — that's the same timeout, observed
	// from the other side. Reclassify it as timedOut so the breaker's
	// timeout-only trip guard sees it; otherwise this outcome is
	// indistinguishable from a genuine application error and the breaker
	// never trips on it.
	if !ro.timedOut && errors.Is(ro.err, context.DeadlineExceeded) {
		return raceOutcome{timedOut: true}
	}
	return ro
}

func raceSync(d time.Duration, cmd *command.Erased) raceOutcome {
	out := timeout.Race(d, cmd.RunSync)
	return toRaceOutcome(out)
}

func toRaceOutcome(out timeout.Outcome[any]) raceOutcome {
	if out.Result == timeout.ResultTimeout {
		return raceOutcome{timedOut: true}
	}
	return raceOutcome{value: out.Value, err: out.Err}
}
