package jailcall

import (
	"context"

	"github.com/vnykmshr/jailcall/internal/command"
)

// Command[T] is one submittable unit of work (spec §3.1). Build one with
// Async or Sync, optionally attach a fallback, and submit it with Submit.
//
// The executor this runs under only knows how to move `any` around
// (internal/command.Erased), the same way the teacher's CircuitBreaker
// only knows func() (interface{}, error); Command[T] is the generic,
// type-safe shell around that erased shape.
type Command[T any] struct {
	erased *command.Erased
}

// Async builds a command whose work runs on its own goroutine. fn should
// observe ctx's deadline (derived from the key's CallTimeout) so it can
// stop promptly once the call has already been reported as a Timeout.
func Async[T any](fn func(ctx context.Context) (T, error)) Command[T] {
	return Command[T]{erased: &command.Erased{
		Kind: command.Async,
		RunAsync: func(ctx context.Context) (any, error) {
			return fn(ctx)
		},
	}}
}

// Sync builds a command whose work is a blocking, context-agnostic thunk.
// It is handed to the key's configured dispatcher (spec §4.5). With a
// non-zero CallTimeout the dispatcher worker runs the body on a goroutine
// of its own and waits at most CallTimeout for it, so a Sync body that
// never returns keeps that goroutine while the worker is freed; with a
// zero CallTimeout the body runs directly on the worker.
func Sync[T any](fn func() (T, error)) Command[T] {
	return Command[T]{erased: &command.Erased{
		Kind: command.Sync,
		RunSync: func() (any, error) {
			return fn()
		},
	}}
}

// WithStaticFallback attaches a literal fallback value, substituted
// whenever the command fails or is rejected by an Open breaker (spec
// §4.3).
func (c Command[T]) WithStaticFallback(value T) Command[T] {
	c.erased.Fallback = command.StaticFallback
	c.erased.StaticValue = value
	return c
}

// WithCmdFallback attaches another Command[T] as fallback, resubmitted
// through the same key on failure. A fallback that resolves to the exact
// same underlying command (including a command whose fallback is itself)
// is detected by identity and surfaces the primary error instead of
// recursing (spec §3.2).
func (c Command[T]) WithCmdFallback(fb Command[T]) Command[T] {
	c.erased.Fallback = command.CmdFallback
	c.erased.Cmd = fb.erased
	return c
}
