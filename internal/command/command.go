// Package command defines the type-erased command shape the executor
// operates on (spec §3.1 Command<T> and §4.3 fallback routing).
//
// The public API (root package jailcall) exposes a generic Command[T] for
// type safety, but the executor itself — like the teacher's
// CircuitBreaker.Execute(func() (interface{}, error)) — works in terms of
// `any`. Erasing the type at this boundary lets one executor goroutine
// serve submissions of different T for the same key without the executor
// package itself needing to be generic, which would otherwise force a
// separate mailbox type per T.
package command

import "context"

// Kind distinguishes how a command's work is executed.
type Kind int

const (
	// Async commands yield their own future/goroutine; they must not
	// block the caller's goroutine across the async boundary.
	Async Kind = iota
	// Sync commands are blocking thunks that must run on a dedicated
	// worker (spec §4.5 dispatcher selection) so they cannot starve the
	// executor mailbox.
	Sync
)

// FallbackKind distinguishes the two fallback variants from spec §3.1.
type FallbackKind int

const (
	NoFallback FallbackKind = iota
	StaticFallback
	CmdFallback
)

// Erased is the type-erased command the executor dispatches.
type Erased struct {
	Kind Kind

	// RunAsync is invoked when Kind == Async, given a context derived
	// from the call's deadline.
	RunAsync func(ctx context.Context) (any, error)
	// RunSync is invoked when Kind == Sync, on a dispatch worker.
	RunSync func() (any, error)

	Fallback    FallbackKind
	StaticValue any
	// Cmd is the fallback command for FallbackKind == CmdFallback. It is
	// resubmitted through the same executor, so it is itself an *Erased.
	Cmd *Erased
}

// VisitedBy reports whether e appears earlier in chain by pointer
// identity. The executor uses this to bound CmdFallback recursion (spec
// §3.2: "a command tagged CmdFallback whose fallback equals itself ...
// must not infinitely recurse").
func VisitedBy(e *Erased, chain []*Erased) bool {
	for _, seen := range chain {
		if seen == e {
			return true
		}
	}
	return false
}

// WithContext runs an Async command's work, regardless of whether it was
// constructed with ctx-aware or ctx-agnostic semantics; ctx is currently
// only used for deadline propagation, since spec §5 states there is no
// external cancellation beyond the call timeout.
func (e *Erased) WithContext(ctx context.Context) (any, error) {
	return e.RunAsync(ctx)
}
