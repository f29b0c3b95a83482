// Package jailcall provides per-key latency and fault isolation for calls
// to unreliable collaborators: each command key gets its own call-timeout,
// per-window stats, and circuit breaker, so a stalled dependency can
// never exhaust the caller's own goroutines or cascade into an unrelated
// key.
//
// A Defender is the entry point. Register commands under a CommandKey and
// submit them with Submit; jailcall takes care of racing the call against
// its configured timeout, tripping the breaker when a key's recent calls
// look unhealthy, and routing to a fallback when one is configured.
//
//	d := jailcall.NewDefender()
//	cmd := jailcall.Async(func(ctx context.Context) (string, error) {
//		return fetchFromUpstream(ctx)
//	}).WithStaticFallback("cached-value")
//	val, err := jailcall.Submit(ctx, d, "fetch-widget", cmd)
//
// See the internal/executor, internal/breaker, and internal/stats packages
// for the mechanics each key runs independently.
package jailcall
