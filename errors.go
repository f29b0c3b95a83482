package jailcall

import "github.com/vnykmshr/jailcall/internal/jailerrors"

// Error types are aliased from internal/jailerrors so callers can
// errors.As against them without reaching into an internal package,
// mirroring the teacher's ErrOpenState/ErrTooManyRequests re-export in
// autobreaker.go.
type (
	// BreakerOpenError means the key's breaker was Open (or a HalfOpen
	// stash was full) and the submission was rejected without running.
	BreakerOpenError = jailerrors.BreakerOpenError
	// TimeoutError means the command's deadline elapsed before it
	// completed.
	TimeoutError = jailerrors.TimeoutError
	// ConfigError means a submission reached a key whose executor was
	// already stopped by Defender.Close.
	ConfigError = jailerrors.ConfigError
)
