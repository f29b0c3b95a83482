// Package jailerrors defines the error taxonomy from spec §7: domain
// failures (Timeout, user errors) versus the policy failure BreakerOpen,
// plus ConfigError. Kept in its own internal package (like
// the teacher keeps CircuitBreaker in internal/breaker) so both
// internal/executor and the root facade can share one definition without
// an import cycle.
package jailerrors

import (
	"fmt"
	"time"
)

// BreakerOpenError is returned when a key's breaker is Open and a
// submission is rejected without being attempted.
type BreakerOpenError struct {
	Remaining time.Duration
}

func (e *BreakerOpenError) Error() string {
	return fmt.Sprintf("jailcall: breaker open, retry after %s", e.Remaining)
}

// TimeoutError is returned when a call's deadline elapsed before the
// command body completed.
type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("jailcall: call timed out after %s", e.After)
}

// ConfigError reports a setup or lifecycle problem. The executor returns
// it for a submission made after the executor was closed; jailconfig
// reports its parse errors as plain wrapped errors, not as ConfigError.
type ConfigError struct {
	Msg string
}

func (e *ConfigError) Error() string {
	return "jailcall: config: " + e.Msg
}
