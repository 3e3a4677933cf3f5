package ratelimit

import (
	"fmt"
	"time"
)

// LimitExceededError is returned by Consume when one of the windows denies
// the request. It is an expected, caller-recoverable condition: translate it
// into a 429 with Retry-After, do not treat it as a fault.
type LimitExceededError struct {
	Window     Window
	Limit      int
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s window (limit %d), retry after %s",
		e.Window, e.Limit, e.RetryAfter)
}

// RetryAfterSeconds returns the retry hint rounded up to whole seconds, the
// unit the Retry-After header speaks.
func (e *LimitExceededError) RetryAfterSeconds() int {
	return int((e.RetryAfter + time.Second - 1) / time.Second)
}

// StoreError wraps a failure of the shared counter store. On the hot
// admission path these are absorbed by the fail-open policy; administrative
// operations propagate them so callers know the operation did not take
// effect.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("rate limit store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
