package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Result is the admission decision for one call, produced fresh every time.
// Limit, Remaining, and ResetAt describe the window that made the decision
// and map directly onto the X-RateLimit-* response headers.
type Result struct {
	Allowed    bool          `json:"allowed"`
	Window     Window        `json:"window"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// WindowUsage is the current count and ceiling for one window.
type WindowUsage struct {
	Count int64 `json:"count"`
	Limit int   `json:"limit"`
}

// Usage reports a key's current standing across all windows.
type Usage struct {
	Minute WindowUsage `json:"minute"`
	Hour   WindowUsage `json:"hour"`
	Day    WindowUsage `json:"day"`
}

// Limiter evaluates caller keys against the minute, hour, and day ceilings
// of a single tier. The tier is fixed at construction; build one Limiter per
// tier and route callers to the right one.
//
// The per-window check is a prune/count/record sequence against the shared
// store with no transaction around it. Two concurrent calls for the same key
// can both observe count < limit before either records, admitting one call
// more than the ceiling. That small overshoot under contention is accepted
// rather than paying for a server-side script on every request.
type Limiter struct {
	store          Store
	tier           Tier
	limits         TierLimits
	keyPrefix      string
	now            func() time.Time
	fullAccounting bool
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithKeyPrefix overrides the store key namespace (default "ratelimit:").
func WithKeyPrefix(prefix string) Option {
	return func(l *Limiter) { l.keyPrefix = prefix }
}

// WithClock overrides the time source. Tests use this to move the window
// boundary without sleeping.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithFullAccounting makes Consume evaluate and record every window even
// after an earlier window has already denied the call. By default a
// minute-window denial short-circuits, so hour/day counters never see
// traffic that the minute window turned away and under-report true demand
// while minute-level throttling is active. Full accounting keeps all three
// counters honest at the cost of two extra store round trips per denial.
func WithFullAccounting() Option {
	return func(l *Limiter) { l.fullAccounting = true }
}

// New builds a Limiter for tier using the limits in catalog.
func New(store Store, tier Tier, catalog Catalog, opts ...Option) *Limiter {
	l := &Limiter{
		store:     store,
		tier:      tier,
		limits:    catalog.Limits(tier),
		keyPrefix: "ratelimit:",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Tier returns the tier this limiter enforces.
func (l *Limiter) Tier() Tier { return l.tier }

// Limits returns the tier limits this limiter enforces.
func (l *Limiter) Limits() TierLimits { return l.limits }

// Consume records one request for key and decides whether to admit it.
// Windows are checked tightest first; the first denial stops evaluation
// (unless full accounting is on) and surfaces as *LimitExceededError. When
// all windows admit the call, the minute-window result is returned as the
// canonical decision for header construction.
func (l *Limiter) Consume(ctx context.Context, key string) (Result, error) {
	now := l.now()

	var canonical Result
	var denied *LimitExceededError

	for i, w := range windows {
		res := l.checkAndRecord(ctx, key, w, now)
		if i == 0 {
			canonical = res
		}
		if !res.Allowed {
			if denied == nil {
				denied = &LimitExceededError{Window: w, Limit: res.Limit, RetryAfter: res.RetryAfter}
			}
			if !l.fullAccounting {
				break
			}
		}
	}

	if denied != nil {
		canonical.Allowed = false
		canonical.Window = denied.Window
		canonical.Limit = denied.Limit
		canonical.Remaining = 0
		canonical.RetryAfter = denied.RetryAfter
		canonical.ResetAt = now.Add(denied.Window.Width())
		return canonical, denied
	}
	return canonical, nil
}

// CheckLimit evaluates and records key against a single window. Unlike
// Consume it does not translate a denial into an error; callers get the raw
// decision, e.g. for building headers off the minute window alone. There is
// no error path: store failures are absorbed by the fail-open policy.
func (l *Limiter) CheckLimit(ctx context.Context, key string, w Window) Result {
	return l.checkAndRecord(ctx, key, w, l.now())
}

// Reset deletes all window state for key, re-admitting it immediately.
// This is an administrative path: store errors propagate so the operator
// knows the unblock did not take effect.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	keys := make([]string, 0, len(windows))
	for _, w := range windows {
		keys = append(keys, l.storeKey(key, w))
	}
	if err := l.store.Clear(ctx, keys...); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}

// Usage returns key's current per-window counts without recording anything.
// Repeated calls observe the same counts. Store errors propagate.
func (l *Limiter) Usage(ctx context.Context, key string) (Usage, error) {
	now := l.now()
	var usage Usage
	for _, w := range windows {
		count, err := l.store.CountSince(ctx, l.storeKey(key, w), now.Add(-w.Width()))
		if err != nil {
			return Usage{}, fmt.Errorf("usage %s: %w", key, err)
		}
		wu := WindowUsage{Count: count, Limit: w.limit(l.limits)}
		switch w {
		case WindowMinute:
			usage.Minute = wu
		case WindowHour:
			usage.Hour = wu
		case WindowDay:
			usage.Day = wu
		}
	}
	return usage, nil
}

// checkAndRecord runs the sliding-log check for one window: prune entries
// that fell out of the window, count the rest, and record the call if it is
// admitted. A denial's RetryAfter is the full window width, a deliberate
// upper bound rather than the exact time until the oldest entry expires.
//
// Store failures never deny: the failure is logged and the call is admitted
// as if the key had full headroom. An outage in the counting store must not
// become an outage of the protected API.
func (l *Limiter) checkAndRecord(ctx context.Context, key string, w Window, now time.Time) Result {
	max := w.limit(l.limits)
	storeKey := l.storeKey(key, w)
	resetAt := now.Add(w.Width())

	count, err := l.store.PruneAndCount(ctx, storeKey, now.Add(-w.Width()))
	if err != nil {
		return l.failOpen(key, w, max, resetAt, err)
	}

	if count >= int64(max) {
		return Result{
			Allowed:    false,
			Window:     w,
			Limit:      max,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: w.Width(),
		}
	}

	if err := l.store.Record(ctx, storeKey, now, w.Width()+expiryMargin); err != nil {
		return l.failOpen(key, w, max, resetAt, err)
	}

	return Result{
		Allowed:   true,
		Window:    w,
		Limit:     max,
		Remaining: max - int(count) - 1,
		ResetAt:   resetAt,
	}
}

// failOpen admits a call whose store operation failed, reporting full
// headroom so the caller's headers stay well formed.
func (l *Limiter) failOpen(key string, w Window, max int, resetAt time.Time, err error) Result {
	slog.Error("rate limit store unavailable, failing open",
		"key", key,
		"window", string(w),
		"tier", string(l.tier),
		"error", err)
	return Result{
		Allowed:   true,
		Window:    w,
		Limit:     max,
		Remaining: max,
		ResetAt:   resetAt,
	}
}

// storeKey namespaces a caller key per window, e.g. "ratelimit:u1:minute".
func (l *Limiter) storeKey(key string, w Window) string {
	return l.keyPrefix + key + ":" + string(w)
}
