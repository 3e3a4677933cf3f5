package ratelimit

import (
	"fmt"
	"time"
)

// Window is one of the three sliding-window granularities a tier is
// evaluated against.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// windows lists the granularities in evaluation order, tightest first.
var windows = [3]Window{WindowMinute, WindowHour, WindowDay}

// expiryMargin is added to a window's width when setting the store key TTL,
// so idle keys self-clean shortly after their last entry leaves the window.
const expiryMargin = 60 * time.Second

// Width returns the window's span.
func (w Window) Width() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	}
	panic(fmt.Sprintf("ratelimit: unknown window %q", w))
}

// ParseWindow validates a window name from request input.
func ParseWindow(name string) (Window, error) {
	switch Window(name) {
	case WindowMinute, WindowHour, WindowDay:
		return Window(name), nil
	default:
		return "", fmt.Errorf("unknown window: %s", name)
	}
}

// limit returns the tier ceiling for w. The burst allowance applies to the
// minute window only.
func (w Window) limit(limits TierLimits) int {
	switch w {
	case WindowMinute:
		return limits.RequestsPerMinute + limits.BurstAllowance
	case WindowHour:
		return limits.RequestsPerHour
	default:
		return limits.RequestsPerDay
	}
}
