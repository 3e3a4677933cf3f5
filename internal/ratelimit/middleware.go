package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"gatekeeper/internal/models"
)

type contextKey int

const clientKey contextKey = 0

// WithClient marks the request context as belonging to an authenticated
// client. The middleware keys authenticated traffic by this name instead of
// the caller's IP.
func WithClient(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, clientKey, name)
}

// ClientFrom returns the authenticated client name, if any.
func ClientFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(clientKey).(string)
	return name, ok && name != ""
}

// Middleware returns HTTP middleware that enforces rate limits. It takes two
// limiters: one for anonymous requests (keyed by IP) and one for
// authenticated requests (keyed by client name). Every response carries the
// standard X-RateLimit-* headers; denials answer 429 with a Retry-After
// header and a JSON error body.
func Middleware(anonymous, authenticated *Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, limiter := resolveKeyAndLimiter(r, anonymous, authenticated)

			result, err := limiter.Consume(r.Context(), key)

			// Always set rate limit headers
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))

			var exceeded *LimitExceededError
			if errors.As(err, &exceeded) {
				retryAfterSecs := exceeded.RetryAfterSeconds()
				w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSecs))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)

				errorResp := models.NewErrorResponse("Rate limit exceeded", models.ErrorCodeRateLimited)
				json.NewEncoder(w).Encode(errorResp)

				slog.Warn("Rate limit exceeded",
					"key", key,
					"window", string(exceeded.Window),
					"limit", exceeded.Limit,
					"retry_after", retryAfterSecs,
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// resolveKeyAndLimiter determines the rate limit key and which limiter to use
// based on the request's authentication context.
func resolveKeyAndLimiter(r *http.Request, anonymous, authenticated *Limiter) (string, *Limiter) {
	if name, ok := ClientFrom(r.Context()); ok {
		return "client:" + name, authenticated
	}
	return "ip:" + clientIP(r), anonymous
}

// clientIP extracts the client IP from the request, checking proxy headers.
// The RemoteAddr fallback strips the source port so a caller's budget is
// keyed by address, not by TCP connection.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		if len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
