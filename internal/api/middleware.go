package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gatekeeper/internal/models"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				errorResp := models.NewErrorResponse("Internal server error", models.ErrorCodeInternalError)
				json.NewEncoder(w).Encode(errorResp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// adminAuthMiddleware requires a bearer token matching the configured admin
// token. An empty configured token disables the check (development only).
func adminAuthMiddleware(token string) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeMiddlewareError(w, http.StatusUnauthorized, "Authorization required", models.ErrorCodeUnauthorized)
				return
			}
			const prefix = "Bearer "
			if !strings.HasPrefix(authHeader, prefix) || authHeader[len(prefix):] != token {
				writeMiddlewareError(w, http.StatusUnauthorized, "Invalid admin token", models.ErrorCodeUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminGuardMiddleware throttles the admin endpoints with a single
// in-process token bucket. Admin calls hit the shared store directly, so a
// runaway script or dashboard refresh loop would otherwise translate into
// unbounded store traffic. One bucket for all admin callers is enough; this
// is load shedding, not fairness.
func adminGuardMiddleware(cfg models.AdminGuardConfig) mux.MiddlewareFunc {
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), cfg.Burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				w.Header().Set("Retry-After", "1")
				writeMiddlewareError(w, http.StatusTooManyRequests, "Too many admin requests", models.ErrorCodeRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// adminChain wraps an admin handler with bearer auth and, when enabled, the
// in-process guard. Built once so both admin routes share one guard bucket;
// applied per-route so admin endpoints can live on the same subrouter as the
// decision endpoints without swallowing its method-mismatch handling.
func adminChain(cfg models.SecurityConfig) func(http.Handler) http.Handler {
	auth := adminAuthMiddleware(cfg.AdminToken)
	var guard mux.MiddlewareFunc
	if cfg.AdminGuard.Enabled {
		guard = adminGuardMiddleware(cfg.AdminGuard)
	}
	return func(next http.Handler) http.Handler {
		if guard != nil {
			next = guard(next)
		}
		return auth(next)
	}
}

func writeMiddlewareError(w http.ResponseWriter, statusCode int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResp := models.NewErrorResponse(message, code)
	json.NewEncoder(w).Encode(errorResp)
}
