package api

import (
	"encoding/json"
	"net/http"

	"gatekeeper/internal/models"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/health" &&
					r.URL.Path != "/api/v1/health" &&
					r.URL.Path != "/metrics"
			}),
		))
	}
}

// WithRateLimiter adds rate limiting middleware to the router.
func WithRateLimiter(middleware func(http.Handler) http.Handler) RouteOption {
	return func(r *mux.Router) {
		r.Use(middleware)
	}
}

// SetupRoutes configures the HTTP routes for the API
func SetupRoutes(handlers *Handlers, config *models.Config, opts ...RouteOption) *mux.Router {
	router := mux.NewRouter()

	for _, opt := range opts {
		opt(router)
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// All limit routes share one subrouter: a second subrouter on the same
	// prefix would turn a method mismatch into a 404 instead of reaching the
	// MethodNotAllowedHandler.
	limits := api.PathPrefix("/limits").Subrouter()

	// Decision endpoints - the hot path callers hit once per inbound request.
	limits.HandleFunc("/{key}/consume", handlers.Consume).Methods("POST")
	limits.HandleFunc("/{key}/check", handlers.Check).Methods("POST")

	// Admin endpoints - authenticated, throttled in-process, and never
	// fail-open: operators need to know when the store is unreachable.
	admin := adminChain(config.Security)
	limits.Handle("/{key}/usage", admin(http.HandlerFunc(handlers.Usage))).Methods("GET")
	limits.Handle("/{key}/reset", admin(http.HandlerFunc(handlers.Reset))).Methods("POST")

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	router.HandleFunc("/api/v1/health", handlers.HealthCheck).Methods("GET")

	router.Use(loggingMiddleware)
	router.Use(recoveryMiddleware)

	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMethodNotAllowed)
		errorResp := models.NewErrorResponse("Method not allowed", models.ErrorCodeMethodNotAllowed)
		json.NewEncoder(w).Encode(errorResp)
	})

	return router
}
