// Package api exposes the admission-control core over HTTP: decision
// endpoints that consume budget, and administrative endpoints for inspecting
// and resetting a key's state.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"gatekeeper/internal/models"
	"gatekeeper/internal/ratelimit"
	"gatekeeper/internal/version"

	"github.com/gorilla/mux"
)

// Handlers contains HTTP handlers for the gatekeeper API.
type Handlers struct {
	limiters    map[ratelimit.Tier]*ratelimit.Limiter
	defaultTier ratelimit.Tier
	storeType   string
	startedAt   time.Time
}

// NewHandlers creates a handlers instance over one limiter per tier.
func NewHandlers(limiters map[ratelimit.Tier]*ratelimit.Limiter, defaultTier ratelimit.Tier, storeType string) *Handlers {
	return &Handlers{
		limiters:    limiters,
		defaultTier: defaultTier,
		storeType:   storeType,
		startedAt:   time.Now(),
	}
}

// Consume handles admission decisions for one request's worth of budget.
// POST /api/v1/limits/{key}/consume?tier=free
func (h *Handlers) Consume(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	limiter, ok := h.limiterFor(w, r)
	if !ok {
		return
	}

	result, err := limiter.Consume(r.Context(), key)
	h.setRateLimitHeaders(w, result)

	var exceeded *ratelimit.LimitExceededError
	if errors.As(err, &exceeded) {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", exceeded.RetryAfterSeconds()))
		h.writeJSONResponse(w, http.StatusTooManyRequests, decisionResponse(result))
		return
	}

	h.writeJSONResponse(w, http.StatusOK, decisionResponse(result))
}

// Check handles a single-window decision without touching the other windows.
// POST /api/v1/limits/{key}/check?window=minute&tier=free
func (h *Handlers) Check(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	window, err := ratelimit.ParseWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, err.Error())
		return
	}

	limiter, ok := h.limiterFor(w, r)
	if !ok {
		return
	}

	result := limiter.CheckLimit(r.Context(), key, window)
	h.setRateLimitHeaders(w, result)
	h.writeJSONResponse(w, http.StatusOK, decisionResponse(result))
}

// Usage reports a key's current per-window counts without consuming budget.
// GET /api/v1/limits/{key}/usage?tier=free
func (h *Handlers) Usage(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	limiter, ok := h.limiterFor(w, r)
	if !ok {
		return
	}

	usage, err := limiter.Usage(r.Context(), key)
	if err != nil {
		// Administrative path: a store failure surfaces instead of failing open.
		h.writeErrorResponse(w, http.StatusServiceUnavailable, models.ErrorCodeStoreUnavailable, err.Error())
		return
	}

	h.writeJSONResponse(w, http.StatusOK, &models.UsageResponse{
		Key:    key,
		Tier:   string(limiter.Tier()),
		Minute: models.WindowUsageResponse{Count: usage.Minute.Count, Limit: usage.Minute.Limit},
		Hour:   models.WindowUsageResponse{Count: usage.Hour.Count, Limit: usage.Hour.Limit},
		Day:    models.WindowUsageResponse{Count: usage.Day.Count, Limit: usage.Day.Limit},
	})
}

// Reset deletes all window state for a key, unblocking it immediately.
// POST /api/v1/limits/{key}/reset
func (h *Handlers) Reset(w http.ResponseWriter, r *http.Request) {
	key := mux.Vars(r)["key"]

	limiter, ok := h.limiterFor(w, r)
	if !ok {
		return
	}

	if err := limiter.Reset(r.Context(), key); err != nil {
		h.writeErrorResponse(w, http.StatusServiceUnavailable, models.ErrorCodeStoreUnavailable, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck reports service liveness.
// GET /health
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSONResponse(w, http.StatusOK, &models.HealthCheckResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   version.GetInfo().Version,
		Store:     h.storeType,
	})
}

// limiterFor resolves the limiter for the request's tier query parameter,
// falling back to the default tier. Writes a 400 and returns false on an
// unknown tier.
func (h *Handlers) limiterFor(w http.ResponseWriter, r *http.Request) (*ratelimit.Limiter, bool) {
	name := r.URL.Query().Get("tier")
	if name == "" {
		return h.limiters[h.defaultTier], true
	}

	tier, err := ratelimit.ParseTier(name)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, models.ErrorCodeBadRequest, err.Error())
		return nil, false
	}
	return h.limiters[tier], true
}

func (h *Handlers) setRateLimitHeaders(w http.ResponseWriter, result ratelimit.Result) {
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", result.Limit))
	w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
	w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetAt.Unix()))
}

func decisionResponse(result ratelimit.Result) *models.DecisionResponse {
	resp := &models.DecisionResponse{
		Allowed:   result.Allowed,
		Window:    string(result.Window),
		Limit:     result.Limit,
		Remaining: result.Remaining,
		ResetAt:   result.ResetAt,
	}
	if !result.Allowed {
		resp.RetryAfterSeconds = int((result.RetryAfter + time.Second - 1) / time.Second)
	}
	return resp
}

// writeJSONResponse writes a JSON response with the given status code
func (h *Handlers) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeErrorResponse writes a JSON error response with the given status code
func (h *Handlers) writeErrorResponse(w http.ResponseWriter, statusCode int, errorCode string, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	errorResp := models.NewErrorResponse(message, errorCode)
	json.NewEncoder(w).Encode(errorResp)
}
