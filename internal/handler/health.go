package handler

import (
	"net/http"
	"time"
)

// healthTimeLayout is ISO 8601 in UTC with millisecond precision,
// e.g. "2026-03-01T09:30:00.123Z".
const healthTimeLayout = "2006-01-02T15:04:05.000Z07:00"

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// HealthHandler reports liveness. It touches no dependency, so it answers
// even when GitHub or the database is down.
type HealthHandler struct {
	now func() time.Time
}

// NewHealthHandler creates a HealthHandler. A nil clock means time.Now.
func NewHealthHandler(now func() time.Time) *HealthHandler {
	if now == nil {
		now = time.Now
	}
	return &HealthHandler{now: now}
}

// HandleHealth returns {"status":"ok","time":"<now>"}.
//
// HTTP: GET /api/health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   h.now().UTC().Format(healthTimeLayout),
	})
}
