package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/devdash/internal/dashboard"
)

// DashboardHandler serves the dashboard payload.
type DashboardHandler struct {
	provider dashboard.Provider
	logger   *slog.Logger
}

func NewDashboardHandler(provider dashboard.Provider, logger *slog.Logger) *DashboardHandler {
	return &DashboardHandler{provider: provider, logger: logger}
}

// HandleDashboard returns the dashboard JSON.
//
// HTTP: GET /api/dashboard
//
// No authentication: the body does not depend on who asks or on any query
// parameter.
func (h *DashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.provider.Dashboard(r.Context())
	if err != nil {
		h.logger.Error("loading dashboard failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}
