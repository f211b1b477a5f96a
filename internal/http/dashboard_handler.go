package httpapi

import (
	"net/http"

	"citizenly-registry/internal/service"

	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService, logger: logger}
}

func (h *DashboardHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	summary, err := h.dashboardService.GetSummary(r.Context(), identity.Scope)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, summary)
}
