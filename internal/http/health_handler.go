package httpapi

import (
	"database/sql"
	"net/http"

	"go.uber.org/zap"
)

// HealthHandler answers liveness probes. The DB check is advisory: the
// service can run repo-in-memory, so a nil db still reports ok.
type HealthHandler struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewHealthHandler(db *sql.DB, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if h.db != nil {
		if err := h.db.PingContext(r.Context()); err != nil {
			h.logger.Warn("Health check: database unreachable", zap.Error(err))
			status["database"] = "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, envelope{Data: status})
			return
		}
		status["database"] = "ok"
	}

	writeData(w, http.StatusOK, status)
}
