package httpapi

import (
	"net/http"
	"strings"

	"citizenly-registry/internal/service"

	"go.uber.org/zap"
)

type OccupationHandler struct {
	occupationService service.OccupationService
	logger            *zap.Logger
}

func NewOccupationHandler(occupationService service.OccupationService, logger *zap.Logger) *OccupationHandler {
	return &OccupationHandler{occupationService: occupationService, logger: logger}
}

func (h *OccupationHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.occupationService.SearchOccupations(r.Context(), service.SearchOccupationsRequest{
		Search:   q.Get("search"),
		Level:    q.Get("level"),
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 0),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

// ServeItem handles /occupations/{code} and /occupations/{code}/children.
func (h *OccupationHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/occupations/")

	switch {
	case strings.HasSuffix(rest, "/children"):
		code := strings.TrimSuffix(rest, "/children")
		if code == "" || strings.Contains(code, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		children, err := h.occupationService.ListChildren(r.Context(), code)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeData(w, http.StatusOK, children)
	case rest != "" && !strings.Contains(rest, "/"):
		occupation, err := h.occupationService.GetOccupation(r.Context(), rest)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		writeData(w, http.StatusOK, occupation)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}
