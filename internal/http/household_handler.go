package httpapi

import (
	"net/http"
	"strings"

	"citizenly-registry/internal/service"

	"go.uber.org/zap"
)

type HouseholdHandler struct {
	householdService service.HouseholdService
	maxBodyBytes     int64
	logger           *zap.Logger
}

func NewHouseholdHandler(householdService service.HouseholdService, maxBodyBytes int64, logger *zap.Logger) *HouseholdHandler {
	return &HouseholdHandler{householdService: householdService, maxBodyBytes: maxBodyBytes, logger: logger}
}

// ServeCollection handles /households.
func (h *HouseholdHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListHouseholds(w, r)
	case http.MethodPost:
		h.CreateHousehold(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ServeItem handles /households/{id} and its sub-resources.
func (h *HouseholdHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/households/")

	switch {
	case strings.HasSuffix(rest, "/residents") && r.Method == http.MethodGet:
		householdID := strings.TrimSuffix(rest, "/residents")
		if householdID == "" || strings.Contains(householdID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.ListMembers(w, r, householdID)
	case strings.HasSuffix(rest, "/head") && r.Method == http.MethodPut:
		householdID := strings.TrimSuffix(rest, "/head")
		if householdID == "" || strings.Contains(householdID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.SetHead(w, r, householdID)
	case rest != "" && !strings.Contains(rest, "/"):
		switch r.Method {
		case http.MethodGet:
			h.GetHousehold(w, r, rest)
		case http.MethodPut:
			h.UpdateHousehold(w, r, rest)
		case http.MethodDelete:
			h.DeleteHousehold(w, r, rest)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *HouseholdHandler) ListHouseholds(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())
	q := r.URL.Query()

	resp, err := h.householdService.ListHouseholds(r.Context(), identity.Scope, service.ListHouseholdsRequest{
		BarangayCode:  q.Get("barangay_code"),
		HouseholdType: q.Get("household_type"),
		TenureStatus:  q.Get("tenure_status"),
		Search:        q.Get("search"),
		Page:          queryInt(r, "page", 1),
		PageSize:      queryInt(r, "page_size", 0),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *HouseholdHandler) CreateHousehold(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var input service.HouseholdInput
	if err := readBodyJSON(w, r, h.maxBodyBytes, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	household, err := h.householdService.CreateHousehold(r.Context(), identity.Scope, identity.UserID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, household)
}

func (h *HouseholdHandler) GetHousehold(w http.ResponseWriter, r *http.Request, householdID string) {
	identity, _ := IdentityFrom(r.Context())

	household, err := h.householdService.GetHousehold(r.Context(), identity.Scope, householdID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, household)
}

func (h *HouseholdHandler) UpdateHousehold(w http.ResponseWriter, r *http.Request, householdID string) {
	identity, _ := IdentityFrom(r.Context())

	var input service.HouseholdInput
	if err := readBodyJSON(w, r, h.maxBodyBytes, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	household, err := h.householdService.UpdateHousehold(r.Context(), identity.Scope, identity.UserID, householdID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, household)
}

func (h *HouseholdHandler) DeleteHousehold(w http.ResponseWriter, r *http.Request, householdID string) {
	identity, _ := IdentityFrom(r.Context())

	if err := h.householdService.DeleteHousehold(r.Context(), identity.Scope, identity.UserID, householdID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": householdID, "status": "deleted"})
}

func (h *HouseholdHandler) ListMembers(w http.ResponseWriter, r *http.Request, householdID string) {
	identity, _ := IdentityFrom(r.Context())

	members, err := h.householdService.ListMembers(r.Context(), identity.Scope, householdID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, members)
}

func (h *HouseholdHandler) SetHead(w http.ResponseWriter, r *http.Request, householdID string) {
	identity, _ := IdentityFrom(r.Context())

	var input struct {
		ResidentID string `json:"resident_id"`
	}
	if err := readBodyJSON(w, r, h.maxBodyBytes, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	household, err := h.householdService.SetHead(r.Context(), identity.Scope, identity.UserID, householdID, input.ResidentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, household)
}
