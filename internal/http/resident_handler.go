package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/service"

	"go.uber.org/zap"
)

// importMaxBodyBytes caps workbook uploads; the JSON cap is too small
// for a realistic RBI sheet.
const importMaxBodyBytes = 10 << 20

type ResidentHandler struct {
	residentService service.ResidentService
	exportService   service.ExportService
	maxBodyBytes    int64
	logger          *zap.Logger
}

func NewResidentHandler(
	residentService service.ResidentService,
	exportService service.ExportService,
	maxBodyBytes int64,
	logger *zap.Logger,
) *ResidentHandler {
	return &ResidentHandler{
		residentService: residentService,
		exportService:   exportService,
		maxBodyBytes:    maxBodyBytes,
		logger:          logger,
	}
}

// ServeCollection handles /residents.
func (h *ResidentHandler) ServeCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListResidents(w, r)
	case http.MethodPost:
		h.CreateResident(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ServeItem handles /residents/{id}, the migration sub-resource and the
// workbook endpoints.
func (h *ResidentHandler) ServeItem(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/residents/")

	switch {
	case rest == "export" && r.Method == http.MethodGet:
		h.ExportResidents(w, r)
	case rest == "import" && r.Method == http.MethodPost:
		h.ImportResidents(w, r)
	case rest == "import/template" && r.Method == http.MethodGet:
		h.ImportTemplate(w, r)
	case strings.HasSuffix(rest, "/migration"):
		residentID := strings.TrimSuffix(rest, "/migration")
		if residentID == "" || strings.Contains(residentID, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.GetMigration(w, r, residentID)
		case http.MethodPut:
			h.PutMigration(w, r, residentID)
		case http.MethodDelete:
			h.DeleteMigration(w, r, residentID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case rest != "" && !strings.Contains(rest, "/"):
		switch r.Method {
		case http.MethodGet:
			h.GetResident(w, r, rest)
		case http.MethodPut:
			h.UpdateResident(w, r, rest)
		case http.MethodDelete:
			h.DeleteResident(w, r, rest)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func listResidentsRequest(r *http.Request) service.ListResidentsRequest {
	q := r.URL.Query()
	return service.ListResidentsRequest{
		HouseholdID:      q.Get("household_id"),
		BarangayCode:     q.Get("barangay_code"),
		Sex:              q.Get("sex"),
		CivilStatus:      q.Get("civil_status"),
		EmploymentStatus: q.Get("employment_status"),
		OccupationCode:   q.Get("occupation_code"),
		IsVoter:          queryBool(r, "is_voter"),
		IsPWD:            queryBool(r, "is_pwd"),
		Search:           q.Get("search"),
		Page:             queryInt(r, "page", 1),
		PageSize:         queryInt(r, "page_size", 0),
	}
}

func (h *ResidentHandler) ListResidents(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	resp, err := h.residentService.ListResidents(r.Context(), identity.Scope, listResidentsRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resp)
}

func (h *ResidentHandler) CreateResident(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	var input service.ResidentInput
	if err := readBodyJSON(w, r, h.maxBodyBytes, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resident, err := h.residentService.CreateResident(r.Context(), identity.Scope, identity.UserID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusCreated, resident)
}

func (h *ResidentHandler) GetResident(w http.ResponseWriter, r *http.Request, residentID string) {
	identity, _ := IdentityFrom(r.Context())

	resident, err := h.residentService.GetResident(r.Context(), identity.Scope, residentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resident)
}

func (h *ResidentHandler) UpdateResident(w http.ResponseWriter, r *http.Request, residentID string) {
	identity, _ := IdentityFrom(r.Context())

	var input service.ResidentInput
	if err := readBodyJSON(w, r, h.maxBodyBytes, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	resident, err := h.residentService.UpdateResident(r.Context(), identity.Scope, identity.UserID, residentID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, resident)
}

func (h *ResidentHandler) DeleteResident(w http.ResponseWriter, r *http.Request, residentID string) {
	identity, _ := IdentityFrom(r.Context())

	if err := h.residentService.DeleteResident(r.Context(), identity.Scope, identity.UserID, residentID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"id": residentID, "status": "deleted"})
}

func (h *ResidentHandler) GetMigration(w http.ResponseWriter, r *http.Request, residentID string) {
	identity, _ := IdentityFrom(r.Context())

	migration, err := h.residentService.GetMigration(r.Context(), identity.Scope, residentID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, migration)
}

func (h *ResidentHandler) PutMigration(w http.ResponseWriter, r *http.Request, residentID string) {
	identity, _ := IdentityFrom(r.Context())

	var input service.MigrationInput
	if err := readBodyJSON(w, r, h.maxBodyBytes, &input); err != nil {
		writeError(w, h.logger, err)
		return
	}

	migration, err := h.residentService.PutMigration(r.Context(), identity.Scope, identity.UserID, residentID, input)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, migration)
}

func (h *ResidentHandler) DeleteMigration(w http.ResponseWriter, r *http.Request, residentID string) {
	identity, _ := IdentityFrom(r.Context())

	if err := h.residentService.DeleteMigration(r.Context(), identity.Scope, identity.UserID, residentID); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"resident_id": residentID, "status": "deleted"})
}

func (h *ResidentHandler) ExportResidents(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	workbook, filename, err := h.exportService.ExportResidents(r.Context(), identity.Scope, listResidentsRequest(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeWorkbook(w, filename, workbook)
}

func (h *ResidentHandler) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	workbook, err := h.exportService.ImportTemplate()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeWorkbook(w, "rbi_form_a_template.xlsx", workbook)
}

func (h *ResidentHandler) ImportResidents(w http.ResponseWriter, r *http.Request) {
	identity, _ := IdentityFrom(r.Context())

	body, err := readBodyBytes(w, r, importMaxBodyBytes)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if len(body) == 0 {
		writeError(w, h.logger, apperr.New(apperr.CodeValidation, "workbook body is required"))
		return
	}

	report, err := h.exportService.ImportResidents(r.Context(), identity.Scope, identity.UserID, body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeData(w, http.StatusOK, report)
}

func writeWorkbook(w http.ResponseWriter, filename string, workbook []byte) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(workbook)
}
