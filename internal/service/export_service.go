package service

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/repository"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// residentExportHeader lists the RBI Form A workbook columns in order.
var residentExportHeader = []string{
	"Last Name",
	"First Name",
	"Middle Name",
	"Extension",
	"Birthdate",
	"Age",
	"Birth Place",
	"Sex",
	"Civil Status",
	"Citizenship",
	"Education",
	"Employment Status",
	"Occupation Code",
	"Email",
	"Mobile Number",
	"Telephone",
	"PhilSys Last 4",
	"Household ID",
	"Barangay Code",
	"Labor Force",
	"OFW",
	"PWD",
	"Solo Parent",
	"Indigenous",
	"Voter",
}

const residentSheetName = "RBI Form A"

// ExportService produces and consumes RBI Form A workbooks. Import rows
// go through the same validation as single-record creation, so a bad
// row fails without stopping the batch.
type ExportService interface {
	ExportResidents(ctx context.Context, scope authz.Scope, req ListResidentsRequest) ([]byte, string, error)
	ImportTemplate() ([]byte, error)
	ImportResidents(ctx context.Context, scope authz.Scope, actorID string, data []byte) (*ImportReport, error)
}

type exportService struct {
	residentsRepo repository.ResidentsRepository
	residents     ResidentService
	logger        *zap.Logger
}

func NewExportService(residentsRepo repository.ResidentsRepository, residents ResidentService, logger *zap.Logger) ExportService {
	return &exportService{
		residentsRepo: residentsRepo,
		residents:     residents,
		logger:        logger,
	}
}

// ImportReport summarizes one workbook import.
type ImportReport struct {
	Total   int              `json:"total"`
	Created int              `json:"created"`
	Failed  int              `json:"failed"`
	Errors  []ImportRowError `json:"errors,omitempty"`
}

// ImportRowError points at a workbook row that was rejected.
type ImportRowError struct {
	Row     int    `json:"row"` // 1-based row number in the sheet
	Message string `json:"message"`
}

func (s *exportService) ExportResidents(ctx context.Context, scope authz.Scope, req ListResidentsRequest) ([]byte, string, error) {
	filters := repository.ResidentFilters{
		HouseholdID:      strings.TrimSpace(req.HouseholdID),
		BarangayCode:     strings.TrimSpace(req.BarangayCode),
		Sex:              strings.TrimSpace(req.Sex),
		CivilStatus:      strings.TrimSpace(req.CivilStatus),
		EmploymentStatus: strings.TrimSpace(req.EmploymentStatus),
		OccupationCode:   strings.TrimSpace(req.OccupationCode),
		IsVoter:          req.IsVoter,
		IsPWD:            req.IsPWD,
		Search:           strings.TrimSpace(req.Search),
	}

	var residents []*domain.Resident
	for page := 1; ; page++ {
		batch, total, err := s.residentsRepo.ListResidents(ctx, scope, filters, page, maxPageSize)
		if err != nil {
			return nil, "", fmt.Errorf("failed to list residents for export: %w", err)
		}
		residents = append(residents, batch...)
		if len(batch) == 0 || len(residents) >= total {
			break
		}
	}

	workbook, err := buildResidentWorkbook(residents)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("rbi_form_a_%s.xlsx", time.Now().Format("2006-01-02"))
	s.logger.Info("Exported residents workbook",
		zap.Int("count", len(residents)),
		zap.String("filename", filename),
	)
	return workbook, filename, nil
}

// ImportTemplate returns a workbook holding only the header row.
func (s *exportService) ImportTemplate() ([]byte, error) {
	return buildResidentWorkbook(nil)
}

func buildResidentWorkbook(residents []*domain.Resident) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo below needs the file open, so Close only on the error paths.

	index, err := f.NewSheet(residentSheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, header := range residentExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(residentSheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(residentSheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	now := time.Now()
	for rowIdx, resident := range residents {
		row := rowIdx + 2
		values := []any{
			resident.LastName,
			resident.FirstName,
			deref(resident.MiddleName),
			deref(resident.ExtensionName),
			resident.Birthdate.Format(dateLayout),
			resident.Age(now),
			deref(resident.BirthPlace),
			resident.Sex,
			resident.CivilStatus,
			resident.Citizenship,
			deref(resident.EducationAttainment),
			deref(resident.EmploymentStatus),
			deref(resident.OccupationCode),
			deref(resident.Email),
			deref(resident.MobileNumber),
			deref(resident.TelephoneNumber),
			deref(resident.PhilsysLast4),
			deref(resident.HouseholdID),
			resident.BarangayCode,
			yesNo(resident.IsLaborForce),
			yesNo(resident.IsOFW),
			yesNo(resident.IsPWD),
			yesNo(resident.IsSoloParent),
			yesNo(resident.IsIndigenous),
			yesNo(resident.IsVoter),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, row)
			if err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to convert coordinates: %w", err)
			}
			if value == nil || value == "" {
				continue
			}
			if err := f.SetCellValue(residentSheetName, cell, value); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SetPanes(residentSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze header row: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func parseYesNo(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}

func (s *exportService) ImportResidents(ctx context.Context, scope authz.Scope, actorID string, data []byte) (*ImportReport, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, apperrInvalidWorkbook(err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, apperrInvalidWorkbook(fmt.Errorf("workbook has no sheets"))
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, apperrInvalidWorkbook(err)
	}

	report := &ImportReport{}
	if len(rows) < 2 {
		return report, nil
	}

	headerMap := make(map[string]int)
	for i, header := range rows[0] {
		headerMap[strings.TrimSpace(header)] = i
	}

	cell := func(row []string, header string) string {
		idx, ok := headerMap[header]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	for rowIdx := 1; rowIdx < len(rows); rowIdx++ {
		row := rows[rowIdx]
		if isBlankRow(row) {
			continue
		}
		report.Total++

		input := ResidentInput{
			LastName:            cell(row, "Last Name"),
			FirstName:           cell(row, "First Name"),
			MiddleName:          cell(row, "Middle Name"),
			ExtensionName:       cell(row, "Extension"),
			Birthdate:           cell(row, "Birthdate"),
			BirthPlace:          cell(row, "Birth Place"),
			Sex:                 cell(row, "Sex"),
			CivilStatus:         cell(row, "Civil Status"),
			Citizenship:         cell(row, "Citizenship"),
			EducationAttainment: cell(row, "Education"),
			EmploymentStatus:    cell(row, "Employment Status"),
			OccupationCode:      cell(row, "Occupation Code"),
			Email:               cell(row, "Email"),
			MobileNumber:        cell(row, "Mobile Number"),
			TelephoneNumber:     cell(row, "Telephone"),
			PhilsysLast4:        cell(row, "PhilSys Last 4"),
			HouseholdID:         cell(row, "Household ID"),
			BarangayCode:        cell(row, "Barangay Code"),
			IsLaborForce:        parseYesNo(cell(row, "Labor Force")),
			IsOFW:               parseYesNo(cell(row, "OFW")),
			IsPWD:               parseYesNo(cell(row, "PWD")),
			IsSoloParent:        parseYesNo(cell(row, "Solo Parent")),
			IsIndigenous:        parseYesNo(cell(row, "Indigenous")),
			IsVoter:             parseYesNo(cell(row, "Voter")),
		}

		if _, err := s.residents.CreateResident(ctx, scope, actorID, input); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, ImportRowError{
				Row:     rowIdx + 1,
				Message: err.Error(),
			})
			continue
		}
		report.Created++
	}

	s.logger.Info("Imported residents workbook",
		zap.Int("total", report.Total),
		zap.Int("created", report.Created),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func apperrInvalidWorkbook(err error) error {
	return apperr.Wrap(err, apperr.CodeValidation, "could not read workbook")
}
