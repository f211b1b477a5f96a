package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/metrics"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ResidentService implements the RBI resident registry: the records of
// barangay inhabitants, their household membership and their migration
// history.
type ResidentService interface {
	ListResidents(ctx context.Context, scope authz.Scope, req ListResidentsRequest) (*ListResidentsResponse, error)
	GetResident(ctx context.Context, scope authz.Scope, residentID string) (*ResidentDTO, error)
	CreateResident(ctx context.Context, scope authz.Scope, actorID string, input ResidentInput) (*ResidentDTO, error)
	UpdateResident(ctx context.Context, scope authz.Scope, actorID string, residentID string, input ResidentInput) (*ResidentDTO, error)
	DeleteResident(ctx context.Context, scope authz.Scope, actorID string, residentID string) error

	GetMigration(ctx context.Context, scope authz.Scope, residentID string) (*MigrationDTO, error)
	PutMigration(ctx context.Context, scope authz.Scope, actorID string, residentID string, input MigrationInput) (*MigrationDTO, error)
	DeleteMigration(ctx context.Context, scope authz.Scope, actorID string, residentID string) error
}

type residentService struct {
	residentsRepo  repository.ResidentsRepository
	householdsRepo repository.HouseholdsRepository
	psocRepo       repository.PSOCRepository
	psgcRepo       repository.PSGCRepository
	resolver       geo.Resolver
	audit          store.AuditPublisher
	logger         *zap.Logger
}

func NewResidentService(
	residentsRepo repository.ResidentsRepository,
	householdsRepo repository.HouseholdsRepository,
	psocRepo repository.PSOCRepository,
	psgcRepo repository.PSGCRepository,
	resolver geo.Resolver,
	audit store.AuditPublisher,
	logger *zap.Logger,
) ResidentService {
	return &residentService{
		residentsRepo:  residentsRepo,
		householdsRepo: householdsRepo,
		psocRepo:       psocRepo,
		psgcRepo:       psgcRepo,
		resolver:       resolver,
		audit:          audit,
		logger:         logger,
	}
}

const (
	dateLayout      = "2006-01-02"
	defaultPageSize = 20
	maxPageSize     = 100
)

// earliestBirthdate bounds data-entry typos like year 190 or 1099.
var earliestBirthdate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

var philsysLast4Pattern = regexp.MustCompile(`^\d{4}$`)

var civilStatuses = map[string]bool{
	domain.CivilStatusSingle:    true,
	domain.CivilStatusMarried:   true,
	domain.CivilStatusWidowed:   true,
	domain.CivilStatusSeparated: true,
	domain.CivilStatusDivorced:  true,
	domain.CivilStatusAnnulled:  true,
	domain.CivilStatusLiveIn:    true,
}

var employmentStatuses = map[string]bool{
	domain.EmploymentEmployed:     true,
	domain.EmploymentUnemployed:   true,
	domain.EmploymentSelfEmployed: true,
	domain.EmploymentStudent:      true,
	domain.EmploymentRetired:      true,
	domain.EmploymentHomemaker:    true,
	domain.EmploymentNotInLabor:   true,
}

// ResidentInput is the full mutable state of a resident. Update replaces
// the record with this shape, so leaving an optional field empty clears
// it.
type ResidentInput struct {
	FirstName     string `json:"first_name"`
	MiddleName    string `json:"middle_name"`
	LastName      string `json:"last_name"`
	ExtensionName string `json:"extension_name"`

	Birthdate   string `json:"birthdate"` // YYYY-MM-DD
	BirthPlace  string `json:"birth_place"`
	Sex         string `json:"sex"`
	CivilStatus string `json:"civil_status"`
	Citizenship string `json:"citizenship"`

	EducationAttainment string `json:"education_attainment"`
	EmploymentStatus    string `json:"employment_status"`
	OccupationCode      string `json:"occupation_code"`

	Email           string `json:"email"`
	MobileNumber    string `json:"mobile_number"`
	TelephoneNumber string `json:"telephone_number"`
	PhilsysLast4    string `json:"philsys_last4"`

	HouseholdID  string `json:"household_id"`
	BarangayCode string `json:"barangay_code"`

	IsLaborForce bool `json:"is_labor_force"`
	IsOFW        bool `json:"is_ofw"`
	IsPWD        bool `json:"is_pwd"`
	IsSoloParent bool `json:"is_solo_parent"`
	IsIndigenous bool `json:"is_indigenous"`
	IsVoter      bool `json:"is_voter"`
}

// ResidentDTO is the API shape of one resident. Age and senior status
// are derived, never stored.
type ResidentDTO struct {
	ID string `json:"id"`

	FirstName     string  `json:"first_name"`
	MiddleName    *string `json:"middle_name,omitempty"`
	LastName      string  `json:"last_name"`
	ExtensionName *string `json:"extension_name,omitempty"`

	Birthdate   string  `json:"birthdate"`
	BirthPlace  *string `json:"birth_place,omitempty"`
	Sex         string  `json:"sex"`
	CivilStatus string  `json:"civil_status"`
	Citizenship string  `json:"citizenship"`
	Age         int     `json:"age"`
	IsSenior    bool    `json:"is_senior"`

	EducationAttainment *string `json:"education_attainment,omitempty"`
	EmploymentStatus    *string `json:"employment_status,omitempty"`
	OccupationCode      *string `json:"occupation_code,omitempty"`

	Email           *string `json:"email,omitempty"`
	MobileNumber    *string `json:"mobile_number,omitempty"`
	TelephoneNumber *string `json:"telephone_number,omitempty"`
	PhilsysLast4    *string `json:"philsys_last4,omitempty"`

	HouseholdID *string `json:"household_id,omitempty"`

	BarangayCode string `json:"barangay_code"`
	CityCode     string `json:"city_code"`
	ProvinceCode string `json:"province_code"`
	RegionCode   string `json:"region_code"`

	IsLaborForce bool `json:"is_labor_force"`
	IsOFW        bool `json:"is_ofw"`
	IsPWD        bool `json:"is_pwd"`
	IsSoloParent bool `json:"is_solo_parent"`
	IsIndigenous bool `json:"is_indigenous"`
	IsVoter      bool `json:"is_voter"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toResidentDTO(resident *domain.Resident) *ResidentDTO {
	now := time.Now()
	return &ResidentDTO{
		ID:                  resident.ID,
		FirstName:           resident.FirstName,
		MiddleName:          resident.MiddleName,
		LastName:            resident.LastName,
		ExtensionName:       resident.ExtensionName,
		Birthdate:           resident.Birthdate.Format(dateLayout),
		BirthPlace:          resident.BirthPlace,
		Sex:                 resident.Sex,
		CivilStatus:         resident.CivilStatus,
		Citizenship:         resident.Citizenship,
		Age:                 resident.Age(now),
		IsSenior:            resident.IsSenior(now),
		EducationAttainment: resident.EducationAttainment,
		EmploymentStatus:    resident.EmploymentStatus,
		OccupationCode:      resident.OccupationCode,
		Email:               resident.Email,
		MobileNumber:        resident.MobileNumber,
		TelephoneNumber:     resident.TelephoneNumber,
		PhilsysLast4:        resident.PhilsysLast4,
		HouseholdID:         resident.HouseholdID,
		BarangayCode:        resident.BarangayCode,
		CityCode:            resident.CityCode,
		ProvinceCode:        resident.ProvinceCode,
		RegionCode:          resident.RegionCode,
		IsLaborForce:        resident.IsLaborForce,
		IsOFW:               resident.IsOFW,
		IsPWD:               resident.IsPWD,
		IsSoloParent:        resident.IsSoloParent,
		IsIndigenous:        resident.IsIndigenous,
		IsVoter:             resident.IsVoter,
		CreatedAt:           resident.CreatedAt,
		UpdatedAt:           resident.UpdatedAt,
	}
}

type ListResidentsRequest struct {
	HouseholdID      string
	BarangayCode     string
	Sex              string
	CivilStatus      string
	EmploymentStatus string
	OccupationCode   string
	IsVoter          *bool
	IsPWD            *bool
	Search           string

	Page     int
	PageSize int
}

type ListResidentsResponse struct {
	Items    []*ResidentDTO `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func (s *residentService) ListResidents(ctx context.Context, scope authz.Scope, req ListResidentsRequest) (*ListResidentsResponse, error) {
	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

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

	residents, total, err := s.residentsRepo.ListResidents(ctx, scope, filters, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list residents: %w", err)
	}

	items := make([]*ResidentDTO, 0, len(residents))
	for _, resident := range residents {
		items = append(items, toResidentDTO(resident))
	}

	return &ListResidentsResponse{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// checkResourceID rejects malformed path ids before they reach a
// UUID-typed query parameter, where Postgres would raise a coercion
// error instead of finding nothing.
func checkResourceID(id, resource string) error {
	if uuid.Validate(id) != nil {
		return apperr.New(apperr.CodeNotFound, resource+" not found")
	}
	return nil
}

func (s *residentService) GetResident(ctx context.Context, scope authz.Scope, residentID string) (*ResidentDTO, error) {
	if err := checkResourceID(residentID, "resident"); err != nil {
		return nil, err
	}
	resident, err := s.residentsRepo.GetResident(ctx, scope, residentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "resident not found")
		}
		return nil, fmt.Errorf("failed to get resident: %w", err)
	}
	return toResidentDTO(resident), nil
}

// validateResidentInput checks everything that does not need a lookup.
func validateResidentInput(input *ResidentInput) ([]apperr.FieldError, time.Time) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.MiddleName = strings.TrimSpace(input.MiddleName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.ExtensionName = strings.TrimSpace(input.ExtensionName)
	input.BirthPlace = strings.TrimSpace(input.BirthPlace)
	input.Sex = strings.ToLower(strings.TrimSpace(input.Sex))
	input.CivilStatus = strings.ToLower(strings.TrimSpace(input.CivilStatus))
	input.Citizenship = strings.TrimSpace(input.Citizenship)
	input.EducationAttainment = strings.TrimSpace(input.EducationAttainment)
	input.EmploymentStatus = strings.ToLower(strings.TrimSpace(input.EmploymentStatus))
	input.OccupationCode = strings.TrimSpace(input.OccupationCode)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.MobileNumber = strings.TrimSpace(input.MobileNumber)
	input.TelephoneNumber = strings.TrimSpace(input.TelephoneNumber)
	input.PhilsysLast4 = strings.TrimSpace(input.PhilsysLast4)
	input.HouseholdID = strings.TrimSpace(input.HouseholdID)
	input.BarangayCode = strings.TrimSpace(input.BarangayCode)

	fields := []apperr.FieldError{}
	var birthdate time.Time

	if input.FirstName == "" {
		fields = append(fields, apperr.FieldError{Field: "first_name", Message: "first name is required"})
	}
	if input.LastName == "" {
		fields = append(fields, apperr.FieldError{Field: "last_name", Message: "last name is required"})
	}

	if input.Birthdate == "" {
		fields = append(fields, apperr.FieldError{Field: "birthdate", Message: "birthdate is required"})
	} else {
		parsed, err := time.Parse(dateLayout, input.Birthdate)
		switch {
		case err != nil:
			fields = append(fields, apperr.FieldError{Field: "birthdate", Message: "birthdate must be YYYY-MM-DD"})
		case parsed.Before(earliestBirthdate):
			fields = append(fields, apperr.FieldError{Field: "birthdate", Message: "birthdate cannot be before 1900-01-01"})
		case parsed.After(time.Now()):
			fields = append(fields, apperr.FieldError{Field: "birthdate", Message: "birthdate cannot be in the future"})
		default:
			birthdate = parsed
		}
	}

	if input.Sex != domain.SexMale && input.Sex != domain.SexFemale {
		fields = append(fields, apperr.FieldError{Field: "sex", Message: "sex must be male or female"})
	}
	if input.CivilStatus != "" && !civilStatuses[input.CivilStatus] {
		fields = append(fields, apperr.FieldError{Field: "civil_status", Message: "unknown civil status"})
	}
	if input.EmploymentStatus != "" && !employmentStatuses[input.EmploymentStatus] {
		fields = append(fields, apperr.FieldError{Field: "employment_status", Message: "unknown employment status"})
	}
	if input.Email != "" && !emailPattern.MatchString(input.Email) {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "invalid email address"})
	}
	if input.MobileNumber != "" && !mobilePattern.MatchString(input.MobileNumber) {
		fields = append(fields, apperr.FieldError{Field: "mobile_number", Message: "mobile number must match 09XXXXXXXXX or +639XXXXXXXXX"})
	}
	if input.PhilsysLast4 != "" && !philsysLast4Pattern.MatchString(input.PhilsysLast4) {
		fields = append(fields, apperr.FieldError{Field: "philsys_last4", Message: "must be exactly the last 4 digits"})
	}
	if input.BarangayCode == "" {
		fields = append(fields, apperr.FieldError{Field: "barangay_code", Message: "barangay code is required"})
	}

	return fields, birthdate
}

// resolveResidentReferences runs the lookups behind an input: geographic
// chain, occupation and household. The returned model has every
// resolver-written column filled.
func (s *residentService) resolveResidentReferences(ctx context.Context, scope authz.Scope, input *ResidentInput, birthdate time.Time) (*domain.Resident, error) {
	ancestry, err := s.resolver.Resolve(ctx, input.BarangayCode)
	if err != nil {
		if errors.Is(err, repository.ErrBrokenGeoChain) {
			s.logger.Error("Resident write blocked by inconsistent geographic reference data",
				zap.String("barangay_code", input.BarangayCode),
				zap.Error(err),
			)
			return nil, apperr.Wrap(err, apperr.CodeInternal, "geographic reference data is inconsistent")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Validation(apperr.FieldError{Field: "barangay_code", Message: "unknown barangay code"})
		}
		return nil, fmt.Errorf("failed to resolve barangay: %w", err)
	}

	// writes stay inside the caller's area
	if !scope.Allows(authz.GeoCodes{
		BarangayCode: ancestry.BarangayCode,
		CityCode:     ancestry.CityCode,
		ProvinceCode: ancestry.ProvinceCode,
		RegionCode:   ancestry.RegionCode,
	}) {
		return nil, apperr.New(apperr.CodeForbidden, "barangay is outside your assigned area")
	}

	if input.OccupationCode != "" {
		if _, err := s.psocRepo.GetOccupation(ctx, input.OccupationCode); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.Validation(apperr.FieldError{Field: "occupation_code", Message: "unknown occupation code"})
			}
			return nil, fmt.Errorf("failed to check occupation: %w", err)
		}
	}

	if input.HouseholdID != "" {
		if uuid.Validate(input.HouseholdID) != nil {
			return nil, apperr.Validation(apperr.FieldError{Field: "household_id", Message: "unknown household"})
		}
		household, err := s.householdsRepo.GetHousehold(ctx, scope, input.HouseholdID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.Validation(apperr.FieldError{Field: "household_id", Message: "unknown household"})
			}
			return nil, fmt.Errorf("failed to check household: %w", err)
		}
		if household.BarangayCode != ancestry.BarangayCode {
			return nil, apperr.Validation(apperr.FieldError{Field: "household_id", Message: "household is in a different barangay"})
		}
	}

	resident := &domain.Resident{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Birthdate:    birthdate,
		Sex:          input.Sex,
		CivilStatus:  input.CivilStatus,
		Citizenship:  input.Citizenship,
		BarangayCode: ancestry.BarangayCode,
		CityCode:     ancestry.CityCode,
		ProvinceCode: ancestry.ProvinceCode,
		RegionCode:   ancestry.RegionCode,
		IsLaborForce: input.IsLaborForce,
		IsOFW:        input.IsOFW,
		IsPWD:        input.IsPWD,
		IsSoloParent: input.IsSoloParent,
		IsIndigenous: input.IsIndigenous,
		IsVoter:      input.IsVoter,
	}
	if resident.Citizenship == "" {
		resident.Citizenship = "Filipino"
	}
	if resident.CivilStatus == "" {
		resident.CivilStatus = domain.CivilStatusSingle
	}
	setOptional(&resident.MiddleName, input.MiddleName)
	setOptional(&resident.ExtensionName, input.ExtensionName)
	setOptional(&resident.BirthPlace, input.BirthPlace)
	setOptional(&resident.EducationAttainment, input.EducationAttainment)
	setOptional(&resident.EmploymentStatus, input.EmploymentStatus)
	setOptional(&resident.OccupationCode, input.OccupationCode)
	setOptional(&resident.Email, input.Email)
	setOptional(&resident.MobileNumber, input.MobileNumber)
	setOptional(&resident.TelephoneNumber, input.TelephoneNumber)
	setOptional(&resident.PhilsysLast4, input.PhilsysLast4)
	setOptional(&resident.HouseholdID, input.HouseholdID)

	return resident, nil
}

func setOptional(dst **string, value string) {
	if value == "" {
		*dst = nil
		return
	}
	*dst = &value
}

func (s *residentService) CreateResident(ctx context.Context, scope authz.Scope, actorID string, input ResidentInput) (*ResidentDTO, error) {
	fields, birthdate := validateResidentInput(&input)
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	resident, err := s.resolveResidentReferences(ctx, scope, &input, birthdate)
	if err != nil {
		return nil, err
	}
	resident.CreatedBy = actorID

	residentID, err := s.residentsRepo.CreateResident(ctx, resident)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.CodeConflict, "a resident with this email already exists")
		}
		return nil, fmt.Errorf("failed to create resident: %w", err)
	}

	created, err := s.residentsRepo.GetResident(ctx, scope, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created resident: %w", err)
	}

	metrics.ResidentsCreated.Inc()
	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionCreate,
		ResourceType: "resident",
		ResourceID:   residentID,
		ActorID:      actorID,
		BarangayCode: created.BarangayCode,
	})
	s.logger.Info("Resident created",
		zap.String("resident_id", residentID),
		zap.String("barangay_code", created.BarangayCode),
		zap.String("actor_id", actorID),
	)

	return toResidentDTO(created), nil
}

func (s *residentService) UpdateResident(ctx context.Context, scope authz.Scope, actorID string, residentID string, input ResidentInput) (*ResidentDTO, error) {
	if err := checkResourceID(residentID, "resident"); err != nil {
		return nil, err
	}
	current, err := s.residentsRepo.GetResident(ctx, scope, residentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "resident not found")
		}
		return nil, fmt.Errorf("failed to load resident: %w", err)
	}

	fields, birthdate := validateResidentInput(&input)
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	resident, err := s.resolveResidentReferences(ctx, scope, &input, birthdate)
	if err != nil {
		return nil, err
	}

	if err := s.residentsRepo.UpdateResident(ctx, scope, residentID, resident); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "resident not found")
		}
		if repository.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.CodeConflict, "a resident with this email already exists")
		}
		return nil, fmt.Errorf("failed to update resident: %w", err)
	}

	updated, err := s.residentsRepo.GetResident(ctx, scope, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load updated resident: %w", err)
	}

	details := map[string]string{}
	if current.BarangayCode != updated.BarangayCode {
		details["previous_barangay_code"] = current.BarangayCode
	}
	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionUpdate,
		ResourceType: "resident",
		ResourceID:   residentID,
		ActorID:      actorID,
		BarangayCode: updated.BarangayCode,
		Details:      details,
	})

	return toResidentDTO(updated), nil
}

func (s *residentService) DeleteResident(ctx context.Context, scope authz.Scope, actorID string, residentID string) error {
	if err := checkResourceID(residentID, "resident"); err != nil {
		return err
	}
	resident, err := s.residentsRepo.GetResident(ctx, scope, residentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.CodeNotFound, "resident not found")
		}
		return fmt.Errorf("failed to load resident: %w", err)
	}

	if err := s.residentsRepo.SoftDeleteResident(ctx, scope, residentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.CodeNotFound, "resident not found")
		}
		return fmt.Errorf("failed to delete resident: %w", err)
	}

	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionDelete,
		ResourceType: "resident",
		ResourceID:   residentID,
		ActorID:      actorID,
		BarangayCode: resident.BarangayCode,
	})
	s.logger.Info("Resident deleted",
		zap.String("resident_id", residentID),
		zap.String("barangay_code", resident.BarangayCode),
		zap.String("actor_id", actorID),
	)

	return nil
}

// MigrationInput is the migrant-information sheet for one resident.
type MigrationInput struct {
	PreviousBarangayCode string `json:"previous_barangay_code"`
	PreviousAddress      string `json:"previous_address"`
	DateOfTransfer       string `json:"date_of_transfer"` // YYYY-MM-DD
	ReasonForTransfer    string `json:"reason_for_transfer"`
	MonthsAtPrevious     *int   `json:"months_at_previous"`
	IsIntendingToReturn  *bool  `json:"is_intending_to_return"`
}

type MigrationDTO struct {
	ResidentID           string    `json:"resident_id"`
	PreviousBarangayCode *string   `json:"previous_barangay_code,omitempty"`
	PreviousAddress      *string   `json:"previous_address,omitempty"`
	DateOfTransfer       *string   `json:"date_of_transfer,omitempty"`
	ReasonForTransfer    *string   `json:"reason_for_transfer,omitempty"`
	MonthsAtPrevious     *int      `json:"months_at_previous,omitempty"`
	IsIntendingToReturn  *bool     `json:"is_intending_to_return,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func toMigrationDTO(migration *domain.ResidentMigration) *MigrationDTO {
	dto := &MigrationDTO{
		ResidentID:           migration.ResidentID,
		PreviousBarangayCode: migration.PreviousBarangayCode,
		PreviousAddress:      migration.PreviousAddress,
		ReasonForTransfer:    migration.ReasonForTransfer,
		MonthsAtPrevious:     migration.MonthsAtPrevious,
		IsIntendingToReturn:  migration.IsIntendingToReturn,
		CreatedAt:            migration.CreatedAt,
		UpdatedAt:            migration.UpdatedAt,
	}
	if migration.DateOfTransfer != nil {
		formatted := migration.DateOfTransfer.Format(dateLayout)
		dto.DateOfTransfer = &formatted
	}
	return dto
}

func (s *residentService) GetMigration(ctx context.Context, scope authz.Scope, residentID string) (*MigrationDTO, error) {
	if err := checkResourceID(residentID, "resident"); err != nil {
		return nil, err
	}
	migration, err := s.residentsRepo.GetMigration(ctx, scope, residentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "migration record not found")
		}
		return nil, fmt.Errorf("failed to get migration record: %w", err)
	}
	return toMigrationDTO(migration), nil
}

func (s *residentService) PutMigration(ctx context.Context, scope authz.Scope, actorID string, residentID string, input MigrationInput) (*MigrationDTO, error) {
	if err := checkResourceID(residentID, "resident"); err != nil {
		return nil, err
	}
	input.PreviousBarangayCode = strings.TrimSpace(input.PreviousBarangayCode)
	input.PreviousAddress = strings.TrimSpace(input.PreviousAddress)
	input.DateOfTransfer = strings.TrimSpace(input.DateOfTransfer)
	input.ReasonForTransfer = strings.TrimSpace(input.ReasonForTransfer)

	fields := []apperr.FieldError{}
	var dateOfTransfer *time.Time
	if input.DateOfTransfer != "" {
		parsed, err := time.Parse(dateLayout, input.DateOfTransfer)
		switch {
		case err != nil:
			fields = append(fields, apperr.FieldError{Field: "date_of_transfer", Message: "date must be YYYY-MM-DD"})
		case parsed.After(time.Now()):
			fields = append(fields, apperr.FieldError{Field: "date_of_transfer", Message: "date cannot be in the future"})
		default:
			dateOfTransfer = &parsed
		}
	}
	if input.MonthsAtPrevious != nil && *input.MonthsAtPrevious < 0 {
		fields = append(fields, apperr.FieldError{Field: "months_at_previous", Message: "months cannot be negative"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	// the previous barangay only needs to exist; it is outside the
	// caller's scope by definition
	if input.PreviousBarangayCode != "" {
		if _, err := s.psgcRepo.GetBarangay(ctx, input.PreviousBarangayCode); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, apperr.Validation(apperr.FieldError{Field: "previous_barangay_code", Message: "unknown barangay code"})
			}
			return nil, fmt.Errorf("failed to check previous barangay: %w", err)
		}
	}

	migration := &domain.ResidentMigration{
		DateOfTransfer:      dateOfTransfer,
		MonthsAtPrevious:    input.MonthsAtPrevious,
		IsIntendingToReturn: input.IsIntendingToReturn,
	}
	setOptional(&migration.PreviousBarangayCode, input.PreviousBarangayCode)
	setOptional(&migration.PreviousAddress, input.PreviousAddress)
	setOptional(&migration.ReasonForTransfer, input.ReasonForTransfer)

	if err := s.residentsRepo.UpsertMigration(ctx, scope, residentID, migration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "resident not found")
		}
		return nil, fmt.Errorf("failed to save migration record: %w", err)
	}

	saved, err := s.residentsRepo.GetMigration(ctx, scope, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load migration record: %w", err)
	}

	resident, err := s.residentsRepo.GetResident(ctx, scope, residentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load resident: %w", err)
	}
	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionUpdate,
		ResourceType: "resident_migration",
		ResourceID:   residentID,
		ActorID:      actorID,
		BarangayCode: resident.BarangayCode,
	})

	return toMigrationDTO(saved), nil
}

func (s *residentService) DeleteMigration(ctx context.Context, scope authz.Scope, actorID string, residentID string) error {
	if err := checkResourceID(residentID, "resident"); err != nil {
		return err
	}
	resident, err := s.residentsRepo.GetResident(ctx, scope, residentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.CodeNotFound, "resident not found")
		}
		return fmt.Errorf("failed to load resident: %w", err)
	}

	if err := s.residentsRepo.DeleteMigration(ctx, scope, residentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.CodeNotFound, "migration record not found")
		}
		return fmt.Errorf("failed to delete migration record: %w", err)
	}

	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionDelete,
		ResourceType: "resident_migration",
		ResourceID:   residentID,
		ActorID:      actorID,
		BarangayCode: resident.BarangayCode,
	})

	return nil
}
