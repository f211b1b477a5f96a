package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
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

// HouseholdService manages household records and their membership. A
// household cannot be deleted while residents are still assigned to it.
type HouseholdService interface {
	ListHouseholds(ctx context.Context, scope authz.Scope, req ListHouseholdsRequest) (*ListHouseholdsResponse, error)
	GetHousehold(ctx context.Context, scope authz.Scope, householdID string) (*HouseholdDTO, error)
	CreateHousehold(ctx context.Context, scope authz.Scope, actorID string, input HouseholdInput) (*HouseholdDTO, error)
	UpdateHousehold(ctx context.Context, scope authz.Scope, actorID string, householdID string, input HouseholdInput) (*HouseholdDTO, error)
	DeleteHousehold(ctx context.Context, scope authz.Scope, actorID string, householdID string) error

	ListMembers(ctx context.Context, scope authz.Scope, householdID string) ([]*ResidentDTO, error)
	SetHead(ctx context.Context, scope authz.Scope, actorID string, householdID, residentID string) (*HouseholdDTO, error)
}

type householdService struct {
	householdsRepo repository.HouseholdsRepository
	residentsRepo  repository.ResidentsRepository
	resolver       geo.Resolver
	audit          store.AuditPublisher
	logger         *zap.Logger
}

func NewHouseholdService(
	householdsRepo repository.HouseholdsRepository,
	residentsRepo repository.ResidentsRepository,
	resolver geo.Resolver,
	audit store.AuditPublisher,
	logger *zap.Logger,
) HouseholdService {
	return &householdService{
		householdsRepo: householdsRepo,
		residentsRepo:  residentsRepo,
		resolver:       resolver,
		audit:          audit,
		logger:         logger,
	}
}

var householdTypes = map[string]bool{
	domain.HouseholdTypeNuclear:      true,
	domain.HouseholdTypeSingleParent: true,
	domain.HouseholdTypeExtended:     true,
	domain.HouseholdTypeStepfamily:   true,
	domain.HouseholdTypeChildless:    true,
	domain.HouseholdTypeOnePerson:    true,
	domain.HouseholdTypeNonFamily:    true,
	domain.HouseholdTypeOther:        true,
}

var tenureStatuses = map[string]bool{
	domain.TenureOwned:                  true,
	domain.TenureRented:                 true,
	domain.TenureOccupiedWithConsent:    true,
	domain.TenureOccupiedWithoutConsent: true,
	domain.TenureOther:                  true,
}

// HouseholdInput is the full mutable state of a household; update
// replaces the record with it.
type HouseholdInput struct {
	Code string `json:"code"`
	Name string `json:"name"`

	HouseNumber string `json:"house_number"`
	Street      string `json:"street"`
	Subdivision string `json:"subdivision"`

	BarangayCode string `json:"barangay_code"`

	HouseholdType string `json:"household_type"`
	TenureStatus  string `json:"tenure_status"`
	MonthlyIncome string `json:"monthly_income"`
}

type HouseholdDTO struct {
	ID   string `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`

	HouseNumber string  `json:"house_number,omitempty"`
	Street      *string `json:"street,omitempty"`
	Subdivision *string `json:"subdivision,omitempty"`

	BarangayCode string `json:"barangay_code"`
	CityCode     string `json:"city_code"`
	ProvinceCode string `json:"province_code"`
	RegionCode   string `json:"region_code"`

	HouseholdType string  `json:"household_type,omitempty"`
	TenureStatus  string  `json:"tenure_status,omitempty"`
	MonthlyIncome *string `json:"monthly_income,omitempty"`

	HeadResidentID *string `json:"head_resident_id,omitempty"`
	MemberCount    int     `json:"member_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toHouseholdDTO(household *domain.Household) *HouseholdDTO {
	return &HouseholdDTO{
		ID:             household.ID,
		Code:           household.Code,
		Name:           household.Name,
		HouseNumber:    household.HouseNumber,
		Street:         household.Street,
		Subdivision:    household.Subdivision,
		BarangayCode:   household.BarangayCode,
		CityCode:       household.CityCode,
		ProvinceCode:   household.ProvinceCode,
		RegionCode:     household.RegionCode,
		HouseholdType:  household.HouseholdType,
		TenureStatus:   household.TenureStatus,
		MonthlyIncome:  household.MonthlyIncome,
		HeadResidentID: household.HeadResidentID,
		MemberCount:    household.MemberCount,
		CreatedAt:      household.CreatedAt,
		UpdatedAt:      household.UpdatedAt,
	}
}

type ListHouseholdsRequest struct {
	BarangayCode  string
	HouseholdType string
	TenureStatus  string
	Search        string

	Page     int
	PageSize int
}

type ListHouseholdsResponse struct {
	Items    []*HouseholdDTO `json:"items"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

func (s *householdService) ListHouseholds(ctx context.Context, scope authz.Scope, req ListHouseholdsRequest) (*ListHouseholdsResponse, error) {
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

	filters := repository.HouseholdFilters{
		BarangayCode:  strings.TrimSpace(req.BarangayCode),
		HouseholdType: strings.TrimSpace(req.HouseholdType),
		TenureStatus:  strings.TrimSpace(req.TenureStatus),
		Search:        strings.TrimSpace(req.Search),
	}

	households, total, err := s.householdsRepo.ListHouseholds(ctx, scope, filters, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list households: %w", err)
	}

	items := make([]*HouseholdDTO, 0, len(households))
	for _, household := range households {
		items = append(items, toHouseholdDTO(household))
	}

	return &ListHouseholdsResponse{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (s *householdService) GetHousehold(ctx context.Context, scope authz.Scope, householdID string) (*HouseholdDTO, error) {
	if err := checkResourceID(householdID, "household"); err != nil {
		return nil, err
	}
	household, err := s.householdsRepo.GetHousehold(ctx, scope, householdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "household not found")
		}
		return nil, fmt.Errorf("failed to get household: %w", err)
	}
	return toHouseholdDTO(household), nil
}

func validateHouseholdInput(input *HouseholdInput) []apperr.FieldError {
	input.Code = strings.TrimSpace(input.Code)
	input.Name = strings.TrimSpace(input.Name)
	input.HouseNumber = strings.TrimSpace(input.HouseNumber)
	input.Street = strings.TrimSpace(input.Street)
	input.Subdivision = strings.TrimSpace(input.Subdivision)
	input.BarangayCode = strings.TrimSpace(input.BarangayCode)
	input.HouseholdType = strings.ToLower(strings.TrimSpace(input.HouseholdType))
	input.TenureStatus = strings.ToLower(strings.TrimSpace(input.TenureStatus))
	input.MonthlyIncome = strings.TrimSpace(input.MonthlyIncome)

	fields := []apperr.FieldError{}
	if input.Code == "" {
		fields = append(fields, apperr.FieldError{Field: "code", Message: "household code is required"})
	}
	if input.Name == "" {
		fields = append(fields, apperr.FieldError{Field: "name", Message: "household name is required"})
	}
	if input.BarangayCode == "" {
		fields = append(fields, apperr.FieldError{Field: "barangay_code", Message: "barangay code is required"})
	}
	if input.HouseholdType != "" && !householdTypes[input.HouseholdType] {
		fields = append(fields, apperr.FieldError{Field: "household_type", Message: "unknown household type"})
	}
	if input.TenureStatus != "" && !tenureStatuses[input.TenureStatus] {
		fields = append(fields, apperr.FieldError{Field: "tenure_status", Message: "unknown tenure status"})
	}
	return fields
}

// resolveHousehold fills the geographic chain and checks the caller may
// write into the target barangay.
func (s *householdService) resolveHousehold(ctx context.Context, scope authz.Scope, input *HouseholdInput) (*domain.Household, error) {
	ancestry, err := s.resolver.Resolve(ctx, input.BarangayCode)
	if err != nil {
		if errors.Is(err, repository.ErrBrokenGeoChain) {
			s.logger.Error("Household write blocked by inconsistent geographic reference data",
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

	if !scope.Allows(authz.GeoCodes{
		BarangayCode: ancestry.BarangayCode,
		CityCode:     ancestry.CityCode,
		ProvinceCode: ancestry.ProvinceCode,
		RegionCode:   ancestry.RegionCode,
	}) {
		return nil, apperr.New(apperr.CodeForbidden, "barangay is outside your assigned area")
	}

	household := &domain.Household{
		Code:          input.Code,
		Name:          input.Name,
		HouseNumber:   input.HouseNumber,
		BarangayCode:  ancestry.BarangayCode,
		CityCode:      ancestry.CityCode,
		ProvinceCode:  ancestry.ProvinceCode,
		RegionCode:    ancestry.RegionCode,
		HouseholdType: input.HouseholdType,
		TenureStatus:  input.TenureStatus,
	}
	setOptional(&household.Street, input.Street)
	setOptional(&household.Subdivision, input.Subdivision)
	setOptional(&household.MonthlyIncome, input.MonthlyIncome)

	return household, nil
}

func (s *householdService) CreateHousehold(ctx context.Context, scope authz.Scope, actorID string, input HouseholdInput) (*HouseholdDTO, error) {
	if fields := validateHouseholdInput(&input); len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	household, err := s.resolveHousehold(ctx, scope, &input)
	if err != nil {
		return nil, err
	}
	household.CreatedBy = actorID

	householdID, err := s.householdsRepo.CreateHousehold(ctx, household)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.CodeConflict, "a household with this code already exists in the barangay")
		}
		return nil, fmt.Errorf("failed to create household: %w", err)
	}

	created, err := s.householdsRepo.GetHousehold(ctx, scope, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created household: %w", err)
	}

	metrics.HouseholdsCreated.Inc()
	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionCreate,
		ResourceType: "household",
		ResourceID:   householdID,
		ActorID:      actorID,
		BarangayCode: created.BarangayCode,
	})
	s.logger.Info("Household created",
		zap.String("household_id", householdID),
		zap.String("code", created.Code),
		zap.String("barangay_code", created.BarangayCode),
		zap.String("actor_id", actorID),
	)

	return toHouseholdDTO(created), nil
}

func (s *householdService) UpdateHousehold(ctx context.Context, scope authz.Scope, actorID string, householdID string, input HouseholdInput) (*HouseholdDTO, error) {
	if err := checkResourceID(householdID, "household"); err != nil {
		return nil, err
	}
	current, err := s.householdsRepo.GetHousehold(ctx, scope, householdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "household not found")
		}
		return nil, fmt.Errorf("failed to load household: %w", err)
	}

	if fields := validateHouseholdInput(&input); len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	household, err := s.resolveHousehold(ctx, scope, &input)
	if err != nil {
		return nil, err
	}

	// moving the household to another barangay would orphan its members'
	// geographic columns
	if household.BarangayCode != current.BarangayCode {
		memberCount, err := s.householdsRepo.CountMembers(ctx, householdID)
		if err != nil {
			return nil, fmt.Errorf("failed to count household members: %w", err)
		}
		if memberCount > 0 {
			return nil, apperr.New(apperr.CodeConflict, "cannot move a household with members to another barangay")
		}
	}

	if err := s.householdsRepo.UpdateHousehold(ctx, scope, householdID, household); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "household not found")
		}
		if repository.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.CodeConflict, "a household with this code already exists in the barangay")
		}
		return nil, fmt.Errorf("failed to update household: %w", err)
	}

	updated, err := s.householdsRepo.GetHousehold(ctx, scope, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load updated household: %w", err)
	}

	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionUpdate,
		ResourceType: "household",
		ResourceID:   householdID,
		ActorID:      actorID,
		BarangayCode: updated.BarangayCode,
	})

	return toHouseholdDTO(updated), nil
}

func (s *householdService) DeleteHousehold(ctx context.Context, scope authz.Scope, actorID string, householdID string) error {
	if err := checkResourceID(householdID, "household"); err != nil {
		return err
	}
	household, err := s.householdsRepo.GetHousehold(ctx, scope, householdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.CodeNotFound, "household not found")
		}
		return fmt.Errorf("failed to load household: %w", err)
	}

	memberCount, err := s.householdsRepo.CountMembers(ctx, householdID)
	if err != nil {
		return fmt.Errorf("failed to count household members: %w", err)
	}
	if memberCount > 0 {
		return apperr.New(apperr.CodeConflict,
			fmt.Sprintf("household still has %d member(s); reassign them first", memberCount))
	}

	if err := s.householdsRepo.SoftDeleteHousehold(ctx, scope, householdID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.CodeNotFound, "household not found")
		}
		return fmt.Errorf("failed to delete household: %w", err)
	}

	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionDelete,
		ResourceType: "household",
		ResourceID:   householdID,
		ActorID:      actorID,
		BarangayCode: household.BarangayCode,
	})
	s.logger.Info("Household deleted",
		zap.String("household_id", householdID),
		zap.String("code", household.Code),
		zap.String("actor_id", actorID),
	)

	return nil
}

func (s *householdService) ListMembers(ctx context.Context, scope authz.Scope, householdID string) ([]*ResidentDTO, error) {
	if err := checkResourceID(householdID, "household"); err != nil {
		return nil, err
	}
	if _, err := s.householdsRepo.GetHousehold(ctx, scope, householdID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "household not found")
		}
		return nil, fmt.Errorf("failed to load household: %w", err)
	}

	filters := repository.ResidentFilters{HouseholdID: householdID}
	members, _, err := s.residentsRepo.ListResidents(ctx, scope, filters, 1, maxPageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list household members: %w", err)
	}

	items := make([]*ResidentDTO, 0, len(members))
	for _, member := range members {
		items = append(items, toResidentDTO(member))
	}
	return items, nil
}

func (s *householdService) SetHead(ctx context.Context, scope authz.Scope, actorID string, householdID, residentID string) (*HouseholdDTO, error) {
	if err := checkResourceID(householdID, "household"); err != nil {
		return nil, err
	}
	if uuid.Validate(residentID) != nil {
		return nil, apperr.Validation(apperr.FieldError{Field: "resident_id", Message: "resident is not a member of this household"})
	}
	household, err := s.householdsRepo.GetHousehold(ctx, scope, householdID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "household not found")
		}
		return nil, fmt.Errorf("failed to load household: %w", err)
	}

	if err := s.householdsRepo.SetHead(ctx, scope, householdID, residentID); err != nil {
		// the household exists, so zero rows means the resident is not a
		// member
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Validation(apperr.FieldError{Field: "resident_id", Message: "resident is not a member of this household"})
		}
		return nil, fmt.Errorf("failed to set head of household: %w", err)
	}

	updated, err := s.householdsRepo.GetHousehold(ctx, scope, householdID)
	if err != nil {
		return nil, fmt.Errorf("failed to load updated household: %w", err)
	}

	s.audit.Publish(ctx, &domain.AuditEvent{
		Action:       domain.AuditActionUpdate,
		ResourceType: "household",
		ResourceID:   householdID,
		ActorID:      actorID,
		BarangayCode: household.BarangayCode,
		Details:      map[string]string{"head_resident_id": residentID},
	})

	return toHouseholdDTO(updated), nil
}
