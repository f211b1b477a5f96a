package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"

	"github.com/google/uuid"
)

// MemoryHouseholdsRepo backs the household endpoints when the DB is not
// ready. It needs the residents repo to compute member counts.
type MemoryHouseholdsRepo struct {
	mu         sync.RWMutex
	households map[string]domain.Household // keyed by id
	residents  *MemoryResidentsRepo
}

func NewMemoryHouseholdsRepo(residents *MemoryResidentsRepo) *MemoryHouseholdsRepo {
	return &MemoryHouseholdsRepo{
		households: map[string]domain.Household{},
		residents:  residents,
	}
}

var _ HouseholdsRepository = (*MemoryHouseholdsRepo)(nil)

func householdGeoCodes(h *domain.Household) authz.GeoCodes {
	return authz.GeoCodes{
		BarangayCode: h.BarangayCode,
		CityCode:     h.CityCode,
		ProvinceCode: h.ProvinceCode,
		RegionCode:   h.RegionCode,
	}
}

func (r *MemoryHouseholdsRepo) visible(scope authz.Scope, household *domain.Household) bool {
	if household.DeletedAt != nil {
		return false
	}
	return scope.Allows(householdGeoCodes(household))
}

func (r *MemoryHouseholdsRepo) memberCount(householdID string) int {
	if r.residents == nil {
		return 0
	}
	r.residents.mu.RLock()
	defer r.residents.mu.RUnlock()

	count := 0
	for id := range r.residents.residents {
		resident := r.residents.residents[id]
		if resident.DeletedAt != nil {
			continue
		}
		if resident.HouseholdID != nil && *resident.HouseholdID == householdID {
			count++
		}
	}
	return count
}

func (r *MemoryHouseholdsRepo) GetHousehold(_ context.Context, scope authz.Scope, householdID string) (*domain.Household, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}

	r.mu.RLock()
	household, ok := r.households[householdID]
	r.mu.RUnlock()

	if !ok || !r.visible(scope, &household) {
		return nil, fmt.Errorf("household not found: %w", sql.ErrNoRows)
	}

	household.MemberCount = r.memberCount(householdID)
	return &household, nil
}

func (r *MemoryHouseholdsRepo) ListHouseholds(_ context.Context, scope authz.Scope, filters HouseholdFilters, page, size int) ([]*domain.Household, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	r.mu.RLock()
	matched := []*domain.Household{}
	for id := range r.households {
		household := r.households[id]
		if !r.visible(scope, &household) {
			continue
		}
		if filters.BarangayCode != "" && household.BarangayCode != filters.BarangayCode {
			continue
		}
		if filters.HouseholdType != "" && household.HouseholdType != filters.HouseholdType {
			continue
		}
		if filters.TenureStatus != "" && household.TenureStatus != filters.TenureStatus {
			continue
		}
		if filters.Search != "" {
			lower := strings.ToLower(filters.Search)
			street := ""
			if household.Street != nil {
				street = *household.Street
			}
			if !strings.Contains(strings.ToLower(household.Code), lower) &&
				!strings.Contains(strings.ToLower(household.Name), lower) &&
				!strings.Contains(strings.ToLower(street), lower) {
				continue
			}
		}
		matched = append(matched, &household)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })

	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []*domain.Household{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}

	window := matched[start:end]
	for _, household := range window {
		household.MemberCount = r.memberCount(household.ID)
	}
	return window, total, nil
}

func (r *MemoryHouseholdsRepo) CreateHousehold(_ context.Context, household *domain.Household) (string, error) {
	if household == nil {
		return "", fmt.Errorf("household is required")
	}
	if household.Code == "" || household.Name == "" {
		return "", fmt.Errorf("code and name are required")
	}
	if household.BarangayCode == "" || household.CityCode == "" || household.ProvinceCode == "" || household.RegionCode == "" {
		return "", fmt.Errorf("geographic codes are required")
	}
	if household.CreatedBy == "" {
		return "", fmt.Errorf("created_by is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.households {
		existing := r.households[id]
		if existing.DeletedAt == nil && existing.BarangayCode == household.BarangayCode && existing.Code == household.Code {
			return "", fmt.Errorf("household code already used: %w", ErrDuplicate)
		}
	}

	stored := *household
	stored.ID = uuid.NewString()
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.DeletedAt = nil
	stored.HeadResidentID = nil

	r.households[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryHouseholdsRepo) UpdateHousehold(_ context.Context, scope authz.Scope, householdID string, household *domain.Household) error {
	if householdID == "" {
		return fmt.Errorf("household_id is required")
	}
	if household == nil {
		return fmt.Errorf("household is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.households[householdID]
	if !ok || !r.visible(scope, &existing) {
		return fmt.Errorf("household not found: %w", sql.ErrNoRows)
	}

	stored := *household
	stored.ID = existing.ID
	stored.HeadResidentID = existing.HeadResidentID
	stored.CreatedBy = existing.CreatedBy
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	stored.DeletedAt = nil

	r.households[householdID] = stored
	return nil
}

func (r *MemoryHouseholdsRepo) SoftDeleteHousehold(_ context.Context, scope authz.Scope, householdID string) error {
	if householdID == "" {
		return fmt.Errorf("household_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	household, ok := r.households[householdID]
	if !ok || !r.visible(scope, &household) {
		return fmt.Errorf("household not found: %w", sql.ErrNoRows)
	}

	now := time.Now()
	household.DeletedAt = &now
	household.UpdatedAt = now
	r.households[householdID] = household
	return nil
}

func (r *MemoryHouseholdsRepo) CountMembers(_ context.Context, householdID string) (int, error) {
	if householdID == "" {
		return 0, fmt.Errorf("household_id is required")
	}
	return r.memberCount(householdID), nil
}

func (r *MemoryHouseholdsRepo) SetHead(_ context.Context, scope authz.Scope, householdID, residentID string) error {
	if householdID == "" || residentID == "" {
		return fmt.Errorf("household_id and resident_id are required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	household, ok := r.households[householdID]
	if !ok || !r.visible(scope, &household) {
		return fmt.Errorf("household or member not found: %w", sql.ErrNoRows)
	}

	isMember := false
	if r.residents != nil {
		r.residents.mu.RLock()
		if resident, ok := r.residents.residents[residentID]; ok && resident.DeletedAt == nil &&
			resident.HouseholdID != nil && *resident.HouseholdID == householdID {
			isMember = true
		}
		r.residents.mu.RUnlock()
	}
	if !isMember {
		return fmt.Errorf("household or member not found: %w", sql.ErrNoRows)
	}

	household.HeadResidentID = &residentID
	household.UpdatedAt = time.Now()
	r.households[householdID] = household
	return nil
}
