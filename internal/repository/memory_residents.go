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

// MemoryResidentsRepo backs the resident endpoints when the DB is not
// ready. Scope and soft-delete semantics match the Postgres
// implementation so handler behavior is identical in dev mode.
type MemoryResidentsRepo struct {
	mu         sync.RWMutex
	residents  map[string]domain.Resident          // keyed by id
	migrations map[string]domain.ResidentMigration // keyed by resident id
}

func NewMemoryResidentsRepo() *MemoryResidentsRepo {
	return &MemoryResidentsRepo{
		residents:  map[string]domain.Resident{},
		migrations: map[string]domain.ResidentMigration{},
	}
}

var _ ResidentsRepository = (*MemoryResidentsRepo)(nil)

func residentGeoCodes(r *domain.Resident) authz.GeoCodes {
	return authz.GeoCodes{
		BarangayCode: r.BarangayCode,
		CityCode:     r.CityCode,
		ProvinceCode: r.ProvinceCode,
		RegionCode:   r.RegionCode,
	}
}

// visible reports whether the row exists for the caller: in scope and
// not soft-deleted.
func (r *MemoryResidentsRepo) visible(scope authz.Scope, resident *domain.Resident) bool {
	if resident.DeletedAt != nil {
		return false
	}
	return scope.Allows(residentGeoCodes(resident))
}

func (r *MemoryResidentsRepo) GetResident(_ context.Context, scope authz.Scope, residentID string) (*domain.Resident, error) {
	if residentID == "" {
		return nil, fmt.Errorf("resident_id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	resident, ok := r.residents[residentID]
	if !ok || !r.visible(scope, &resident) {
		return nil, fmt.Errorf("resident not found: %w", sql.ErrNoRows)
	}
	return &resident, nil
}

func (r *MemoryResidentsRepo) ListResidents(_ context.Context, scope authz.Scope, filters ResidentFilters, page, size int) ([]*domain.Resident, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.Resident{}
	for id := range r.residents {
		resident := r.residents[id]
		if !filters.IncludeDeleted && resident.DeletedAt != nil {
			continue
		}
		if !scope.Allows(residentGeoCodes(&resident)) {
			continue
		}
		if filters.HouseholdID != "" && (resident.HouseholdID == nil || *resident.HouseholdID != filters.HouseholdID) {
			continue
		}
		if filters.BarangayCode != "" && resident.BarangayCode != filters.BarangayCode {
			continue
		}
		if filters.Sex != "" && resident.Sex != filters.Sex {
			continue
		}
		if filters.CivilStatus != "" && resident.CivilStatus != filters.CivilStatus {
			continue
		}
		if filters.EmploymentStatus != "" && (resident.EmploymentStatus == nil || *resident.EmploymentStatus != filters.EmploymentStatus) {
			continue
		}
		if filters.OccupationCode != "" && (resident.OccupationCode == nil || *resident.OccupationCode != filters.OccupationCode) {
			continue
		}
		if filters.IsVoter != nil && resident.IsVoter != *filters.IsVoter {
			continue
		}
		if filters.IsPWD != nil && resident.IsPWD != *filters.IsPWD {
			continue
		}
		if filters.Search != "" && !residentMatchesSearch(&resident, filters.Search) {
			continue
		}
		matched = append(matched, &resident)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})

	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []*domain.Resident{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func residentMatchesSearch(resident *domain.Resident, search string) bool {
	lower := strings.ToLower(search)
	if strings.Contains(strings.ToLower(resident.FirstName), lower) {
		return true
	}
	if resident.MiddleName != nil && strings.Contains(strings.ToLower(*resident.MiddleName), lower) {
		return true
	}
	if strings.Contains(strings.ToLower(resident.LastName), lower) {
		return true
	}
	if resident.Email != nil && strings.Contains(strings.ToLower(*resident.Email), lower) {
		return true
	}
	return false
}

func (r *MemoryResidentsRepo) CreateResident(_ context.Context, resident *domain.Resident) (string, error) {
	if resident == nil {
		return "", fmt.Errorf("resident is required")
	}
	if resident.FirstName == "" || resident.LastName == "" {
		return "", fmt.Errorf("first_name and last_name are required")
	}
	if resident.BarangayCode == "" || resident.CityCode == "" || resident.ProvinceCode == "" || resident.RegionCode == "" {
		return "", fmt.Errorf("geographic codes are required")
	}
	if resident.CreatedBy == "" {
		return "", fmt.Errorf("created_by is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *resident
	stored.ID = uuid.NewString()
	if stored.Citizenship == "" {
		stored.Citizenship = "Filipino"
	}
	if stored.Email != nil {
		lower := strings.ToLower(*stored.Email)
		stored.Email = &lower
	}
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	stored.DeletedAt = nil

	r.residents[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryResidentsRepo) UpdateResident(_ context.Context, scope authz.Scope, residentID string, resident *domain.Resident) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if resident == nil {
		return fmt.Errorf("resident is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.residents[residentID]
	if !ok || !r.visible(scope, &existing) {
		return fmt.Errorf("resident not found: %w", sql.ErrNoRows)
	}

	stored := *resident
	stored.ID = existing.ID
	stored.CreatedBy = existing.CreatedBy
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now()
	stored.DeletedAt = nil
	if stored.Email != nil {
		lower := strings.ToLower(*stored.Email)
		stored.Email = &lower
	}

	r.residents[residentID] = stored
	return nil
}

func (r *MemoryResidentsRepo) SoftDeleteResident(_ context.Context, scope authz.Scope, residentID string) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	resident, ok := r.residents[residentID]
	if !ok || !r.visible(scope, &resident) {
		return fmt.Errorf("resident not found: %w", sql.ErrNoRows)
	}

	now := time.Now()
	resident.DeletedAt = &now
	resident.UpdatedAt = now
	r.residents[residentID] = resident
	return nil
}

func (r *MemoryResidentsRepo) GetMigration(_ context.Context, scope authz.Scope, residentID string) (*domain.ResidentMigration, error) {
	if residentID == "" {
		return nil, fmt.Errorf("resident_id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	resident, ok := r.residents[residentID]
	if !ok || !r.visible(scope, &resident) {
		return nil, fmt.Errorf("migration record not found: %w", sql.ErrNoRows)
	}
	migration, ok := r.migrations[residentID]
	if !ok {
		return nil, fmt.Errorf("migration record not found: %w", sql.ErrNoRows)
	}
	return &migration, nil
}

func (r *MemoryResidentsRepo) UpsertMigration(_ context.Context, scope authz.Scope, residentID string, migration *domain.ResidentMigration) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if migration == nil {
		return fmt.Errorf("migration is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	resident, ok := r.residents[residentID]
	if !ok || !r.visible(scope, &resident) {
		return fmt.Errorf("resident not found: %w", sql.ErrNoRows)
	}

	stored := *migration
	stored.ResidentID = residentID
	now := time.Now()
	if existing, ok := r.migrations[residentID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now

	r.migrations[residentID] = stored
	return nil
}

func (r *MemoryResidentsRepo) DeleteMigration(_ context.Context, scope authz.Scope, residentID string) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	resident, ok := r.residents[residentID]
	if !ok || !r.visible(scope, &resident) {
		return fmt.Errorf("migration record not found: %w", sql.ErrNoRows)
	}
	if _, ok := r.migrations[residentID]; !ok {
		return fmt.Errorf("migration record not found: %w", sql.ErrNoRows)
	}

	delete(r.migrations, residentID)
	return nil
}
