package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"citizenly-registry/internal/domain"

	"github.com/google/uuid"
)

// MemoryRolesRepo holds the five standard roles for DB-less dev.
type MemoryRolesRepo struct {
	mu    sync.RWMutex
	roles map[string]domain.Role // keyed by id
}

func NewMemoryRolesRepo() *MemoryRolesRepo {
	r := &MemoryRolesRepo{roles: map[string]domain.Role{}}

	now := time.Now()
	seed := []struct {
		name, display string
	}{
		{domain.RoleBarangayAdmin, "Barangay Administrator"},
		{domain.RoleCityAdmin, "City/Municipal Administrator"},
		{domain.RoleProvinceAdmin, "Provincial Administrator"},
		{domain.RoleRegionAdmin, "Regional Administrator"},
		{domain.RoleSuperAdmin, "National Administrator"},
	}
	for _, s := range seed {
		id := uuid.NewString()
		r.roles[id] = domain.Role{
			ID:          id,
			Name:        s.name,
			DisplayName: s.display,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
	}
	return r
}

var _ RolesRepository = (*MemoryRolesRepo)(nil)

func (r *MemoryRolesRepo) ListRoles(_ context.Context) ([]*domain.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]*domain.Role, 0, len(r.roles))
	for id := range r.roles {
		role := r.roles[id]
		roles = append(roles, &role)
	}
	sort.Slice(roles, func(i, j int) bool { return roles[i].Name < roles[j].Name })
	return roles, nil
}

func (r *MemoryRolesRepo) GetRole(_ context.Context, roleID string) (*domain.Role, error) {
	if roleID == "" {
		return nil, fmt.Errorf("role_id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	role, ok := r.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role not found: %w", sql.ErrNoRows)
	}
	return &role, nil
}

func (r *MemoryRolesRepo) GetRoleByName(_ context.Context, name string) (*domain.Role, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.roles {
		role := r.roles[id]
		if role.Name == name {
			return &role, nil
		}
	}
	return nil, fmt.Errorf("role not found: %w", sql.ErrNoRows)
}
