package repository

import (
	"context"

	"citizenly-registry/internal/domain"
)

// RolesRepository reads the seeded role catalog. Roles are managed by
// migration, not by the API, so there are no write methods.
type RolesRepository interface {
	ListRoles(ctx context.Context) ([]*domain.Role, error)
	GetRole(ctx context.Context, roleID string) (*domain.Role, error)
	GetRoleByName(ctx context.Context, name string) (*domain.Role, error)
}
