package repository

import (
	"context"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// HouseholdsRepository is the access layer for household records. Scope
// and soft-delete semantics mirror ResidentsRepository.
type HouseholdsRepository interface {
	GetHousehold(ctx context.Context, scope authz.Scope, householdID string) (*domain.Household, error)
	ListHouseholds(ctx context.Context, scope authz.Scope, filters HouseholdFilters, page, size int) ([]*domain.Household, int, error)

	CreateHousehold(ctx context.Context, household *domain.Household) (string, error)
	UpdateHousehold(ctx context.Context, scope authz.Scope, householdID string, household *domain.Household) error
	SoftDeleteHousehold(ctx context.Context, scope authz.Scope, householdID string) error

	// CountMembers counts non-deleted residents assigned to the
	// household; the service refuses deletion while it is non-zero.
	CountMembers(ctx context.Context, householdID string) (int, error)

	// SetHead marks a member as head of household. The resident must
	// belong to the household.
	SetHead(ctx context.Context, scope authz.Scope, householdID, residentID string) error
}

// HouseholdFilters narrows ListHouseholds.
type HouseholdFilters struct {
	BarangayCode  string
	HouseholdType string
	TenureStatus  string

	// Search matches code, name and street.
	Search string
}
