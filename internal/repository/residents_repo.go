package repository

import (
	"context"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// ResidentsRepository is the access layer for inhabitant records and
// their migration satellite rows. Every method that reads or mutates
// existing rows takes the caller's scope and applies it in SQL, so a
// record outside the scope behaves exactly like a record that does not
// exist. Reads exclude soft-deleted rows unless the filter says
// otherwise.
type ResidentsRepository interface {
	GetResident(ctx context.Context, scope authz.Scope, residentID string) (*domain.Resident, error)
	ListResidents(ctx context.Context, scope authz.Scope, filters ResidentFilters, page, size int) ([]*domain.Resident, int, error)

	// CreateResident trusts the geographic columns on the model; the
	// service fills them from the ancestry resolver before calling.
	CreateResident(ctx context.Context, resident *domain.Resident) (string, error)
	UpdateResident(ctx context.Context, scope authz.Scope, residentID string, resident *domain.Resident) error
	SoftDeleteResident(ctx context.Context, scope authz.Scope, residentID string) error

	// migration satellite rows (at most one per resident)
	GetMigration(ctx context.Context, scope authz.Scope, residentID string) (*domain.ResidentMigration, error)
	UpsertMigration(ctx context.Context, scope authz.Scope, residentID string, migration *domain.ResidentMigration) error
	DeleteMigration(ctx context.Context, scope authz.Scope, residentID string) error
}

// ResidentFilters narrows ListResidents.
type ResidentFilters struct {
	HouseholdID      string // rows belonging to one household
	BarangayCode     string // narrower than the scope, e.g. a city admin drilling into one barangay
	Sex              string
	CivilStatus      string
	EmploymentStatus string
	OccupationCode   string

	IsVoter *bool
	IsPWD   *bool

	// Search matches first, middle and last name and email.
	Search string

	// IncludeDeleted is only set by diagnostic commands.
	IncludeDeleted bool
}
