package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResident(barangay, city, province, region string) *domain.Resident {
	return &domain.Resident{
		FirstName:    "Juan",
		LastName:     "Dela Cruz",
		Birthdate:    time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC),
		Sex:          domain.SexMale,
		CivilStatus:  domain.CivilStatusSingle,
		BarangayCode: barangay,
		CityCode:     city,
		ProvinceCode: province,
		RegionCode:   region,
		CreatedBy:    uuid.NewString(),
	}
}

func TestMemoryResidents_ScopeHidesOtherBarangays(t *testing.T) {
	repo := NewMemoryResidentsRepo()
	ctx := context.Background()

	inScope, err := repo.CreateResident(ctx, newTestResident("042114014", "042114", "0421", "04"))
	require.NoError(t, err)
	outOfScope, err := repo.CreateResident(ctx, newTestResident("042114015", "042114", "0421", "04"))
	require.NoError(t, err)

	barangayScope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	_, err = repo.GetResident(ctx, barangayScope, inScope)
	assert.NoError(t, err)

	_, err = repo.GetResident(ctx, barangayScope, outOfScope)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	// a city scope on the shared parent sees both
	cityScope := authz.Scope{Tier: authz.TierCity, Code: "042114"}
	residents, total, err := repo.ListResidents(ctx, cityScope, ResidentFilters{}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, residents, 2)

	residents, total, err = repo.ListResidents(ctx, barangayScope, ResidentFilters{}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, residents, 1)
	assert.Equal(t, inScope, residents[0].ID)
}

func TestMemoryResidents_SoftDeleteHidesFromReads(t *testing.T) {
	repo := NewMemoryResidentsRepo()
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierNational}

	residentID, err := repo.CreateResident(ctx, newTestResident("042114014", "042114", "0421", "04"))
	require.NoError(t, err)

	require.NoError(t, repo.SoftDeleteResident(ctx, scope, residentID))

	_, err = repo.GetResident(ctx, scope, residentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	// deleting again reads as already gone
	err = repo.SoftDeleteResident(ctx, scope, residentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, total, err := repo.ListResidents(ctx, scope, ResidentFilters{}, 1, 50)
	require.NoError(t, err)
	assert.Zero(t, total)

	_, total, err = repo.ListResidents(ctx, scope, ResidentFilters{IncludeDeleted: true}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestMemoryResidents_UpdateClearsAbsentOptionals(t *testing.T) {
	repo := NewMemoryResidentsRepo()
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierNational}

	resident := newTestResident("042114014", "042114", "0421", "04")
	email := "Juan@Example.COM"
	resident.Email = &email
	residentID, err := repo.CreateResident(ctx, resident)
	require.NoError(t, err)

	stored, err := repo.GetResident(ctx, scope, residentID)
	require.NoError(t, err)
	require.NotNil(t, stored.Email)
	assert.Equal(t, "juan@example.com", *stored.Email)

	// full-row update without email clears the column
	updated := *stored
	updated.Email = nil
	updated.CivilStatus = domain.CivilStatusMarried
	require.NoError(t, repo.UpdateResident(ctx, scope, residentID, &updated))

	stored, err = repo.GetResident(ctx, scope, residentID)
	require.NoError(t, err)
	assert.Nil(t, stored.Email)
	assert.Equal(t, domain.CivilStatusMarried, stored.CivilStatus)
}

func TestMemoryResidents_MigrationLifecycle(t *testing.T) {
	repo := NewMemoryResidentsRepo()
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	residentID, err := repo.CreateResident(ctx, newTestResident("042114014", "042114", "0421", "04"))
	require.NoError(t, err)

	_, err = repo.GetMigration(ctx, scope, residentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	previous := "042108001"
	reason := "employment"
	require.NoError(t, repo.UpsertMigration(ctx, scope, residentID, &domain.ResidentMigration{
		PreviousBarangayCode: &previous,
		ReasonForTransfer:    &reason,
	}))

	migration, err := repo.GetMigration(ctx, scope, residentID)
	require.NoError(t, err)
	assert.Equal(t, residentID, migration.ResidentID)
	require.NotNil(t, migration.PreviousBarangayCode)
	assert.Equal(t, "042108001", *migration.PreviousBarangayCode)
	firstCreated := migration.CreatedAt

	// an upsert over the existing record keeps created_at
	months := 18
	require.NoError(t, repo.UpsertMigration(ctx, scope, residentID, &domain.ResidentMigration{
		PreviousBarangayCode: &previous,
		MonthsAtPrevious:     &months,
	}))
	migration, err = repo.GetMigration(ctx, scope, residentID)
	require.NoError(t, err)
	assert.Equal(t, firstCreated, migration.CreatedAt)
	require.NotNil(t, migration.MonthsAtPrevious)
	assert.Equal(t, 18, *migration.MonthsAtPrevious)
	assert.Nil(t, migration.ReasonForTransfer)

	require.NoError(t, repo.DeleteMigration(ctx, scope, residentID))
	err = repo.DeleteMigration(ctx, scope, residentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestMemoryResidents_OutOfScopeWritesReadAsMissing(t *testing.T) {
	repo := NewMemoryResidentsRepo()
	ctx := context.Background()

	residentID, err := repo.CreateResident(ctx, newTestResident("042114014", "042114", "0421", "04"))
	require.NoError(t, err)

	otherBarangay := authz.Scope{Tier: authz.TierBarangay, Code: "042114015"}
	otherProvince := authz.Scope{Tier: authz.TierProvince, Code: "0434"}

	resident, err := repo.GetResident(ctx, authz.Scope{Tier: authz.TierNational}, residentID)
	require.NoError(t, err)

	err = repo.UpdateResident(ctx, otherBarangay, residentID, resident)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	err = repo.SoftDeleteResident(ctx, otherProvince, residentID)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	err = repo.UpsertMigration(ctx, otherBarangay, residentID, &domain.ResidentMigration{})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
