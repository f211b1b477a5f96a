package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var residentColumnNames = []string{
	"id", "first_name", "middle_name", "last_name", "extension_name",
	"birthdate", "birth_place", "sex", "civil_status", "citizenship",
	"education_attainment", "employment_status", "occupation_code",
	"email", "mobile_number", "telephone_number", "philsys_last4",
	"household_id", "barangay_code", "city_code", "province_code", "region_code",
	"is_labor_force", "is_ofw", "is_pwd", "is_solo_parent", "is_indigenous", "is_voter",
	"created_by", "created_at", "updated_at", "deleted_at",
}

func sampleResidentRow(id string) *sqlmock.Rows {
	now := time.Now()
	birthdate := time.Date(1990, 5, 12, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(residentColumnNames).AddRow(
		id, "Juan", "Santos", "Dela Cruz", nil,
		birthdate, "Imus, Cavite", "male", "married", "Filipino",
		"college", "employed", "23410",
		"juan@example.com", "09171234567", nil, nil,
		nil, "042114014", "042114", "0421", "04",
		true, false, false, false, false, true,
		uuid.NewString(), now, now, nil,
	)
}

func TestPostgresResidents_GetResident_AppliesScope(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}
	residentID := uuid.NewString()

	mock.ExpectQuery(`SELECT(.+)FROM residents r(.+)r\.barangay_code = \$2`).
		WithArgs(residentID, "042114014").
		WillReturnRows(sampleResidentRow(residentID))

	resident, err := repo.GetResident(context.Background(), scope, residentID)
	require.NoError(t, err)
	assert.Equal(t, residentID, resident.ID)
	assert.Equal(t, "Juan", resident.FirstName)
	assert.Equal(t, "Dela Cruz", resident.LastName)
	require.NotNil(t, resident.MiddleName)
	assert.Equal(t, "Santos", *resident.MiddleName)
	assert.Equal(t, "042114", resident.CityCode)
	assert.True(t, resident.IsVoter)
	assert.Nil(t, resident.DeletedAt)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_GetResident_OutOfScopeReadsAsMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114015"}
	residentID := uuid.NewString()

	// the scoped WHERE eliminates the row, so the driver reports no rows
	mock.ExpectQuery(`SELECT(.+)FROM residents r`).
		WithArgs(residentID, "042114015").
		WillReturnRows(sqlmock.NewRows(residentColumnNames))

	_, err = repo.GetResident(context.Background(), scope, residentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_GetResident_NationalScopeHasNoFilterArg(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	residentID := uuid.NewString()

	mock.ExpectQuery(`SELECT(.+)FROM residents r`).
		WithArgs(residentID).
		WillReturnRows(sampleResidentRow(residentID))

	resident, err := repo.GetResident(context.Background(), authz.Scope{Tier: authz.TierNational}, residentID)
	require.NoError(t, err)
	assert.Equal(t, residentID, resident.ID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_ListResidents_CountAndPage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	scope := authz.Scope{Tier: authz.TierCity, Code: "042114"}

	mock.ExpectQuery(`SELECT COUNT\(\*\)(.+)FROM residents r(.+)r\.city_code = \$1`).
		WithArgs("042114").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	mock.ExpectQuery(`SELECT(.+)FROM residents r(.+)ORDER BY r\.last_name(.+)LIMIT \$2 OFFSET \$3`).
		WithArgs("042114", 20, 0).
		WillReturnRows(sampleResidentRow(uuid.NewString()))

	residents, total, err := repo.ListResidents(context.Background(), scope, ResidentFilters{}, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, residents, 1)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_ListResidents_SexFilterBeforeScope(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	mock.ExpectQuery(`SELECT COUNT\(\*\)(.+)r\.sex = \$1(.+)r\.barangay_code = \$2`).
		WithArgs("female", "042114014").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	mock.ExpectQuery(`SELECT(.+)FROM residents r(.+)LIMIT \$3 OFFSET \$4`).
		WithArgs("female", "042114014", 50, 0).
		WillReturnRows(sqlmock.NewRows(residentColumnNames))

	residents, total, err := repo.ListResidents(context.Background(), scope, ResidentFilters{Sex: "female"}, 1, 50)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, residents)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_CreateResident_ReturnsID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	newID := uuid.NewString()

	mock.ExpectQuery(`INSERT INTO residents`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(newID))

	resident := &domain.Resident{
		FirstName:    "Maria",
		LastName:     "Reyes",
		Birthdate:    time.Date(1985, 3, 2, 0, 0, 0, 0, time.UTC),
		Sex:          domain.SexFemale,
		CivilStatus:  domain.CivilStatusSingle,
		BarangayCode: "042114014",
		CityCode:     "042114",
		ProvinceCode: "0421",
		RegionCode:   "04",
		CreatedBy:    uuid.NewString(),
	}

	createdID, err := repo.CreateResident(context.Background(), resident)
	require.NoError(t, err)
	assert.Equal(t, newID, createdID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_CreateResident_RequiresGeoCodes(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)

	_, err = repo.CreateResident(context.Background(), &domain.Resident{
		FirstName:    "Maria",
		LastName:     "Reyes",
		BarangayCode: "042114014",
		// ancestor codes missing: the resolver was skipped
		CreatedBy: uuid.NewString(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "geographic codes are required")
}

func TestPostgresResidents_SoftDelete_ZeroRowsIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}
	residentID := uuid.NewString()

	mock.ExpectExec(`UPDATE residents r SET deleted_at = NOW\(\)`).
		WithArgs(residentID, "042114014").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.SoftDeleteResident(context.Background(), scope, residentID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_SoftDelete_Succeeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	residentID := uuid.NewString()

	mock.ExpectExec(`UPDATE residents r SET deleted_at = NOW\(\)`).
		WithArgs(residentID).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.SoftDeleteResident(context.Background(), authz.Scope{Tier: authz.TierNational}, residentID)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresResidents_DeleteMigration_ScopedThroughResident(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresResidentsRepository(db)
	scope := authz.Scope{Tier: authz.TierProvince, Code: "0421"}
	residentID := uuid.NewString()

	mock.ExpectExec(`DELETE FROM resident_migrations m(.+)USING residents r(.+)r\.province_code = \$2`).
		WithArgs(residentID, "0421").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.DeleteMigration(context.Background(), scope, residentID)
	require.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}
