package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"citizenly-registry/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ancestryColumnNames = []string{
	"code", "name", "city_code", "city_name",
	"province_code", "province_name", "region_code", "region_name",
}

func TestPostgresPSGC_GetAncestry_CompleteChain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)

	mock.ExpectQuery(`SELECT(.+)FROM psgc_barangays b(.+)LEFT JOIN psgc_regions g`).
		WithArgs("042114014").
		WillReturnRows(sqlmock.NewRows(ancestryColumnNames).AddRow(
			"042114014", "Anabu II-A", "042114", "Imus",
			"0421", "Cavite", "04", "CALABARZON",
		))

	ancestry, err := repo.GetAncestry(context.Background(), "042114014")
	require.NoError(t, err)
	assert.Equal(t, "042114014", ancestry.BarangayCode)
	assert.Equal(t, "Anabu II-A", ancestry.BarangayName)
	assert.Equal(t, "042114", ancestry.CityCode)
	assert.Equal(t, "Imus", ancestry.CityName)
	assert.Equal(t, "0421", ancestry.ProvinceCode)
	assert.Equal(t, "Cavite", ancestry.ProvinceName)
	assert.Equal(t, "04", ancestry.RegionCode)
	assert.Equal(t, "CALABARZON", ancestry.RegionName)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPSGC_GetAncestry_BrokenChain(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)

	// the city row is missing, so every level above the barangay is NULL
	mock.ExpectQuery(`SELECT(.+)FROM psgc_barangays b`).
		WithArgs("999999999").
		WillReturnRows(sqlmock.NewRows(ancestryColumnNames).AddRow(
			"999999999", "Orphaned", "999999", nil,
			nil, nil, nil, nil,
		))

	_, err = repo.GetAncestry(context.Background(), "999999999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBrokenGeoChain))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPSGC_GetAncestry_UnknownBarangay(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)

	mock.ExpectQuery(`SELECT(.+)FROM psgc_barangays b`).
		WithArgs("000000000").
		WillReturnRows(sqlmock.NewRows(ancestryColumnNames))

	_, err = repo.GetAncestry(context.Background(), "000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.False(t, errors.Is(err, ErrBrokenGeoChain))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPSGC_ListBarangays_SearchAndPaging(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM psgc_barangays WHERE city_code = \$1 AND name ILIKE \$2`).
		WithArgs("042114", "%Anabu%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	mock.ExpectQuery(`SELECT(.+)FROM psgc_barangays(.+)ORDER BY name(.+)LIMIT \$3 OFFSET \$4`).
		WithArgs("042114", "%Anabu%", 20, 0).
		WillReturnRows(sqlmock.NewRows([]string{"code", "name", "city_code", "urban_rural", "created_at", "updated_at"}).
			AddRow("042114014", "Anabu II-A", "042114", "Urban", now, now).
			AddRow("042114015", "Anabu II-B", "042114", "Urban", now, now))

	barangays, total, err := repo.ListBarangays(context.Background(), "042114", "Anabu", 1, 20)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, barangays, 2)
	assert.Equal(t, "Anabu II-A", barangays[0].Name)
	assert.Equal(t, "Urban", barangays[0].UrbanRural)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPSGC_UpsertBarangays_SkipsIncompleteRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare(`INSERT INTO psgc_barangays`)
	prepared.ExpectExec().
		WithArgs("042114014", "Anabu II-A", "042114", "Urban").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := repo.UpsertBarangays(context.Background(), []*domain.Barangay{
		{Code: "042114014", Name: "Anabu II-A", CityCode: "042114", UrbanRural: "Urban"},
		{Code: "", Name: "No Code", CityCode: "042114"},
		{Code: "042114015", Name: "", CityCode: "042114"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPSGC_UpsertCities_DefaultsLevel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)

	mock.ExpectBegin()
	prepared := mock.ExpectPrepare(`INSERT INTO psgc_cities`)
	prepared.ExpectExec().
		WithArgs("042114", "Imus", "0421", "City").
		WillReturnResult(sqlmock.NewResult(0, 1))
	prepared.ExpectExec().
		WithArgs("042199", "Somewhere", "0421", "Mun").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	count, err := repo.UpsertCities(context.Background(), []*domain.City{
		{Code: "042114", Name: "Imus", ProvinceCode: "0421", Level: "City"},
		{Code: "042199", Name: "Somewhere", ProvinceCode: "0421"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPSGC_UpsertRegions_EmptySliceIsNoop(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)

	count, err := repo.UpsertRegions(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPSGC_CountByLevel(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresPSGCRepository(db)

	mock.ExpectQuery(`SELECT(.+)FROM psgc_regions(.+)FROM psgc_barangays`).
		WillReturnRows(sqlmock.NewRows([]string{"regions", "provinces", "cities", "barangays"}).
			AddRow(17, 82, 1489, 42046))

	counts, err := repo.CountByLevel(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 17, counts.Regions)
	assert.Equal(t, 82, counts.Provinces)
	assert.Equal(t, 1489, counts.Cities)
	assert.Equal(t, 42046, counts.Barangays)

	assert.NoError(t, mock.ExpectationsWereMet())
}
