package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"citizenly-registry/internal/domain"
)

// PostgresPSGCRepository implements PSGCRepository on the psgc_* tables.
type PostgresPSGCRepository struct {
	db *sql.DB
}

func NewPostgresPSGCRepository(db *sql.DB) *PostgresPSGCRepository {
	return &PostgresPSGCRepository{db: db}
}

var _ PSGCRepository = (*PostgresPSGCRepository)(nil)

func (r *PostgresPSGCRepository) ListRegions(ctx context.Context) ([]*domain.Region, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT code, name, created_at, updated_at
		FROM psgc_regions
		ORDER BY code
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	defer rows.Close()

	regions := []*domain.Region{}
	for rows.Next() {
		var region domain.Region
		if err := rows.Scan(&region.Code, &region.Name, &region.CreatedAt, &region.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan region: %w", err)
		}
		regions = append(regions, &region)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate regions: %w", err)
	}

	return regions, nil
}

func (r *PostgresPSGCRepository) ListProvinces(ctx context.Context, regionCode string) ([]*domain.Province, error) {
	if regionCode == "" {
		return nil, fmt.Errorf("region_code is required")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT code, name, region_code, created_at, updated_at
		FROM psgc_provinces
		WHERE region_code = $1
		ORDER BY name
	`, regionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list provinces: %w", err)
	}
	defer rows.Close()

	provinces := []*domain.Province{}
	for rows.Next() {
		var province domain.Province
		if err := rows.Scan(&province.Code, &province.Name, &province.RegionCode,
			&province.CreatedAt, &province.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan province: %w", err)
		}
		provinces = append(provinces, &province)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate provinces: %w", err)
	}

	return provinces, nil
}

func (r *PostgresPSGCRepository) ListCities(ctx context.Context, provinceCode string) ([]*domain.City, error) {
	if provinceCode == "" {
		return nil, fmt.Errorf("province_code is required")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT code, name, province_code, level, created_at, updated_at
		FROM psgc_cities
		WHERE province_code = $1
		ORDER BY name
	`, provinceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	cities := []*domain.City{}
	for rows.Next() {
		var city domain.City
		if err := rows.Scan(&city.Code, &city.Name, &city.ProvinceCode, &city.Level,
			&city.CreatedAt, &city.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, &city)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cities: %w", err)
	}

	return cities, nil
}

func (r *PostgresPSGCRepository) ListBarangays(ctx context.Context, cityCode string, search string, page, size int) ([]*domain.Barangay, int, error) {
	if cityCode == "" {
		return nil, 0, fmt.Errorf("city_code is required")
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	where := []string{"city_code = $1"}
	args := []any{cityCode}

	if search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("name ILIKE $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM psgc_barangays WHERE %s`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count barangays: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT code, name, city_code, COALESCE(urban_rural, ''), created_at, updated_at
		FROM psgc_barangays
		WHERE %s
		ORDER BY name
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list barangays: %w", err)
	}
	defer rows.Close()

	barangays := []*domain.Barangay{}
	for rows.Next() {
		var barangay domain.Barangay
		if err := rows.Scan(&barangay.Code, &barangay.Name, &barangay.CityCode,
			&barangay.UrbanRural, &barangay.CreatedAt, &barangay.UpdatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan barangay: %w", err)
		}
		barangays = append(barangays, &barangay)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate barangays: %w", err)
	}

	return barangays, total, nil
}

func (r *PostgresPSGCRepository) GetBarangay(ctx context.Context, code string) (*domain.Barangay, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}

	var barangay domain.Barangay
	err := r.db.QueryRowContext(ctx, `
		SELECT code, name, city_code, COALESCE(urban_rural, ''), created_at, updated_at
		FROM psgc_barangays
		WHERE code = $1
	`, code).Scan(&barangay.Code, &barangay.Name, &barangay.CityCode,
		&barangay.UrbanRural, &barangay.CreatedAt, &barangay.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("barangay not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get barangay: %w", err)
	}

	return &barangay, nil
}

// GetAncestry resolves the full chain with LEFT JOINs so a missing upper
// level is distinguishable from a missing barangay. A NULL anywhere in
// the chain means the reference data is inconsistent and the caller must
// not derive codes by other means.
func (r *PostgresPSGCRepository) GetAncestry(ctx context.Context, barangayCode string) (*domain.GeoAncestry, error) {
	if barangayCode == "" {
		return nil, fmt.Errorf("barangay_code is required")
	}

	query := `
		SELECT
			b.code,
			b.name,
			b.city_code,
			c.name,
			c.province_code,
			p.name,
			p.region_code,
			g.name
		FROM psgc_barangays b
		LEFT JOIN psgc_cities c ON c.code = b.city_code
		LEFT JOIN psgc_provinces p ON p.code = c.province_code
		LEFT JOIN psgc_regions g ON g.code = p.region_code
		WHERE b.code = $1
	`

	var ancestry domain.GeoAncestry
	var cityName, provinceCode, provinceName, regionCode, regionName sql.NullString

	err := r.db.QueryRowContext(ctx, query, barangayCode).Scan(
		&ancestry.BarangayCode,
		&ancestry.BarangayName,
		&ancestry.CityCode,
		&cityName,
		&provinceCode,
		&provinceName,
		&regionCode,
		&regionName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("barangay not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get ancestry: %w", err)
	}

	if !cityName.Valid || !provinceCode.Valid || !provinceName.Valid || !regionCode.Valid || !regionName.Valid {
		return nil, fmt.Errorf("barangay %s: %w", barangayCode, ErrBrokenGeoChain)
	}

	ancestry.CityName = cityName.String
	ancestry.ProvinceCode = provinceCode.String
	ancestry.ProvinceName = provinceName.String
	ancestry.RegionCode = regionCode.String
	ancestry.RegionName = regionName.String

	return &ancestry, nil
}

func (r *PostgresPSGCRepository) UpsertRegions(ctx context.Context, regions []*domain.Region) (int, error) {
	if len(regions) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO psgc_regions (code, name)
		VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare region upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, region := range regions {
		if region.Code == "" || region.Name == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, region.Code, region.Name); err != nil {
			return 0, fmt.Errorf("failed to upsert region %s: %w", region.Code, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit region upserts: %w", err)
	}

	return count, nil
}

func (r *PostgresPSGCRepository) UpsertProvinces(ctx context.Context, provinces []*domain.Province) (int, error) {
	if len(provinces) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO psgc_provinces (code, name, region_code)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, region_code = EXCLUDED.region_code, updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare province upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, province := range provinces {
		if province.Code == "" || province.Name == "" || province.RegionCode == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, province.Code, province.Name, province.RegionCode); err != nil {
			return 0, fmt.Errorf("failed to upsert province %s: %w", province.Code, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit province upserts: %w", err)
	}

	return count, nil
}

func (r *PostgresPSGCRepository) UpsertCities(ctx context.Context, cities []*domain.City) (int, error) {
	if len(cities) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO psgc_cities (code, name, province_code, level)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, province_code = EXCLUDED.province_code, level = EXCLUDED.level, updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare city upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, city := range cities {
		if city.Code == "" || city.Name == "" || city.ProvinceCode == "" {
			continue
		}
		level := city.Level
		if level == "" {
			level = "Mun"
		}
		if _, err := stmt.ExecContext(ctx, city.Code, city.Name, city.ProvinceCode, level); err != nil {
			return 0, fmt.Errorf("failed to upsert city %s: %w", city.Code, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit city upserts: %w", err)
	}

	return count, nil
}

func (r *PostgresPSGCRepository) UpsertBarangays(ctx context.Context, barangays []*domain.Barangay) (int, error) {
	if len(barangays) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO psgc_barangays (code, name, city_code, urban_rural)
		VALUES ($1, $2, $3, NULLIF($4, ''))
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, city_code = EXCLUDED.city_code, urban_rural = EXCLUDED.urban_rural, updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare barangay upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, barangay := range barangays {
		if barangay.Code == "" || barangay.Name == "" || barangay.CityCode == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, barangay.Code, barangay.Name, barangay.CityCode, barangay.UrbanRural); err != nil {
			return 0, fmt.Errorf("failed to upsert barangay %s: %w", barangay.Code, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit barangay upserts: %w", err)
	}

	return count, nil
}

func (r *PostgresPSGCRepository) CountByLevel(ctx context.Context) (*PSGCCounts, error) {
	var counts PSGCCounts
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM psgc_regions),
			(SELECT COUNT(*) FROM psgc_provinces),
			(SELECT COUNT(*) FROM psgc_cities),
			(SELECT COUNT(*) FROM psgc_barangays)
	`).Scan(&counts.Regions, &counts.Provinces, &counts.Cities, &counts.Barangays)
	if err != nil {
		return nil, fmt.Errorf("failed to count reference rows: %w", err)
	}

	return &counts, nil
}

// ListBrokenBarangays returns barangays whose chain does not reach a
// region. Used by the check-geo-codes command.
func (r *PostgresPSGCRepository) ListBrokenBarangays(ctx context.Context, limit int) ([]*domain.Barangay, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT b.code, b.name, b.city_code, COALESCE(b.urban_rural, ''), b.created_at, b.updated_at
		FROM psgc_barangays b
		LEFT JOIN psgc_cities c ON c.code = b.city_code
		LEFT JOIN psgc_provinces p ON p.code = c.province_code
		LEFT JOIN psgc_regions g ON g.code = p.region_code
		WHERE c.code IS NULL OR p.code IS NULL OR g.code IS NULL
		ORDER BY b.code
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list broken barangays: %w", err)
	}
	defer rows.Close()

	barangays := []*domain.Barangay{}
	for rows.Next() {
		var barangay domain.Barangay
		if err := rows.Scan(&barangay.Code, &barangay.Name, &barangay.CityCode,
			&barangay.UrbanRural, &barangay.CreatedAt, &barangay.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan barangay: %w", err)
		}
		barangays = append(barangays, &barangay)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate barangays: %w", err)
	}

	return barangays, nil
}
