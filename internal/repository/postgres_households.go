package repository

import (
	"context"
	"database/sql"
	"fmt"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// PostgresHouseholdsRepository implements HouseholdsRepository on the
// households table.
type PostgresHouseholdsRepository struct {
	db *sql.DB
}

func NewPostgresHouseholdsRepository(db *sql.DB) *PostgresHouseholdsRepository {
	return &PostgresHouseholdsRepository{db: db}
}

var _ HouseholdsRepository = (*PostgresHouseholdsRepository)(nil)

const householdColumns = `
	h.id::text,
	h.code,
	h.name,
	COALESCE(h.house_number, ''),
	h.street,
	h.subdivision,
	h.barangay_code,
	h.city_code,
	h.province_code,
	h.region_code,
	COALESCE(h.household_type, ''),
	COALESCE(h.tenure_status, ''),
	h.monthly_income,
	h.head_resident_id::text,
	h.created_by::text,
	h.created_at,
	h.updated_at,
	h.deleted_at,
	(SELECT COUNT(*) FROM residents x WHERE x.household_id = h.id AND x.deleted_at IS NULL) AS member_count
`

func (r *PostgresHouseholdsRepository) GetHousehold(ctx context.Context, scope authz.Scope, householdID string) (*domain.Household, error) {
	if householdID == "" {
		return nil, fmt.Errorf("household_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM households h
		WHERE h.id = $1 AND h.deleted_at IS NULL
	`, householdColumns)
	args := []any{householdID}
	scope.Apply(&query, &args, "h", false)

	row := r.db.QueryRowContext(ctx, query, args...)
	return scanHousehold(row)
}

func (r *PostgresHouseholdsRepository) ListHouseholds(ctx context.Context, scope authz.Scope, filters HouseholdFilters, page, size int) ([]*domain.Household, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	query := `
		FROM households h
		WHERE h.deleted_at IS NULL
	`
	args := []any{}

	if filters.BarangayCode != "" {
		args = append(args, filters.BarangayCode)
		query += fmt.Sprintf(` AND h.barangay_code = $%d`, len(args))
	}
	if filters.HouseholdType != "" {
		args = append(args, filters.HouseholdType)
		query += fmt.Sprintf(` AND h.household_type = $%d`, len(args))
	}
	if filters.TenureStatus != "" {
		args = append(args, filters.TenureStatus)
		query += fmt.Sprintf(` AND h.tenure_status = $%d`, len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		idx := len(args)
		query += fmt.Sprintf(` AND (h.code ILIKE $%d OR h.name ILIKE $%d OR COALESCE(h.street, '') ILIKE $%d)`, idx, idx, idx)
	}

	scope.Apply(&query, &args, "h", false)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count households: %w", err)
	}

	listQuery := fmt.Sprintf(`SELECT %s %s ORDER BY h.code LIMIT $%d OFFSET $%d`,
		householdColumns, query, len(args)+1, len(args)+2)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list households: %w", err)
	}
	defer rows.Close()

	households := []*domain.Household{}
	for rows.Next() {
		household, err := scanHousehold(rows)
		if err != nil {
			return nil, 0, err
		}
		households = append(households, household)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate households: %w", err)
	}

	return households, total, nil
}

func (r *PostgresHouseholdsRepository) CreateHousehold(ctx context.Context, household *domain.Household) (string, error) {
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

	var householdType any = nil
	if household.HouseholdType != "" {
		householdType = household.HouseholdType
	}
	var tenureStatus any = nil
	if household.TenureStatus != "" {
		tenureStatus = household.TenureStatus
	}
	var houseNumber any = nil
	if household.HouseNumber != "" {
		houseNumber = household.HouseNumber
	}

	var householdID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO households (
			code, name, house_number, street, subdivision,
			barangay_code, city_code, province_code, region_code,
			household_type, tenure_status, monthly_income,
			created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id::text
	`,
		household.Code, household.Name, houseNumber, nullableString(household.Street), nullableString(household.Subdivision),
		household.BarangayCode, household.CityCode, household.ProvinceCode, household.RegionCode,
		householdType, tenureStatus, nullableString(household.MonthlyIncome),
		household.CreatedBy,
	).Scan(&householdID)
	if err != nil {
		return "", fmt.Errorf("failed to create household: %w", err)
	}

	return householdID, nil
}

func (r *PostgresHouseholdsRepository) UpdateHousehold(ctx context.Context, scope authz.Scope, householdID string, household *domain.Household) error {
	if householdID == "" {
		return fmt.Errorf("household_id is required")
	}
	if household == nil {
		return fmt.Errorf("household is required")
	}

	var householdType any = nil
	if household.HouseholdType != "" {
		householdType = household.HouseholdType
	}
	var tenureStatus any = nil
	if household.TenureStatus != "" {
		tenureStatus = household.TenureStatus
	}
	var houseNumber any = nil
	if household.HouseNumber != "" {
		houseNumber = household.HouseNumber
	}

	query := `
		UPDATE households h SET
			code = $2,
			name = $3,
			house_number = $4,
			street = $5,
			subdivision = $6,
			barangay_code = $7,
			city_code = $8,
			province_code = $9,
			region_code = $10,
			household_type = $11,
			tenure_status = $12,
			monthly_income = $13,
			updated_at = NOW()
		WHERE h.id = $1 AND h.deleted_at IS NULL
	`
	args := []any{
		householdID,
		household.Code, household.Name, houseNumber, nullableString(household.Street), nullableString(household.Subdivision),
		household.BarangayCode, household.CityCode, household.ProvinceCode, household.RegionCode,
		householdType, tenureStatus, nullableString(household.MonthlyIncome),
	}
	scope.Apply(&query, &args, "h", false)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update household: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("household not found: %w", sql.ErrNoRows)
	}

	return nil
}

func (r *PostgresHouseholdsRepository) SoftDeleteHousehold(ctx context.Context, scope authz.Scope, householdID string) error {
	if householdID == "" {
		return fmt.Errorf("household_id is required")
	}

	query := `
		UPDATE households h SET deleted_at = NOW(), updated_at = NOW()
		WHERE h.id = $1 AND h.deleted_at IS NULL
	`
	args := []any{householdID}
	scope.Apply(&query, &args, "h", false)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete household: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("household not found: %w", sql.ErrNoRows)
	}

	return nil
}

func (r *PostgresHouseholdsRepository) CountMembers(ctx context.Context, householdID string) (int, error) {
	if householdID == "" {
		return 0, fmt.Errorf("household_id is required")
	}

	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM residents WHERE household_id = $1 AND deleted_at IS NULL
	`, householdID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	return count, nil
}

func (r *PostgresHouseholdsRepository) SetHead(ctx context.Context, scope authz.Scope, householdID, residentID string) error {
	if householdID == "" || residentID == "" {
		return fmt.Errorf("household_id and resident_id are required")
	}

	// head must be a current member of the household
	query := `
		UPDATE households h SET head_resident_id = $2, updated_at = NOW()
		WHERE h.id = $1 AND h.deleted_at IS NULL
		  AND EXISTS (
			SELECT 1 FROM residents x
			WHERE x.id = $2 AND x.household_id = h.id AND x.deleted_at IS NULL
		  )
	`
	args := []any{householdID, residentID}
	scope.Apply(&query, &args, "h", false)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to set household head: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("household or member not found: %w", sql.ErrNoRows)
	}

	return nil
}

func scanHousehold(row interface{ Scan(dest ...any) error }) (*domain.Household, error) {
	var household domain.Household
	var street, subdivision, monthlyIncome sql.NullString
	var headResidentID sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&household.ID,
		&household.Code,
		&household.Name,
		&household.HouseNumber,
		&street,
		&subdivision,
		&household.BarangayCode,
		&household.CityCode,
		&household.ProvinceCode,
		&household.RegionCode,
		&household.HouseholdType,
		&household.TenureStatus,
		&monthlyIncome,
		&headResidentID,
		&household.CreatedBy,
		&household.CreatedAt,
		&household.UpdatedAt,
		&deletedAt,
		&household.MemberCount,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("household not found: %w", err)
		}
		return nil, fmt.Errorf("failed to scan household: %w", err)
	}

	if street.Valid {
		household.Street = &street.String
	}
	if subdivision.Valid {
		household.Subdivision = &subdivision.String
	}
	if monthlyIncome.Valid {
		household.MonthlyIncome = &monthlyIncome.String
	}
	if headResidentID.Valid {
		household.HeadResidentID = &headResidentID.String
	}
	if deletedAt.Valid {
		household.DeletedAt = &deletedAt.Time
	}

	return &household, nil
}
