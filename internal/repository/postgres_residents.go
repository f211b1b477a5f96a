package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// PostgresResidentsRepository implements ResidentsRepository on the
// residents and resident_migrations tables.
type PostgresResidentsRepository struct {
	db *sql.DB
}

func NewPostgresResidentsRepository(db *sql.DB) *PostgresResidentsRepository {
	return &PostgresResidentsRepository{db: db}
}

var _ ResidentsRepository = (*PostgresResidentsRepository)(nil)

const residentColumns = `
	r.id::text,
	r.first_name,
	r.middle_name,
	r.last_name,
	r.extension_name,
	r.birthdate,
	r.birth_place,
	r.sex,
	r.civil_status,
	r.citizenship,
	r.education_attainment,
	r.employment_status,
	r.occupation_code,
	r.email,
	r.mobile_number,
	r.telephone_number,
	r.philsys_last4,
	r.household_id::text,
	r.barangay_code,
	r.city_code,
	r.province_code,
	r.region_code,
	r.is_labor_force,
	r.is_ofw,
	r.is_pwd,
	r.is_solo_parent,
	r.is_indigenous,
	r.is_voter,
	r.created_by::text,
	r.created_at,
	r.updated_at,
	r.deleted_at
`

func (r *PostgresResidentsRepository) GetResident(ctx context.Context, scope authz.Scope, residentID string) (*domain.Resident, error) {
	if residentID == "" {
		return nil, fmt.Errorf("resident_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM residents r
		WHERE r.id = $1 AND r.deleted_at IS NULL
	`, residentColumns)
	args := []any{residentID}
	scope.Apply(&query, &args, "r", false)

	row := r.db.QueryRowContext(ctx, query, args...)
	resident, err := scanResident(row)
	if err != nil {
		return nil, err
	}

	return resident, nil
}

func (r *PostgresResidentsRepository) ListResidents(ctx context.Context, scope authz.Scope, filters ResidentFilters, page, size int) ([]*domain.Resident, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	query := `
		FROM residents r
		WHERE 1=1
	`
	args := []any{}

	if !filters.IncludeDeleted {
		query += ` AND r.deleted_at IS NULL`
	}
	if filters.HouseholdID != "" {
		args = append(args, filters.HouseholdID)
		query += fmt.Sprintf(` AND r.household_id = $%d`, len(args))
	}
	if filters.BarangayCode != "" {
		args = append(args, filters.BarangayCode)
		query += fmt.Sprintf(` AND r.barangay_code = $%d`, len(args))
	}
	if filters.Sex != "" {
		args = append(args, filters.Sex)
		query += fmt.Sprintf(` AND r.sex = $%d`, len(args))
	}
	if filters.CivilStatus != "" {
		args = append(args, filters.CivilStatus)
		query += fmt.Sprintf(` AND r.civil_status = $%d`, len(args))
	}
	if filters.EmploymentStatus != "" {
		args = append(args, filters.EmploymentStatus)
		query += fmt.Sprintf(` AND r.employment_status = $%d`, len(args))
	}
	if filters.OccupationCode != "" {
		args = append(args, filters.OccupationCode)
		query += fmt.Sprintf(` AND r.occupation_code = $%d`, len(args))
	}
	if filters.IsVoter != nil {
		args = append(args, *filters.IsVoter)
		query += fmt.Sprintf(` AND r.is_voter = $%d`, len(args))
	}
	if filters.IsPWD != nil {
		args = append(args, *filters.IsPWD)
		query += fmt.Sprintf(` AND r.is_pwd = $%d`, len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		idx := len(args)
		query += fmt.Sprintf(` AND (r.first_name ILIKE $%d OR COALESCE(r.middle_name, '') ILIKE $%d OR r.last_name ILIKE $%d OR COALESCE(r.email, '') ILIKE $%d)`,
			idx, idx, idx, idx)
	}

	scope.Apply(&query, &args, "r", false)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count residents: %w", err)
	}

	listQuery := fmt.Sprintf(`SELECT %s %s ORDER BY r.last_name, r.first_name LIMIT $%d OFFSET $%d`,
		residentColumns, query, len(args)+1, len(args)+2)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list residents: %w", err)
	}
	defer rows.Close()

	residents := []*domain.Resident{}
	for rows.Next() {
		resident, err := scanResident(rows)
		if err != nil {
			return nil, 0, err
		}
		residents = append(residents, resident)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate residents: %w", err)
	}

	return residents, total, nil
}

func (r *PostgresResidentsRepository) CreateResident(ctx context.Context, resident *domain.Resident) (string, error) {
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

	citizenship := resident.Citizenship
	if citizenship == "" {
		citizenship = "Filipino"
	}

	var residentID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO residents (
			first_name, middle_name, last_name, extension_name,
			birthdate, birth_place, sex, civil_status, citizenship,
			education_attainment, employment_status, occupation_code,
			email, mobile_number, telephone_number, philsys_last4,
			household_id, barangay_code, city_code, province_code, region_code,
			is_labor_force, is_ofw, is_pwd, is_solo_parent, is_indigenous, is_voter,
			created_by
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9,
			$10, $11, $12,
			LOWER($13), $14, $15, $16,
			$17, $18, $19, $20, $21,
			$22, $23, $24, $25, $26, $27,
			$28
		)
		RETURNING id::text
	`,
		resident.FirstName, nullableString(resident.MiddleName), resident.LastName, nullableString(resident.ExtensionName),
		resident.Birthdate, nullableString(resident.BirthPlace), resident.Sex, resident.CivilStatus, citizenship,
		nullableString(resident.EducationAttainment), nullableString(resident.EmploymentStatus), nullableString(resident.OccupationCode),
		nullableString(resident.Email), nullableString(resident.MobileNumber), nullableString(resident.TelephoneNumber), nullableString(resident.PhilsysLast4),
		nullableString(resident.HouseholdID), resident.BarangayCode, resident.CityCode, resident.ProvinceCode, resident.RegionCode,
		resident.IsLaborForce, resident.IsOFW, resident.IsPWD, resident.IsSoloParent, resident.IsIndigenous, resident.IsVoter,
		resident.CreatedBy,
	).Scan(&residentID)
	if err != nil {
		return "", fmt.Errorf("failed to create resident: %w", err)
	}

	return residentID, nil
}

// UpdateResident writes the full mutable column set from the model. The
// service loads the current row, applies the request on top and calls
// here, so absent optional fields clear their columns.
func (r *PostgresResidentsRepository) UpdateResident(ctx context.Context, scope authz.Scope, residentID string, resident *domain.Resident) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if resident == nil {
		return fmt.Errorf("resident is required")
	}

	query := `
		UPDATE residents r SET
			first_name = $2,
			middle_name = $3,
			last_name = $4,
			extension_name = $5,
			birthdate = $6,
			birth_place = $7,
			sex = $8,
			civil_status = $9,
			citizenship = $10,
			education_attainment = $11,
			employment_status = $12,
			occupation_code = $13,
			email = LOWER($14),
			mobile_number = $15,
			telephone_number = $16,
			philsys_last4 = $17,
			household_id = $18,
			barangay_code = $19,
			city_code = $20,
			province_code = $21,
			region_code = $22,
			is_labor_force = $23,
			is_ofw = $24,
			is_pwd = $25,
			is_solo_parent = $26,
			is_indigenous = $27,
			is_voter = $28,
			updated_at = NOW()
		WHERE r.id = $1 AND r.deleted_at IS NULL
	`
	args := []any{
		residentID,
		resident.FirstName, nullableString(resident.MiddleName), resident.LastName, nullableString(resident.ExtensionName),
		resident.Birthdate, nullableString(resident.BirthPlace), resident.Sex, resident.CivilStatus, resident.Citizenship,
		nullableString(resident.EducationAttainment), nullableString(resident.EmploymentStatus), nullableString(resident.OccupationCode),
		nullableString(resident.Email), nullableString(resident.MobileNumber), nullableString(resident.TelephoneNumber), nullableString(resident.PhilsysLast4),
		nullableString(resident.HouseholdID), resident.BarangayCode, resident.CityCode, resident.ProvinceCode, resident.RegionCode,
		resident.IsLaborForce, resident.IsOFW, resident.IsPWD, resident.IsSoloParent, resident.IsIndigenous, resident.IsVoter,
	}
	scope.Apply(&query, &args, "r", false)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update resident: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("resident not found: %w", sql.ErrNoRows)
	}

	return nil
}

func (r *PostgresResidentsRepository) SoftDeleteResident(ctx context.Context, scope authz.Scope, residentID string) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}

	query := `
		UPDATE residents r SET deleted_at = NOW(), updated_at = NOW()
		WHERE r.id = $1 AND r.deleted_at IS NULL
	`
	args := []any{residentID}
	scope.Apply(&query, &args, "r", false)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete resident: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("resident not found: %w", sql.ErrNoRows)
	}

	return nil
}

func (r *PostgresResidentsRepository) GetMigration(ctx context.Context, scope authz.Scope, residentID string) (*domain.ResidentMigration, error) {
	if residentID == "" {
		return nil, fmt.Errorf("resident_id is required")
	}

	query := `
		SELECT
			m.resident_id::text,
			m.previous_barangay_code,
			m.previous_address,
			m.date_of_transfer,
			m.reason_for_transfer,
			m.months_at_previous,
			m.is_intending_to_return,
			m.created_at,
			m.updated_at
		FROM resident_migrations m
		JOIN residents r ON r.id = m.resident_id
		WHERE m.resident_id = $1 AND r.deleted_at IS NULL
	`
	args := []any{residentID}
	scope.Apply(&query, &args, "r", false)

	var migration domain.ResidentMigration
	var previousBarangayCode, previousAddress, reasonForTransfer sql.NullString
	var dateOfTransfer sql.NullTime
	var monthsAtPrevious sql.NullInt64
	var isIntendingToReturn sql.NullBool

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&migration.ResidentID,
		&previousBarangayCode,
		&previousAddress,
		&dateOfTransfer,
		&reasonForTransfer,
		&monthsAtPrevious,
		&isIntendingToReturn,
		&migration.CreatedAt,
		&migration.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("migration record not found: %w", err)
		}
		return nil, fmt.Errorf("failed to get migration record: %w", err)
	}

	if previousBarangayCode.Valid {
		migration.PreviousBarangayCode = &previousBarangayCode.String
	}
	if previousAddress.Valid {
		migration.PreviousAddress = &previousAddress.String
	}
	if dateOfTransfer.Valid {
		migration.DateOfTransfer = &dateOfTransfer.Time
	}
	if reasonForTransfer.Valid {
		migration.ReasonForTransfer = &reasonForTransfer.String
	}
	if monthsAtPrevious.Valid {
		months := int(monthsAtPrevious.Int64)
		migration.MonthsAtPrevious = &months
	}
	if isIntendingToReturn.Valid {
		migration.IsIntendingToReturn = &isIntendingToReturn.Bool
	}

	return &migration, nil
}

func (r *PostgresResidentsRepository) UpsertMigration(ctx context.Context, scope authz.Scope, residentID string, migration *domain.ResidentMigration) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}
	if migration == nil {
		return fmt.Errorf("migration is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// the resident must be visible to the caller before any write
	checkQuery := `SELECT 1 FROM residents r WHERE r.id = $1 AND r.deleted_at IS NULL`
	checkArgs := []any{residentID}
	scope.Apply(&checkQuery, &checkArgs, "r", false)

	var one int
	if err := tx.QueryRowContext(ctx, checkQuery, checkArgs...).Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("resident not found: %w", err)
		}
		return fmt.Errorf("failed to check resident: %w", err)
	}

	var dateArg any = nil
	if migration.DateOfTransfer != nil {
		dateArg = *migration.DateOfTransfer
	}
	var monthsArg any = nil
	if migration.MonthsAtPrevious != nil {
		monthsArg = *migration.MonthsAtPrevious
	}
	var returningArg any = nil
	if migration.IsIntendingToReturn != nil {
		returningArg = *migration.IsIntendingToReturn
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO resident_migrations (
			resident_id, previous_barangay_code, previous_address,
			date_of_transfer, reason_for_transfer, months_at_previous, is_intending_to_return
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (resident_id) DO UPDATE SET
			previous_barangay_code = EXCLUDED.previous_barangay_code,
			previous_address = EXCLUDED.previous_address,
			date_of_transfer = EXCLUDED.date_of_transfer,
			reason_for_transfer = EXCLUDED.reason_for_transfer,
			months_at_previous = EXCLUDED.months_at_previous,
			is_intending_to_return = EXCLUDED.is_intending_to_return,
			updated_at = NOW()
	`,
		residentID,
		nullableString(migration.PreviousBarangayCode),
		nullableString(migration.PreviousAddress),
		dateArg,
		nullableString(migration.ReasonForTransfer),
		monthsArg,
		returningArg,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert migration record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration upsert: %w", err)
	}

	return nil
}

func (r *PostgresResidentsRepository) DeleteMigration(ctx context.Context, scope authz.Scope, residentID string) error {
	if residentID == "" {
		return fmt.Errorf("resident_id is required")
	}

	query := `
		DELETE FROM resident_migrations m
		USING residents r
		WHERE m.resident_id = r.id AND m.resident_id = $1 AND r.deleted_at IS NULL
	`
	args := []any{residentID}
	scope.Apply(&query, &args, "r", false)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete migration record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("migration record not found: %w", sql.ErrNoRows)
	}

	return nil
}

func scanResident(row interface{ Scan(dest ...any) error }) (*domain.Resident, error) {
	var resident domain.Resident
	var middleName, extensionName, birthPlace sql.NullString
	var educationAttainment, employmentStatus, occupationCode sql.NullString
	var email, mobileNumber, telephoneNumber, philsysLast4 sql.NullString
	var householdID sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&resident.ID,
		&resident.FirstName,
		&middleName,
		&resident.LastName,
		&extensionName,
		&resident.Birthdate,
		&birthPlace,
		&resident.Sex,
		&resident.CivilStatus,
		&resident.Citizenship,
		&educationAttainment,
		&employmentStatus,
		&occupationCode,
		&email,
		&mobileNumber,
		&telephoneNumber,
		&philsysLast4,
		&householdID,
		&resident.BarangayCode,
		&resident.CityCode,
		&resident.ProvinceCode,
		&resident.RegionCode,
		&resident.IsLaborForce,
		&resident.IsOFW,
		&resident.IsPWD,
		&resident.IsSoloParent,
		&resident.IsIndigenous,
		&resident.IsVoter,
		&resident.CreatedBy,
		&resident.CreatedAt,
		&resident.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("resident not found: %w", err)
		}
		return nil, fmt.Errorf("failed to scan resident: %w", err)
	}

	if middleName.Valid {
		resident.MiddleName = &middleName.String
	}
	if extensionName.Valid {
		resident.ExtensionName = &extensionName.String
	}
	if birthPlace.Valid {
		resident.BirthPlace = &birthPlace.String
	}
	if educationAttainment.Valid {
		resident.EducationAttainment = &educationAttainment.String
	}
	if employmentStatus.Valid {
		resident.EmploymentStatus = &employmentStatus.String
	}
	if occupationCode.Valid {
		resident.OccupationCode = &occupationCode.String
	}
	if email.Valid {
		resident.Email = &email.String
	}
	if mobileNumber.Valid {
		resident.MobileNumber = &mobileNumber.String
	}
	if telephoneNumber.Valid {
		resident.TelephoneNumber = &telephoneNumber.String
	}
	if philsysLast4.Valid {
		resident.PhilsysLast4 = &philsysLast4.String
	}
	if householdID.Valid {
		resident.HouseholdID = &householdID.String
	}
	if deletedAt.Valid {
		resident.DeletedAt = &deletedAt.Time
	}

	return &resident, nil
}

// nullableString converts an optional field to a SQL argument, NULL for
// nil or empty.
func nullableString(s *string) any {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	return *s
}
