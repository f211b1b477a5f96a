package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// PostgresUsersRepository implements UsersRepository on user_profiles.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `
	u.id::text,
	u.email,
	u.password_hash,
	u.first_name,
	u.last_name,
	u.mobile_number,
	u.role_id::text,
	ro.name,
	u.barangay_code,
	u.city_code,
	u.province_code,
	u.region_code,
	u.is_active,
	u.last_login_at,
	u.created_at,
	u.updated_at
`

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM user_profiles u
		JOIN roles ro ON ro.id = u.role_id
		WHERE u.id = $1
	`, userColumns), userID)

	return scanUser(row)
}

func (r *PostgresUsersRepository) GetUserByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s
		FROM user_profiles u
		JOIN roles ro ON ro.id = u.role_id
		WHERE LOWER(u.email) = LOWER($1)
	`, userColumns), email)

	return scanUser(row)
}

func (r *PostgresUsersRepository) ListUsers(ctx context.Context, scope authz.Scope, search string, page, size int) ([]*domain.UserProfile, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	query := `
		FROM user_profiles u
		JOIN roles ro ON ro.id = u.role_id
		WHERE 1=1
	`
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		query += fmt.Sprintf(` AND (u.email ILIKE $%d OR u.first_name ILIKE $%d OR u.last_name ILIKE $%d)`,
			len(args), len(args), len(args))
	}

	scope.Apply(&query, &args, "u", false)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+query, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	listQuery := fmt.Sprintf(`SELECT %s %s ORDER BY u.last_name, u.first_name LIMIT $%d OFFSET $%d`,
		userColumns, query, len(args)+1, len(args)+2)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []*domain.UserProfile{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, user)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, total, nil
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.UserProfile) (string, error) {
	if user == nil {
		return "", fmt.Errorf("user is required")
	}
	if user.Email == "" {
		return "", fmt.Errorf("email is required")
	}
	if len(user.PasswordHash) == 0 {
		return "", fmt.Errorf("password_hash is required")
	}
	if user.RoleID == "" {
		return "", fmt.Errorf("role_id is required")
	}

	var mobileArg any = nil
	if user.MobileNumber != nil && *user.MobileNumber != "" {
		mobileArg = *user.MobileNumber
	}
	var barangayArg, cityArg, provinceArg, regionArg any = nil, nil, nil, nil
	if user.BarangayCode != nil && *user.BarangayCode != "" {
		barangayArg = *user.BarangayCode
	}
	if user.CityCode != nil && *user.CityCode != "" {
		cityArg = *user.CityCode
	}
	if user.ProvinceCode != nil && *user.ProvinceCode != "" {
		provinceArg = *user.ProvinceCode
	}
	if user.RegionCode != nil && *user.RegionCode != "" {
		regionArg = *user.RegionCode
	}

	var userID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO user_profiles (
			email, password_hash, first_name, last_name, mobile_number,
			role_id, barangay_code, city_code, province_code, region_code,
			is_active
		) VALUES (LOWER($1), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id::text
	`,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, mobileArg,
		user.RoleID, barangayArg, cityArg, provinceArg, regionArg,
		user.IsActive,
	).Scan(&userID)
	if err != nil {
		return "", fmt.Errorf("failed to create user: %w", err)
	}

	return userID, nil
}

func (r *PostgresUsersRepository) UpdateLastLogin(ctx context.Context, userID string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	_, err := r.db.ExecContext(ctx, `
		UPDATE user_profiles SET last_login_at = $2, updated_at = NOW() WHERE id = $1
	`, userID, at)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return nil
}

func (r *PostgresUsersRepository) SetUserActive(ctx context.Context, userID string, active bool) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE user_profiles SET is_active = $2, updated_at = NOW() WHERE id = $1
	`, userID, active)
	if err != nil {
		return fmt.Errorf("failed to set user active: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	return nil
}

func scanUser(row interface{ Scan(dest ...any) error }) (*domain.UserProfile, error) {
	var user domain.UserProfile
	var mobileNumber sql.NullString
	var barangayCode, cityCode, provinceCode, regionCode sql.NullString
	var lastLoginAt sql.NullTime

	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&mobileNumber,
		&user.RoleID,
		&user.RoleName,
		&barangayCode,
		&cityCode,
		&provinceCode,
		&regionCode,
		&user.IsActive,
		&lastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	if mobileNumber.Valid {
		user.MobileNumber = &mobileNumber.String
	}
	if barangayCode.Valid {
		user.BarangayCode = &barangayCode.String
	}
	if cityCode.Valid {
		user.CityCode = &cityCode.String
	}
	if provinceCode.Valid {
		user.ProvinceCode = &provinceCode.String
	}
	if regionCode.Valid {
		user.RegionCode = &regionCode.String
	}
	if lastLoginAt.Valid {
		user.LastLoginAt = &lastLoginAt.Time
	}

	return &user, nil
}
