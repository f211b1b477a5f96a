package repository

import (
	"context"
	"database/sql"
	"fmt"

	"citizenly-registry/internal/domain"
)

// PostgresRolesRepository implements RolesRepository on the roles table.
type PostgresRolesRepository struct {
	db *sql.DB
}

func NewPostgresRolesRepository(db *sql.DB) *PostgresRolesRepository {
	return &PostgresRolesRepository{db: db}
}

var _ RolesRepository = (*PostgresRolesRepository)(nil)

const roleColumns = `
	id::text,
	name,
	display_name,
	COALESCE(description, ''),
	COALESCE(permissions, '{}'::jsonb)::text,
	created_at,
	updated_at
`

func (r *PostgresRolesRepository) ListRoles(ctx context.Context) ([]*domain.Role, error) {
	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT %s FROM roles ORDER BY name
	`, roleColumns))
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	roles := []*domain.Role{}
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate roles: %w", err)
	}

	return roles, nil
}

func (r *PostgresRolesRepository) GetRole(ctx context.Context, roleID string) (*domain.Role, error) {
	if roleID == "" {
		return nil, fmt.Errorf("role_id is required")
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM roles WHERE id = $1
	`, roleColumns), roleID)

	return scanRole(row)
}

func (r *PostgresRolesRepository) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	row := r.db.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT %s FROM roles WHERE name = $1
	`, roleColumns), name)

	return scanRole(row)
}

func scanRole(row interface{ Scan(dest ...any) error }) (*domain.Role, error) {
	var role domain.Role
	var permissionsRaw string

	err := row.Scan(
		&role.ID,
		&role.Name,
		&role.DisplayName,
		&role.Description,
		&permissionsRaw,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("role not found: %w", err)
		}
		return nil, fmt.Errorf("failed to scan role: %w", err)
	}

	if permissionsRaw != "" {
		role.Permissions = []byte(permissionsRaw)
	}

	return &role, nil
}
