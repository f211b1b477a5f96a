package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"citizenly-registry/internal/domain"
)

// PostgresPSOCRepository implements PSOCRepository on psoc_occupations.
type PostgresPSOCRepository struct {
	db *sql.DB
}

func NewPostgresPSOCRepository(db *sql.DB) *PostgresPSOCRepository {
	return &PostgresPSOCRepository{db: db}
}

var _ PSOCRepository = (*PostgresPSOCRepository)(nil)

func (r *PostgresPSOCRepository) SearchOccupations(ctx context.Context, search string, level string, page, size int) ([]*domain.Occupation, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}
	offset := (page - 1) * size

	where := []string{"1=1"}
	args := []any{}

	if search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(title ILIKE $%d OR code LIKE $%d)", len(args), len(args)))
	}
	if level != "" {
		args = append(args, level)
		where = append(where, fmt.Sprintf("level = $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM psoc_occupations WHERE %s`, whereClause)
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count occupations: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT code, title, level, parent_code, created_at, updated_at
		FROM psoc_occupations
		WHERE %s
		ORDER BY code
		LIMIT $%d OFFSET $%d
	`, whereClause, len(args)+1, len(args)+2)
	args = append(args, size, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search occupations: %w", err)
	}
	defer rows.Close()

	occupations := []*domain.Occupation{}
	for rows.Next() {
		occupation, err := scanOccupation(rows)
		if err != nil {
			return nil, 0, err
		}
		occupations = append(occupations, occupation)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate occupations: %w", err)
	}

	return occupations, total, nil
}

func (r *PostgresPSOCRepository) GetOccupation(ctx context.Context, code string) (*domain.Occupation, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT code, title, level, parent_code, created_at, updated_at
		FROM psoc_occupations
		WHERE code = $1
	`, code)

	return scanOccupation(row)
}

func (r *PostgresPSOCRepository) ListChildren(ctx context.Context, parentCode string) ([]*domain.Occupation, error) {
	if parentCode == "" {
		return nil, fmt.Errorf("parent_code is required")
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT code, title, level, parent_code, created_at, updated_at
		FROM psoc_occupations
		WHERE parent_code = $1
		ORDER BY code
	`, parentCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	defer rows.Close()

	occupations := []*domain.Occupation{}
	for rows.Next() {
		occupation, err := scanOccupation(rows)
		if err != nil {
			return nil, err
		}
		occupations = append(occupations, occupation)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate children: %w", err)
	}

	return occupations, nil
}

func (r *PostgresPSOCRepository) UpsertOccupations(ctx context.Context, occupations []*domain.Occupation) (int, error) {
	if len(occupations) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO psoc_occupations (code, title, level, parent_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (code) DO UPDATE SET title = EXCLUDED.title, level = EXCLUDED.level, parent_code = EXCLUDED.parent_code, updated_at = NOW()
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare occupation upsert: %w", err)
	}
	defer stmt.Close()

	count := 0
	for _, occupation := range occupations {
		if occupation.Code == "" || occupation.Title == "" || occupation.Level == "" {
			continue
		}
		var parentArg any = nil
		if occupation.ParentCode != nil && *occupation.ParentCode != "" {
			parentArg = *occupation.ParentCode
		}
		if _, err := stmt.ExecContext(ctx, occupation.Code, occupation.Title, occupation.Level, parentArg); err != nil {
			return 0, fmt.Errorf("failed to upsert occupation %s: %w", occupation.Code, err)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit occupation upserts: %w", err)
	}

	return count, nil
}

func (r *PostgresPSOCRepository) CountOccupations(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM psoc_occupations`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count occupations: %w", err)
	}
	return total, nil
}

// scanOccupation reads one row from either *sql.Row or *sql.Rows.
func scanOccupation(row interface{ Scan(dest ...any) error }) (*domain.Occupation, error) {
	var occupation domain.Occupation
	var parentCode sql.NullString

	err := row.Scan(
		&occupation.Code,
		&occupation.Title,
		&occupation.Level,
		&parentCode,
		&occupation.CreatedAt,
		&occupation.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("occupation not found: %w", err)
		}
		return nil, fmt.Errorf("failed to scan occupation: %w", err)
	}

	if parentCode.Valid {
		occupation.ParentCode = &parentCode.String
	}

	return &occupation, nil
}
