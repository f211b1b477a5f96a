package repository

import (
	"context"
	"database/sql"
	"fmt"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// PostgresStatsRepository implements StatsRepository with aggregate
// queries over residents and households.
type PostgresStatsRepository struct {
	db *sql.DB
}

func NewPostgresStatsRepository(db *sql.DB) *PostgresStatsRepository {
	return &PostgresStatsRepository{db: db}
}

var _ StatsRepository = (*PostgresStatsRepository)(nil)

func (r *PostgresStatsRepository) ResidentStats(ctx context.Context, scope authz.Scope) (*domain.ResidentStats, error) {
	stats := &domain.ResidentStats{}

	// one pass over residents; age bands follow RA 9994's senior threshold
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE r.created_at >= date_trunc('month', CURRENT_DATE)),
			COUNT(*) FILTER (WHERE r.sex = 'male'),
			COUNT(*) FILTER (WHERE r.sex = 'female'),
			COUNT(*) FILTER (WHERE r.birthdate > CURRENT_DATE - INTERVAL '15 years'),
			COUNT(*) FILTER (WHERE r.birthdate <= CURRENT_DATE - INTERVAL '15 years' AND r.birthdate > CURRENT_DATE - INTERVAL '60 years'),
			COUNT(*) FILTER (WHERE r.birthdate <= CURRENT_DATE - INTERVAL '60 years'),
			COUNT(*) FILTER (WHERE r.is_voter),
			COUNT(*) FILTER (WHERE r.is_pwd),
			COUNT(*) FILTER (WHERE r.is_solo_parent),
			COUNT(*) FILTER (WHERE r.is_ofw),
			COUNT(*) FILTER (WHERE r.is_labor_force),
			COUNT(*) FILTER (WHERE r.is_indigenous),
			COUNT(*) FILTER (WHERE r.employment_status = 'employed' OR r.employment_status = 'self_employed'),
			COUNT(*) FILTER (WHERE r.employment_status = 'unemployed')
		FROM residents r
		WHERE r.deleted_at IS NULL
	`
	args := []any{}
	scope.Apply(&query, &args, "r", false)

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalResidents,
		&stats.RegisteredThisMonth,
		&stats.Male,
		&stats.Female,
		&stats.AgeUnder15,
		&stats.Age15to59,
		&stats.Age60Up,
		&stats.Voters,
		&stats.PWDs,
		&stats.SoloParents,
		&stats.OFWs,
		&stats.LaborForce,
		&stats.Indigenous,
		&stats.Employed,
		&stats.Unemployed,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate residents: %w", err)
	}

	householdQuery := `
		SELECT COUNT(*)
		FROM households h
		WHERE h.deleted_at IS NULL
	`
	householdArgs := []any{}
	scope.Apply(&householdQuery, &householdArgs, "h", false)

	if err := r.db.QueryRowContext(ctx, householdQuery, householdArgs...).Scan(&stats.TotalHouseholds); err != nil {
		return nil, fmt.Errorf("failed to count households: %w", err)
	}

	return stats, nil
}

// childNameTables maps the breakdown tier to the reference table its
// names come from.
var childNameTables = map[authz.Tier]string{
	authz.TierRegion:   "psgc_regions",
	authz.TierProvince: "psgc_provinces",
	authz.TierCity:     "psgc_cities",
	authz.TierBarangay: "psgc_barangays",
}

func (r *PostgresStatsRepository) ChildBreakdown(ctx context.Context, scope authz.Scope) ([]*domain.GeoCount, error) {
	childTier, ok := authz.ChildTier(scope.Tier)
	if !ok {
		return []*domain.GeoCount{}, nil
	}
	column := childTier.CodeColumn()
	nameTable := childNameTables[childTier]

	query := fmt.Sprintf(`
		SELECT r.%s, COALESCE(n.name, ''), COUNT(*)
		FROM residents r
		LEFT JOIN %s n ON n.code = r.%s
		WHERE r.deleted_at IS NULL
	`, column, nameTable, column)
	args := []any{}
	scope.Apply(&query, &args, "r", false)
	query += fmt.Sprintf(` GROUP BY r.%s, n.name ORDER BY COUNT(*) DESC, r.%s`, column, column)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate residents by %s: %w", column, err)
	}
	defer rows.Close()

	counts := []*domain.GeoCount{}
	index := map[string]*domain.GeoCount{}
	for rows.Next() {
		count := &domain.GeoCount{}
		if err := rows.Scan(&count.Code, &count.Name, &count.Residents); err != nil {
			return nil, fmt.Errorf("failed to scan breakdown row: %w", err)
		}
		counts = append(counts, count)
		index[count.Code] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate breakdown rows: %w", err)
	}

	householdQuery := fmt.Sprintf(`
		SELECT h.%s, COUNT(*)
		FROM households h
		WHERE h.deleted_at IS NULL
	`, column)
	householdArgs := []any{}
	scope.Apply(&householdQuery, &householdArgs, "h", false)
	householdQuery += fmt.Sprintf(` GROUP BY h.%s`, column)

	householdRows, err := r.db.QueryContext(ctx, householdQuery, householdArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate households by %s: %w", column, err)
	}
	defer householdRows.Close()

	for householdRows.Next() {
		var code string
		var households int
		if err := householdRows.Scan(&code, &households); err != nil {
			return nil, fmt.Errorf("failed to scan household breakdown row: %w", err)
		}
		if count, ok := index[code]; ok {
			count.Households = households
		} else {
			// area with households but no residents yet
			counts = append(counts, &domain.GeoCount{Code: code, Households: households})
		}
	}
	if err := householdRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate household breakdown rows: %w", err)
	}

	return counts, nil
}
