package repository

import (
	"context"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// StatsRepository computes the dashboard aggregates inside the caller's
// scope. Counts cover non-deleted rows only.
type StatsRepository interface {
	ResidentStats(ctx context.Context, scope authz.Scope) (*domain.ResidentStats, error)

	// ChildBreakdown groups counts by the geography one tier below the
	// scope (a city admin sees per-barangay rows). Barangay scopes have
	// no child level and get an empty slice.
	ChildBreakdown(ctx context.Context, scope authz.Scope) ([]*domain.GeoCount, error)
}
