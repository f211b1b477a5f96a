package repository

import (
	"context"

	"citizenly-registry/internal/domain"
)

// PSOCRepository is the access layer for the occupation classification
// tree. Search serves the occupation picker; upserts serve the import
// command.
type PSOCRepository interface {
	SearchOccupations(ctx context.Context, search string, level string, page, size int) ([]*domain.Occupation, int, error)
	GetOccupation(ctx context.Context, code string) (*domain.Occupation, error)
	ListChildren(ctx context.Context, parentCode string) ([]*domain.Occupation, error)

	UpsertOccupations(ctx context.Context, occupations []*domain.Occupation) (int, error)
	CountOccupations(ctx context.Context) (int, error)
}
