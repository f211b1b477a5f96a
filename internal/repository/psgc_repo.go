package repository

import (
	"context"

	"citizenly-registry/internal/domain"
)

// PSGCRepository is the access layer for the four geographic reference
// tables. Reads serve the address browser and the ancestry resolver;
// batch upserts serve the import and sync commands. Reference rows are
// never deleted through this interface.
type PSGCRepository interface {
	// browsing, one level at a time
	ListRegions(ctx context.Context) ([]*domain.Region, error)
	ListProvinces(ctx context.Context, regionCode string) ([]*domain.Province, error)
	ListCities(ctx context.Context, provinceCode string) ([]*domain.City, error)
	ListBarangays(ctx context.Context, cityCode string, search string, page, size int) ([]*domain.Barangay, int, error)
	GetBarangay(ctx context.Context, code string) (*domain.Barangay, error)

	// GetAncestry walks barangay -> city -> province -> region through
	// the reference tables. Unknown barangay wraps sql.ErrNoRows; a
	// resolvable barangay with a missing upper level returns
	// ErrBrokenGeoChain.
	GetAncestry(ctx context.Context, barangayCode string) (*domain.GeoAncestry, error)

	// batch upserts for import/sync
	UpsertRegions(ctx context.Context, regions []*domain.Region) (int, error)
	UpsertProvinces(ctx context.Context, provinces []*domain.Province) (int, error)
	UpsertCities(ctx context.Context, cities []*domain.City) (int, error)
	UpsertBarangays(ctx context.Context, barangays []*domain.Barangay) (int, error)

	// diagnostics
	CountByLevel(ctx context.Context) (*PSGCCounts, error)
	ListBrokenBarangays(ctx context.Context, limit int) ([]*domain.Barangay, error)
}

// PSGCCounts reference row counts per level.
type PSGCCounts struct {
	Regions   int
	Provinces int
	Cities    int
	Barangays int
}
