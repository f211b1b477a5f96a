package service

import (
	"context"
	"fmt"
	"time"

	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// GeoCacheInvalidator clears derived geographic caches after the
// reference tables change.
type GeoCacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// PSGCSyncService refreshes the four geographic reference tables from a
// PSA publication mirror. Levels are fetched concurrently but written
// parent-first so foreign keys hold at every point.
type PSGCSyncService struct {
	client    *PSGCSyncClient
	psgcRepo  repository.PSGCRepository
	cache     GeoCacheInvalidator
	batchSize int
	logger    *zap.Logger
}

func NewPSGCSyncService(
	client *PSGCSyncClient,
	psgcRepo repository.PSGCRepository,
	cache GeoCacheInvalidator,
	batchSize int,
	logger *zap.Logger,
) *PSGCSyncService {
	if batchSize <= 0 {
		batchSize = 500
	}
	return &PSGCSyncService{
		client:    client,
		psgcRepo:  psgcRepo,
		cache:     cache,
		batchSize: batchSize,
		logger:    logger,
	}
}

// PSGCSyncReport summarizes one sync run.
type PSGCSyncReport struct {
	Regions   int
	Provinces int
	Cities    int
	Barangays int
	Duration  time.Duration
}

func (s *PSGCSyncService) SyncAll(ctx context.Context) (*PSGCSyncReport, error) {
	start := time.Now()

	var (
		regions   []*domain.Region
		provinces []*domain.Province
		cities    []*domain.City
		barangays []*domain.Barangay
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		regions, err = s.client.FetchRegions(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		provinces, err = s.client.FetchProvinces(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		cities, err = s.client.FetchCities(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		barangays, err = s.client.FetchBarangays(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch PSGC publication: %w", err)
	}

	report := &PSGCSyncReport{}

	n, err := s.upsertRegions(ctx, regions)
	if err != nil {
		return nil, err
	}
	report.Regions = n

	if report.Provinces, err = s.upsertProvinces(ctx, provinces); err != nil {
		return nil, err
	}
	if report.Cities, err = s.upsertCities(ctx, cities); err != nil {
		return nil, err
	}
	if report.Barangays, err = s.upsertBarangays(ctx, barangays); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("Failed to invalidate ancestry cache after sync", zap.Error(err))
		}
	}

	report.Duration = time.Since(start)
	s.logger.Info("PSGC sync finished",
		zap.Int("regions", report.Regions),
		zap.Int("provinces", report.Provinces),
		zap.Int("cities", report.Cities),
		zap.Int("barangays", report.Barangays),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (s *PSGCSyncService) upsertRegions(ctx context.Context, rows []*domain.Region) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := s.psgcRepo.UpsertRegions(ctx, rows[start:end])
		if err != nil {
			return total, fmt.Errorf("failed to upsert regions: %w", err)
		}
		total += n
	}
	return total, nil
}

func (s *PSGCSyncService) upsertProvinces(ctx context.Context, rows []*domain.Province) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := s.psgcRepo.UpsertProvinces(ctx, rows[start:end])
		if err != nil {
			return total, fmt.Errorf("failed to upsert provinces: %w", err)
		}
		total += n
	}
	return total, nil
}

func (s *PSGCSyncService) upsertCities(ctx context.Context, rows []*domain.City) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := s.psgcRepo.UpsertCities(ctx, rows[start:end])
		if err != nil {
			return total, fmt.Errorf("failed to upsert cities: %w", err)
		}
		total += n
	}
	return total, nil
}

func (s *PSGCSyncService) upsertBarangays(ctx context.Context, rows []*domain.Barangay) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		n, err := s.psgcRepo.UpsertBarangays(ctx, rows[start:end])
		if err != nil {
			return total, fmt.Errorf("failed to upsert barangays: %w", err)
		}
		total += n
	}
	return total, nil
}
