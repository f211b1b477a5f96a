package service

import (
	"context"
	"fmt"
	"strings"

	"citizenly-registry/internal/config"
	"citizenly-registry/internal/domain"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// psgcRegionRow is one region in a PSGC publication payload.
type psgcRegionRow struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type psgcProvinceRow struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	RegionCode string `json:"region_code"`
}

type psgcCityRow struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ProvinceCode string `json:"province_code"`
	Type         string `json:"type"` // 'City'/'Mun'/'SubMun'
}

type psgcBarangayRow struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	CityCode   string `json:"city_code"`
	UrbanRural string `json:"urban_rural"`
}

// PSGCSyncClient pulls geographic reference publications from the PSA
// mirror configured in PSGC_SYNC_BASE_URL.
type PSGCSyncClient struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

func NewPSGCSyncClient(cfg config.PSGCSyncConfig, logger *zap.Logger) *PSGCSyncClient {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetRetryCount(3).
		SetHeader("Accept", "application/json")

	return &PSGCSyncClient{
		httpClient: client,
		logger:     logger,
	}
}

func (c *PSGCSyncClient) fetch(ctx context.Context, path string, out any) error {
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetResult(out).
		Get(path)
	if err != nil {
		c.logger.Error("PSGC publication request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return fmt.Errorf("failed to fetch %s: %w", path, err)
	}
	if resp.IsError() {
		c.logger.Error("PSGC publication returned error status",
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return fmt.Errorf("PSGC publication error on %s: HTTP %d", path, resp.StatusCode())
	}
	return nil
}

func (c *PSGCSyncClient) FetchRegions(ctx context.Context) ([]*domain.Region, error) {
	var rows []psgcRegionRow
	if err := c.fetch(ctx, "/regions", &rows); err != nil {
		return nil, err
	}
	regions := make([]*domain.Region, 0, len(rows))
	for _, row := range rows {
		regions = append(regions, &domain.Region{Code: row.Code, Name: row.Name})
	}
	c.logger.Info("Fetched PSGC regions", zap.Int("count", len(regions)))
	return regions, nil
}

func (c *PSGCSyncClient) FetchProvinces(ctx context.Context) ([]*domain.Province, error) {
	var rows []psgcProvinceRow
	if err := c.fetch(ctx, "/provinces", &rows); err != nil {
		return nil, err
	}
	provinces := make([]*domain.Province, 0, len(rows))
	for _, row := range rows {
		provinces = append(provinces, &domain.Province{
			Code:       row.Code,
			Name:       row.Name,
			RegionCode: row.RegionCode,
		})
	}
	c.logger.Info("Fetched PSGC provinces", zap.Int("count", len(provinces)))
	return provinces, nil
}

func (c *PSGCSyncClient) FetchCities(ctx context.Context) ([]*domain.City, error) {
	var rows []psgcCityRow
	if err := c.fetch(ctx, "/cities-municipalities", &rows); err != nil {
		return nil, err
	}
	cities := make([]*domain.City, 0, len(rows))
	for _, row := range rows {
		cities = append(cities, &domain.City{
			Code:         row.Code,
			Name:         row.Name,
			ProvinceCode: row.ProvinceCode,
			Level:        row.Type,
		})
	}
	c.logger.Info("Fetched PSGC cities and municipalities", zap.Int("count", len(cities)))
	return cities, nil
}

func (c *PSGCSyncClient) FetchBarangays(ctx context.Context) ([]*domain.Barangay, error) {
	var rows []psgcBarangayRow
	if err := c.fetch(ctx, "/barangays", &rows); err != nil {
		return nil, err
	}
	barangays := make([]*domain.Barangay, 0, len(rows))
	for _, row := range rows {
		barangays = append(barangays, &domain.Barangay{
			Code:       row.Code,
			Name:       row.Name,
			CityCode:   row.CityCode,
			UrbanRural: row.UrbanRural,
		})
	}
	c.logger.Info("Fetched PSGC barangays", zap.Int("count", len(barangays)))
	return barangays, nil
}
