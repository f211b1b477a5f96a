package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"

	"go.uber.org/zap"
)

// AddressService serves the PSGC reference tables to the address
// browser: one level at a time plus full-chain resolution. Reference
// data is readable by any authenticated user regardless of scope.
type AddressService interface {
	ListRegions(ctx context.Context) ([]*RegionDTO, error)
	ListProvinces(ctx context.Context, regionCode string) ([]*ProvinceDTO, error)
	ListCities(ctx context.Context, provinceCode string) ([]*CityDTO, error)
	ListBarangays(ctx context.Context, req ListBarangaysRequest) (*ListBarangaysResponse, error)
	ResolveBarangay(ctx context.Context, barangayCode string) (*AncestryDTO, error)
}

type addressService struct {
	psgcRepo repository.PSGCRepository
	resolver geo.Resolver
	logger   *zap.Logger
}

func NewAddressService(psgcRepo repository.PSGCRepository, resolver geo.Resolver, logger *zap.Logger) AddressService {
	return &addressService{psgcRepo: psgcRepo, resolver: resolver, logger: logger}
}

type RegionDTO struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type ProvinceDTO struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	RegionCode string `json:"region_code"`
}

type CityDTO struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	ProvinceCode string `json:"province_code"`
	Level        string `json:"level"`
}

type BarangayDTO struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	CityCode   string `json:"city_code"`
	UrbanRural string `json:"urban_rural,omitempty"`
}

// AncestryDTO is the fully named chain for one barangay, ready for an
// address line.
type AncestryDTO struct {
	BarangayCode string `json:"barangay_code"`
	BarangayName string `json:"barangay_name"`
	CityCode     string `json:"city_code"`
	CityName     string `json:"city_name"`
	ProvinceCode string `json:"province_code"`
	ProvinceName string `json:"province_name"`
	RegionCode   string `json:"region_code"`
	RegionName   string `json:"region_name"`
	FullAddress  string `json:"full_address"`
}

func (s *addressService) ListRegions(ctx context.Context) ([]*RegionDTO, error) {
	regions, err := s.psgcRepo.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	items := make([]*RegionDTO, 0, len(regions))
	for _, region := range regions {
		items = append(items, &RegionDTO{Code: region.Code, Name: region.Name})
	}
	return items, nil
}

func (s *addressService) ListProvinces(ctx context.Context, regionCode string) ([]*ProvinceDTO, error) {
	regionCode = strings.TrimSpace(regionCode)
	if regionCode == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "region_code", Message: "region code is required"})
	}
	provinces, err := s.psgcRepo.ListProvinces(ctx, regionCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list provinces: %w", err)
	}
	items := make([]*ProvinceDTO, 0, len(provinces))
	for _, province := range provinces {
		items = append(items, &ProvinceDTO{Code: province.Code, Name: province.Name, RegionCode: province.RegionCode})
	}
	return items, nil
}

func (s *addressService) ListCities(ctx context.Context, provinceCode string) ([]*CityDTO, error) {
	provinceCode = strings.TrimSpace(provinceCode)
	if provinceCode == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "province_code", Message: "province code is required"})
	}
	cities, err := s.psgcRepo.ListCities(ctx, provinceCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	items := make([]*CityDTO, 0, len(cities))
	for _, city := range cities {
		items = append(items, &CityDTO{Code: city.Code, Name: city.Name, ProvinceCode: city.ProvinceCode, Level: city.Level})
	}
	return items, nil
}

type ListBarangaysRequest struct {
	CityCode string
	Search   string
	Page     int
	PageSize int
}

type ListBarangaysResponse struct {
	Items    []*BarangayDTO `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func (s *addressService) ListBarangays(ctx context.Context, req ListBarangaysRequest) (*ListBarangaysResponse, error) {
	cityCode := strings.TrimSpace(req.CityCode)
	if cityCode == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "city_code", Message: "city code is required"})
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	barangays, total, err := s.psgcRepo.ListBarangays(ctx, cityCode, strings.TrimSpace(req.Search), page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to list barangays: %w", err)
	}

	items := make([]*BarangayDTO, 0, len(barangays))
	for _, barangay := range barangays {
		items = append(items, &BarangayDTO{
			Code:       barangay.Code,
			Name:       barangay.Name,
			CityCode:   barangay.CityCode,
			UrbanRural: barangay.UrbanRural,
		})
	}

	return &ListBarangaysResponse{Items: items, Total: total, Page: page, PageSize: size}, nil
}

// ResolveBarangay returns the named chain for one barangay. Browsing a
// code that does not exist is a plain not-found, unlike the write paths
// where the same condition is an input error.
func (s *addressService) ResolveBarangay(ctx context.Context, barangayCode string) (*AncestryDTO, error) {
	barangayCode = strings.TrimSpace(barangayCode)
	if barangayCode == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "barangay_code", Message: "barangay code is required"})
	}

	ancestry, err := s.resolver.Resolve(ctx, barangayCode)
	if err != nil {
		if errors.Is(err, repository.ErrBrokenGeoChain) {
			s.logger.Error("Ancestry resolution hit inconsistent reference data",
				zap.String("barangay_code", barangayCode),
				zap.Error(err),
			)
			return nil, apperr.Wrap(err, apperr.CodeInternal, "geographic reference data is inconsistent")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "barangay not found")
		}
		return nil, fmt.Errorf("failed to resolve barangay: %w", err)
	}

	return toAncestryDTO(ancestry), nil
}

func toAncestryDTO(ancestry *domain.GeoAncestry) *AncestryDTO {
	return &AncestryDTO{
		BarangayCode: ancestry.BarangayCode,
		BarangayName: ancestry.BarangayName,
		CityCode:     ancestry.CityCode,
		CityName:     ancestry.CityName,
		ProvinceCode: ancestry.ProvinceCode,
		ProvinceName: ancestry.ProvinceName,
		RegionCode:   ancestry.RegionCode,
		RegionName:   ancestry.RegionName,
		FullAddress: strings.Join([]string{
			ancestry.BarangayName, ancestry.CityName, ancestry.ProvinceName, ancestry.RegionName,
		}, ", "),
	}
}
