package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"citizenly-registry/internal/domain"
)

// MemoryPSGCRepo backs the address browser when the DB is not ready.
// Data is loaded with the same Upsert methods the import commands use.
type MemoryPSGCRepo struct {
	mu sync.RWMutex

	regions   map[string]domain.Region
	provinces map[string]domain.Province
	cities    map[string]domain.City
	barangays map[string]domain.Barangay
}

func NewMemoryPSGCRepo() *MemoryPSGCRepo {
	return &MemoryPSGCRepo{
		regions:   map[string]domain.Region{},
		provinces: map[string]domain.Province{},
		cities:    map[string]domain.City{},
		barangays: map[string]domain.Barangay{},
	}
}

var _ PSGCRepository = (*MemoryPSGCRepo)(nil)

// SeedSample loads a small slice of CALABARZON so local dev has something
// to browse without a PSA import.
func (r *MemoryPSGCRepo) SeedSample() {
	ctx := context.Background()
	_, _ = r.UpsertRegions(ctx, []*domain.Region{
		{Code: "04", Name: "CALABARZON"},
		{Code: "13", Name: "National Capital Region"},
	})
	_, _ = r.UpsertProvinces(ctx, []*domain.Province{
		{Code: "0421", Name: "Cavite", RegionCode: "04"},
		{Code: "0434", Name: "Laguna", RegionCode: "04"},
	})
	_, _ = r.UpsertCities(ctx, []*domain.City{
		{Code: "042114", Name: "Imus", ProvinceCode: "0421", Level: "City"},
		{Code: "042108", Name: "Dasmarinas", ProvinceCode: "0421", Level: "City"},
	})
	_, _ = r.UpsertBarangays(ctx, []*domain.Barangay{
		{Code: "042114014", Name: "Anabu II-A", CityCode: "042114"},
		{Code: "042114015", Name: "Anabu II-B", CityCode: "042114"},
		{Code: "042114001", Name: "Alapan I-A", CityCode: "042114"},
	})
}

func (r *MemoryPSGCRepo) ListRegions(_ context.Context) ([]*domain.Region, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regions := make([]*domain.Region, 0, len(r.regions))
	for code := range r.regions {
		region := r.regions[code]
		regions = append(regions, &region)
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Code < regions[j].Code })
	return regions, nil
}

func (r *MemoryPSGCRepo) ListProvinces(_ context.Context, regionCode string) ([]*domain.Province, error) {
	if regionCode == "" {
		return nil, fmt.Errorf("region_code is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	provinces := []*domain.Province{}
	for code := range r.provinces {
		province := r.provinces[code]
		if province.RegionCode == regionCode {
			provinces = append(provinces, &province)
		}
	}
	sort.Slice(provinces, func(i, j int) bool { return provinces[i].Name < provinces[j].Name })
	return provinces, nil
}

func (r *MemoryPSGCRepo) ListCities(_ context.Context, provinceCode string) ([]*domain.City, error) {
	if provinceCode == "" {
		return nil, fmt.Errorf("province_code is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cities := []*domain.City{}
	for code := range r.cities {
		city := r.cities[code]
		if city.ProvinceCode == provinceCode {
			cities = append(cities, &city)
		}
	}
	sort.Slice(cities, func(i, j int) bool { return cities[i].Name < cities[j].Name })
	return cities, nil
}

func (r *MemoryPSGCRepo) ListBarangays(_ context.Context, cityCode string, search string, page, size int) ([]*domain.Barangay, int, error) {
	if cityCode == "" {
		return nil, 0, fmt.Errorf("city_code is required")
	}
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.Barangay{}
	for code := range r.barangays {
		barangay := r.barangays[code]
		if barangay.CityCode != cityCode {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(barangay.Name), strings.ToLower(search)) {
			continue
		}
		matched = append(matched, &barangay)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []*domain.Barangay{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryPSGCRepo) GetBarangay(_ context.Context, code string) (*domain.Barangay, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	barangay, ok := r.barangays[code]
	if !ok {
		return nil, fmt.Errorf("barangay not found: %w", sql.ErrNoRows)
	}
	return &barangay, nil
}

func (r *MemoryPSGCRepo) GetAncestry(_ context.Context, barangayCode string) (*domain.GeoAncestry, error) {
	if barangayCode == "" {
		return nil, fmt.Errorf("barangay_code is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	barangay, ok := r.barangays[barangayCode]
	if !ok {
		return nil, fmt.Errorf("barangay not found: %w", sql.ErrNoRows)
	}
	city, ok := r.cities[barangay.CityCode]
	if !ok {
		return nil, fmt.Errorf("barangay %s: %w", barangayCode, ErrBrokenGeoChain)
	}
	province, ok := r.provinces[city.ProvinceCode]
	if !ok {
		return nil, fmt.Errorf("barangay %s: %w", barangayCode, ErrBrokenGeoChain)
	}
	region, ok := r.regions[province.RegionCode]
	if !ok {
		return nil, fmt.Errorf("barangay %s: %w", barangayCode, ErrBrokenGeoChain)
	}

	return &domain.GeoAncestry{
		BarangayCode: barangay.Code,
		BarangayName: barangay.Name,
		CityCode:     city.Code,
		CityName:     city.Name,
		ProvinceCode: province.Code,
		ProvinceName: province.Name,
		RegionCode:   region.Code,
		RegionName:   region.Name,
	}, nil
}

func (r *MemoryPSGCRepo) UpsertRegions(_ context.Context, regions []*domain.Region) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	count := 0
	for _, region := range regions {
		if region.Code == "" || region.Name == "" {
			continue
		}
		stored := *region
		if existing, ok := r.regions[region.Code]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		r.regions[region.Code] = stored
		count++
	}
	return count, nil
}

func (r *MemoryPSGCRepo) UpsertProvinces(_ context.Context, provinces []*domain.Province) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	count := 0
	for _, province := range provinces {
		if province.Code == "" || province.Name == "" || province.RegionCode == "" {
			continue
		}
		stored := *province
		if existing, ok := r.provinces[province.Code]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		r.provinces[province.Code] = stored
		count++
	}
	return count, nil
}

func (r *MemoryPSGCRepo) UpsertCities(_ context.Context, cities []*domain.City) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	count := 0
	for _, city := range cities {
		if city.Code == "" || city.Name == "" || city.ProvinceCode == "" {
			continue
		}
		stored := *city
		if stored.Level == "" {
			stored.Level = "Mun"
		}
		if existing, ok := r.cities[city.Code]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		r.cities[city.Code] = stored
		count++
	}
	return count, nil
}

func (r *MemoryPSGCRepo) UpsertBarangays(_ context.Context, barangays []*domain.Barangay) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	count := 0
	for _, barangay := range barangays {
		if barangay.Code == "" || barangay.Name == "" || barangay.CityCode == "" {
			continue
		}
		stored := *barangay
		if existing, ok := r.barangays[barangay.Code]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		r.barangays[barangay.Code] = stored
		count++
	}
	return count, nil
}

func (r *MemoryPSGCRepo) CountByLevel(_ context.Context) (*PSGCCounts, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return &PSGCCounts{
		Regions:   len(r.regions),
		Provinces: len(r.provinces),
		Cities:    len(r.cities),
		Barangays: len(r.barangays),
	}, nil
}

func (r *MemoryPSGCRepo) ListBrokenBarangays(_ context.Context, limit int) ([]*domain.Barangay, error) {
	if limit <= 0 {
		limit = 100
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	broken := []*domain.Barangay{}
	for code := range r.barangays {
		barangay := r.barangays[code]
		city, ok := r.cities[barangay.CityCode]
		if ok {
			if province, ok := r.provinces[city.ProvinceCode]; ok {
				if _, ok := r.regions[province.RegionCode]; ok {
					continue
				}
			}
		}
		broken = append(broken, &barangay)
	}
	sort.Slice(broken, func(i, j int) bool { return broken[i].Code < broken[j].Code })

	if len(broken) > limit {
		broken = broken[:limit]
	}
	return broken, nil
}
