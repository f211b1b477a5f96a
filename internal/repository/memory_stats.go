package repository

import (
	"context"
	"sort"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// MemoryStatsRepo computes dashboard aggregates from the in-memory
// repositories.
type MemoryStatsRepo struct {
	residents  *MemoryResidentsRepo
	households *MemoryHouseholdsRepo
	psgc       *MemoryPSGCRepo
}

func NewMemoryStatsRepo(residents *MemoryResidentsRepo, households *MemoryHouseholdsRepo, psgc *MemoryPSGCRepo) *MemoryStatsRepo {
	return &MemoryStatsRepo{residents: residents, households: households, psgc: psgc}
}

var _ StatsRepository = (*MemoryStatsRepo)(nil)

func (r *MemoryStatsRepo) ResidentStats(_ context.Context, scope authz.Scope) (*domain.ResidentStats, error) {
	stats := &domain.ResidentStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	r.residents.mu.RLock()
	for id := range r.residents.residents {
		resident := r.residents.residents[id]
		if resident.DeletedAt != nil || !scope.Allows(residentGeoCodes(&resident)) {
			continue
		}

		stats.TotalResidents++
		if !resident.CreatedAt.Before(monthStart) {
			stats.RegisteredThisMonth++
		}
		switch resident.Sex {
		case domain.SexMale:
			stats.Male++
		case domain.SexFemale:
			stats.Female++
		}

		age := resident.Age(now)
		switch {
		case age < 15:
			stats.AgeUnder15++
		case age < 60:
			stats.Age15to59++
		default:
			stats.Age60Up++
		}

		if resident.IsVoter {
			stats.Voters++
		}
		if resident.IsPWD {
			stats.PWDs++
		}
		if resident.IsSoloParent {
			stats.SoloParents++
		}
		if resident.IsOFW {
			stats.OFWs++
		}
		if resident.IsLaborForce {
			stats.LaborForce++
		}
		if resident.IsIndigenous {
			stats.Indigenous++
		}
		if resident.EmploymentStatus != nil {
			switch *resident.EmploymentStatus {
			case domain.EmploymentEmployed, domain.EmploymentSelfEmployed:
				stats.Employed++
			case domain.EmploymentUnemployed:
				stats.Unemployed++
			}
		}
	}
	r.residents.mu.RUnlock()

	r.households.mu.RLock()
	for id := range r.households.households {
		household := r.households.households[id]
		if household.DeletedAt != nil || !scope.Allows(householdGeoCodes(&household)) {
			continue
		}
		stats.TotalHouseholds++
	}
	r.households.mu.RUnlock()

	return stats, nil
}

func (r *MemoryStatsRepo) ChildBreakdown(_ context.Context, scope authz.Scope) ([]*domain.GeoCount, error) {
	childTier, ok := authz.ChildTier(scope.Tier)
	if !ok {
		return []*domain.GeoCount{}, nil
	}

	index := map[string]*domain.GeoCount{}

	r.residents.mu.RLock()
	for id := range r.residents.residents {
		resident := r.residents.residents[id]
		if resident.DeletedAt != nil || !scope.Allows(residentGeoCodes(&resident)) {
			continue
		}
		code := residentGeoCodes(&resident).At(childTier)
		count, ok := index[code]
		if !ok {
			count = &domain.GeoCount{Code: code, Name: r.childName(childTier, code)}
			index[code] = count
		}
		count.Residents++
	}
	r.residents.mu.RUnlock()

	r.households.mu.RLock()
	for id := range r.households.households {
		household := r.households.households[id]
		if household.DeletedAt != nil || !scope.Allows(householdGeoCodes(&household)) {
			continue
		}
		code := householdGeoCodes(&household).At(childTier)
		count, ok := index[code]
		if !ok {
			count = &domain.GeoCount{Code: code, Name: r.childName(childTier, code)}
			index[code] = count
		}
		count.Households++
	}
	r.households.mu.RUnlock()

	counts := make([]*domain.GeoCount, 0, len(index))
	for _, count := range index {
		counts = append(counts, count)
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Residents != counts[j].Residents {
			return counts[i].Residents > counts[j].Residents
		}
		return counts[i].Code < counts[j].Code
	})
	return counts, nil
}

func (r *MemoryStatsRepo) childName(tier authz.Tier, code string) string {
	if r.psgc == nil {
		return ""
	}
	r.psgc.mu.RLock()
	defer r.psgc.mu.RUnlock()
	switch tier {
	case authz.TierRegion:
		return r.psgc.regions[code].Name
	case authz.TierProvince:
		return r.psgc.provinces[code].Name
	case authz.TierCity:
		return r.psgc.cities[code].Name
	case authz.TierBarangay:
		return r.psgc.barangays[code].Name
	}
	return ""
}
