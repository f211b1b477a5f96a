package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"go.uber.org/zap"
)

const (
	dashboardKeyPrefix = "dashboard:summary:"
	dashboardTTL       = 60 * time.Second
)

// DashboardService computes the landing-page aggregates for the
// caller's scope: a barangay admin sees their barangay, a city admin
// their whole city with a per-barangay breakdown, and so on up to the
// national view. Results are cached briefly per scope; cache failures
// degrade to direct queries.
type DashboardService interface {
	GetSummary(ctx context.Context, scope authz.Scope) (*DashboardSummaryDTO, error)
}

type dashboardService struct {
	statsRepo repository.StatsRepository
	kv        store.KV
	logger    *zap.Logger
}

func NewDashboardService(statsRepo repository.StatsRepository, kv store.KV, logger *zap.Logger) DashboardService {
	return &dashboardService{statsRepo: statsRepo, kv: kv, logger: logger}
}

type DashboardSummaryDTO struct {
	TotalResidents      int `json:"total_residents"`
	TotalHouseholds     int `json:"total_households"`
	RegisteredThisMonth int `json:"registered_this_month"`

	BySex struct {
		Male   int `json:"male"`
		Female int `json:"female"`
	} `json:"by_sex"`

	ByAgeBand struct {
		Under15    int `json:"under_15"`
		From15to59 int `json:"from_15_to_59"`
		Seniors    int `json:"seniors"`
	} `json:"by_age_band"`

	Sectoral struct {
		Voters      int `json:"voters"`
		PWDs        int `json:"pwds"`
		SoloParents int `json:"solo_parents"`
		OFWs        int `json:"ofws"`
		LaborForce  int `json:"labor_force"`
		Indigenous  int `json:"indigenous"`
	} `json:"sectoral"`

	Employment struct {
		Employed   int `json:"employed"`
		Unemployed int `json:"unemployed"`
	} `json:"employment"`

	// Breakdown lists the geography one tier down; empty for barangay
	// scopes.
	Breakdown []GeoCountDTO `json:"breakdown"`
}

type GeoCountDTO struct {
	Code       string `json:"code"`
	Name       string `json:"name,omitempty"`
	Residents  int    `json:"residents"`
	Households int    `json:"households"`
}

func dashboardKey(scope authz.Scope) string {
	code := scope.Code
	if !scope.Restricted() {
		code = "all"
	}
	return fmt.Sprintf("%s%s:%s", dashboardKeyPrefix, scope.Tier, code)
}

func (s *dashboardService) GetSummary(ctx context.Context, scope authz.Scope) (*DashboardSummaryDTO, error) {
	key := dashboardKey(scope)

	if cached, err := s.kv.Get(ctx, key); err == nil {
		summary := &DashboardSummaryDTO{}
		if err := json.Unmarshal([]byte(cached), summary); err == nil {
			return summary, nil
		}
		// corrupt entry: recompute below
	} else if !errors.Is(err, store.ErrMiss) {
		s.logger.Warn("Dashboard cache read failed", zap.String("key", key), zap.Error(err))
	}

	stats, err := s.statsRepo.ResidentStats(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard stats: %w", err)
	}
	breakdown, err := s.statsRepo.ChildBreakdown(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("failed to compute dashboard breakdown: %w", err)
	}

	summary := toDashboardSummaryDTO(stats, breakdown)

	if encoded, err := json.Marshal(summary); err == nil {
		if err := s.kv.Set(ctx, key, string(encoded), dashboardTTL); err != nil {
			s.logger.Warn("Dashboard cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return summary, nil
}

func toDashboardSummaryDTO(stats *domain.ResidentStats, breakdown []*domain.GeoCount) *DashboardSummaryDTO {
	dto := &DashboardSummaryDTO{
		TotalResidents:      stats.TotalResidents,
		TotalHouseholds:     stats.TotalHouseholds,
		RegisteredThisMonth: stats.RegisteredThisMonth,
		Breakdown:           make([]GeoCountDTO, 0, len(breakdown)),
	}
	dto.BySex.Male = stats.Male
	dto.BySex.Female = stats.Female
	dto.ByAgeBand.Under15 = stats.AgeUnder15
	dto.ByAgeBand.From15to59 = stats.Age15to59
	dto.ByAgeBand.Seniors = stats.Age60Up
	dto.Sectoral.Voters = stats.Voters
	dto.Sectoral.PWDs = stats.PWDs
	dto.Sectoral.SoloParents = stats.SoloParents
	dto.Sectoral.OFWs = stats.OFWs
	dto.Sectoral.LaborForce = stats.LaborForce
	dto.Sectoral.Indigenous = stats.Indigenous
	dto.Employment.Employed = stats.Employed
	dto.Employment.Unemployed = stats.Unemployed

	for _, count := range breakdown {
		dto.Breakdown = append(dto.Breakdown, GeoCountDTO{
			Code:       count.Code,
			Name:       count.Name,
			Residents:  count.Residents,
			Households: count.Households,
		})
	}
	return dto
}
