package service

import (
	"context"
	"testing"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newDashboardFixture(t *testing.T) (DashboardService, ResidentService, *store.MemoryKV) {
	t.Helper()

	psgc := repository.NewMemoryPSGCRepo()
	psgc.SeedSample()
	psoc := repository.NewMemoryPSOCRepo()
	psoc.SeedSample()

	residents := repository.NewMemoryResidentsRepo()
	households := repository.NewMemoryHouseholdsRepo(residents)
	stats := repository.NewMemoryStatsRepo(residents, households, psgc)
	resolver := geo.NewChainResolver(psgc, store.NewMemoryKV(), zap.NewNop())
	audit := store.NewMemoryAuditPublisher()
	kv := store.NewMemoryKV()

	residentSvc := NewResidentService(residents, households, psoc, psgc, resolver, audit, zap.NewNop())
	return NewDashboardService(stats, kv, zap.NewNop()), residentSvc, kv
}

func TestDashboardSummary_CountsByScope(t *testing.T) {
	dashboards, residents, _ := newDashboardFixture(t)
	ctx := context.Background()
	actor := uuid.NewString()
	national := authz.Scope{Tier: authz.TierNational}

	male := validResidentInput()
	male.IsVoter = true
	_, err := residents.CreateResident(ctx, national, actor, male)
	require.NoError(t, err)

	female := validResidentInput()
	female.FirstName = "Maria"
	female.Sex = "female"
	female.Birthdate = "1950-03-20"
	female.BarangayCode = "042114015"
	_, err = residents.CreateResident(ctx, national, actor, female)
	require.NoError(t, err)

	summary, err := dashboards.GetSummary(ctx, national)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TotalResidents)
	assert.Equal(t, 1, summary.BySex.Male)
	assert.Equal(t, 1, summary.BySex.Female)
	assert.Equal(t, 1, summary.ByAgeBand.Seniors)
	assert.Equal(t, 1, summary.Sectoral.Voters)
	assert.Equal(t, 2, summary.RegisteredThisMonth)

	// the barangay admin only sees their own records
	barangay, err := dashboards.GetSummary(ctx, authz.Scope{Tier: authz.TierBarangay, Code: "042114014"})
	require.NoError(t, err)
	assert.Equal(t, 1, barangay.TotalResidents)
	assert.Empty(t, barangay.Breakdown)

	// the city view breaks its barangays down
	city, err := dashboards.GetSummary(ctx, authz.Scope{Tier: authz.TierCity, Code: "042114"})
	require.NoError(t, err)
	assert.Equal(t, 2, city.TotalResidents)
	assert.NotEmpty(t, city.Breakdown)
}

func TestDashboardSummary_CachesPerScope(t *testing.T) {
	dashboards, residents, kv := newDashboardFixture(t)
	ctx := context.Background()
	actor := uuid.NewString()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	_, err := residents.CreateResident(ctx, authz.Scope{Tier: authz.TierNational}, actor, validResidentInput())
	require.NoError(t, err)

	first, err := dashboards.GetSummary(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalResidents)

	// a second resident lands after the summary was cached
	_, err = residents.CreateResident(ctx, authz.Scope{Tier: authz.TierNational}, actor, validResidentInput())
	require.NoError(t, err)

	cached, err := dashboards.GetSummary(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalResidents)

	// dropping the cache entry picks the new resident up
	require.NoError(t, kv.Delete(ctx, dashboardKey(scope)))
	fresh, err := dashboards.GetSummary(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.TotalResidents)
}

func TestDashboardSummary_CorruptCacheRecomputes(t *testing.T) {
	dashboards, residents, kv := newDashboardFixture(t)
	ctx := context.Background()
	scope := authz.Scope{Tier: authz.TierBarangay, Code: "042114014"}

	_, err := residents.CreateResident(ctx, authz.Scope{Tier: authz.TierNational}, uuid.NewString(), validResidentInput())
	require.NoError(t, err)

	require.NoError(t, kv.Set(ctx, dashboardKey(scope), "{not json", dashboardTTL))

	summary, err := dashboards.GetSummary(ctx, scope)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.TotalResidents)
}
