package geo

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingPSGC counts ancestry lookups so tests can see cache hits.
type countingPSGC struct {
	repository.PSGCRepository
	ancestryCalls int
}

func (c *countingPSGC) GetAncestry(ctx context.Context, barangayCode string) (*domain.GeoAncestry, error) {
	c.ancestryCalls++
	return c.PSGCRepository.GetAncestry(ctx, barangayCode)
}

func newTestResolver(t *testing.T) (*ChainResolver, *countingPSGC, *store.MemoryKV) {
	t.Helper()

	memory := repository.NewMemoryPSGCRepo()
	memory.SeedSample()
	counting := &countingPSGC{PSGCRepository: memory}
	kv := store.NewMemoryKV()
	return NewChainResolver(counting, kv, zap.NewNop()), counting, kv
}

func TestChainResolver_ResolvesFullChain(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	ancestry, err := resolver.Resolve(context.Background(), "042114014")
	require.NoError(t, err)
	assert.Equal(t, "042114014", ancestry.BarangayCode)
	assert.Equal(t, "Anabu II-A", ancestry.BarangayName)
	assert.Equal(t, "042114", ancestry.CityCode)
	assert.Equal(t, "Imus", ancestry.CityName)
	assert.Equal(t, "0421", ancestry.ProvinceCode)
	assert.Equal(t, "Cavite", ancestry.ProvinceName)
	assert.Equal(t, "04", ancestry.RegionCode)
	assert.Equal(t, "CALABARZON", ancestry.RegionName)
}

func TestChainResolver_SecondResolveHitsCache(t *testing.T) {
	resolver, counting, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "042114014")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.ancestryCalls)

	ancestry, err := resolver.Resolve(ctx, "042114014")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.ancestryCalls)
	assert.Equal(t, "CALABARZON", ancestry.RegionName)
}

func TestChainResolver_InvalidateForcesRefetch(t *testing.T) {
	resolver, counting, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "042114014")
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, "042114015")
	require.NoError(t, err)
	assert.Equal(t, 2, counting.ancestryCalls)

	require.NoError(t, resolver.Invalidate(ctx))

	_, err = resolver.Resolve(ctx, "042114014")
	require.NoError(t, err)
	assert.Equal(t, 3, counting.ancestryCalls)
}

func TestChainResolver_UnknownBarangayIsNotCached(t *testing.T) {
	resolver, counting, _ := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "000000000")
	require.Error(t, err)
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	_, err = resolver.Resolve(ctx, "000000000")
	require.Error(t, err)
	assert.Equal(t, 2, counting.ancestryCalls)
}

func TestChainResolver_BrokenChainPassesThrough(t *testing.T) {
	memory := repository.NewMemoryPSGCRepo()
	memory.SeedSample()
	// a barangay pointing at a city that was never imported
	_, err := memory.UpsertBarangays(context.Background(), []*domain.Barangay{
		{Code: "999999999", Name: "Orphaned", CityCode: "999999"},
	})
	require.NoError(t, err)

	resolver := NewChainResolver(memory, store.NewMemoryKV(), zap.NewNop())

	_, err = resolver.Resolve(context.Background(), "999999999")
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrBrokenGeoChain))
	assert.False(t, errors.Is(err, sql.ErrNoRows))
}

func TestChainResolver_CorruptCacheEntryIsRefetched(t *testing.T) {
	resolver, counting, kv := newTestResolver(t)
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "psgc:ancestry:042114014", "{not json", 0))

	ancestry, err := resolver.Resolve(ctx, "042114014")
	require.NoError(t, err)
	assert.Equal(t, 1, counting.ancestryCalls)
	assert.Equal(t, "Imus", ancestry.CityName)
}
