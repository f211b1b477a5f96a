package authz

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierForRole(t *testing.T) {
	assert.Equal(t, TierBarangay, TierForRole("barangay_admin"))
	assert.Equal(t, TierCity, TierForRole("city_admin"))
	assert.Equal(t, TierProvince, TierForRole("province_admin"))
	assert.Equal(t, TierRegion, TierForRole("region_admin"))
	assert.Equal(t, TierNational, TierForRole("super_admin"))

	// unknown roles get the narrowest tier, never the widest
	assert.Equal(t, TierBarangay, TierForRole("auditor"))
	assert.Equal(t, TierBarangay, TierForRole(""))
}

func TestScopeFor(t *testing.T) {
	assignment := GeoCodes{
		BarangayCode: "042114014",
		CityCode:     "042114",
		ProvinceCode: "0421",
		RegionCode:   "04",
	}

	tests := []struct {
		tier     Tier
		wantCode string
		wantCol  string
	}{
		{TierBarangay, "042114014", "barangay_code"},
		{TierCity, "042114", "city_code"},
		{TierProvince, "0421", "province_code"},
		{TierRegion, "04", "region_code"},
	}
	for _, tt := range tests {
		s := ScopeFor(tt.tier, assignment)
		assert.Equal(t, tt.wantCode, s.Code, "tier %s", tt.tier)
		assert.Equal(t, tt.wantCol, s.Column(), "tier %s", tt.tier)
		assert.True(t, s.Restricted())
	}

	national := ScopeFor(TierNational, assignment)
	assert.False(t, national.Restricted())
	assert.Empty(t, national.Code)
	assert.Empty(t, national.Column())
}

func TestScopeApply(t *testing.T) {
	t.Run("city scope appends WHERE", func(t *testing.T) {
		s := Scope{Tier: TierCity, Code: "042114"}
		query := `SELECT r.id FROM residents r`
		args := []any{}

		s.Apply(&query, &args, "r", true)

		assert.Equal(t, `SELECT r.id FROM residents r WHERE r.city_code = $1`, query)
		require.Len(t, args, 1)
		assert.Equal(t, "042114", args[0])
	})

	t.Run("appends AND after existing conditions", func(t *testing.T) {
		s := Scope{Tier: TierBarangay, Code: "042114014"}
		query := `SELECT r.id FROM residents r WHERE r.deleted_at IS NULL`
		args := []any{}

		s.Apply(&query, &args, "r", false)

		assert.Equal(t, `SELECT r.id FROM residents r WHERE r.deleted_at IS NULL AND r.barangay_code = $1`, query)
		require.Len(t, args, 1)
	})

	t.Run("parameter index continues from existing args", func(t *testing.T) {
		s := Scope{Tier: TierProvince, Code: "0421"}
		query := `SELECT h.id FROM households h WHERE h.code = $1`
		args := []any{"042114014-0001"}

		s.Apply(&query, &args, "h", false)

		assert.Contains(t, query, `h.province_code = $2`)
		require.Len(t, args, 2)
		assert.Equal(t, "0421", args[1])
	})

	t.Run("national scope appends nothing", func(t *testing.T) {
		s := Scope{Tier: TierNational}
		query := `SELECT r.id FROM residents r`
		args := []any{}

		s.Apply(&query, &args, "r", true)

		assert.Equal(t, `SELECT r.id FROM residents r`, query)
		assert.Empty(t, args)
	})

	t.Run("restricted scope without code matches nothing", func(t *testing.T) {
		s := ScopeFor(TierBarangay, GeoCodes{})
		query := `SELECT r.id FROM residents r`
		args := []any{}

		s.Apply(&query, &args, "r", true)

		assert.Equal(t, `SELECT r.id FROM residents r WHERE FALSE`, query)
		assert.Empty(t, args)
	})
}

func TestScopeAllows(t *testing.T) {
	record := GeoCodes{
		BarangayCode: "042114014",
		CityCode:     "042114",
		ProvinceCode: "0421",
		RegionCode:   "04",
	}

	assert.True(t, Scope{Tier: TierBarangay, Code: "042114014"}.Allows(record))
	assert.False(t, Scope{Tier: TierBarangay, Code: "042114015"}.Allows(record))

	assert.True(t, Scope{Tier: TierCity, Code: "042114"}.Allows(record))
	assert.False(t, Scope{Tier: TierCity, Code: "042108"}.Allows(record))

	assert.True(t, Scope{Tier: TierRegion, Code: "04"}.Allows(record))
	assert.False(t, Scope{Tier: TierRegion, Code: "13"}.Allows(record))

	assert.True(t, Scope{Tier: TierNational}.Allows(record))
	assert.True(t, Scope{Tier: TierNational}.Allows(GeoCodes{}))

	// no code at the user's tier: nothing is visible
	assert.False(t, Scope{Tier: TierCity}.Allows(record))
}

func TestScopeForRole(t *testing.T) {
	assignment := GeoCodes{BarangayCode: "042114014", CityCode: "042114"}

	s := ScopeForRole("city_admin", assignment)
	assert.Equal(t, TierCity, s.Tier)
	assert.Equal(t, "042114", s.Code)

	// unrecognized role is treated as barangay-tier
	s = ScopeForRole("encoder", assignment)
	assert.Equal(t, TierBarangay, s.Tier)
	assert.Equal(t, "042114014", s.Code)
}

func TestRenderPolicy(t *testing.T) {
	ddl := RenderPolicy("residents")

	assert.Contains(t, ddl, "ALTER TABLE residents ENABLE ROW LEVEL SECURITY;")
	assert.Contains(t, ddl, "CREATE POLICY residents_geo_scope ON residents")
	assert.Contains(t, ddl, "current_setting('citizenly.access_tier', true) = 'national'")

	// every restricted tier compares its own column
	for tier, col := range map[string]string{
		"barangay": "barangay_code",
		"city":     "city_code",
		"province": "province_code",
		"region":   "region_code",
	} {
		assert.Contains(t, ddl,
			"current_setting('citizenly.access_tier', true) = '"+tier+"' AND "+col+" = current_setting('citizenly.access_code', true)")
	}
}

func TestRenderAllPolicies(t *testing.T) {
	ddl := RenderAllPolicies()
	for _, table := range RLSTables {
		assert.True(t, strings.Contains(ddl, "CREATE POLICY "+table+"_geo_scope ON "+table), "missing policy for %s", table)
	}
}
