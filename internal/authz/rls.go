package authz

import (
	"fmt"
	"strings"
)

// RLSTables are the tables that carry the four denormalized code columns
// and therefore get a geographic row-security policy.
var RLSTables = []string{"residents", "households", "user_profiles"}

// restrictedTiers in rendering order, narrowest first.
var restrictedTiers = []Tier{TierBarangay, TierCity, TierProvince, TierRegion}

// Session settings the policies read. Connections that never call
// set_config see empty strings and match no restricted branch, so a
// misconfigured session fails closed the same way Scope does.
const (
	RLSSettingTier = "citizenly.access_tier"
	RLSSettingCode = "citizenly.access_code"
)

// RenderPolicy renders the row-security DDL for one table from the same
// tier/column map that Scope.Apply uses. The output is stable so the
// generated migration diffs cleanly.
func RenderPolicy(table string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "ALTER TABLE %s ENABLE ROW LEVEL SECURITY;\n", table)
	fmt.Fprintf(&b, "DROP POLICY IF EXISTS %s_geo_scope ON %s;\n", table, table)
	fmt.Fprintf(&b, "CREATE POLICY %s_geo_scope ON %s\n", table, table)
	fmt.Fprintf(&b, "  USING (\n")
	fmt.Fprintf(&b, "    current_setting('%s', true) = '%s'\n", RLSSettingTier, TierNational)
	for _, t := range restrictedTiers {
		fmt.Fprintf(&b, "    OR (current_setting('%s', true) = '%s' AND %s = current_setting('%s', true))\n",
			RLSSettingTier, t, tierColumns[t], RLSSettingCode)
	}
	fmt.Fprintf(&b, "  );\n")

	return b.String()
}

// RenderAllPolicies renders the policy DDL for every table in RLSTables.
func RenderAllPolicies() string {
	var b strings.Builder
	for i, table := range RLSTables {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(RenderPolicy(table))
	}
	return b.String()
}

// SessionSetSQL is the statement repositories can run to bind a
// connection to a scope before querying with RLS enforced.
func SessionSetSQL() string {
	return fmt.Sprintf("SELECT set_config('%s', $1, true), set_config('%s', $2, true)",
		RLSSettingTier, RLSSettingCode)
}
