// Package authz holds the geographic access-control rules: the role to
// tier mapping and the tier to column scope filter. Repositories apply
// the same Scope on every read and write, and the Postgres RLS policies
// are rendered from the same tier table (see rls.go), so the comparison
// rule lives in exactly one place.
package authz

import "fmt"

// Tier is the breadth of a user's geographic access.
type Tier string

const (
	TierBarangay Tier = "barangay"
	TierCity     Tier = "city"
	TierProvince Tier = "province"
	TierRegion   Tier = "region"
	TierNational Tier = "national"
)

// roleTiers maps role names to access tiers. Unknown roles fall back to
// the narrowest tier rather than failing open.
var roleTiers = map[string]Tier{
	"barangay_admin": TierBarangay,
	"city_admin":     TierCity,
	"province_admin": TierProvince,
	"region_admin":   TierRegion,
	"super_admin":    TierNational,
}

// tierColumns maps each restricted tier to the denormalized code column
// it compares against. TierNational has no entry: no filter at all.
var tierColumns = map[Tier]string{
	TierBarangay: "barangay_code",
	TierCity:     "city_code",
	TierProvince: "province_code",
	TierRegion:   "region_code",
}

// TierForRole resolves a role name to its access tier.
func TierForRole(role string) Tier {
	if t, ok := roleTiers[role]; ok {
		return t
	}
	return TierBarangay
}

// CodeColumn is the denormalized code column for this tier, "" for
// TierNational.
func (t Tier) CodeColumn() string {
	return tierColumns[t]
}

// ChildTier is the next narrower tier, false below TierBarangay.
func ChildTier(t Tier) (Tier, bool) {
	switch t {
	case TierNational:
		return TierRegion, true
	case TierRegion:
		return TierProvince, true
	case TierProvince:
		return TierCity, true
	case TierCity:
		return TierBarangay, true
	}
	return "", false
}

// GeoCodes is a record's (or a user assignment's) position in the PSGC
// hierarchy. Empty strings mean unassigned at that level.
type GeoCodes struct {
	BarangayCode string
	CityCode     string
	ProvinceCode string
	RegionCode   string
}

// At returns the code at the given tier.
func (g GeoCodes) At(t Tier) string {
	switch t {
	case TierBarangay:
		return g.BarangayCode
	case TierCity:
		return g.CityCode
	case TierProvince:
		return g.ProvinceCode
	case TierRegion:
		return g.RegionCode
	}
	return ""
}

// Scope is one user's effective visibility: a single column equality at
// the user's tier, or unrestricted for the national tier.
type Scope struct {
	Tier Tier
	Code string // the user's code at that tier; "" for TierNational
}

// ScopeFor builds the scope for a tier from the user's assignment codes.
// A restricted tier with no code at that level yields a scope that
// matches nothing: a misconfigured account sees an empty registry, not
// the whole country.
func ScopeFor(tier Tier, assignment GeoCodes) Scope {
	if tier == TierNational {
		return Scope{Tier: TierNational}
	}
	return Scope{Tier: tier, Code: assignment.At(tier)}
}

// ScopeForRole is ScopeFor with the role name resolved first.
func ScopeForRole(role string, assignment GeoCodes) Scope {
	return ScopeFor(TierForRole(role), assignment)
}

// Restricted reports whether the scope filters at all.
func (s Scope) Restricted() bool {
	return s.Tier != TierNational
}

// Column is the code column this scope compares, "" when unrestricted.
func (s Scope) Column() string {
	return s.Tier.CodeColumn()
}

// Apply appends the scope condition to a SQL query.
//
//   - query: modified in place, WHERE or AND is appended
//   - args: modified in place, the code parameter is appended
//   - tableAlias: alias of the table carrying the code columns (e.g. "r")
//   - isFirstCondition: true appends WHERE, false appends AND
//
// Unrestricted scopes append nothing. Restricted scopes with an empty
// code append a FALSE condition so the query returns no rows.
func (s Scope) Apply(query *string, args *[]any, tableAlias string, isFirstCondition bool) {
	if !s.Restricted() {
		return
	}

	keyword := ` AND `
	if isFirstCondition {
		keyword = ` WHERE `
	}

	if s.Code == "" {
		*query += keyword + `FALSE`
		return
	}

	*args = append(*args, s.Code)
	*query += keyword + fmt.Sprintf(`%s.%s = $%d`, tableAlias, s.Column(), len(*args))
}

// Allows reports whether a single record at the given position is inside
// the scope. Used on reads by id, where the list filter does not run.
func (s Scope) Allows(record GeoCodes) bool {
	if !s.Restricted() {
		return true
	}
	if s.Code == "" {
		return false
	}
	return record.At(s.Tier) == s.Code
}
