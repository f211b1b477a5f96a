package domain

import (
	"encoding/json"
	"time"
)

// Known role names. The set is seeded by migration; unknown names are
// still accepted at the access-control layer and scoped to barangay.
const (
	RoleBarangayAdmin = "barangay_admin"
	RoleCityAdmin     = "city_admin"
	RoleProvinceAdmin = "province_admin"
	RoleRegionAdmin   = "region_admin"
	RoleSuperAdmin    = "super_admin"
)

// Role  (roles table)
type Role struct {
	ID          string          `db:"id"`           // UUID, PRIMARY KEY
	Name        string          `db:"name"`         // VARCHAR(50), NOT NULL, UNIQUE
	DisplayName string          `db:"display_name"` // VARCHAR(100), NOT NULL
	Description string          `db:"description"`  // TEXT, nullable
	Permissions json.RawMessage `db:"permissions"`  // JSONB, nullable (UI feature flags, not used for scoping)
	CreatedAt   time.Time       `db:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at"`
}
