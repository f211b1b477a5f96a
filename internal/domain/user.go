package domain

import "time"

// UserProfile is a registry operator account (user_profiles table).
// The geographic columns below barangay_code are cached projections of
// the PSGC chain, written by the ancestry resolver at signup and on
// assignment changes. They are never taken from client input.
type UserProfile struct {
	// identity
	ID           string `db:"id"`            // UUID, PRIMARY KEY
	Email        string `db:"email"`         // VARCHAR(255), NOT NULL, UNIQUE
	PasswordHash []byte `db:"password_hash"` // BYTEA, NOT NULL

	// name and contact
	FirstName    string  `db:"first_name"`    // VARCHAR(100), NOT NULL
	LastName     string  `db:"last_name"`     // VARCHAR(100), NOT NULL
	MobileNumber *string `db:"mobile_number"` // VARCHAR(20), nullable

	// role assignment
	RoleID   string `db:"role_id"`   // UUID, NOT NULL, FK -> roles.id
	RoleName string `db:"role_name"` // joined from roles, not a column

	// geographic assignment
	BarangayCode *string `db:"barangay_code"` // VARCHAR(10), nullable, FK -> psgc_barangays.code
	CityCode     *string `db:"city_code"`     // VARCHAR(10), nullable (resolver-written)
	ProvinceCode *string `db:"province_code"` // VARCHAR(10), nullable (resolver-written)
	RegionCode   *string `db:"region_code"`   // VARCHAR(10), nullable (resolver-written)

	// status
	IsActive    bool       `db:"is_active"`     // BOOLEAN, NOT NULL, DEFAULT TRUE
	LastLoginAt *time.Time `db:"last_login_at"` // TIMESTAMPTZ, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
