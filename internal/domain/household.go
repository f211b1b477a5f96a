package domain

import "time"

// Household type codes (households.household_type).
const (
	HouseholdTypeNuclear      = "nuclear"
	HouseholdTypeSingleParent = "single_parent"
	HouseholdTypeExtended     = "extended"
	HouseholdTypeStepfamily   = "stepfamily"
	HouseholdTypeChildless    = "childless"
	HouseholdTypeOnePerson    = "one_person"
	HouseholdTypeNonFamily    = "non_family"
	HouseholdTypeOther        = "other"
)

// Tenure status codes (households.tenure_status).
const (
	TenureOwned                  = "owned"
	TenureRented                 = "rented"
	TenureOccupiedWithConsent    = "occupied_with_consent"
	TenureOccupiedWithoutConsent = "occupied_without_consent"
	TenureOther                  = "other"
)

// Household is one registered household (households table).
// city_code/province_code/region_code mirror the barangay's PSGC chain and
// are written only by the ancestry resolver.
type Household struct {
	ID   string `db:"id"`   // UUID, PRIMARY KEY
	Code string `db:"code"` // VARCHAR(30), NOT NULL, UNIQUE(barangay_code, code)
	Name string `db:"name"` // VARCHAR(200), NOT NULL (usually the head's surname)

	// street address within the barangay
	HouseNumber string  `db:"house_number"` // VARCHAR(50), nullable
	Street      *string `db:"street"`       // VARCHAR(200), nullable
	Subdivision *string `db:"subdivision"`  // VARCHAR(200), nullable

	// geographic assignment
	BarangayCode string `db:"barangay_code"` // VARCHAR(10), NOT NULL, FK -> psgc_barangays.code
	CityCode     string `db:"city_code"`     // VARCHAR(10), NOT NULL (resolver-written)
	ProvinceCode string `db:"province_code"` // VARCHAR(10), NOT NULL (resolver-written)
	RegionCode   string `db:"region_code"`   // VARCHAR(10), NOT NULL (resolver-written)

	// classification
	HouseholdType string  `db:"household_type"` // VARCHAR(30), nullable (see HouseholdType* constants)
	TenureStatus  string  `db:"tenure_status"`  // VARCHAR(30), nullable (see Tenure* constants)
	MonthlyIncome *string `db:"monthly_income"` // VARCHAR(30), nullable (income bracket code)

	// head of household, set after the head resident is encoded
	HeadResidentID *string `db:"head_resident_id"` // UUID, nullable, FK -> residents.id

	// audit
	CreatedBy string     `db:"created_by"` // UUID, NOT NULL, FK -> user_profiles.id
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable (soft delete)

	// derived at query time, not a column
	MemberCount int `db:"member_count"`
}
