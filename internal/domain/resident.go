package domain

import "time"

// Sex values accepted by validation (residents.sex).
const (
	SexMale   = "male"
	SexFemale = "female"
)

// Civil status codes (residents.civil_status).
const (
	CivilStatusSingle    = "single"
	CivilStatusMarried   = "married"
	CivilStatusWidowed   = "widowed"
	CivilStatusSeparated = "separated"
	CivilStatusDivorced  = "divorced"
	CivilStatusAnnulled  = "annulled"
	CivilStatusLiveIn    = "live_in"
)

// Employment status codes (residents.employment_status).
const (
	EmploymentEmployed     = "employed"
	EmploymentUnemployed   = "unemployed"
	EmploymentSelfEmployed = "self_employed"
	EmploymentStudent      = "student"
	EmploymentRetired      = "retired"
	EmploymentHomemaker    = "homemaker"
	EmploymentNotInLabor   = "not_in_labor_force"
)

// Resident is one inhabitant record (residents table). Geographic columns
// below barangay_code are resolver-written projections of the PSGC chain.
type Resident struct {
	// primary key
	ID string `db:"id"` // UUID, PRIMARY KEY

	// name (RBI Form A columns 2-5)
	FirstName     string  `db:"first_name"`     // VARCHAR(100), NOT NULL
	MiddleName    *string `db:"middle_name"`    // VARCHAR(100), nullable
	LastName      string  `db:"last_name"`      // VARCHAR(100), NOT NULL
	ExtensionName *string `db:"extension_name"` // VARCHAR(20), nullable (Jr., Sr., III)

	// birth and civil data
	Birthdate   time.Time `db:"birthdate"`    // DATE, NOT NULL
	BirthPlace  *string   `db:"birth_place"`  // VARCHAR(200), nullable
	Sex         string    `db:"sex"`          // VARCHAR(10), NOT NULL ('male'/'female')
	CivilStatus string    `db:"civil_status"` // VARCHAR(20), NOT NULL
	Citizenship string    `db:"citizenship"`  // VARCHAR(50), NOT NULL, DEFAULT 'Filipino'

	// education and work
	EducationAttainment *string `db:"education_attainment"` // VARCHAR(50), nullable
	EmploymentStatus    *string `db:"employment_status"`    // VARCHAR(30), nullable
	OccupationCode      *string `db:"occupation_code"`      // VARCHAR(10), nullable, FK -> psoc_occupations.code

	// contact
	Email           *string `db:"email"`            // VARCHAR(255), nullable
	MobileNumber    *string `db:"mobile_number"`    // VARCHAR(20), nullable (09XXXXXXXXX or +639XXXXXXXXX)
	TelephoneNumber *string `db:"telephone_number"` // VARCHAR(20), nullable
	PhilsysLast4    *string `db:"philsys_last4"`    // VARCHAR(4), nullable (only the last 4 digits are kept)

	// household membership
	HouseholdID *string `db:"household_id"` // UUID, nullable, FK -> households.id

	// geographic assignment
	BarangayCode string `db:"barangay_code"` // VARCHAR(10), NOT NULL, FK -> psgc_barangays.code
	CityCode     string `db:"city_code"`     // VARCHAR(10), NOT NULL (resolver-written)
	ProvinceCode string `db:"province_code"` // VARCHAR(10), NOT NULL (resolver-written)
	RegionCode   string `db:"region_code"`   // VARCHAR(10), NOT NULL (resolver-written)

	// sectoral flags (RBI Form A column 14)
	IsLaborForce bool `db:"is_labor_force"` // BOOLEAN, NOT NULL, DEFAULT FALSE
	IsOFW        bool `db:"is_ofw"`         // BOOLEAN, NOT NULL, DEFAULT FALSE
	IsPWD        bool `db:"is_pwd"`         // BOOLEAN, NOT NULL, DEFAULT FALSE
	IsSoloParent bool `db:"is_solo_parent"` // BOOLEAN, NOT NULL, DEFAULT FALSE
	IsIndigenous bool `db:"is_indigenous"`  // BOOLEAN, NOT NULL, DEFAULT FALSE
	IsVoter      bool `db:"is_voter"`       // BOOLEAN, NOT NULL, DEFAULT FALSE

	// audit
	CreatedBy string     `db:"created_by"` // UUID, NOT NULL, FK -> user_profiles.id
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"` // TIMESTAMPTZ, nullable (soft delete)
}

// Age in whole years as of now.
func (r *Resident) Age(now time.Time) int {
	years := now.Year() - r.Birthdate.Year()
	if now.YearDay() < r.Birthdate.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}

// IsSenior reports whether the resident is 60 or older, the senior-citizen
// threshold under RA 9994.
func (r *Resident) IsSenior(now time.Time) bool {
	return r.Age(now) >= 60
}
