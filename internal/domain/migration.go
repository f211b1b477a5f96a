package domain

import "time"

// ResidentMigration records where a resident transferred from and why
// (resident_migrations table, at most one row per resident). Residents
// born in the barangay have no row.
type ResidentMigration struct {
	ResidentID string `db:"resident_id"` // UUID, PRIMARY KEY, FK -> residents.id

	// previous address; the code is set when the origin is a known
	// Philippine barangay, the free-text field otherwise
	PreviousBarangayCode *string `db:"previous_barangay_code"` // VARCHAR(10), nullable, FK -> psgc_barangays.code
	PreviousAddress      *string `db:"previous_address"`       // VARCHAR(300), nullable (abroad or unresolvable)

	DateOfTransfer      *time.Time `db:"date_of_transfer"`        // DATE, nullable
	ReasonForTransfer   *string    `db:"reason_for_transfer"`     // VARCHAR(200), nullable
	MonthsAtPrevious    *int       `db:"months_at_previous"`      // INTEGER, nullable
	IsIntendingToReturn *bool      `db:"is_intending_to_return"`  // BOOLEAN, nullable

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
