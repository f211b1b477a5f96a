package domain

import "time"

// PSOC occupation levels, broadest to narrowest.
const (
	PSOCLevelMajorGroup    = "major_group"     // 1-digit code
	PSOCLevelSubMajorGroup = "sub_major_group" // 2-digit code
	PSOCLevelMinorGroup    = "minor_group"     // 3-digit code
	PSOCLevelUnitGroup     = "unit_group"      // 4-digit code
	PSOCLevelOccupation    = "occupation"      // 5-digit code
)

// Occupation is one node of the Philippine Standard Occupational
// Classification tree (psoc_occupations table).
type Occupation struct {
	Code       string    `db:"code"`        // VARCHAR(10), PRIMARY KEY
	Title      string    `db:"title"`       // VARCHAR(200), NOT NULL
	Level      string    `db:"level"`       // VARCHAR(20), NOT NULL (see PSOCLevel* constants)
	ParentCode *string   `db:"parent_code"` // VARCHAR(10), nullable, FK -> psoc_occupations.code
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}
