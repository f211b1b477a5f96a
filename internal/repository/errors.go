package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pqUniqueViolationCode is the PostgreSQL error code for unique
// constraint violations. See https://www.postgresql.org/docs/14/errcodes-appendix.html
const pqUniqueViolationCode = "23505"

// ErrBrokenGeoChain marks a barangay whose reference chain does not
// resolve through all four PSGC levels. Writes depending on the chain
// must not proceed.
var ErrBrokenGeoChain = errors.New("broken geographic reference chain")

// ErrDuplicate is the driver-independent duplicate marker wrapped by
// the memory repositories. The Postgres repositories surface pq unique
// violations instead; IsUniqueViolation recognizes both.
var ErrDuplicate = errors.New("duplicate value")

// IsUniqueViolation reports whether err is a unique constraint
// violation (duplicate email, household code, etc.).
func IsUniqueViolation(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == pqUniqueViolationCode
	}
	return false
}
