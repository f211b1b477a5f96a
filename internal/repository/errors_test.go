package repository

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func newUniqueViolation(constraint string) *pq.Error {
	return &pq.Error{
		Code:       pqUniqueViolationCode,
		Constraint: constraint,
		Message:    fmt.Sprintf("duplicate key value violates unique constraint %q", constraint),
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, IsUniqueViolation(newUniqueViolation("residents_email_key")))
	assert.True(t, IsUniqueViolation(fmt.Errorf("failed to create resident: %w", newUniqueViolation("residents_email_key"))))
	assert.True(t, IsUniqueViolation(fmt.Errorf("email already registered: %w", ErrDuplicate)))

	assert.False(t, IsUniqueViolation(nil))
	assert.False(t, IsUniqueViolation(errors.New("connection refused")))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}))
}
