package repository

import (
	"context"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
)

// UsersRepository is the access layer for operator accounts. Lookups by
// id and email are unscoped (they back authentication); listing is
// scoped so admins only see accounts inside their own area.
type UsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.UserProfile, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	ListUsers(ctx context.Context, scope authz.Scope, search string, page, size int) ([]*domain.UserProfile, int, error)

	CreateUser(ctx context.Context, user *domain.UserProfile) (string, error)
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
	SetUserActive(ctx context.Context, userID string, active bool) error
}
