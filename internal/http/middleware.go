package httpapi

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/auth"
	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/service"

	"go.uber.org/zap"
)

// Identity is the authenticated caller, attached to the request context
// by AuthMiddleware. Scope is rebuilt from the stored profile on every
// request, never from token claims, so role and assignment changes take
// effect without reissuing tokens.
type Identity struct {
	UserID   string
	Email    string
	RoleName string
	Scope    authz.Scope
}

type contextKey string

const identityKey contextKey = "identity"

// IdentityFrom extracts the authenticated caller from a context.
func IdentityFrom(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	return identity, ok
}

// ContextWithIdentity is exported for handler tests that bypass the
// middleware.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// AuthMiddleware validates bearer tokens and loads the caller's profile.
type AuthMiddleware struct {
	tokens *auth.TokenService
	users  repository.UsersRepository
	logger *zap.Logger
}

func NewAuthMiddleware(tokens *auth.TokenService, users repository.UsersRepository, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, logger: logger}
}

// RequireAuth rejects the request with 401 unless it carries a valid
// bearer token for an active account.
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeError(w, m.logger, err)
			return
		}

		claims, err := m.tokens.ValidateToken(token)
		if err != nil {
			writeError(w, m.logger, err)
			return
		}

		user, err := m.users.GetUser(r.Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				writeError(w, m.logger, apperr.New(apperr.CodeUnauthorized, "account no longer exists"))
				return
			}
			m.logger.Error("Failed to load account for token", zap.String("user_id", claims.UserID), zap.Error(err))
			writeError(w, m.logger, apperr.Wrap(err, apperr.CodeInternal, "failed to authenticate request"))
			return
		}
		if !user.IsActive {
			writeError(w, m.logger, apperr.New(apperr.CodeUnauthorized, "account is deactivated"))
			return
		}

		identity := &Identity{
			UserID:   user.ID,
			Email:    user.Email,
			RoleName: user.RoleName,
			Scope:    service.ScopeForProfile(user),
		}
		next(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", apperr.New(apperr.CodeUnauthorized, "missing authorization header")
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", apperr.New(apperr.CodeUnauthorized, "authorization header must be a bearer token")
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", apperr.New(apperr.CodeUnauthorized, "missing bearer token")
	}
	return token, nil
}
