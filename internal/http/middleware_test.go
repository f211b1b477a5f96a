package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"citizenly-registry/internal/auth"
	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/config"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMiddlewareFixture(t *testing.T, ttl time.Duration) (*AuthMiddleware, *auth.TokenService, *repository.MemoryUsersRepo, string) {
	t.Helper()

	roles := repository.NewMemoryRolesRepo()
	users := repository.NewMemoryUsersRepo(roles)
	tokens := auth.NewTokenService(config.AuthConfig{
		SigningKey: "middleware-test-signing-key",
		Issuer:     "citizenly-registry",
		TokenTTL:   ttl,
	})

	role, err := roles.GetRoleByName(context.Background(), domain.RoleBarangayAdmin)
	require.NoError(t, err)

	barangay, city, province, region := "042114014", "042114", "0421", "04"
	hash, err := auth.HashPassword("irrelevant-here")
	require.NoError(t, err)
	userID, err := users.CreateUser(context.Background(), &domain.UserProfile{
		Email:        "mw@barangay.gov.ph",
		PasswordHash: hash,
		FirstName:    "Ana",
		LastName:     "Reyes",
		RoleID:       role.ID,
		BarangayCode: &barangay,
		CityCode:     &city,
		ProvinceCode: &province,
		RegionCode:   &region,
		IsActive:     true,
	})
	require.NoError(t, err)

	return NewAuthMiddleware(tokens, users, zap.NewNop()), tokens, users, userID
}

func callProtected(mw *AuthMiddleware, authorization string) (*httptest.ResponseRecorder, *Identity) {
	var captured *Identity
	handler := mw.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/residents", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec, captured
}

func TestRequireAuth_BuildsScopeFromStoredProfile(t *testing.T) {
	mw, tokens, users, userID := newMiddlewareFixture(t, time.Hour)

	user, err := users.GetUser(context.Background(), userID)
	require.NoError(t, err)
	token, _, err := tokens.GenerateAccessToken(user.ID, user.Email, user.RoleName)
	require.NoError(t, err)

	rec, identity := callProtected(mw, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, authz.TierBarangay, identity.Scope.Tier)
	assert.Equal(t, "042114014", identity.Scope.Code)
}

func TestRequireAuth_RejectsBadHeaders(t *testing.T) {
	mw, _, _, _ := newMiddlewareFixture(t, time.Hour)

	for _, header := range []string{"", "Basic dXNlcg==", "Bearer ", "Bearer garbage.garbage.garbage"} {
		rec, identity := callProtected(mw, header)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		assert.Nil(t, identity)
	}
}

func TestRequireAuth_RejectsExpiredToken(t *testing.T) {
	mw, tokens, users, userID := newMiddlewareFixture(t, -time.Minute)

	user, err := users.GetUser(context.Background(), userID)
	require.NoError(t, err)
	token, _, err := tokens.GenerateAccessToken(user.ID, user.Email, user.RoleName)
	require.NoError(t, err)

	rec, _ := callProtected(mw, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_RejectsDeactivatedAccount(t *testing.T) {
	mw, tokens, users, userID := newMiddlewareFixture(t, time.Hour)

	user, err := users.GetUser(context.Background(), userID)
	require.NoError(t, err)
	token, _, err := tokens.GenerateAccessToken(user.ID, user.Email, user.RoleName)
	require.NoError(t, err)

	// the token is still valid but the account was switched off
	require.NoError(t, users.SetUserActive(context.Background(), userID, false))

	rec, _ := callProtected(mw, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_IgnoresRoleClaimInToken(t *testing.T) {
	mw, tokens, users, userID := newMiddlewareFixture(t, time.Hour)

	user, err := users.GetUser(context.Background(), userID)
	require.NoError(t, err)

	// even a token claiming super_admin only gets the stored profile's
	// barangay scope
	token, _, err := tokens.GenerateAccessToken(user.ID, user.Email, "super_admin")
	require.NoError(t, err)

	rec, identity := callProtected(mw, "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "barangay_admin", identity.RoleName)
	assert.Equal(t, authz.TierBarangay, identity.Scope.Tier)
	assert.Equal(t, "042114014", identity.Scope.Code)
}
