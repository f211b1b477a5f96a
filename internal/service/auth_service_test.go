package service

import (
	"context"
	"testing"
	"time"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/auth"
	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/config"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthFixture(t *testing.T) (AuthService, *auth.TokenService) {
	t.Helper()

	psgc := repository.NewMemoryPSGCRepo()
	psgc.SeedSample()
	roles := repository.NewMemoryRolesRepo()
	users := repository.NewMemoryUsersRepo(roles)
	resolver := geo.NewChainResolver(psgc, store.NewMemoryKV(), zap.NewNop())
	tokens := auth.NewTokenService(config.AuthConfig{
		SigningKey: "test-signing-key-for-unit-tests",
		Issuer:     "citizenly-registry",
		TokenTTL:   time.Hour,
	})

	return NewAuthService(users, roles, resolver, tokens, zap.NewNop()), tokens
}

func validSignup() SignupRequest {
	return SignupRequest{
		Email:        "admin@barangay.gov.ph",
		Password:     "correct-horse",
		FirstName:    "Ana",
		LastName:     "Reyes",
		BarangayCode: "042114014",
	}
}

func TestSignup_ResolvesGeographicChain(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	user := resp.User
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "admin@barangay.gov.ph", user.Email)
	assert.Equal(t, "barangay_admin", user.RoleName)
	require.NotNil(t, user.BarangayCode)
	assert.Equal(t, "042114014", *user.BarangayCode)
	require.NotNil(t, user.CityCode)
	assert.Equal(t, "042114", *user.CityCode)
	require.NotNil(t, user.ProvinceCode)
	assert.Equal(t, "0421", *user.ProvinceCode)
	require.NotNil(t, user.RegionCode)
	assert.Equal(t, "04", *user.RegionCode)
	assert.True(t, user.IsActive)
}

func TestSignup_UnknownBarangayIsValidation(t *testing.T) {
	svc, _ := newAuthFixture(t)

	req := validSignup()
	req.BarangayCode = "137404001"

	_, err := svc.Signup(context.Background(), req)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
}

func TestSignup_DuplicateEmailIsConflict(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	// same address, different case
	req := validSignup()
	req.Email = "Admin@Barangay.gov.ph"
	_, err = svc.Signup(ctx, req)
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeConflict))
}

func TestSignup_RejectsWeakInput(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	cases := []struct {
		name   string
		mutate func(*SignupRequest)
	}{
		{"bad email", func(r *SignupRequest) { r.Email = "nope" }},
		{"short password", func(r *SignupRequest) { r.Password = "short" }},
		{"missing first name", func(r *SignupRequest) { r.FirstName = "" }},
		{"missing last name", func(r *SignupRequest) { r.LastName = "" }},
		{"bad mobile", func(r *SignupRequest) { r.MobileNumber = "555-1234" }},
		{"missing barangay", func(r *SignupRequest) { r.BarangayCode = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := validSignup()
			tc.mutate(&req)

			_, err := svc.Signup(ctx, req)
			require.Error(t, err)
			assert.True(t, apperr.HasCode(err, apperr.CodeValidation))
		})
	}
}

func TestLogin_IssuesUsableToken(t *testing.T) {
	svc, tokens := newAuthFixture(t)
	ctx := context.Background()

	created, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, LoginRequest{
		Email:    "ADMIN@barangay.gov.ph",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.True(t, resp.ExpiresAt.After(time.Now()))
	require.NotNil(t, resp.User.LastLoginAt)

	claims, err := tokens.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.User.ID, claims.UserID)
	assert.Equal(t, "barangay_admin", claims.RoleName)
}

func TestLogin_WrongCredentials(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Signup(ctx, validSignup())
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "admin@barangay.gov.ph", Password: "wrong-password"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@barangay.gov.ph", Password: "correct-horse"})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{})
	require.Error(t, err)
	assert.True(t, apperr.HasCode(err, apperr.CodeUnauthorized))
}

func TestScopeForProfile_MapsRoleToTier(t *testing.T) {
	barangay, city, province, region := "042114014", "042114", "0421", "04"
	profile := &domain.UserProfile{
		RoleName:     "city_admin",
		BarangayCode: &barangay,
		CityCode:     &city,
		ProvinceCode: &province,
		RegionCode:   &region,
	}

	scope := ScopeForProfile(profile)
	assert.Equal(t, authz.TierCity, scope.Tier)
	assert.Equal(t, "042114", scope.Code)

	profile.RoleName = "super_admin"
	scope = ScopeForProfile(profile)
	assert.Equal(t, authz.TierNational, scope.Tier)
	assert.False(t, scope.Restricted())

	// an unrecognized role falls back to the narrowest tier
	profile.RoleName = "clerk"
	scope = ScopeForProfile(profile)
	assert.Equal(t, authz.TierBarangay, scope.Tier)
	assert.Equal(t, "042114014", scope.Code)
}
