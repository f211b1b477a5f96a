package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/auth"
	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"

	"go.uber.org/zap"
)

// AuthService handles account creation and login for barangay staff.
type AuthService interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Me(ctx context.Context, userID string) (*UserProfileDTO, error)
}

type authService struct {
	usersRepo repository.UsersRepository
	rolesRepo repository.RolesRepository
	resolver  geo.Resolver
	tokens    *auth.TokenService
	logger    *zap.Logger
}

func NewAuthService(
	usersRepo repository.UsersRepository,
	rolesRepo repository.RolesRepository,
	resolver geo.Resolver,
	tokens *auth.TokenService,
	logger *zap.Logger,
) AuthService {
	return &authService{
		usersRepo: usersRepo,
		rolesRepo: rolesRepo,
		resolver:  resolver,
		tokens:    tokens,
		logger:    logger,
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// mobilePattern accepts PH mobile numbers as 09XXXXXXXXX or +639XXXXXXXXX.
var mobilePattern = regexp.MustCompile(`^(09|\+639)\d{9}$`)

const minPasswordLength = 8

// UserProfileDTO is the account shape returned to the frontend. The
// password hash never leaves the service layer.
type UserProfileDTO struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	MobileNumber *string    `json:"mobile_number,omitempty"`
	RoleName     string     `json:"role"`
	BarangayCode *string    `json:"barangay_code,omitempty"`
	CityCode     *string    `json:"city_code,omitempty"`
	ProvinceCode *string    `json:"province_code,omitempty"`
	RegionCode   *string    `json:"region_code,omitempty"`
	IsActive     bool       `json:"is_active"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func toUserProfileDTO(user *domain.UserProfile) *UserProfileDTO {
	return &UserProfileDTO{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		MobileNumber: user.MobileNumber,
		RoleName:     user.RoleName,
		BarangayCode: user.BarangayCode,
		CityCode:     user.CityCode,
		ProvinceCode: user.ProvinceCode,
		RegionCode:   user.RegionCode,
		IsActive:     user.IsActive,
		LastLoginAt:  user.LastLoginAt,
		CreatedAt:    user.CreatedAt,
	}
}

// ScopeForProfile rebuilds the caller's visibility from the stored
// profile. It runs on every request, never from token claims, so role
// or assignment changes apply immediately.
func ScopeForProfile(user *domain.UserProfile) authz.Scope {
	assignment := authz.GeoCodes{}
	if user.BarangayCode != nil {
		assignment.BarangayCode = *user.BarangayCode
	}
	if user.CityCode != nil {
		assignment.CityCode = *user.CityCode
	}
	if user.ProvinceCode != nil {
		assignment.ProvinceCode = *user.ProvinceCode
	}
	if user.RegionCode != nil {
		assignment.RegionCode = *user.RegionCode
	}
	return authz.ScopeForRole(user.RoleName, assignment)
}

// SignupRequest registers a barangay administrator. Self-service signup
// always yields the barangay_admin role; wider roles are provisioned by
// a super admin.
type SignupRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	MobileNumber string `json:"mobile_number"`
	BarangayCode string `json:"barangay_code"`
}

type SignupResponse struct {
	User *UserProfileDTO `json:"user"`
}

func (s *authService) Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.MobileNumber = strings.TrimSpace(req.MobileNumber)
	req.BarangayCode = strings.TrimSpace(req.BarangayCode)

	fields := []apperr.FieldError{}
	if req.Email == "" || !emailPattern.MatchString(req.Email) {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "a valid email address is required"})
	}
	if len(req.Password) < minPasswordLength {
		fields = append(fields, apperr.FieldError{Field: "password", Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength)})
	}
	if req.FirstName == "" {
		fields = append(fields, apperr.FieldError{Field: "first_name", Message: "first name is required"})
	}
	if req.LastName == "" {
		fields = append(fields, apperr.FieldError{Field: "last_name", Message: "last name is required"})
	}
	if req.MobileNumber != "" && !mobilePattern.MatchString(req.MobileNumber) {
		fields = append(fields, apperr.FieldError{Field: "mobile_number", Message: "mobile number must match 09XXXXXXXXX or +639XXXXXXXXX"})
	}
	if req.BarangayCode == "" {
		fields = append(fields, apperr.FieldError{Field: "barangay_code", Message: "barangay code is required"})
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	// The whole chain must resolve before the account exists. The
	// ancestor codes are stored denormalized and never derived from the
	// barangay code's digits.
	ancestry, err := s.resolver.Resolve(ctx, req.BarangayCode)
	if err != nil {
		if errors.Is(err, repository.ErrBrokenGeoChain) {
			s.logger.Error("Signup blocked by inconsistent geographic reference data",
				zap.String("barangay_code", req.BarangayCode),
				zap.Error(err),
			)
			return nil, apperr.Wrap(err, apperr.CodeInternal, "geographic reference data is inconsistent")
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Validation(apperr.FieldError{Field: "barangay_code", Message: "unknown barangay code"})
		}
		return nil, fmt.Errorf("failed to resolve barangay: %w", err)
	}

	role, err := s.rolesRepo.GetRoleByName(ctx, domain.RoleBarangayAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to load signup role: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.UserProfile{
		Email:        req.Email,
		PasswordHash: passwordHash,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		RoleID:       role.ID,
		BarangayCode: &ancestry.BarangayCode,
		CityCode:     &ancestry.CityCode,
		ProvinceCode: &ancestry.ProvinceCode,
		RegionCode:   &ancestry.RegionCode,
		IsActive:     true,
	}
	if req.MobileNumber != "" {
		user.MobileNumber = &req.MobileNumber
	}

	userID, err := s.usersRepo.CreateUser(ctx, user)
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperr.New(apperr.CodeConflict, "an account with this email already exists")
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	created, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load created account: %w", err)
	}

	s.logger.Info("Account created",
		zap.String("user_id", userID),
		zap.String("role", created.RoleName),
		zap.String("barangay_code", ancestry.BarangayCode),
	)

	return &SignupResponse{User: toUserProfileDTO(created)}, nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// client metadata for the login log
	IPAddress string `json:"-"`
	UserAgent string `json:"-"`
}

type LoginResponse struct {
	AccessToken string          `json:"access_token"`
	ExpiresAt   time.Time       `json:"expires_at"`
	User        *UserProfileDTO `json:"user"`
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		s.logger.Warn("Login failed: missing credentials",
			zap.String("ip_address", req.IPAddress),
			zap.String("user_agent", req.UserAgent),
		)
		return nil, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
	}

	user, err := s.usersRepo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Login failed: unknown account",
				zap.String("ip_address", req.IPAddress),
				zap.String("user_agent", req.UserAgent),
			)
			return nil, apperr.New(apperr.CodeUnauthorized, "invalid credentials")
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if err := auth.VerifyPassword(user.PasswordHash, req.Password); err != nil {
		if apperr.HasCode(err, apperr.CodeUnauthorized) {
			s.logger.Warn("Login failed: wrong password",
				zap.String("user_id", user.ID),
				zap.String("ip_address", req.IPAddress),
				zap.String("user_agent", req.UserAgent),
			)
		}
		return nil, err
	}

	if !user.IsActive {
		s.logger.Warn("Login failed: account deactivated",
			zap.String("user_id", user.ID),
			zap.String("ip_address", req.IPAddress),
		)
		return nil, apperr.New(apperr.CodeForbidden, "account is deactivated")
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(user.ID, user.Email, user.RoleName)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	now := time.Now()
	if err := s.usersRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		// log only: a stale last_login_at must not block the login
		s.logger.Warn("Failed to update last_login_at",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	} else {
		user.LastLoginAt = &now
	}

	s.logger.Info("Login successful",
		zap.String("user_id", user.ID),
		zap.String("role", user.RoleName),
		zap.String("ip_address", req.IPAddress),
		zap.String("user_agent", req.UserAgent),
	)

	return &LoginResponse{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        toUserProfileDTO(user),
	}, nil
}

func (s *authService) Me(ctx context.Context, userID string) (*UserProfileDTO, error) {
	if userID == "" {
		return nil, apperr.New(apperr.CodeUnauthorized, "not authenticated")
	}

	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeUnauthorized, "account no longer exists")
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	return toUserProfileDTO(user), nil
}
