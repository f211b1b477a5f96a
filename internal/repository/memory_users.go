package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/domain"

	"github.com/google/uuid"
)

// MemoryUsersRepo backs signup/login when the DB is not ready.
type MemoryUsersRepo struct {
	mu    sync.RWMutex
	users map[string]domain.UserProfile // keyed by id
	roles RolesRepository               // for role_name joins
}

func NewMemoryUsersRepo(roles RolesRepository) *MemoryUsersRepo {
	return &MemoryUsersRepo{
		users: map[string]domain.UserProfile{},
		roles: roles,
	}
}

var _ UsersRepository = (*MemoryUsersRepo)(nil)

func (r *MemoryUsersRepo) GetUser(_ context.Context, userID string) (*domain.UserProfile, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[userID]
	if !ok {
		return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	return &user, nil
}

func (r *MemoryUsersRepo) GetUserByEmail(_ context.Context, email string) (*domain.UserProfile, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id := range r.users {
		user := r.users[id]
		if strings.EqualFold(user.Email, email) {
			return &user, nil
		}
	}
	return nil, fmt.Errorf("user not found: %w", sql.ErrNoRows)
}

func (r *MemoryUsersRepo) ListUsers(_ context.Context, scope authz.Scope, search string, page, size int) ([]*domain.UserProfile, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.UserProfile{}
	for id := range r.users {
		user := r.users[id]
		if !scope.Allows(userGeoCodes(&user)) {
			continue
		}
		if search != "" {
			lower := strings.ToLower(search)
			if !strings.Contains(strings.ToLower(user.Email), lower) &&
				!strings.Contains(strings.ToLower(user.FirstName), lower) &&
				!strings.Contains(strings.ToLower(user.LastName), lower) {
				continue
			}
		}
		matched = append(matched, &user)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})

	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []*domain.UserProfile{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryUsersRepo) CreateUser(ctx context.Context, user *domain.UserProfile) (string, error) {
	if user == nil {
		return "", fmt.Errorf("user is required")
	}
	if user.Email == "" {
		return "", fmt.Errorf("email is required")
	}
	if len(user.PasswordHash) == 0 {
		return "", fmt.Errorf("password_hash is required")
	}
	if user.RoleID == "" {
		return "", fmt.Errorf("role_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for id := range r.users {
		if strings.EqualFold(r.users[id].Email, user.Email) {
			return "", fmt.Errorf("email already registered: %w", ErrDuplicate)
		}
	}

	stored := *user
	stored.ID = uuid.NewString()
	stored.Email = strings.ToLower(user.Email)
	now := time.Now()
	stored.CreatedAt = now
	stored.UpdatedAt = now

	if stored.RoleName == "" && r.roles != nil {
		if role, err := r.roles.GetRole(ctx, stored.RoleID); err == nil {
			stored.RoleName = role.Name
		}
	}

	r.users[stored.ID] = stored
	return stored.ID, nil
}

func (r *MemoryUsersRepo) UpdateLastLogin(_ context.Context, userID string, at time.Time) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	user.LastLoginAt = &at
	user.UpdatedAt = time.Now()
	r.users[userID] = user
	return nil
}

func (r *MemoryUsersRepo) SetUserActive(_ context.Context, userID string, active bool) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[userID]
	if !ok {
		return fmt.Errorf("user not found: %w", sql.ErrNoRows)
	}
	user.IsActive = active
	user.UpdatedAt = time.Now()
	r.users[userID] = user
	return nil
}

func userGeoCodes(u *domain.UserProfile) authz.GeoCodes {
	codes := authz.GeoCodes{}
	if u.BarangayCode != nil {
		codes.BarangayCode = *u.BarangayCode
	}
	if u.CityCode != nil {
		codes.CityCode = *u.CityCode
	}
	if u.ProvinceCode != nil {
		codes.ProvinceCode = *u.ProvinceCode
	}
	if u.RegionCode != nil {
		codes.RegionCode = *u.RegionCode
	}
	return codes
}
