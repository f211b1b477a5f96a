package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"citizenly-registry/internal/domain"
)

// MemoryPSOCRepo backs the occupation picker when the DB is not ready.
type MemoryPSOCRepo struct {
	mu          sync.RWMutex
	occupations map[string]domain.Occupation
}

func NewMemoryPSOCRepo() *MemoryPSOCRepo {
	return &MemoryPSOCRepo{occupations: map[string]domain.Occupation{}}
}

var _ PSOCRepository = (*MemoryPSOCRepo)(nil)

// SeedSample loads a handful of common occupations for local dev.
func (r *MemoryPSOCRepo) SeedSample() {
	ctx := context.Background()
	parent := func(s string) *string { return &s }
	_, _ = r.UpsertOccupations(ctx, []*domain.Occupation{
		{Code: "2", Title: "Professionals", Level: domain.PSOCLevelMajorGroup},
		{Code: "23", Title: "Teaching Professionals", Level: domain.PSOCLevelSubMajorGroup, ParentCode: parent("2")},
		{Code: "234", Title: "Primary School and Early Childhood Teachers", Level: domain.PSOCLevelMinorGroup, ParentCode: parent("23")},
		{Code: "2341", Title: "Primary School Teachers", Level: domain.PSOCLevelUnitGroup, ParentCode: parent("234")},
		{Code: "23410", Title: "Primary School Teacher", Level: domain.PSOCLevelOccupation, ParentCode: parent("2341")},
		{Code: "6", Title: "Skilled Agricultural, Forestry and Fishery Workers", Level: domain.PSOCLevelMajorGroup},
	})
}

func (r *MemoryPSOCRepo) SearchOccupations(_ context.Context, search string, level string, page, size int) ([]*domain.Occupation, int, error) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*domain.Occupation{}
	for code := range r.occupations {
		occupation := r.occupations[code]
		if level != "" && occupation.Level != level {
			continue
		}
		if search != "" {
			lower := strings.ToLower(search)
			if !strings.Contains(strings.ToLower(occupation.Title), lower) &&
				!strings.HasPrefix(occupation.Code, search) {
				continue
			}
		}
		matched = append(matched, &occupation)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })

	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []*domain.Occupation{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryPSOCRepo) GetOccupation(_ context.Context, code string) (*domain.Occupation, error) {
	if code == "" {
		return nil, fmt.Errorf("code is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	occupation, ok := r.occupations[code]
	if !ok {
		return nil, fmt.Errorf("occupation not found: %w", sql.ErrNoRows)
	}
	return &occupation, nil
}

func (r *MemoryPSOCRepo) ListChildren(_ context.Context, parentCode string) ([]*domain.Occupation, error) {
	if parentCode == "" {
		return nil, fmt.Errorf("parent_code is required")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	children := []*domain.Occupation{}
	for code := range r.occupations {
		occupation := r.occupations[code]
		if occupation.ParentCode != nil && *occupation.ParentCode == parentCode {
			children = append(children, &occupation)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Code < children[j].Code })
	return children, nil
}

func (r *MemoryPSOCRepo) UpsertOccupations(_ context.Context, occupations []*domain.Occupation) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	count := 0
	for _, occupation := range occupations {
		if occupation.Code == "" || occupation.Title == "" || occupation.Level == "" {
			continue
		}
		stored := *occupation
		if existing, ok := r.occupations[occupation.Code]; ok {
			stored.CreatedAt = existing.CreatedAt
		} else {
			stored.CreatedAt = now
		}
		stored.UpdatedAt = now
		r.occupations[occupation.Code] = stored
		count++
	}
	return count, nil
}

func (r *MemoryPSOCRepo) CountOccupations(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.occupations), nil
}
