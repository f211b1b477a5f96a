package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"citizenly-registry/internal/apperr"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/repository"
)

// OccupationService serves the PSOC classification tree to the
// occupation picker.
type OccupationService interface {
	SearchOccupations(ctx context.Context, req SearchOccupationsRequest) (*SearchOccupationsResponse, error)
	GetOccupation(ctx context.Context, code string) (*OccupationDTO, error)
	ListChildren(ctx context.Context, parentCode string) ([]*OccupationDTO, error)
}

type occupationService struct {
	psocRepo repository.PSOCRepository
}

func NewOccupationService(psocRepo repository.PSOCRepository) OccupationService {
	return &occupationService{psocRepo: psocRepo}
}

var psocLevels = map[string]bool{
	domain.PSOCLevelMajorGroup:    true,
	domain.PSOCLevelSubMajorGroup: true,
	domain.PSOCLevelMinorGroup:    true,
	domain.PSOCLevelUnitGroup:     true,
	domain.PSOCLevelOccupation:    true,
}

type OccupationDTO struct {
	Code       string  `json:"code"`
	Title      string  `json:"title"`
	Level      string  `json:"level"`
	ParentCode *string `json:"parent_code,omitempty"`
}

func toOccupationDTO(occupation *domain.Occupation) *OccupationDTO {
	return &OccupationDTO{
		Code:       occupation.Code,
		Title:      occupation.Title,
		Level:      occupation.Level,
		ParentCode: occupation.ParentCode,
	}
}

type SearchOccupationsRequest struct {
	Search   string
	Level    string
	Page     int
	PageSize int
}

type SearchOccupationsResponse struct {
	Items    []*OccupationDTO `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func (s *occupationService) SearchOccupations(ctx context.Context, req SearchOccupationsRequest) (*SearchOccupationsResponse, error) {
	level := strings.ToLower(strings.TrimSpace(req.Level))
	if level != "" && !psocLevels[level] {
		return nil, apperr.Validation(apperr.FieldError{Field: "level", Message: "unknown occupation level"})
	}

	page := req.Page
	if page <= 0 {
		page = 1
	}
	size := req.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	occupations, total, err := s.psocRepo.SearchOccupations(ctx, strings.TrimSpace(req.Search), level, page, size)
	if err != nil {
		return nil, fmt.Errorf("failed to search occupations: %w", err)
	}

	items := make([]*OccupationDTO, 0, len(occupations))
	for _, occupation := range occupations {
		items = append(items, toOccupationDTO(occupation))
	}

	return &SearchOccupationsResponse{Items: items, Total: total, Page: page, PageSize: size}, nil
}

func (s *occupationService) GetOccupation(ctx context.Context, code string) (*OccupationDTO, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, apperr.Validation(apperr.FieldError{Field: "code", Message: "occupation code is required"})
	}

	occupation, err := s.psocRepo.GetOccupation(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.New(apperr.CodeNotFound, "occupation not found")
		}
		return nil, fmt.Errorf("failed to get occupation: %w", err)
	}
	return toOccupationDTO(occupation), nil
}

// ListChildren returns the next narrower level under a code; an empty
// parent code returns the major groups.
func (s *occupationService) ListChildren(ctx context.Context, parentCode string) ([]*OccupationDTO, error) {
	occupations, err := s.psocRepo.ListChildren(ctx, strings.TrimSpace(parentCode))
	if err != nil {
		return nil, fmt.Errorf("failed to list occupations: %w", err)
	}
	items := make([]*OccupationDTO, 0, len(occupations))
	for _, occupation := range occupations {
		items = append(items, toOccupationDTO(occupation))
	}
	return items, nil
}
