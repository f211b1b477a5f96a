package httpapi

import (
	"net/http"
	"time"

	"citizenly-registry/internal/authz"
	"citizenly-registry/internal/repository"

	"go.uber.org/zap"
)

// RolesHandler serves the role catalog for admin screens. The access
// level shown per role comes from the same tier table the authorizer
// uses, so the UI can never disagree with enforcement.
type RolesHandler struct {
	rolesRepo repository.RolesRepository
	logger    *zap.Logger
}

func NewRolesHandler(rolesRepo repository.RolesRepository, logger *zap.Logger) *RolesHandler {
	return &RolesHandler{rolesRepo: rolesRepo, logger: logger}
}

type roleDTO struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description,omitempty"`
	AccessLevel string    `json:"access_level"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *RolesHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.rolesRepo.ListRoles(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	items := make([]*roleDTO, 0, len(roles))
	for _, role := range roles {
		items = append(items, &roleDTO{
			ID:          role.ID,
			Name:        role.Name,
			DisplayName: role.DisplayName,
			Description: role.Description,
			AccessLevel: string(authz.TierForRole(role.Name)),
			CreatedAt:   role.CreatedAt,
		})
	}
	writeData(w, http.StatusOK, items)
}
