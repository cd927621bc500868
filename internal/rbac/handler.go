package rbac

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/shared"
)

// Handler exposes group listing and the caller's own capabilities.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers group routes under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/me/capabilities", h.capabilities)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapAdmin))
		r.Get("/admin/groups", h.listGroups)
	})
}

func (h *Handler) listGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := h.service.ListGroups(r.Context())
	if err != nil {
		h.logger.Error("list groups", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, groups)
}

func (h *Handler) capabilities(w http.ResponseWriter, r *http.Request) {
	userID, _ := shared.UserIDFromContext(r.Context())
	caps, err := h.service.EffectivePermissions(r.Context(), userID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if caps == nil {
		caps = []string{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"capabilities": caps})
}
