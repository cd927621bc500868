package stock

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Handler wires HTTP endpoints for stock movements.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs stock handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapStock))
		r.Get("/stock/movements", h.list)
		r.Post("/stock/movements", h.create)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(r.URL.Query().Get("product_id"), 10, 64)
	if err != nil || productID <= 0 {
		httpx.RespondError(w, httpx.ValidationErrors{"product_id": "required"})
		return
	}
	page := httpx.PageParams(r)
	moves, err := h.service.ListByProduct(r.Context(), productID, page.Limit)
	if err != nil {
		h.logger.Error("list stock movements", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewList(moves, len(moves), page.Limit, 0))
}

type movementResponse struct {
	Movement
	Balance int `json:"balance"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in MovementInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	in.ActorID, _ = shared.UserIDFromContext(r.Context())
	mv, balance, err := h.service.Record(r.Context(), in)
	if err != nil {
		if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
			h.logger.Error("record stock movement", slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("stock movement recorded", slog.Int64("product_id", mv.ProductID), slog.Int("quantity", mv.Quantity), slog.String("kind", string(mv.Kind)))
	httpx.JSON(w, http.StatusCreated, movementResponse{Movement: mv, Balance: balance})
}
