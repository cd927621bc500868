package clients

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Handler wires HTTP endpoints for customers.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the clients handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers customer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapClients))
		r.Get("/clients", h.list)
		r.Post("/clients", h.create)
		r.Get("/clients/{id}", h.get)
		r.Put("/clients/{id}", h.update)
		r.Delete("/clients/{id}", h.delete)
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageParams(r)
	items, total, err := h.service.List(r.Context(), ListFilter{Search: httpx.Search(r), Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		h.fail(w, "list clients", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewList(items, total, page.Limit, page.Offset))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	d, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CustomerInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	c, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create client", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CustomerInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	c, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update client", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete client", err)
		return
	}
	httpx.NoContent(w)
}
