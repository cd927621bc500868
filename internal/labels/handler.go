package labels

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Handler wires HTTP endpoints for labels.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the labels handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers label routes. Any signed in user may use them.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAuth)
		r.Get("/labels", h.list)
		r.Post("/labels", h.create)
		r.Get("/labels/{id}", h.get)
		r.Put("/labels/{id}", h.update)
		r.Delete("/labels/{id}", h.delete)
		r.Get("/labels/{id}/pdf", h.pdf)
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
	items, total, err := h.service.List(r.Context(), httpx.Search(r), page.Limit, page.Offset)
	if err != nil {
		h.fail(w, "list labels", err)
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
	l, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get label", err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httpx.Bind(w, r, &in) {
		return
	}
	l, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create label", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, l)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in Input
	if !httpx.Bind(w, r, &in) {
		return
	}
	l, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update label", err)
		return
	}
	httpx.JSON(w, http.StatusOK, l)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete label", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	body, err := h.service.PDF(r.Context(), id)
	if err != nil {
		h.fail(w, "render label pdf", err)
		return
	}
	httpx.PDF(w, "etiqueta_"+strconv.FormatInt(id, 10)+".pdf", body)
}
