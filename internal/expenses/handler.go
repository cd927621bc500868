package expenses

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Handler wires HTTP endpoints for expenses.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the expenses handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers expense routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapFinance))
		r.Get("/expenses", h.list)
		r.Post("/expenses", h.create)
		r.Get("/expenses/{id}", h.get)
		r.Put("/expenses/{id}", h.update)
		r.Delete("/expenses/{id}", h.delete)
		r.Post("/expenses/{id}/pay", h.pay)
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
	q := r.URL.Query()
	items, total, err := h.service.List(r.Context(), ListFilter{
		Search:   httpx.Search(r),
		Status:   Status(q.Get("status")),
		Category: q.Get("category"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	})
	if err != nil {
		h.fail(w, "list expenses", err)
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
	e, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in Input
	if !httpx.Bind(w, r, &in) {
		return
	}
	e, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create expense", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, e)
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
	e, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete expense", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) pay(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	e, err := h.service.Pay(r.Context(), id)
	if err != nil {
		h.fail(w, "pay expense", err)
		return
	}
	httpx.JSON(w, http.StatusOK, e)
}
