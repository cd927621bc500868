package catalog

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
	"github.com/inkworks/inkworks/internal/stock"
)

// MovementLister supplies the movement history shown on product detail.
type MovementLister interface {
	ListByProduct(ctx context.Context, productID int64, limit int) ([]stock.Movement, error)
}

// Handler wires HTTP endpoints for products and suppliers.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	movements MovementLister
	rbac      rbac.Middleware
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service, movements MovementLister, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, movements: movements, rbac: rbac}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.rbac.RequireAuth).Get("/products", h.listProducts)
	r.With(h.rbac.RequireAuth).Get("/products/{id}", h.getProduct)
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapStock, shared.CapAdmin))
		r.Post("/products", h.createProduct)
		r.Put("/products/{id}", h.updateProduct)
		r.Delete("/products/{id}", h.deleteProduct)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapFinance))
		r.Get("/suppliers", h.listSuppliers)
		r.Post("/suppliers", h.createSupplier)
		r.Get("/suppliers/{id}", h.getSupplier)
		r.Put("/suppliers/{id}", h.updateSupplier)
		r.Delete("/suppliers/{id}", h.deleteSupplier)
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageParams(r)
	items, total, err := h.service.ListProducts(r.Context(), ListFilter{Search: httpx.Search(r), Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewList(items, total, page.Limit, page.Offset))
}

type productDetail struct {
	Product
	Movements []stock.Movement `json:"movements"`
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		h.fail(w, "get product", err)
		return
	}
	detail := productDetail{Product: p, Movements: []stock.Movement{}}
	if h.movements != nil {
		moves, err := h.movements.ListByProduct(r.Context(), id, 50)
		if err != nil {
			h.fail(w, "list product movements", err)
			return
		}
		if moves != nil {
			detail.Movements = moves
		}
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in ProductInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	p, err := h.service.CreateProduct(r.Context(), in)
	if err != nil {
		h.fail(w, "create product", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, p)
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ProductInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	p, err := h.service.UpdateProduct(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update product", err)
		return
	}
	httpx.JSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		h.fail(w, "delete product", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageParams(r)
	items, total, err := h.service.ListSuppliers(r.Context(), ListFilter{Search: httpx.Search(r), Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		h.fail(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewList(items, total, page.Limit, page.Offset))
}

func (h *Handler) getSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	s, err := h.service.GetSupplier(r.Context(), id)
	if err != nil {
		h.fail(w, "get supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var in SupplierInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	s, err := h.service.CreateSupplier(r.Context(), in)
	if err != nil {
		h.fail(w, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, s)
}

func (h *Handler) updateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in SupplierInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	s, err := h.service.UpdateSupplier(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, s)
}

func (h *Handler) deleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteSupplier(r.Context(), id); err != nil {
		h.fail(w, "delete supplier", err)
		return
	}
	httpx.NoContent(w)
}
