package quotes

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/documents"
	"github.com/inkworks/inkworks/internal/orders"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Printer renders the quote document.
type Printer interface {
	Quote(ctx context.Context, q documents.Quote) ([]byte, error)
}

// Handler wires HTTP endpoints for quotes.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	customers orders.CustomerDirectory
	printer   Printer
	rbac      rbac.Middleware
}

// NewHandler constructs the quotes handler.
func NewHandler(logger *slog.Logger, service *Service, customers orders.CustomerDirectory, printer Printer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, customers: customers, printer: printer, rbac: rbac}
}

// MountRoutes registers quote routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapOrders))
		r.Get("/quotes", h.list)
		r.Post("/quotes", h.create)
		r.Get("/quotes/{id}", h.get)
		r.Put("/quotes/{id}", h.update)
		r.Delete("/quotes/{id}", h.delete)
		r.Post("/quotes/{id}/lines", h.addLine)
		r.Put("/quotes/{id}/lines/{lineID}", h.updateLine)
		r.Delete("/quotes/{id}/lines/{lineID}", h.deleteLine)
		r.Post("/quotes/{id}/recompute", h.recompute)
		r.Post("/quotes/{id}/convert", h.convert)
		r.Get("/quotes/{id}/pdf", h.pdf)
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// lineIDs reads the quote and line ids of a line route.
func lineIDs(r *http.Request) (int64, int64, error) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		return 0, 0, err
	}
	lineID, err := httpx.IDParam(r, "lineID")
	return id, lineID, err
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page := httpx.PageParams(r)
	items, total, err := h.service.List(r.Context(), ListFilter{
		Search: httpx.Search(r),
		Status: Status(r.URL.Query().Get("status")),
		Limit:  page.Limit,
		Offset: page.Offset,
	})
	if err != nil {
		h.fail(w, "list quotes", err)
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
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	q, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create quote", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in UpdateInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	q, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete quote", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) addLine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in LineInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	line, err := h.service.AddLine(r.Context(), id, in)
	if err != nil {
		h.fail(w, "add quote line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	id, lineID, err := lineIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in LineInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	line, err := h.service.UpdateLine(r.Context(), id, lineID, in)
	if err != nil {
		h.fail(w, "update quote line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) deleteLine(w http.ResponseWriter, r *http.Request) {
	id, lineID, err := lineIDs(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteLine(r.Context(), id, lineID); err != nil {
		h.fail(w, "delete quote line", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) recompute(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force"))
	q, err := h.service.Recompute(r.Context(), id, force)
	if err != nil {
		h.fail(w, "recompute quote", err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	order, err := h.service.Convert(r.Context(), id)
	if err != nil && order.ID == 0 {
		h.fail(w, "convert quote", err)
		return
	}
	if err != nil {
		h.logger.Warn("quote converted with listener errors", slog.Int64("quote_id", id), slog.Any("error", err))
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get quote", err)
		return
	}
	customer, err := h.customers.DocumentCustomer(r.Context(), q.CustomerID)
	if err != nil {
		h.fail(w, "load quote customer", err)
		return
	}
	body, err := h.printer.Quote(r.Context(), Document(q, customer))
	if err != nil {
		h.fail(w, "render quote pdf", err)
		return
	}
	httpx.PDF(w, "orcamento_"+strconv.FormatInt(q.ID, 10)+".pdf", body)
}

// Document maps a quote onto its printable form.
func Document(q Quote, customer documents.Customer) documents.Quote {
	lines := make([]documents.Line, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, documents.Line{
			Description: l.Label(),
			Quantity:    l.Quantity,
			Width:       l.Width,
			Height:      l.Height,
			Subtotal:    l.Subtotal,
		})
	}
	return documents.Quote{
		Number:     q.ID,
		CreatedAt:  q.CreatedAt,
		ValidUntil: q.ValidUntil.Time,
		Customer:   customer,
		Lines:      lines,
		Shipping:   q.Shipping,
		Discount:   q.Discount,
		Total:      q.Total,
	}
}
