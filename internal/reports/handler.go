package reports

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// Handler exposes the report endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the reports handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers finance and management report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.CapFinance))
			r.Get("/dashboard", ranged(h, "dashboard", h.service.Dashboard))
			r.Get("/cash-flow", ranged(h, "cash flow", h.service.CashFlow))
			r.Get("/cash-flow.xlsx", h.cashFlowXLSX)
			r.Get("/revenue-by-method", ranged(h, "revenue by method", h.service.RevenueByMethod))
			r.Get("/payables", plain(h, "payables", h.service.Payables))
			r.Get("/payables.xlsx", h.payablesXLSX)
			r.Get("/receivables", plain(h, "receivables", h.service.Receivables))
			r.Get("/expenses", plain(h, "consolidated expenses", h.service.ConsolidatedExpenses))
			r.Get("/revenue/pdf", h.revenuePDF)
			r.Post("/refresh", h.refresh)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireAny(shared.CapReports))
			r.Get("/sales-evolution", plain(h, "sales evolution", h.service.SalesEvolution))
			r.Get("/orders-by-status", plain(h, "orders by status", h.service.OrdersByStatus))
			r.Get("/top-products", plain(h, "top products", h.service.TopProducts))
			r.Get("/top-clients", plain(h, "top clients", h.service.TopClients))
			r.Get("/clients", plain(h, "client report", h.service.Clients))
			r.Get("/orders", plain(h, "order report", h.service.Orders))
			r.Get("/quotes", plain(h, "quote report", h.service.Quotes))
			r.Get("/products", plain(h, "product report", h.service.Products))
			r.Get("/suppliers", plain(h, "supplier report", h.service.Suppliers))
		})
	})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if status, _ := httpx.StatusFor(err); status >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) dateRange(r *http.Request) Range {
	start, end := httpx.DateRange(r, h.service.clock())
	return Range{Start: start, End: end}
}

func plain[T any](h *Handler, op string, fn func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context())
		if err != nil {
			h.fail(w, op, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func ranged[T any](h *Handler, op string, fn func(context.Context, Range) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := fn(r.Context(), h.dateRange(r))
		if err != nil {
			h.fail(w, op, err)
			return
		}
		httpx.JSON(w, http.StatusOK, out)
	}
}

func (h *Handler) cashFlowXLSX(w http.ResponseWriter, r *http.Request) {
	rg := h.dateRange(r)
	rows, err := h.service.CashFlow(r.Context(), rg)
	if err != nil {
		h.fail(w, "cash flow export", err)
		return
	}
	body, err := CashFlowXLSX(rows)
	if err != nil {
		h.fail(w, "cash flow export", err)
		return
	}
	attachment(w, fmt.Sprintf("fluxo_caixa_%s_%s.xlsx", rg.Start.Format(httpx.DateLayout), rg.End.Format(httpx.DateLayout)), body)
}

func (h *Handler) payablesXLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.Payables(r.Context())
	if err != nil {
		h.fail(w, "payables export", err)
		return
	}
	body, err := PayablesXLSX(rows)
	if err != nil {
		h.fail(w, "payables export", err)
		return
	}
	attachment(w, "contas_a_pagar.xlsx", body)
}

func attachment(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) revenuePDF(w http.ResponseWriter, r *http.Request) {
	rg := h.dateRange(r)
	body, err := h.service.RevenuePDF(r.Context(), rg)
	if err != nil {
		h.fail(w, "revenue pdf", err)
		return
	}
	httpx.PDF(w, fmt.Sprintf("faturamento_%s_%s.pdf", rg.Start.Format(httpx.DateLayout), rg.End.Format(httpx.DateLayout)), body)
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Invalidate(r.Context()); err != nil {
		h.fail(w, "refresh report cache", err)
		return
	}
	httpx.NoContent(w)
}
