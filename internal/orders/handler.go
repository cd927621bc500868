package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"

	"github.com/inkworks/inkworks/internal/documents"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
	"github.com/inkworks/inkworks/internal/rbac"
	"github.com/inkworks/inkworks/internal/shared"
)

// CustomerDirectory resolves the addressee block printed on order sheets.
type CustomerDirectory interface {
	DocumentCustomer(ctx context.Context, id int64) (documents.Customer, error)
}

// Printer renders order documents.
type Printer interface {
	OrderSheet(ctx context.Context, o documents.Order) ([]byte, error)
	Production(ctx context.Context, p documents.ProductionSheet) ([]byte, error)
}

// Handler wires HTTP endpoints for orders, payments, costs and approvals.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	customers CustomerDirectory
	printer   Printer
	rbac      rbac.Middleware
	// approvals per IP per minute on the public routes
	approvalLimit int
}

// NewHandler constructs the orders handler.
func NewHandler(logger *slog.Logger, service *Service, customers CustomerDirectory, printer Printer, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, customers: customers, printer: printer, rbac: rbac, approvalLimit: 20}
}

// MountRoutes registers authenticated routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapOrders))
		r.Get("/orders", h.list)
		r.Post("/orders", h.create)
		r.Get("/orders/recent", h.recent)
		r.Get("/orders/{id}", h.get)
		r.Put("/orders/{id}", h.update)
		r.Delete("/orders/{id}", h.delete)
		r.Post("/orders/{id}/lines", h.addLine)
		r.Put("/orders/{id}/lines/{lineID}", h.updateLine)
		r.Delete("/orders/{id}/lines/{lineID}", h.deleteLine)
		r.Get("/orders/{id}/artworks", h.listArtworks)
		r.Post("/orders/{id}/artworks", h.attachArtwork)
		r.Get("/orders/{id}/pdf", h.orderPDF)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapFinance))
		r.Get("/payments", h.listAllPayments)
		r.Get("/orders/{id}/payments", h.listPayments)
		r.Post("/orders/{id}/payments", h.recordPayment)
		r.Delete("/orders/{id}/payments/{paymentID}", h.deletePayment)
		r.Get("/costs", h.listCosts)
		r.Get("/orders/{id}/costs", h.listOrderCosts)
		r.Post("/orders/{id}/costs", h.createCost)
		r.Put("/costs/{id}", h.updateCost)
		r.Delete("/costs/{id}", h.deleteCost)
		r.Post("/costs/{id}/pay", h.payCost)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.CapKanban))
		r.Get("/orders/kanban", h.kanban)
		r.Get("/orders/{id}/pdf/production", h.productionPDF)
	})
}

// MountPublic registers the token approval routes, which need no session.
func (h *Handler) MountPublic(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(h.approvalLimit, time.Minute))
		r.Get("/public/approval/{token}", h.approval)
		r.Post("/public/approval/{token}/approve", h.approve)
		r.Post("/public/approval/{token}/reject", h.reject)
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
	filter := ListFilter{
		Search:           httpx.Search(r),
		ProductionStatus: ProductionStatus(q.Get("production_status")),
		PaymentStatus:    pricing.PaymentStatus(q.Get("payment_status")),
		Limit:            page.Limit,
		Offset:           page.Offset,
	}
	if raw := q.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, errInvalidFilter)
			return
		}
		filter.CustomerID = id
	}
	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shared.NewList(items, total, page.Limit, page.Offset))
}

func (h *Handler) recent(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.service.Recent(r.Context(), min(limit, 50))
	if err != nil {
		h.fail(w, "recent orders", err)
		return
	}
	if items == nil {
		items = []Order{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	o, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
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
	o, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, o)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete order", err)
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
		h.fail(w, "add order line", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, line)
}

func (h *Handler) updateLine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lineID, err := httpx.IDParam(r, "lineID")
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
		h.fail(w, "update order line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, line)
}

func (h *Handler) deleteLine(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	lineID, err := httpx.IDParam(r, "lineID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteLine(r.Context(), id, lineID); err != nil {
		h.fail(w, "delete order line", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listArtworks(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListArtworks(r.Context(), id)
	if err != nil {
		h.fail(w, "list artworks", err)
		return
	}
	if items == nil {
		items = []Artwork{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

type artworkResponse struct {
	Artwork
	ApprovalToken uuid.UUID `json:"approval_token"`
}

func (h *Handler) attachArtwork(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ArtworkInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	art, token, err := h.service.AttachArtwork(r.Context(), id, in)
	if err != nil {
		h.fail(w, "attach artwork", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, artworkResponse{Artwork: art, ApprovalToken: token})
}

func (h *Handler) listAllPayments(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListPayments(r.Context(), 0)
	if err != nil {
		h.fail(w, "list payments", err)
		return
	}
	if items == nil {
		items = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.fail(w, "list order payments", err)
		return
	}
	if items == nil {
		items = []Payment{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

type paymentResponse struct {
	Payment       Payment               `json:"payment"`
	PaymentStatus pricing.PaymentStatus `json:"payment_status"`
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in PaymentInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	p, status, err := h.service.RecordPayment(r.Context(), id, in, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.fail(w, "record payment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, paymentResponse{Payment: p, PaymentStatus: status})
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	paymentID, err := httpx.IDParam(r, "paymentID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeletePayment(r.Context(), id, paymentID); err != nil {
		h.fail(w, "delete payment", err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listCosts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := CostFilter{Status: CostStatus(q.Get("status"))}
	if raw := q.Get("supplier_id"); raw != "" {
		sid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.RespondError(w, errInvalidFilter)
			return
		}
		filter.SupplierID = sid
	}
	h.writeCosts(w, r, filter)
}

func (h *Handler) listOrderCosts(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.writeCosts(w, r, CostFilter{OrderID: id})
}

func (h *Handler) writeCosts(w http.ResponseWriter, r *http.Request, filter CostFilter) {
	items, err := h.service.ListCosts(r.Context(), filter)
	if err != nil {
		h.fail(w, "list costs", err)
		return
	}
	if items == nil {
		items = []SupplierCost{}
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) createCost(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CostInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	c, err := h.service.CreateCost(r.Context(), id, in)
	if err != nil {
		h.fail(w, "create cost", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) updateCost(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in CostInput
	if !httpx.Bind(w, r, &in) {
		return
	}
	c, err := h.service.UpdateCost(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update cost", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) deleteCost(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteCost(r.Context(), id); err != nil {
		h.fail(w, "delete cost", err)
		return
	}
	httpx.NoContent(w)
}

type payRequest struct {
	PaidDate httpx.Date `json:"paid_date"`
}

func (h *Handler) payCost(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in payRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &in); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	c, err := h.service.PayCost(r.Context(), id, in.PaidDate)
	if err != nil {
		h.fail(w, "pay cost", err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) kanban(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Kanban(r.Context())
	if err != nil {
		h.fail(w, "kanban", err)
		return
	}
	httpx.JSON(w, http.StatusOK, board)
}

func (h *Handler) orderPDF(w http.ResponseWriter, r *http.Request) {
	o, customer, ok := h.loadForPrint(w, r)
	if !ok {
		return
	}
	pdf, err := h.printer.OrderSheet(r.Context(), OrderDocument(o, customer))
	if err != nil {
		h.fail(w, "render order pdf", err)
		return
	}
	httpx.PDF(w, "pedido_os_"+strconv.FormatInt(o.ID, 10)+".pdf", pdf)
}

func (h *Handler) productionPDF(w http.ResponseWriter, r *http.Request) {
	o, customer, ok := h.loadForPrint(w, r)
	if !ok {
		return
	}
	arts, err := h.service.ListArtworks(r.Context(), o.ID)
	if err != nil {
		h.fail(w, "list artworks", err)
		return
	}
	sheet := documents.ProductionSheet{Order: OrderDocument(o, customer), ArtApproved: o.ArtStatus == ArtApproved}
	if len(arts) > 0 {
		sheet.ArtworkURL = arts[0].LayoutURL
	}
	pdf, err := h.printer.Production(r.Context(), sheet)
	if err != nil {
		h.fail(w, "render production pdf", err)
		return
	}
	httpx.PDF(w, "os_producao_"+strconv.FormatInt(o.ID, 10)+".pdf", pdf)
}

func (h *Handler) loadForPrint(w http.ResponseWriter, r *http.Request) (Order, documents.Customer, bool) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return Order{}, documents.Customer{}, false
	}
	o, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get order", err)
		return Order{}, documents.Customer{}, false
	}
	customer := documents.Customer{Name: o.CustomerName}
	if h.customers != nil {
		if customer, err = h.customers.DocumentCustomer(r.Context(), o.CustomerID); err != nil {
			h.fail(w, "load customer", err)
			return Order{}, documents.Customer{}, false
		}
	}
	return o, customer, true
}

// OrderDocument maps an order to its printable form.
func OrderDocument(o Order, customer documents.Customer) documents.Order {
	lines := make([]documents.Line, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, documents.Line{
			Description: l.DisplayName(),
			Quantity:    l.Quantity,
			Width:       l.Width,
			Height:      l.Height,
			Subtotal:    l.Subtotal,
			Notes:       l.ProductionNotes,
		})
	}
	return documents.Order{
		Number:           o.ID,
		CreatedAt:        o.CreatedAt,
		DueDate:          o.DueDate.Time,
		Customer:         customer,
		Lines:            lines,
		Total:            o.Total,
		AmountPaid:       o.AmountPaid,
		AmountDue:        o.AmountDue,
		PaymentStatus:    string(o.PaymentStatus),
		ProductionStatus: string(o.ProductionStatus),
		ShippingMethod:   o.ShippingMethod,
		TrackingCode:     o.TrackingCode,
	}
}

func tokenParam(r *http.Request) (uuid.UUID, error) {
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		return uuid.Nil, ErrTokenNotFound
	}
	return token, nil
}

func (h *Handler) approval(w http.ResponseWriter, r *http.Request) {
	token, err := tokenParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.ApprovalByToken(r.Context(), token)
	if err != nil {
		h.fail(w, "approval view", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type approvalResult struct {
	ArtStatus ArtStatus `json:"art_status"`
	Changed   bool      `json:"changed"`
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	token, err := tokenParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	changed, err := h.service.Approve(r.Context(), token)
	if err != nil {
		h.fail(w, "approve artwork", err)
		return
	}
	httpx.JSON(w, http.StatusOK, approvalResult{ArtStatus: ArtApproved, Changed: changed})
}

type rejectRequest struct {
	Comment string `json:"comment"`
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	token, err := tokenParam(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in rejectRequest
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Reject(r.Context(), token, in.Comment); err != nil {
		h.fail(w, "reject artwork", err)
		return
	}
	httpx.JSON(w, http.StatusOK, approvalResult{ArtStatus: ArtRejected, Changed: true})
}
