package orders

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
)

// ProductionStatus tracks where an order is on the shop floor.
type ProductionStatus string

const (
	ProductionWaiting    ProductionStatus = "AGUARDANDO"
	ProductionWaitingArt ProductionStatus = "AGUARDANDO_ARTE"
	ProductionRunning    ProductionStatus = "EM_PRODUCAO"
	ProductionFinished   ProductionStatus = "FINALIZADO"
	ProductionDelivered  ProductionStatus = "ENTREGUE"
)

// Valid reports whether s is a known production status.
func (s ProductionStatus) Valid() bool {
	switch s {
	case ProductionWaiting, ProductionWaitingArt, ProductionRunning, ProductionFinished, ProductionDelivered:
		return true
	}
	return false
}

// KanbanColumns lists the production statuses shown on the board, in order.
func KanbanColumns() []ProductionStatus {
	return []ProductionStatus{ProductionWaiting, ProductionWaitingArt, ProductionRunning, ProductionFinished}
}

// ArtStatus is the state of the customer artwork approval.
type ArtStatus string

const (
	ArtPending  ArtStatus = "PENDENTE"
	ArtInReview ArtStatus = "EM_APROVACAO"
	ArtApproved ArtStatus = "APROVADO"
	ArtRejected ArtStatus = "REJEITADO"
)

// Valid reports whether s is a known art status.
func (s ArtStatus) Valid() bool {
	switch s {
	case ArtPending, ArtInReview, ArtApproved, ArtRejected:
		return true
	}
	return false
}

// PaymentMethod is how a customer paid.
type PaymentMethod string

const (
	MethodPix    PaymentMethod = "PIX"
	MethodCash   PaymentMethod = "DINHEIRO"
	MethodCard   PaymentMethod = "CARTAO"
	MethodBoleto PaymentMethod = "BOLETO"
)

// CostStatus tracks whether a supplier cost was settled.
type CostStatus string

const (
	CostOpen CostStatus = "A_PAGAR"
	CostPaid CostStatus = "PAGO"
)

// Order is a confirmed job.
type Order struct {
	ID               int64                 `json:"id"`
	CustomerID       int64                 `json:"customer_id"`
	CustomerName     string                `json:"customer_name"`
	SourceQuoteID    *int64                `json:"source_quote_id"`
	CreatedAt        time.Time             `json:"created_at"`
	Total            decimal.Decimal       `json:"total"`
	ProductionCost   decimal.Decimal       `json:"production_cost"`
	ProductionStatus ProductionStatus      `json:"production_status"`
	PaymentStatus    pricing.PaymentStatus `json:"payment_status"`
	ArtStatus        ArtStatus             `json:"art_status"`
	ApprovalToken    *uuid.UUID            `json:"approval_token"`
	DueDate          httpx.Date            `json:"due_date"`
	ProductionDate   httpx.Date            `json:"production_date"`
	ShippingMethod   string                `json:"shipping_method"`
	TrackingCode     string                `json:"tracking_code"`
	AmountPaid       decimal.Decimal       `json:"amount_paid"`
	AmountDue        decimal.Decimal       `json:"amount_due"`
	Lines            []Line                `json:"lines,omitempty"`
}

// Line is one item of an order.
type Line struct {
	ID              int64            `json:"id"`
	OrderID         int64            `json:"order_id"`
	ProductID       *int64           `json:"product_id"`
	ProductName     string           `json:"product_name,omitempty"`
	Quantity        int              `json:"quantity"`
	Width           *decimal.Decimal `json:"width"`
	Height          *decimal.Decimal `json:"height"`
	Description     string           `json:"description"`
	ProductionNotes string           `json:"production_notes"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
}

// DisplayName is what documents print for the line.
func (l Line) DisplayName() string {
	switch {
	case l.Description != "":
		return l.Description
	case l.ProductName != "":
		return l.ProductName
	default:
		return "Item"
	}
}

// LineInput carries a line to be created or changed. A nil Subtotal means
// none was supplied; Recompute forces the pricing formula.
type LineInput struct {
	ProductID       *int64           `json:"product_id" validate:"omitempty,gt=0"`
	Quantity        int              `json:"quantity" validate:"gt=0"`
	Width           *decimal.Decimal `json:"width"`
	Height          *decimal.Decimal `json:"height"`
	Description     string           `json:"description" validate:"max=255"`
	ProductionNotes string           `json:"production_notes"`
	Subtotal        *decimal.Decimal `json:"subtotal"`
	Recompute       bool             `json:"recompute"`
}

func (in LineInput) pricingInput() pricing.LineInput {
	return pricing.LineInput{Quantity: in.Quantity, Width: in.Width, Height: in.Height, Subtotal: in.Subtotal}
}

func (in LineInput) policy() pricing.SubtotalPolicy {
	if in.Recompute {
		return pricing.ForceRecompute
	}
	return pricing.KeepSupplied
}

// CreateInput describes a new order. When Total is set it is stored as given
// instead of the sum of lines, which is how converted quotes keep their
// discount and shipping.
type CreateInput struct {
	CustomerID     int64            `json:"customer_id" validate:"required,gt=0"`
	SourceQuoteID  *int64           `json:"-"`
	Total          *decimal.Decimal `json:"-"`
	DueDate        httpx.Date       `json:"due_date"`
	ProductionDate httpx.Date       `json:"production_date"`
	ShippingMethod string           `json:"shipping_method" validate:"max=100"`
	Lines          []LineInput      `json:"lines" validate:"dive"`
}

// UpdateInput changes header fields. Nil fields are left alone. Lines, when
// present, replace every existing line.
type UpdateInput struct {
	ProductionStatus *ProductionStatus `json:"production_status"`
	ArtStatus        *ArtStatus        `json:"art_status"`
	DueDate          *httpx.Date       `json:"due_date"`
	ProductionDate   *httpx.Date       `json:"production_date"`
	ShippingMethod   *string           `json:"shipping_method" validate:"omitempty,max=100"`
	TrackingCode     *string           `json:"tracking_code" validate:"omitempty,max=100"`
	Lines            *[]LineInput      `json:"lines"`
}

// Payment is money received for an order.
type Payment struct {
	ID      int64           `json:"id"`
	OrderID int64           `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
	Method  PaymentMethod   `json:"method"`
	PaidAt  time.Time       `json:"paid_at"`
}

// PaymentInput records a payment.
type PaymentInput struct {
	Amount decimal.Decimal `json:"amount"`
	Method PaymentMethod   `json:"method" validate:"required,oneof=PIX DINHEIRO CARTAO BOLETO"`
	PaidAt *time.Time      `json:"paid_at"`
}

// SupplierCost is an outsourced cost attributed to an order.
type SupplierCost struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	SupplierID   int64           `json:"supplier_id"`
	SupplierName string          `json:"supplier_name"`
	Description  string          `json:"description"`
	Amount       decimal.Decimal `json:"amount"`
	Status       CostStatus      `json:"status"`
	DueDate      httpx.Date      `json:"due_date"`
	PaidDate     httpx.Date      `json:"paid_date"`
	CreatedAt    time.Time       `json:"created_at"`
}

// CostInput creates or updates a supplier cost.
type CostInput struct {
	SupplierID  int64           `json:"supplier_id" validate:"required,gt=0"`
	Description string          `json:"description" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	Status      CostStatus      `json:"status" validate:"omitempty,oneof=A_PAGAR PAGO"`
	DueDate     httpx.Date      `json:"due_date"`
	PaidDate    httpx.Date      `json:"paid_date"`
}

// CostFilter narrows cost listings.
type CostFilter struct {
	OrderID    int64
	SupplierID int64
	Status     CostStatus
}

// Artwork is a layout sent to the customer for approval.
type Artwork struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"order_id"`
	LayoutURL      string    `json:"layout_url"`
	AdminComments  string    `json:"admin_comments"`
	ClientComments string    `json:"client_comments"`
	UploadedAt     time.Time `json:"uploaded_at"`
}

// ArtworkInput attaches an artwork.
type ArtworkInput struct {
	LayoutURL     string `json:"layout_url" validate:"required,url"`
	AdminComments string `json:"admin_comments"`
}

// ApprovalView is what the customer sees through the approval link.
type ApprovalView struct {
	OrderID      int64           `json:"id"`
	CustomerName string          `json:"customer_name"`
	ArtStatus    ArtStatus       `json:"art_status"`
	Total        decimal.Decimal `json:"total"`
	Lines        []Line          `json:"lines"`
	Artworks     []Artwork       `json:"artworks"`
}

// KanbanCard is an order summary on the production board.
type KanbanCard struct {
	ID               int64            `json:"id"`
	CustomerName     string           `json:"customer_name"`
	Total            decimal.Decimal  `json:"total"`
	TotalFormatted   string           `json:"total_formatted"`
	DueDate          httpx.Date       `json:"due_date"`
	DueFormatted     *string          `json:"due_formatted"`
	ProductionStatus ProductionStatus `json:"production_status"`
}

// ListFilter narrows order listings.
type ListFilter struct {
	Search           string
	ProductionStatus ProductionStatus
	PaymentStatus    pricing.PaymentStatus
	CustomerID       int64
	Limit            int
	Offset           int
}

var (
	// ErrOrderNotFound indicates a missing order.
	ErrOrderNotFound = fmt.Errorf("%w: orders: order not found", httpx.ErrNotFound)
	// ErrLineNotFound indicates a missing line on the order.
	ErrLineNotFound = fmt.Errorf("%w: orders: line not found", httpx.ErrNotFound)
	// ErrPaymentNotFound indicates a missing payment.
	ErrPaymentNotFound = fmt.Errorf("%w: orders: payment not found", httpx.ErrNotFound)
	// ErrCostNotFound indicates a missing supplier cost.
	ErrCostNotFound = fmt.Errorf("%w: orders: supplier cost not found", httpx.ErrNotFound)
	// ErrTokenNotFound indicates an unknown approval token.
	ErrTokenNotFound = fmt.Errorf("%w: orders: approval link not found", httpx.ErrNotFound)
	// ErrCostAlreadyPaid is returned when paying a settled cost.
	ErrCostAlreadyPaid = fmt.Errorf("%w: orders: supplier cost already paid", httpx.ErrConflict)
	// ErrNotInReview is returned for approval actions outside EM_APROVACAO.
	ErrNotInReview = fmt.Errorf("%w: orders: artwork is not awaiting approval", httpx.ErrConflict)
	// ErrCommentRequired is returned when rejecting without a comment.
	ErrCommentRequired = fmt.Errorf("%w: orders: a comment is required to reject the artwork", httpx.ErrValidation)
	// ErrQuoteAlreadyConverted is returned when a quote already has an order.
	ErrQuoteAlreadyConverted = fmt.Errorf("%w: orders: quote already converted", httpx.ErrDuplicate)
	// ErrCustomerNotFound is returned when the referenced customer is missing.
	ErrCustomerNotFound = fmt.Errorf("%w: orders: customer not found", httpx.ErrValidation)
	// ErrProductNotFound is returned when a line references a missing product.
	ErrProductNotFound = fmt.Errorf("%w: orders: product not found", httpx.ErrValidation)

	errInvalidAmount = errors.New("orders: amount must be positive")
	errInvalidFilter = fmt.Errorf("%w: orders: invalid filter", httpx.ErrValidation)
)
