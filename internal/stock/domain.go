package stock

import (
	"fmt"
	"time"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Kind enumerates supported stock movements.
type Kind string

const (
	// KindPurchase is stock received from a purchase.
	KindPurchase Kind = "ENTRADA_COMPRA"
	// KindAdjustIn is a positive manual adjustment.
	KindAdjustIn Kind = "ENTRADA_AJUSTE"
	// KindAdjustOut is a negative manual adjustment.
	KindAdjustOut Kind = "SAIDA_AJUSTE"
)

// Movement is an immutable stock ledger entry.
type Movement struct {
	ID        int64     `json:"id"`
	ProductID int64     `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Kind      Kind      `json:"kind"`
	Note      string    `json:"note"`
	ActorID   *int64    `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// MovementInput describes a request to move stock.
type MovementInput struct {
	ProductID int64  `json:"product_id" validate:"required,gt=0"`
	Quantity  int    `json:"quantity"`
	Kind      Kind   `json:"kind" validate:"required,oneof=ENTRADA_COMPRA ENTRADA_AJUSTE SAIDA_AJUSTE"`
	Note      string `json:"note" validate:"max=255"`
	ActorID   int64  `json:"-"`
}

var (
	// ErrInvalidQuantity indicates a zero quantity.
	ErrInvalidQuantity = fmt.Errorf("%w: stock: quantity must be non zero", httpx.ErrValidation)
	// ErrSignMismatch indicates a quantity whose sign does not match the kind.
	ErrSignMismatch = fmt.Errorf("%w: stock: outbound adjustments must be negative and inbound movements positive", httpx.ErrValidation)
	// ErrProductNotFound indicates the product does not exist.
	ErrProductNotFound = fmt.Errorf("%w: stock: product not found", httpx.ErrNotFound)
)

func (in MovementInput) validate() error {
	if in.Quantity == 0 {
		return ErrInvalidQuantity
	}
	switch in.Kind {
	case KindAdjustOut:
		if in.Quantity > 0 {
			return ErrSignMismatch
		}
	case KindPurchase, KindAdjustIn:
		if in.Quantity < 0 {
			return ErrSignMismatch
		}
	}
	return httpx.Validate(in)
}
