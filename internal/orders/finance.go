package orders

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
	"github.com/inkworks/inkworks/internal/shared"
)

const idempotencyModule = "payments"

// RecordPayment stores a payment and recomputes the payment status. A non
// empty key makes retries of the same request fail with a conflict instead of
// recording the payment twice.
func (s *Service) RecordPayment(ctx context.Context, orderID int64, in PaymentInput, key string) (Payment, pricing.PaymentStatus, error) {
	if !in.Amount.IsPositive() {
		return Payment{}, "", fmt.Errorf("%w: %w", httpx.ErrValidation, errInvalidAmount)
	}
	if err := httpx.Validate(in); err != nil {
		return Payment{}, "", err
	}
	if in.PaidAt == nil {
		now := s.now()
		in.PaidAt = &now
	}
	key = strings.TrimSpace(key)
	scoped := ""
	if key != "" && s.idempotency != nil {
		scoped = strconv.FormatInt(orderID, 10) + ":" + key
		if err := s.idempotency.CheckAndInsert(ctx, scoped, idempotencyModule); err != nil {
			return Payment{}, "", err
		}
	}
	var (
		payment Payment
		status  pricing.PaymentStatus
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		payment, err = tx.InsertPayment(ctx, orderID, in)
		if err != nil {
			return err
		}
		status, err = recomputePaymentStatus(ctx, tx, order)
		return err
	})
	if err != nil {
		if scoped != "" {
			_ = s.idempotency.Delete(ctx, scoped, idempotencyModule)
		}
		return Payment{}, "", err
	}
	s.record(ctx, "order:payment", orderID, map[string]any{"payment_id": payment.ID, "amount": payment.Amount.String(), "method": payment.Method})
	return payment, status, nil
}

// DeletePayment removes a payment and recomputes the payment status.
func (s *Service) DeletePayment(ctx context.Context, orderID, paymentID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if err := tx.DeletePayment(ctx, orderID, paymentID); err != nil {
			return err
		}
		_, err = recomputePaymentStatus(ctx, tx, order)
		return err
	})
}

// ListPayments returns the payments of an order; orderID 0 lists every order.
func (s *Service) ListPayments(ctx context.Context, orderID int64) ([]Payment, error) {
	return s.repo.ListPayments(ctx, orderID)
}

func recomputePaymentStatus(ctx context.Context, tx TxRepository, order Order) (pricing.PaymentStatus, error) {
	paid, err := tx.SumPayments(ctx, order.ID)
	if err != nil {
		return "", err
	}
	status := pricing.StatusFor(order.Total, paid)
	return status, tx.SetPaymentStatus(ctx, order.ID, status)
}

// CreateCost attaches a supplier cost and recomputes the production cost.
func (s *Service) CreateCost(ctx context.Context, orderID int64, in CostInput) (SupplierCost, error) {
	if err := normalizeCost(&in); err != nil {
		return SupplierCost{}, err
	}
	var cost SupplierCost
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		cost, err = tx.InsertCost(ctx, orderID, in)
		if err != nil {
			return err
		}
		return recomputeProductionCost(ctx, tx, orderID)
	})
	return cost, err
}

// UpdateCost changes a supplier cost and recomputes the production cost.
func (s *Service) UpdateCost(ctx context.Context, costID int64, in CostInput) (SupplierCost, error) {
	if err := normalizeCost(&in); err != nil {
		return SupplierCost{}, err
	}
	var cost SupplierCost
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Cost(ctx, costID)
		if err != nil {
			return err
		}
		if _, err := tx.LockOrder(ctx, current.OrderID); err != nil {
			return err
		}
		cost, err = tx.UpdateCost(ctx, costID, in)
		if err != nil {
			return err
		}
		return recomputeProductionCost(ctx, tx, current.OrderID)
	})
	return cost, err
}

// DeleteCost removes a supplier cost and recomputes the production cost.
func (s *Service) DeleteCost(ctx context.Context, costID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Cost(ctx, costID)
		if err != nil {
			return err
		}
		if _, err := tx.LockOrder(ctx, current.OrderID); err != nil {
			return err
		}
		if err := tx.DeleteCost(ctx, costID); err != nil {
			return err
		}
		return recomputeProductionCost(ctx, tx, current.OrderID)
	})
}

// PayCost settles a supplier cost. The paid date defaults to today.
func (s *Service) PayCost(ctx context.Context, costID int64, paidOn httpx.Date) (SupplierCost, error) {
	if paidOn.IsZero() {
		paidOn = httpx.NewDate(s.now())
	}
	var cost SupplierCost
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.Cost(ctx, costID)
		if err != nil {
			return err
		}
		if current.Status == CostPaid {
			return ErrCostAlreadyPaid
		}
		cost, err = tx.MarkCostPaid(ctx, costID, paidOn)
		return err
	})
	return cost, err
}

// ListCosts returns supplier costs matching the filter.
func (s *Service) ListCosts(ctx context.Context, filter CostFilter) ([]SupplierCost, error) {
	if filter.Status != "" && filter.Status != CostOpen && filter.Status != CostPaid {
		return nil, fmt.Errorf("%w: orders: unknown cost status %q", httpx.ErrValidation, filter.Status)
	}
	return s.repo.ListCosts(ctx, filter)
}

func normalizeCost(in *CostInput) error {
	in.Description = strings.TrimSpace(in.Description)
	if in.Status == "" {
		in.Status = CostOpen
	}
	if in.Amount.IsNegative() {
		return fmt.Errorf("%w: orders: cost amount must not be negative", httpx.ErrValidation)
	}
	in.Amount = in.Amount.Round(2)
	if in.Status == CostOpen {
		in.PaidDate = httpx.Date{}
	}
	return httpx.Validate(in)
}

func recomputeProductionCost(ctx context.Context, tx TxRepository, orderID int64) error {
	total, err := tx.SumCosts(ctx, orderID)
	if err != nil {
		return err
	}
	return tx.SetProductionCost(ctx, orderID, total)
}

func (s *Service) record(ctx context.Context, action string, orderID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor, _ := shared.UserIDFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     meta,
		At:       s.now(),
	})
}

// Receivable is what is still owed on an order.
func Receivable(total, paid decimal.Decimal) decimal.Decimal {
	return total.Sub(paid)
}
