package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
	"github.com/inkworks/inkworks/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context, filter ListFilter) ([]Order, int, error)
	ListPayments(ctx context.Context, orderID int64) ([]Payment, error)
	ListCosts(ctx context.Context, filter CostFilter) ([]SupplierCost, error)
	ListArtworks(ctx context.Context, orderID int64) ([]Artwork, error)
	ByProductionStatus(ctx context.Context, statuses []ProductionStatus) ([]Order, error)
	Recent(ctx context.Context, limit int) ([]Order, error)
	OrderIDByToken(ctx context.Context, token uuid.UUID) (int64, error)
}

// ProductSource resolves the pricing data of catalog products.
type ProductSource interface {
	PricedProduct(ctx context.Context, id int64) (*pricing.PricedProduct, error)
}

// IdempotencyPort deduplicates retried requests.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key, module string) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates order operations.
type Service struct {
	repo        RepositoryPort
	products    ProductSource
	idempotency IdempotencyPort
	audit       AuditPort
	listeners   []LineListener
	clock       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductSource, idem IdempotencyPort, audit AuditPort) *Service {
	return &Service{repo: repo, products: products, idempotency: idem, audit: audit, clock: time.Now}
}

// Subscribe registers a listener for committed line changes.
func (s *Service) Subscribe(l LineListener) {
	s.listeners = append(s.listeners, l)
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

func (s *Service) now() time.Time {
	if s.clock == nil {
		return time.Now()
	}
	return s.clock()
}

func (s *Service) publish(ctx context.Context, events []LineChanged) error {
	var errs []error
	for _, evt := range events {
		for _, l := range s.listeners {
			if err := l.OrderLineChanged(ctx, evt); err != nil {
				errs = append(errs, fmt.Errorf("orders: line %d listener: %w", evt.LineID, err))
			}
		}
	}
	return errors.Join(errs...)
}

// resolveLine prices a line input. stored is the current subtotal when the
// line already exists.
func (s *Service) resolveLine(ctx context.Context, in LineInput, stored *decimal.Decimal) (decimal.Decimal, error) {
	if err := httpx.Validate(in); err != nil {
		return decimal.Zero, err
	}
	if stored != nil && in.Subtotal == nil && !in.Recompute {
		return *stored, nil
	}
	var product *pricing.PricedProduct
	if in.ProductID != nil {
		var err error
		product, err = s.products.PricedProduct(ctx, *in.ProductID)
		if err != nil {
			return decimal.Zero, err
		}
	}
	return pricing.ResolveSubtotal(product, in.pricingInput(), in.policy())
}

// Get returns an order with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// List returns a page of orders.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Order, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// Create inserts an order with its lines and publishes one event per line.
// When a listener fails the committed order is returned with the error.
func (s *Service) Create(ctx context.Context, in CreateInput) (Order, error) {
	if err := httpx.Validate(in); err != nil {
		return Order{}, err
	}
	subtotals := make([]decimal.Decimal, len(in.Lines))
	for i, line := range in.Lines {
		sub, err := s.resolveLine(ctx, line, nil)
		if err != nil {
			return Order{}, fmt.Errorf("line %d: %w", i+1, err)
		}
		subtotals[i] = sub
	}
	var (
		orderID int64
		events  []LineChanged
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		orderID, err = tx.InsertOrder(ctx, in)
		if err != nil {
			return err
		}
		for i, line := range in.Lines {
			saved, err := tx.InsertLine(ctx, orderID, line, subtotals[i])
			if err != nil {
				return err
			}
			events = append(events, LineChanged{OrderID: orderID, LineID: saved.ID, After: snapshotOf(saved)})
		}
		if in.Total != nil {
			return tx.SetTotal(ctx, orderID, *in.Total)
		}
		return recomputeTotal(ctx, tx, orderID)
	})
	if err != nil {
		return Order{}, err
	}
	// the order is committed; listener failures come back alongside it
	perr := s.publish(ctx, events)
	order, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return Order{}, errors.Join(perr, err)
	}
	return order, perr
}

// Update changes header fields and, when given, replaces all lines.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Order, error) {
	if err := httpx.Validate(in); err != nil {
		return Order{}, err
	}
	if in.ProductionStatus != nil && !in.ProductionStatus.Valid() {
		return Order{}, fmt.Errorf("%w: orders: unknown production status %q", httpx.ErrValidation, *in.ProductionStatus)
	}
	if in.ArtStatus != nil && !in.ArtStatus.Valid() {
		return Order{}, fmt.Errorf("%w: orders: unknown art status %q", httpx.ErrValidation, *in.ArtStatus)
	}
	var subtotals []decimal.Decimal
	if in.Lines != nil {
		for i, line := range *in.Lines {
			sub, err := s.resolveLine(ctx, line, nil)
			if err != nil {
				return Order{}, fmt.Errorf("line %d: %w", i+1, err)
			}
			subtotals = append(subtotals, sub)
		}
	}
	var events []LineChanged
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, id); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, id, in); err != nil {
			return err
		}
		if in.Lines == nil {
			return nil
		}
		existing, err := tx.Lines(ctx, id)
		if err != nil {
			return err
		}
		for _, old := range existing {
			if err := tx.DeleteLine(ctx, id, old.ID); err != nil {
				return err
			}
			events = append(events, LineChanged{OrderID: id, LineID: old.ID, Before: snapshotOf(old)})
		}
		for i, line := range *in.Lines {
			saved, err := tx.InsertLine(ctx, id, line, subtotals[i])
			if err != nil {
				return err
			}
			events = append(events, LineChanged{OrderID: id, LineID: saved.ID, After: snapshotOf(saved)})
		}
		return recomputeTotal(ctx, tx, id)
	})
	if err != nil {
		return Order{}, err
	}
	perr := s.publish(ctx, events)
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return Order{}, errors.Join(perr, err)
	}
	return order, perr
}

// Delete removes an order. Its lines are reported as deleted so stock is
// returned.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var events []LineChanged
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, id); err != nil {
			return err
		}
		lines, err := tx.Lines(ctx, id)
		if err != nil {
			return err
		}
		for _, l := range lines {
			events = append(events, LineChanged{OrderID: id, LineID: l.ID, Before: snapshotOf(l)})
		}
		return tx.DeleteOrder(ctx, id)
	})
	if err != nil {
		return err
	}
	return s.publish(ctx, events)
}

// AddLine appends a line and recomputes the order total.
func (s *Service) AddLine(ctx context.Context, orderID int64, in LineInput) (Line, error) {
	sub, err := s.resolveLine(ctx, in, nil)
	if err != nil {
		return Line{}, err
	}
	var saved Line
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		saved, err = tx.InsertLine(ctx, orderID, in, sub)
		if err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, orderID)
	})
	if err != nil {
		return Line{}, err
	}
	return saved, s.publish(ctx, []LineChanged{{OrderID: orderID, LineID: saved.ID, After: snapshotOf(saved)}})
}

// UpdateLine changes a line. Without a supplied subtotal or Recompute the
// stored subtotal is kept.
func (s *Service) UpdateLine(ctx context.Context, orderID, lineID int64, in LineInput) (Line, error) {
	var before, after Line
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		before, err = tx.Line(ctx, orderID, lineID)
		if err != nil {
			return err
		}
		sub, err := s.resolveLine(ctx, in, &before.Subtotal)
		if err != nil {
			return err
		}
		after, err = tx.UpdateLine(ctx, orderID, lineID, in, sub)
		if err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, orderID)
	})
	if err != nil {
		return Line{}, err
	}
	evt := LineChanged{OrderID: orderID, LineID: lineID, Before: snapshotOf(before), After: snapshotOf(after)}
	return after, s.publish(ctx, []LineChanged{evt})
}

// DeleteLine removes a line and recomputes the order total.
func (s *Service) DeleteLine(ctx context.Context, orderID, lineID int64) error {
	var before Line
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := tx.LockOrder(ctx, orderID); err != nil {
			return err
		}
		var err error
		before, err = tx.Line(ctx, orderID, lineID)
		if err != nil {
			return err
		}
		if err := tx.DeleteLine(ctx, orderID, lineID); err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, orderID)
	})
	if err != nil {
		return err
	}
	return s.publish(ctx, []LineChanged{{OrderID: orderID, LineID: lineID, Before: snapshotOf(before)}})
}

// recomputeTotal stores the sum of the stored line subtotals. Lines are not
// re-priced.
func recomputeTotal(ctx context.Context, tx TxRepository, orderID int64) error {
	lines, err := tx.Lines(ctx, orderID)
	if err != nil {
		return err
	}
	subtotals := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		subtotals[i] = l.Subtotal
	}
	return tx.SetTotal(ctx, orderID, pricing.Sum(subtotals))
}
