package quotes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/orders"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
	"github.com/inkworks/inkworks/internal/shared"
)

// RepositoryPort abstracts quote persistence.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, id int64) (Quote, error)
	List(ctx context.Context, filter ListFilter) ([]Quote, int, error)
}

// ProductSource resolves the pricing view of a product.
type ProductSource interface {
	PricedProduct(ctx context.Context, id int64) (*pricing.PricedProduct, error)
}

// OrderCreator opens the order for a converted quote.
type OrderCreator interface {
	Create(ctx context.Context, in orders.CreateInput) (orders.Order, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates quote operations.
type Service struct {
	repo     RepositoryPort
	products ProductSource
	orders   OrderCreator
	audit    AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, products ProductSource, orders OrderCreator, audit AuditPort) *Service {
	return &Service{repo: repo, products: products, orders: orders, audit: audit}
}

func (s *Service) resolveLine(ctx context.Context, in LineInput, stored *decimal.Decimal, policy pricing.SubtotalPolicy) (decimal.Decimal, error) {
	if err := httpx.Validate(in); err != nil {
		return decimal.Zero, err
	}
	if stored != nil && in.Subtotal == nil && policy == pricing.KeepSupplied {
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
	return pricing.ResolveSubtotal(product, in.pricingInput(), policy)
}

func (s *Service) resolveLines(ctx context.Context, lines []LineInput) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		sub, err := s.resolveLine(ctx, line, nil, line.policy())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		out[i] = sub
	}
	return out, nil
}

// Get returns a quote with its lines.
func (s *Service) Get(ctx context.Context, id int64) (Quote, error) {
	return s.repo.Get(ctx, id)
}

// List returns open and rejected quotes. Approved ones live on as orders.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Quote, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Status == StatusApproved {
		return []Quote{}, 0, nil
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, fmt.Errorf("%w: quotes: unknown status %q", httpx.ErrValidation, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Create stores a quote and its lines, then totals it.
func (s *Service) Create(ctx context.Context, in CreateInput) (Quote, error) {
	if err := httpx.Validate(in); err != nil {
		return Quote{}, err
	}
	if in.Shipping.IsNegative() || in.Discount.IsNegative() {
		return Quote{}, ErrNegativeAmount
	}
	subtotals, err := s.resolveLines(ctx, in.Lines)
	if err != nil {
		return Quote{}, err
	}
	var id int64
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		id, err = tx.InsertQuote(ctx, in)
		if err != nil {
			return err
		}
		for i, line := range in.Lines {
			if _, err := tx.InsertLine(ctx, id, line, subtotals[i]); err != nil {
				return err
			}
		}
		return recomputeTotal(ctx, tx, id)
	})
	if err != nil {
		return Quote{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update changes header fields and, when given, replaces every line. Moving
// an open quote to APPROVED converts it into an order.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Quote, error) {
	if err := httpx.Validate(in); err != nil {
		return Quote{}, err
	}
	if in.Status != nil && !in.Status.Valid() {
		return Quote{}, fmt.Errorf("%w: quotes: unknown status %q", httpx.ErrValidation, *in.Status)
	}
	if (in.Shipping != nil && in.Shipping.IsNegative()) || (in.Discount != nil && in.Discount.IsNegative()) {
		return Quote{}, ErrNegativeAmount
	}
	var subtotals []decimal.Decimal
	if in.Lines != nil {
		var err error
		if subtotals, err = s.resolveLines(ctx, *in.Lines); err != nil {
			return Quote{}, err
		}
	}
	approve := in.Status != nil && *in.Status == StatusApproved
	h := header{CustomerID: in.CustomerID, ValidUntil: in.ValidUntil, Shipping: in.Shipping, Discount: in.Discount}
	if !approve {
		h.Status = in.Status
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockEditable(ctx, tx, id); err != nil {
			return err
		}
		if err := tx.UpdateHeader(ctx, id, h); err != nil {
			return err
		}
		if in.Lines != nil {
			if err := tx.DeleteLines(ctx, id); err != nil {
				return err
			}
			for i, line := range *in.Lines {
				if _, err := tx.InsertLine(ctx, id, line, subtotals[i]); err != nil {
					return err
				}
			}
		}
		return recomputeTotal(ctx, tx, id)
	})
	if err != nil {
		return Quote{}, err
	}
	if approve {
		if order, err := s.Convert(ctx, id); err != nil && order.ID == 0 {
			return Quote{}, err
		}
	}
	return s.repo.Get(ctx, id)
}

// Delete removes a quote that was not approved.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockEditable(ctx, tx, id); err != nil {
			return err
		}
		return tx.DeleteQuote(ctx, id)
	})
}

// AddLine appends a line and recomputes the total.
func (s *Service) AddLine(ctx context.Context, quoteID int64, in LineInput) (Line, error) {
	sub, err := s.resolveLine(ctx, in, nil, in.policy())
	if err != nil {
		return Line{}, err
	}
	var saved Line
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockEditable(ctx, tx, quoteID); err != nil {
			return err
		}
		saved, err = tx.InsertLine(ctx, quoteID, in, sub)
		if err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, quoteID)
	})
	return saved, err
}

// UpdateLine changes a line. A supplied subtotal is kept, Recompute forces
// the formula, otherwise the stored subtotal stays.
func (s *Service) UpdateLine(ctx context.Context, quoteID, lineID int64, in LineInput) (Line, error) {
	var saved Line
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockEditable(ctx, tx, quoteID); err != nil {
			return err
		}
		current, err := tx.Line(ctx, quoteID, lineID)
		if err != nil {
			return err
		}
		sub, err := s.resolveLine(ctx, in, &current.Subtotal, in.policy())
		if err != nil {
			return err
		}
		saved, err = tx.UpdateLine(ctx, quoteID, lineID, in, sub)
		if err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, quoteID)
	})
	return saved, err
}

// DeleteLine removes a line and recomputes the total.
func (s *Service) DeleteLine(ctx context.Context, quoteID, lineID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockEditable(ctx, tx, quoteID); err != nil {
			return err
		}
		if _, err := tx.Line(ctx, quoteID, lineID); err != nil {
			return err
		}
		if err := tx.DeleteLine(ctx, quoteID, lineID); err != nil {
			return err
		}
		return recomputeTotal(ctx, tx, quoteID)
	})
}

// Recompute totals the quote again. With force every line is re-priced from
// the current catalog, discarding manual subtotals.
func (s *Service) Recompute(ctx context.Context, id int64, force bool) (Quote, error) {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if _, err := lockEditable(ctx, tx, id); err != nil {
			return err
		}
		if force {
			lines, err := tx.Lines(ctx, id)
			if err != nil {
				return err
			}
			for _, l := range lines {
				in := inputOf(l)
				sub, err := s.resolveLine(ctx, in, &l.Subtotal, pricing.ForceRecompute)
				if err != nil {
					return fmt.Errorf("line %d: %w", l.ID, err)
				}
				if _, err := tx.UpdateLine(ctx, id, l.ID, in, sub); err != nil {
					return err
				}
			}
		}
		return recomputeTotal(ctx, tx, id)
	})
	if err != nil {
		return Quote{}, err
	}
	return s.repo.Get(ctx, id)
}

// Convert opens an order from the quote and marks it APPROVED. Lines are
// copied by value and the order keeps the quote total, discount and shipping
// included.
func (s *Service) Convert(ctx context.Context, id int64) (orders.Order, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return orders.Order{}, err
	}
	if q.Status == StatusApproved {
		return orders.Order{}, ErrAlreadyConverted
	}
	total := q.Total
	in := orders.CreateInput{
		CustomerID:    q.CustomerID,
		SourceQuoteID: &q.ID,
		Total:         &total,
		Lines:         make([]orders.LineInput, 0, len(q.Lines)),
	}
	for _, l := range q.Lines {
		sub := l.Subtotal
		in.Lines = append(in.Lines, orders.LineInput{
			ProductID:   l.ProductID,
			Quantity:    l.Quantity,
			Width:       l.Width,
			Height:      l.Height,
			Description: l.Description,
			Subtotal:    &sub,
		})
	}
	order, err := s.orders.Create(ctx, in)
	if errors.Is(err, orders.ErrQuoteAlreadyConverted) {
		return orders.Order{}, ErrAlreadyConverted
	}
	if err != nil && order.ID == 0 {
		return orders.Order{}, err
	}
	// a listener error after commit still leaves the order in place
	status := StatusApproved
	if serr := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return tx.UpdateHeader(ctx, id, header{Status: &status})
	}); serr != nil {
		return orders.Order{}, serr
	}
	s.record(ctx, "quote:converted", id, map[string]any{"order_id": order.ID})
	return order, err
}

func (s *Service) record(ctx context.Context, action string, quoteID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	actor, _ := shared.UserIDFromContext(ctx)
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actor,
		Action:   action,
		Entity:   "quote",
		EntityID: strconv.FormatInt(quoteID, 10),
		Meta:     meta,
		At:       time.Now(),
	})
}

func lockEditable(ctx context.Context, tx TxRepository, id int64) (Quote, error) {
	q, err := tx.LockQuote(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	if q.Status == StatusApproved {
		return Quote{}, ErrApproved
	}
	return q, nil
}

// recomputeTotal stores max(0, Σ subtotals − discount + shipping).
func recomputeTotal(ctx context.Context, tx TxRepository, id int64) error {
	q, err := tx.LockQuote(ctx, id)
	if err != nil {
		return err
	}
	lines, err := tx.Lines(ctx, id)
	if err != nil {
		return err
	}
	subtotals := make([]decimal.Decimal, len(lines))
	for i, l := range lines {
		subtotals[i] = l.Subtotal
	}
	return tx.SetTotal(ctx, id, pricing.QuoteTotal(subtotals, q.Discount, q.Shipping))
}

// inputOf rebuilds the input of a stored line, carrying its subtotal so
// free text lines keep their price when forced.
func inputOf(l Line) LineInput {
	sub := l.Subtotal
	return LineInput{
		Subtotal:    &sub,
		ProductID:   l.ProductID,
		Quantity:    l.Quantity,
		Width:       l.Width,
		Height:      l.Height,
		Description: l.Description,
	}
}
