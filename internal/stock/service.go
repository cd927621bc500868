package stock

import (
	"context"
	"fmt"
	"strconv"

	"github.com/inkworks/inkworks/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByProduct(ctx context.Context, productID int64, limit int) ([]Movement, error)
	ApplyOrderDelta(ctx context.Context, productID int64, delta int) error
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service records stock movements.
type Service struct {
	repo  RepositoryPort
	audit AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// Record inserts the movement and moves the product counter by its quantity
// in the same transaction. Untracked products start counting from zero.
func (s *Service) Record(ctx context.Context, in MovementInput) (Movement, int, error) {
	if err := in.validate(); err != nil {
		return Movement{}, 0, err
	}
	var (
		mv      Movement
		balance int
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		balance, err = tx.AddToStock(ctx, in.ProductID, in.Quantity)
		if err != nil {
			return err
		}
		mv, err = tx.InsertMovement(ctx, in)
		return err
	})
	if err != nil {
		return Movement{}, 0, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   fmt.Sprintf("stock:%s", in.Kind),
			Entity:   "product",
			EntityID: strconv.FormatInt(in.ProductID, 10),
			Meta: map[string]any{
				"movement_id": mv.ID,
				"quantity":    in.Quantity,
				"balance":     balance,
				"note":        in.Note,
			},
		})
	}
	return mv, balance, nil
}

// ListByProduct returns the newest movements of a product first.
func (s *Service) ListByProduct(ctx context.Context, productID int64, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.repo.ListByProduct(ctx, productID, limit)
}
