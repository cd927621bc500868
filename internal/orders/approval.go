package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/shared"
)

// AttachArtwork stores an artwork and puts the order in review. The approval
// token is generated on the first attachment and reused afterwards.
func (s *Service) AttachArtwork(ctx context.Context, orderID int64, in ArtworkInput) (Artwork, uuid.UUID, error) {
	in.LayoutURL = strings.TrimSpace(in.LayoutURL)
	if err := httpx.Validate(in); err != nil {
		return Artwork{}, uuid.Nil, err
	}
	var (
		art   Artwork
		token uuid.UUID
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		art, err = tx.InsertArtwork(ctx, orderID, in, s.now())
		if err != nil {
			return err
		}
		if order.ApprovalToken != nil {
			token = *order.ApprovalToken
		} else {
			token = uuid.New()
		}
		return tx.SetArtState(ctx, orderID, ArtInReview, &token)
	})
	if err != nil {
		return Artwork{}, uuid.Nil, err
	}
	s.record(ctx, "order:artwork", orderID, map[string]any{"artwork_id": art.ID})
	return art, token, nil
}

// ListArtworks returns the artworks of an order, newest first.
func (s *Service) ListArtworks(ctx context.Context, orderID int64) ([]Artwork, error) {
	return s.repo.ListArtworks(ctx, orderID)
}

// ApprovalByToken returns the customer facing view of an order.
func (s *Service) ApprovalByToken(ctx context.Context, token uuid.UUID) (ApprovalView, error) {
	id, err := s.repo.OrderIDByToken(ctx, token)
	if err != nil {
		return ApprovalView{}, err
	}
	order, err := s.repo.Get(ctx, id)
	if err != nil {
		return ApprovalView{}, err
	}
	arts, err := s.repo.ListArtworks(ctx, id)
	if err != nil {
		return ApprovalView{}, err
	}
	if arts == nil {
		arts = []Artwork{}
	}
	lines := order.Lines
	if lines == nil {
		lines = []Line{}
	}
	return ApprovalView{
		OrderID:      order.ID,
		CustomerName: order.CustomerName,
		ArtStatus:    order.ArtStatus,
		Total:        order.Total,
		Lines:        lines,
		Artworks:     arts,
	}, nil
}

// Approve moves the artwork from review to approved. Approving an already
// approved order succeeds without changes; the returned flag reports whether
// anything changed.
func (s *Service) Approve(ctx context.Context, token uuid.UUID) (bool, error) {
	changed := false
	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrderByToken(ctx, token)
		if err != nil {
			return err
		}
		orderID = order.ID
		switch order.ArtStatus {
		case ArtApproved:
			return nil
		case ArtInReview:
		default:
			return ErrNotInReview
		}
		changed = true
		return tx.SetArtState(ctx, order.ID, ArtApproved, nil)
	})
	if err != nil {
		return false, err
	}
	if changed {
		s.record(ctx, "order:art_approved", orderID, nil)
	}
	return changed, nil
}

// Reject moves the artwork from review to rejected and stores the customer's
// comment on the latest artwork.
func (s *Service) Reject(ctx context.Context, token uuid.UUID, comment string) error {
	comment = strings.TrimSpace(comment)
	if comment == "" {
		return ErrCommentRequired
	}
	var orderID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		order, err := tx.LockOrderByToken(ctx, token)
		if err != nil {
			return err
		}
		orderID = order.ID
		if order.ArtStatus != ArtInReview {
			return ErrNotInReview
		}
		if err := tx.CommentLatestArtwork(ctx, order.ID, comment); err != nil {
			return err
		}
		return tx.SetArtState(ctx, order.ID, ArtRejected, nil)
	})
	if err != nil {
		return err
	}
	s.record(ctx, "order:art_rejected", orderID, map[string]any{"comment": comment})
	return nil
}

// Kanban groups open orders by production column, oldest first.
func (s *Service) Kanban(ctx context.Context) (map[ProductionStatus][]KanbanCard, error) {
	cols := KanbanColumns()
	orders, err := s.repo.ByProductionStatus(ctx, cols)
	if err != nil {
		return nil, err
	}
	board := make(map[ProductionStatus][]KanbanCard, len(cols))
	for _, c := range cols {
		board[c] = []KanbanCard{}
	}
	for _, o := range orders {
		if _, ok := board[o.ProductionStatus]; !ok {
			continue
		}
		card := KanbanCard{
			ID:               o.ID,
			CustomerName:     o.CustomerName,
			Total:            o.Total,
			TotalFormatted:   shared.FormatBRL(o.Total),
			DueDate:          o.DueDate,
			ProductionStatus: o.ProductionStatus,
		}
		if !o.DueDate.IsZero() {
			f := o.DueDate.Format(shared.DateLayoutBR)
			card.DueFormatted = &f
		}
		board[o.ProductionStatus] = append(board[o.ProductionStatus], card)
	}
	return board, nil
}

// Recent returns the latest orders.
func (s *Service) Recent(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.repo.Recent(ctx, limit)
}
