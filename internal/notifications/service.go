package notifications

import (
	"context"
	"time"
)

// Store persists notifications and reads the conditions that raise them.
type Store interface {
	// Recipient returns the first active superuser.
	Recipient(ctx context.Context) (int64, bool, error)
	LowStock(ctx context.Context) ([]LowStock, error)
	// Overdue lists orders due before today that are not finished or delivered.
	Overdue(ctx context.Context, today time.Time) ([]Overdue, error)
	Upsert(ctx context.Context, userID int64, c Candidate, at time.Time) (Outcome, error)

	List(ctx context.Context, userID int64, limit int) ([]Notification, error)
	MarkAllRead(ctx context.Context, userID int64) (int64, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
}

// Service runs scans and serves a user's notifications.
type Service struct {
	store Store
}

// NewService builds Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Scan raises one notification per low stock product and overdue order.
// Existing unread notifications are left alone, read ones come back as unread,
// so running it twice without changes has no effect.
func (s *Service) Scan(ctx context.Context, now time.Time) (ScanResult, error) {
	var res ScanResult
	userID, ok, err := s.store.Recipient(ctx)
	if err != nil {
		return res, err
	}
	if !ok {
		res.Skipped = true
		return res, nil
	}
	var candidates []Candidate
	low, err := s.store.LowStock(ctx)
	if err != nil {
		return res, err
	}
	for _, p := range low {
		candidates = append(candidates, lowStockCandidate(p))
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	late, err := s.store.Overdue(ctx, today)
	if err != nil {
		return res, err
	}
	for _, o := range late {
		candidates = append(candidates, overdueCandidate(o))
	}
	for _, c := range candidates {
		outcome, err := s.store.Upsert(ctx, userID, c, now)
		if err != nil {
			return res, err
		}
		switch outcome {
		case Created:
			res.Created++
		case Resurfaced:
			res.Resurfaced++
		}
	}
	return res, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]Notification, error) {
	items, err := s.store.List(ctx, userID, 100)
	if items == nil && err == nil {
		items = []Notification{}
	}
	return items, err
}

// MarkAllRead marks every unread notification of the user as read.
func (s *Service) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := s.store.MarkAllRead(ctx, userID)
	return err
}

// Unread counts the user's unread notifications.
func (s *Service) Unread(ctx context.Context, userID int64) (int, error) {
	return s.store.CountUnread(ctx, userID)
}
