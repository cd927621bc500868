package expenses

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// RepositoryPort abstracts expense persistence.
type RepositoryPort interface {
	List(ctx context.Context, f ListFilter) ([]Expense, int, error)
	Get(ctx context.Context, id int64) (Expense, error)
	Create(ctx context.Context, in Input) (Expense, error)
	Update(ctx context.Context, id int64, in Input) (Expense, error)
	Delete(ctx context.Context, id int64) error
	// MarkPaid settles an open expense and reports false when it was already paid.
	MarkPaid(ctx context.Context, id int64, on httpx.Date) (Expense, bool, error)
}

// Service coordinates expense operations.
type Service struct {
	repo  RepositoryPort
	clock func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, clock: time.Now}
}

// WithClock overrides the time source.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// List returns a page of expenses.
func (s *Service) List(ctx context.Context, f ListFilter) ([]Expense, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	if f.Status != "" && f.Status != StatusOpen && f.Status != StatusPaid {
		return nil, 0, fmt.Errorf("%w: expenses: unknown status %q", httpx.ErrValidation, f.Status)
	}
	return s.repo.List(ctx, f)
}

// Get returns a single expense.
func (s *Service) Get(ctx context.Context, id int64) (Expense, error) {
	return s.repo.Get(ctx, id)
}

// Create stores a new expense.
func (s *Service) Create(ctx context.Context, in Input) (Expense, error) {
	in, err := s.normalize(in)
	if err != nil {
		return Expense{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update replaces an expense.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Expense, error) {
	in, err := s.normalize(in)
	if err != nil {
		return Expense{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Pay marks an open expense as paid today.
func (s *Service) Pay(ctx context.Context, id int64) (Expense, error) {
	e, ok, err := s.repo.MarkPaid(ctx, id, httpx.NewDate(s.clock()))
	if err != nil {
		return Expense{}, err
	}
	if !ok {
		return Expense{}, ErrAlreadyPaid
	}
	return e, nil
}

func (s *Service) normalize(in Input) (Input, error) {
	in.Description = strings.TrimSpace(in.Description)
	in.Category = strings.TrimSpace(in.Category)
	if err := httpx.Validate(in); err != nil {
		return Input{}, err
	}
	if !in.Amount.IsPositive() {
		return Input{}, ErrInvalidAmount
	}
	if in.DueDate.IsZero() {
		return Input{}, ErrDueDateRequired
	}
	if in.Status == "" {
		in.Status = StatusOpen
	}
	switch in.Status {
	case StatusPaid:
		if in.PaidDate.IsZero() {
			in.PaidDate = httpx.NewDate(s.clock())
		}
	case StatusOpen:
		in.PaidDate = httpx.Date{}
	}
	return in, nil
}
