package clients

import (
	"context"
	"strings"

	"github.com/inkworks/inkworks/internal/documents"
	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// RepositoryPort abstracts customer persistence.
type RepositoryPort interface {
	List(ctx context.Context, filter ListFilter) ([]Customer, int, error)
	Get(ctx context.Context, id int64) (Customer, error)
	Create(ctx context.Context, in CustomerInput) (Customer, error)
	Update(ctx context.Context, id int64, in CustomerInput) (Customer, error)
	Delete(ctx context.Context, id int64) error
	QuoteHistory(ctx context.Context, customerID int64) ([]QuoteSummary, error)
	OrderHistory(ctx context.Context, customerID int64) ([]OrderSummary, error)
}

// Service coordinates customer operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// List returns a page of customers matching name, document or email.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.List(ctx, filter)
}

// Get returns a customer with its quote and order history.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	quotes, err := s.repo.QuoteHistory(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	orders, err := s.repo.OrderHistory(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if quotes == nil {
		quotes = []QuoteSummary{}
	}
	if orders == nil {
		orders = []OrderSummary{}
	}
	return Detail{Customer: c, Quotes: quotes, Orders: orders}, nil
}

// Create validates and stores a customer.
func (s *Service) Create(ctx context.Context, in CustomerInput) (Customer, error) {
	if err := normalize(&in); err != nil {
		return Customer{}, err
	}
	return s.repo.Create(ctx, in)
}

// Update replaces the customer's fields.
func (s *Service) Update(ctx context.Context, id int64, in CustomerInput) (Customer, error) {
	if err := normalize(&in); err != nil {
		return Customer{}, err
	}
	return s.repo.Update(ctx, id, in)
}

// Delete removes a customer without history.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// DocumentCustomer returns the addressee block printed on documents.
func (s *Service) DocumentCustomer(ctx context.Context, id int64) (documents.Customer, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return documents.Customer{}, err
	}
	out := documents.Customer{
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: documents.JoinAddress(c.Street, c.Number, c.Complement, c.District, c.City, c.State, c.PostalCode),
	}
	if c.Document != nil {
		out.Document = *c.Document
	}
	return out, nil
}

func normalize(in *CustomerInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.State = strings.ToUpper(strings.TrimSpace(in.State))
	if in.Document != nil {
		doc := strings.TrimSpace(*in.Document)
		if doc == "" {
			in.Document = nil
		} else {
			in.Document = &doc
		}
	}
	return httpx.Validate(in)
}
