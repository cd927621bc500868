package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/inkworks/inkworks/internal/cnpj"
	"github.com/inkworks/inkworks/internal/platform/httpx"
	"github.com/inkworks/inkworks/internal/pricing"
)

// RepositoryPort abstracts catalog persistence.
type RepositoryPort interface {
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	ListSuppliers(ctx context.Context, filter ListFilter) ([]Supplier, int, error)
	GetSupplier(ctx context.Context, id int64) (Supplier, error)
	CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error)
	UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (Supplier, error)
	DeleteSupplier(ctx context.Context, id int64) error
}

// Service coordinates catalog operations.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListProducts returns a page of products.
func (s *Service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.ListProducts(ctx, filter)
}

// GetProduct fetches one product.
func (s *Service) GetProduct(ctx context.Context, id int64) (Product, error) {
	return s.repo.GetProduct(ctx, id)
}

// PricedProduct returns the pricing view of a product for quote and order
// lines. A missing product is reported as a bad line, not a missing resource.
func (s *Service) PricedProduct(ctx context.Context, id int64) (*pricing.PricedProduct, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, ErrProductNotFound) {
		return nil, fmt.Errorf("%w: catalog: product %d does not exist", httpx.ErrValidation, id)
	}
	if err != nil {
		return nil, err
	}
	return p.Priced(), nil
}

// CreateProduct validates and inserts a product. The initial stock, when
// given, is the only stock value ever written outside the stock ledger.
func (s *Service) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if err := normalizeProduct(&in); err != nil {
		return Product{}, err
	}
	return s.repo.CreateProduct(ctx, in)
}

// UpdateProduct changes descriptive and price fields. Stock is left alone.
func (s *Service) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if err := normalizeProduct(&in); err != nil {
		return Product{}, err
	}
	return s.repo.UpdateProduct(ctx, id, in)
}

// DeleteProduct removes a product.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.repo.DeleteProduct(ctx, id)
}

// ListSuppliers returns a page of suppliers.
func (s *Service) ListSuppliers(ctx context.Context, filter ListFilter) ([]Supplier, int, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	return s.repo.ListSuppliers(ctx, filter)
}

// GetSupplier fetches one supplier.
func (s *Service) GetSupplier(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.GetSupplier(ctx, id)
}

// CreateSupplier validates and inserts a supplier.
func (s *Service) CreateSupplier(ctx context.Context, in SupplierInput) (Supplier, error) {
	if err := normalizeSupplier(&in); err != nil {
		return Supplier{}, err
	}
	return s.repo.CreateSupplier(ctx, in)
}

// UpdateSupplier validates and updates a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id int64, in SupplierInput) (Supplier, error) {
	if err := normalizeSupplier(&in); err != nil {
		return Supplier{}, err
	}
	return s.repo.UpdateSupplier(ctx, id, in)
}

// DeleteSupplier removes a supplier.
func (s *Service) DeleteSupplier(ctx context.Context, id int64) error {
	return s.repo.DeleteSupplier(ctx, id)
}

func normalizeProduct(in *ProductInput) error {
	in.Name = strings.TrimSpace(in.Name)
	if in.PricingMode == "" {
		in.PricingMode = pricing.ModeUnit
	}
	if !in.PricingMode.Valid() {
		return fmt.Errorf("%w: catalog: unknown pricing mode %q", httpx.ErrValidation, in.PricingMode)
	}
	if in.Price.IsNegative() || in.Cost.IsNegative() {
		return fmt.Errorf("%w: %w", httpx.ErrValidation, errNegativeMoney)
	}
	in.Price = in.Price.Round(2)
	in.Cost = in.Cost.Round(2)
	return httpx.Validate(in)
}

func normalizeSupplier(in *SupplierInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.CNPJ != nil {
		trimmed := strings.TrimSpace(*in.CNPJ)
		if trimmed == "" {
			in.CNPJ = nil
		} else {
			if err := cnpj.Validate(trimmed); err != nil {
				return err
			}
			in.CNPJ = &trimmed
		}
	}
	if in.Phone = strings.TrimSpace(in.Phone); in.Phone != "" && len(cnpj.Digits(in.Phone)) < 10 {
		return ErrInvalidPhone
	}
	return httpx.Validate(in)
}
