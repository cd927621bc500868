// Package labels keeps the door labels printed for deliveries.
package labels

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/inkworks/inkworks/internal/documents"
	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// ClientType says whether a label goes to a residential building or a company.
type ClientType string

const (
	TypeCondo   ClientType = "CONDOMINIO"
	TypeCompany ClientType = "EMPRESA"
)

// Label is a door label.
type Label struct {
	ID              int64      `json:"id"`
	ClientType      ClientType `json:"client_type"`
	ResponsibleName string     `json:"responsible_name"`
	Block           string     `json:"block"`
	Apartment       string     `json:"apartment"`
	CreatedAt       time.Time  `json:"created_at"`
}

// Input creates or replaces a label.
type Input struct {
	ClientType      ClientType `json:"client_type" validate:"omitempty,oneof=CONDOMINIO EMPRESA"`
	ResponsibleName string     `json:"responsible_name" validate:"required,max=255"`
	Block           string     `json:"block" validate:"max=20"`
	Apartment       string     `json:"apartment" validate:"max=20"`
}

// ErrLabelNotFound indicates a missing label.
var ErrLabelNotFound = fmt.Errorf("%w: labels: label not found", httpx.ErrNotFound)

// Store persists labels.
type Store interface {
	List(ctx context.Context, search string, limit, offset int) ([]Label, int, error)
	Get(ctx context.Context, id int64) (Label, error)
	Create(ctx context.Context, in Input) (Label, error)
	Update(ctx context.Context, id int64, in Input) (Label, error)
	Delete(ctx context.Context, id int64) error
}

// Printer renders a label.
type Printer interface {
	Label(ctx context.Context, l documents.Label) ([]byte, error)
}

// Service manages labels.
type Service struct {
	store   Store
	printer Printer
}

// NewService builds Service.
func NewService(store Store, printer Printer) *Service {
	return &Service{store: store, printer: printer}
}

// List searches labels by responsible name, block or apartment.
func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Label, int, error) {
	return s.store.List(ctx, strings.TrimSpace(search), limit, offset)
}

// Get returns one label.
func (s *Service) Get(ctx context.Context, id int64) (Label, error) {
	return s.store.Get(ctx, id)
}

// Create stores a label.
func (s *Service) Create(ctx context.Context, in Input) (Label, error) {
	in, err := normalize(in)
	if err != nil {
		return Label{}, err
	}
	return s.store.Create(ctx, in)
}

// Update replaces a label.
func (s *Service) Update(ctx context.Context, id int64, in Input) (Label, error) {
	in, err := normalize(in)
	if err != nil {
		return Label{}, err
	}
	return s.store.Update(ctx, id, in)
}

// Delete removes a label.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// PDF renders the label on A6 paper.
func (s *Service) PDF(ctx context.Context, id int64) ([]byte, error) {
	l, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.printer.Label(ctx, documents.Label{
		Number:          l.ID,
		ClientType:      string(l.ClientType),
		ResponsibleName: l.ResponsibleName,
		Block:           l.Block,
		Apartment:       l.Apartment,
	})
}

func normalize(in Input) (Input, error) {
	in.ResponsibleName = strings.TrimSpace(in.ResponsibleName)
	in.Block = strings.TrimSpace(in.Block)
	in.Apartment = strings.TrimSpace(in.Apartment)
	if in.ClientType == "" {
		in.ClientType = TypeCondo
	}
	if err := httpx.Validate(in); err != nil {
		return Input{}, err
	}
	return in, nil
}
