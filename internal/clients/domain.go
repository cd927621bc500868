// Package clients keeps the customer registry.
package clients

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Customer is a person or company the shop sells to.
type Customer struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	Document   *string   `json:"cpf_cnpj"`
	Notes      string    `json:"notes"`
	PostalCode string    `json:"postal_code"`
	Street     string    `json:"street"`
	Number     string    `json:"number"`
	District   string    `json:"district"`
	Complement string    `json:"complement"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	CreatedAt  time.Time `json:"created_at"`
}

// CustomerInput is the writable part of a customer.
type CustomerInput struct {
	Name       string  `json:"name" validate:"required,max=200"`
	Email      string  `json:"email" validate:"omitempty,email"`
	Phone      string  `json:"phone" validate:"max=20"`
	Document   *string `json:"cpf_cnpj" validate:"omitempty,max=18"`
	Notes      string  `json:"notes"`
	PostalCode string  `json:"postal_code" validate:"max=10"`
	Street     string  `json:"street" validate:"max=255"`
	Number     string  `json:"number" validate:"max=10"`
	District   string  `json:"district" validate:"max=100"`
	Complement string  `json:"complement" validate:"max=100"`
	City       string  `json:"city" validate:"max=100"`
	State      string  `json:"state" validate:"omitempty,len=2"`
}

// QuoteSummary is a quote line in the customer history.
type QuoteSummary struct {
	ID        int64           `json:"id"`
	CreatedAt time.Time       `json:"created_at"`
	Total     decimal.Decimal `json:"total"`
	Status    string          `json:"status"`
}

// OrderSummary is an order line in the customer history.
type OrderSummary struct {
	ID               int64           `json:"id"`
	CreatedAt        time.Time       `json:"created_at"`
	Total            decimal.Decimal `json:"total"`
	ProductionStatus string          `json:"production_status"`
	PaymentStatus    string          `json:"payment_status"`
}

// Detail is a customer with its history, newest first.
type Detail struct {
	Customer
	Quotes []QuoteSummary `json:"quotes"`
	Orders []OrderSummary `json:"orders"`
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search string
	Limit  int
	Offset int
}

var (
	// ErrCustomerNotFound indicates a missing customer.
	ErrCustomerNotFound = fmt.Errorf("%w: clients: customer not found", httpx.ErrNotFound)
	// ErrDuplicateDocument is returned when another customer holds the CPF/CNPJ.
	ErrDuplicateDocument = fmt.Errorf("%w: clients: a customer with this cpf/cnpj already exists", httpx.ErrDuplicate)
	// ErrCustomerInUse is returned when deleting a customer with quotes or orders.
	ErrCustomerInUse = fmt.Errorf("%w: clients: customer has quotes or orders", httpx.ErrConflict)
)
