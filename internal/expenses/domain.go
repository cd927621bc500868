// Package expenses tracks the shop's general bills.
package expenses

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Status of an expense.
type Status string

const (
	StatusOpen Status = "A_PAGAR"
	StatusPaid Status = "PAGO"
)

// Expense is a bill not tied to an order, such as rent or power.
type Expense struct {
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     httpx.Date      `json:"due_date"`
	Category    string          `json:"category"`
	Status      Status          `json:"status"`
	PaidDate    httpx.Date      `json:"paid_date"`
}

// Input creates or replaces an expense.
type Input struct {
	Description string          `json:"description" validate:"required,max=255"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     httpx.Date      `json:"due_date"`
	Category    string          `json:"category" validate:"max=100"`
	Status      Status          `json:"status" validate:"omitempty,oneof=A_PAGAR PAGO"`
	PaidDate    httpx.Date      `json:"paid_date"`
}

// ListFilter narrows expense listings.
type ListFilter struct {
	Search   string
	Status   Status
	Category string
	Limit    int
	Offset   int
}

var (
	// ErrExpenseNotFound indicates a missing expense.
	ErrExpenseNotFound = fmt.Errorf("%w: expenses: expense not found", httpx.ErrNotFound)
	// ErrAlreadyPaid is returned when paying a settled expense.
	ErrAlreadyPaid = fmt.Errorf("%w: expenses: expense already paid", httpx.ErrConflict)
	// ErrInvalidAmount is returned for non positive amounts.
	ErrInvalidAmount = fmt.Errorf("%w: expenses: amount must be positive", httpx.ErrValidation)
	// ErrDueDateRequired is returned when the due date is missing.
	ErrDueDateRequired = fmt.Errorf("%w: expenses: due_date is required", httpx.ErrValidation)
)
