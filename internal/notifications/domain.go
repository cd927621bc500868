// Package notifications raises low stock and overdue order alerts for the
// shop owner.
package notifications

import (
	"fmt"
	"time"
)

// Notification is a message shown in a user's bell.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Message   string    `json:"message"`
	Link      string    `json:"link"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
	UniqueKey *string   `json:"-"`
}

// Candidate is a notification the scan wants to exist. Key deduplicates it
// across runs.
type Candidate struct {
	Key     string
	Message string
	Link    string
}

// LowStock is a tracked product at or below its minimum.
type LowStock struct {
	ProductID int64
	Name      string
	Stock     int
	MinStock  int
}

// Overdue is an unfinished order past its due date.
type Overdue struct {
	OrderID      int64
	CustomerName string
	DueDate      time.Time
}

// Outcome is what an upsert did to the stored notification.
type Outcome int

const (
	// Unchanged means an unread notification already existed.
	Unchanged Outcome = iota
	// Created means the key was new.
	Created
	// Resurfaced means a read notification was marked unread again.
	Resurfaced
)

// ScanResult summarises a scan.
type ScanResult struct {
	Created    int  `json:"created"`
	Resurfaced int  `json:"resurfaced"`
	Skipped    bool `json:"skipped"`
}

// Emitted is the number of notifications the user will now see as new.
func (r ScanResult) Emitted() int {
	return r.Created + r.Resurfaced
}

func lowStockCandidate(p LowStock) Candidate {
	return Candidate{
		Key:     fmt.Sprintf("stock:product:%d", p.ProductID),
		Message: fmt.Sprintf("Estoque baixo: %s (Atual: %d)", p.Name, p.Stock),
		Link:    "/produtos",
	}
}

func overdueCandidate(o Overdue) Candidate {
	return Candidate{
		Key:     fmt.Sprintf("order:overdue:%d", o.OrderID),
		Message: fmt.Sprintf("Pedido #%d (%s) está atrasado. Previsto para: %s", o.OrderID, o.CustomerName, o.DueDate.Format("02/01")),
		Link:    fmt.Sprintf("/pedidos/%d/editar", o.OrderID),
	}
}
