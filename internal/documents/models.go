// Package documents renders printable PDFs (quotes, order sheets, labels and
// reports) from HTML templates through Gotenberg.
package documents

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/pricing"
)

// Company is the letterhead printed on every document.
type Company struct {
	TradeName string
	LegalName string
	CNPJ      string
	Email     string
	WhatsApp  string
	Instagram string
	Website   string
	Address   string
	LogoURL   string
}

// Customer is the addressee block.
type Customer struct {
	Name     string
	Document string
	Email    string
	Phone    string
	Address  string
}

// Line is one priced item.
type Line struct {
	Description string
	Quantity    int
	Width       *decimal.Decimal
	Height      *decimal.Decimal
	Subtotal    decimal.Decimal
	Notes       string
}

// UnitPrice is subtotal / quantity, or zero.
func (l Line) UnitPrice() decimal.Decimal {
	return pricing.UnitPrice(l.Subtotal, l.Quantity)
}

// Dimensions renders "W x H m" for area-priced items.
func (l Line) Dimensions() string {
	if l.Width == nil || l.Height == nil {
		return ""
	}
	return l.Width.StringFixed(2) + " x " + l.Height.StringFixed(2) + " m"
}

// Quote feeds the quote template.
type Quote struct {
	Number     int64
	CreatedAt  time.Time
	ValidUntil time.Time
	Customer   Customer
	Lines      []Line
	Shipping   decimal.Decimal
	Discount   decimal.Decimal
	Total      decimal.Decimal
}

// Order feeds the service order template.
type Order struct {
	Number           int64
	CreatedAt        time.Time
	DueDate          time.Time
	Customer         Customer
	Lines            []Line
	Total            decimal.Decimal
	AmountPaid       decimal.Decimal
	AmountDue        decimal.Decimal
	PaymentStatus    string
	ProductionStatus string
	ShippingMethod   string
	TrackingCode     string
}

// Paid reports whether the "PAGO" stamp is printed.
func (o Order) Paid() bool {
	return o.PaymentStatus == string(pricing.PaymentPaid)
}

// ProductionSheet is the shop-floor copy of an order.
type ProductionSheet struct {
	Order
	ArtApproved bool
	ArtworkURL  string
}

// ShowArtwork reports whether the layout is printed. Only approved art reaches the floor.
func (p ProductionSheet) ShowArtwork() bool {
	return p.ArtApproved && strings.TrimSpace(p.ArtworkURL) != ""
}

// Label is a door label for deliveries.
type Label struct {
	Number          int64
	ClientType      string
	ResponsibleName string
	Block           string
	Apartment       string
}

// RevenueRow is one paid order in the revenue report.
type RevenueRow struct {
	Number       int64
	CreatedAt    time.Time
	CustomerName string
	Total        decimal.Decimal
}

// Revenue feeds the revenue report template.
type Revenue struct {
	Start time.Time
	End   time.Time
	Rows  []RevenueRow
}

// Total sums every row.
func (r Revenue) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, row := range r.Rows {
		sum = sum.Add(row.Total)
	}
	return sum
}
