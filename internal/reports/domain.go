// Package reports aggregates finance and sales figures. Everything here is
// read only.
package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/inkworks/inkworks/internal/platform/httpx"
)

// Range is an inclusive span of calendar days.
type Range struct {
	Start time.Time
	End   time.Time
}

// Dashboard is the finance summary for a range.
type Dashboard struct {
	Revenue    decimal.Decimal `json:"revenue"`
	Expenses   decimal.Decimal `json:"expenses"`
	Profit     decimal.Decimal `json:"profit"`
	Receivable decimal.Decimal `json:"receivable"`
}

// DayAmount is a total for one day.
type DayAmount struct {
	Day    httpx.Date      `json:"day"`
	Amount decimal.Decimal `json:"amount"`
}

// CashFlowDay holds the money in and out on a day.
type CashFlowDay struct {
	Date     httpx.Date      `json:"date"`
	Inflows  decimal.Decimal `json:"inflows"`
	Outflows decimal.Decimal `json:"outflows"`
}

// MethodTotal is revenue received through one payment method.
type MethodTotal struct {
	Method string          `json:"method"`
	Total  decimal.Decimal `json:"total"`
}

// PayableKind tells general expenses from supplier costs.
type PayableKind string

const (
	PayableExpense PayableKind = "DESPESA"
	PayableCost    PayableKind = "CUSTO_PRODUCAO"
)

// Payable is an unpaid bill.
type Payable struct {
	Kind        PayableKind     `json:"kind"`
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     httpx.Date      `json:"due_date"`
}

// Receivable is an order that still has money to collect.
type Receivable struct {
	OrderID       int64           `json:"order_id"`
	CustomerName  string          `json:"customer_name"`
	CreatedAt     time.Time       `json:"created_at"`
	Total         decimal.Decimal `json:"total"`
	Paid          decimal.Decimal `json:"paid"`
	Outstanding   decimal.Decimal `json:"outstanding"`
	PaymentStatus string          `json:"payment_status"`
}

// ConsolidatedExpense is either a general expense or an order's production cost.
type ConsolidatedExpense struct {
	Kind        PayableKind     `json:"kind"`
	ID          int64           `json:"id"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        httpx.Date      `json:"date"`
	Category    string          `json:"category"`
}

// PaidOrder is one line of the revenue report.
type PaidOrder struct {
	ID           int64           `json:"id"`
	CustomerName string          `json:"customer_name"`
	CreatedAt    time.Time       `json:"created_at"`
	Total        decimal.Decimal `json:"total"`
}

// MonthTotal is revenue for one month, keyed YYYY-MM.
type MonthTotal struct {
	Month string          `json:"month"`
	Total decimal.Decimal `json:"total"`
}

// NameCount is a labelled count used by charts.
type NameCount struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// ClientSpend ranks clients by money spent.
type ClientSpend struct {
	Name       string          `json:"name"`
	Orders     int64           `json:"orders"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// InactiveClient has not ordered in the last 90 days.
type InactiveClient struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	TotalSpent   decimal.Decimal `json:"total_spent"`
	LastOrder    httpx.Date      `json:"last_order"`
	DaysInactive *int            `json:"days_inactive"`
}

// ClientReport summarises the customer base.
type ClientReport struct {
	Total    int64            `json:"total"`
	New30d   int64            `json:"new_30d"`
	Active90 int64            `json:"active_90d"`
	Inactive []InactiveClient `json:"inactive"`
}

// LateOrder is an unfinished order past its due date.
type LateOrder struct {
	ID           int64      `json:"id"`
	CustomerName string     `json:"customer_name"`
	DueDate      httpx.Date `json:"due_date"`
	DaysLate     int        `json:"days_late"`
	Status       string     `json:"production_status"`
}

// OrderReport summarises orders.
type OrderReport struct {
	Total              int64           `json:"total"`
	Late               []LateOrder     `json:"late"`
	AverageProfit      decimal.Decimal `json:"average_profit"`
	AverageProductionD int             `json:"average_production_days"`
	PaymentsByMethod   []NameCount     `json:"payments_by_method"`
}

// RecentQuote is a row of the quote report table.
type RecentQuote struct {
	ID           int64           `json:"id"`
	CustomerName string          `json:"customer_name"`
	CreatedAt    time.Time       `json:"created_at"`
	Status       string          `json:"status"`
	Total        decimal.Decimal `json:"total"`
}

// QuoteReport summarises quotes.
type QuoteReport struct {
	Total          int64           `json:"total"`
	Approved       int64           `json:"approved"`
	Rejected       int64           `json:"rejected"`
	Open           int64           `json:"open"`
	ConversionRate decimal.Decimal `json:"conversion_rate"`
	QuotedTotal    decimal.Decimal `json:"quoted_total"`
	ApprovedTotal  decimal.Decimal `json:"approved_total"`
	ByStatus       []NameCount     `json:"by_status"`
	TopProducts    []NameCount     `json:"top_products"`
	Recent         []RecentQuote   `json:"recent"`
}

// ProductCards are the headline numbers of the product report.
type ProductCards struct {
	Count        int64           `json:"count"`
	AverageCost  decimal.Decimal `json:"average_cost"`
	AveragePrice decimal.Decimal `json:"average_price"`
	StockAlerts  int             `json:"stock_alerts"`
}

// ProfitableProduct ranks products by margin earned on order lines.
type ProfitableProduct struct {
	Name    string          `json:"name"`
	Profit  decimal.Decimal `json:"profit"`
	Revenue decimal.Decimal `json:"revenue"`
	Cost    decimal.Decimal `json:"cost"`
	Margin  decimal.Decimal `json:"margin"`
}

// IdleProduct has not sold in the last 60 days.
type IdleProduct struct {
	Name          string     `json:"name"`
	LastSale      httpx.Date `json:"last_sale"`
	DaysSinceSale *int       `json:"days_since_sale"`
}

// StockAlert is a tracked product below its minimum.
type StockAlert struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Stock    int    `json:"stock"`
	MinStock int    `json:"min_stock"`
}

// ProductReport summarises the catalog.
type ProductReport struct {
	Cards       ProductCards        `json:"cards"`
	TopSold     []NameCount         `json:"top_sold"`
	Profitable  []ProfitableProduct `json:"profitable"`
	LowDemand   []IdleProduct       `json:"low_demand"`
	StockAlerts []StockAlert        `json:"stock_alerts"`
}

// SupplierSpend ranks suppliers.
type SupplierSpend struct {
	Name   string          `json:"name"`
	Total  decimal.Decimal `json:"total"`
	Orders int64           `json:"orders"`
}

// SupplierReport ranks suppliers by spend and by usage.
type SupplierReport struct {
	BySpend []SupplierSpend `json:"by_spend"`
	ByUsage []SupplierSpend `json:"by_usage"`
}
