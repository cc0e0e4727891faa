package reports

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period bounds a report. To is exclusive.
type Period struct {
	From time.Time
	To   time.Time
}

// Summary aggregates register activity over a period.
type Summary struct {
	Transactions   int             `json:"transactions"`
	ItemsSold      int             `json:"items_sold"`
	Revenue        decimal.Decimal `json:"revenue"`
	DiscountsGiven decimal.Decimal `json:"discounts_given"`
	TaxCollected   decimal.Decimal `json:"tax_collected"`
	AverageSale    decimal.Decimal `json:"average_sale"`
}

// PaymentBreakdown tallies one tender type.
type PaymentBreakdown struct {
	Method       string          `json:"method"`
	Transactions int             `json:"transactions"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// TopProduct ranks a product by quantity sold.
type TopProduct struct {
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	Revenue     decimal.Decimal `json:"revenue"`
}

// DailyRevenue is one point of the revenue series.
type DailyRevenue struct {
	Date         string          `json:"date"`
	Transactions int             `json:"transactions"`
	Revenue      decimal.Decimal `json:"revenue"`
}

// SaleRow is one line of the flat sales export.
type SaleRow struct {
	Code          string          `json:"code"`
	CreatedAt     time.Time       `json:"created_at"`
	CashierName   string          `json:"cashier_name"`
	CustomerName  string          `json:"customer_name"`
	PaymentMethod string          `json:"payment_method"`
	Items         int             `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
}
