package sales

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	// PaymentCash requires cash received to cover the total; change is returned.
	PaymentCash PaymentMethod = "cash"
	// PaymentCard settles exactly; no change.
	PaymentCard PaymentMethod = "card"
	// PaymentTransfer settles exactly; no change.
	PaymentTransfer PaymentMethod = "transfer"
)

// Valid reports whether the method is one of the accepted tenders.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentTransfer:
		return true
	}
	return false
}

// Sale is a completed register transaction. Monetary fields are exact
// decimals; a sale is immutable once committed and can only be cancelled,
// which removes it and restores stock.
type Sale struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Items         []SaleItem      `json:"items,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	CashReceived  decimal.Decimal `json:"cash_received"`
	Change        decimal.Decimal `json:"change"`
	CustomerID    *int64          `json:"customer_id,omitempty"`
	CustomerName  string          `json:"customer_name,omitempty"`
	CustomerPhone string          `json:"customer_phone,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	CashierID     int64           `json:"cashier_id"`
	CashierName   string          `json:"cashier_name"`
	CreatedAt     time.Time       `json:"created_at"`
}

// SaleItem is one line of a sale. LineTotal is price times quantity minus the
// line discount.
type SaleItem struct {
	ID          int64           `json:"id"`
	Code        string          `json:"code"`
	SaleID      int64           `json:"sale_id"`
	ProductID   int64           `json:"product_id"`
	ProductCode string          `json:"product_code"`
	ProductName string          `json:"product_name"`
	Unit        string          `json:"unit"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Discount    decimal.Decimal `json:"discount"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CartLine is one requested line of a sale. Duplicate product codes are
// allowed and treated as independent lines.
type CartLine struct {
	ProductCode string          `json:"product_code" validate:"required"`
	Quantity    int             `json:"quantity" validate:"required,gt=0"`
	Discount    decimal.Decimal `json:"discount"`
}

// CreateSaleRequest carries payload for POST /sales. Prices come from the
// catalog at sale time, never from the client.
type CreateSaleRequest struct {
	Items         []CartLine      `json:"items" validate:"required,min=1,dive"`
	Tax           decimal.Decimal `json:"tax"`
	Discount      decimal.Decimal `json:"discount"`
	PaymentMethod PaymentMethod   `json:"payment_method" validate:"required,oneof=cash card transfer"`
	CashReceived  decimal.Decimal `json:"cash_received"`
	CustomerPhone string          `json:"customer_phone" validate:"omitempty,max=20"`
	CustomerName  string          `json:"customer_name" validate:"omitempty,max=100"`
	Notes         string          `json:"notes" validate:"max=255"`
}

// ListFilter narrows sale listings.
type ListFilter struct {
	From          time.Time
	To            time.Time
	PaymentMethod PaymentMethod
	CashierID     int64
	Search        string
	Pagination    shared.Pagination
}

// ValidationError reports a rejected cart line. Line is zero-based; -1 marks
// a sale-level failure.
type ValidationError struct {
	Line int
	Msg  string
}

func (e ValidationError) Error() string {
	if e.Line < 0 {
		return fmt.Sprintf("sales: %s", e.Msg)
	}
	return fmt.Sprintf("sales: line %d: %s", e.Line, e.Msg)
}

// InsufficientStockError is returned when a cart line asks for more than the
// product has on hand. Available accounts for earlier lines of the same cart.
type InsufficientStockError struct {
	ProductCode string
	Requested   int
	Available   int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("sales: insufficient stock for %s: requested %d, available %d", e.ProductCode, e.Requested, e.Available)
}

// InsufficientPaymentError is returned when cash received does not cover the
// total.
type InsufficientPaymentError struct {
	Total    decimal.Decimal
	Received decimal.Decimal
}

func (e InsufficientPaymentError) Error() string {
	return fmt.Sprintf("sales: cash received %s does not cover total %s", e.Received.StringFixed(2), e.Total.StringFixed(2))
}
