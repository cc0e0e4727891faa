package customers

import (
	"time"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// Customer is a walk-in buyer identified by phone number. Records are created
// lazily the first time a phone number appears on a sale.
type Customer struct {
	ID             int64      `json:"id"`
	Code           string     `json:"code"`
	Name           string     `json:"name"`
	Phone          string     `json:"phone"`
	PurchaseCount  int        `json:"purchase_count"`
	LastPurchaseAt *time.Time `json:"last_purchase_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ListFilter narrows customer listings.
type ListFilter struct {
	Search     string
	Pagination shared.Pagination
}
