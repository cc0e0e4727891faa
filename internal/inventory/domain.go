package inventory

import (
	"fmt"
	"time"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// MovementKind enumerates supported stock movements.
type MovementKind string

const (
	// MovementIn represents inbound stock (restock, initial stock, sale cancellation).
	MovementIn MovementKind = "in"
	// MovementOut represents outbound stock (sales, damage, manual issue).
	MovementOut MovementKind = "out"
	// MovementAdjustment sets stock to a counted value.
	MovementAdjustment MovementKind = "adjustment"
)

// Valid reports whether the kind is one of the known movements.
func (k MovementKind) Valid() bool {
	switch k {
	case MovementIn, MovementOut, MovementAdjustment:
		return true
	}
	return false
}

// ReferenceKind tags what a movement points back to.
type ReferenceKind string

const (
	// ReferenceNone marks a manual movement with no source document.
	ReferenceNone ReferenceKind = ""
	// ReferenceSale links the movement to the sale that consumed stock.
	ReferenceSale ReferenceKind = "sale"
	// ReferenceCancellation links a compensating movement to a cancelled sale.
	ReferenceCancellation ReferenceKind = "sale_cancellation"
)

// Reference points a movement at its source document. The zero value means
// the movement was entered by hand.
type Reference struct {
	Kind ReferenceKind `json:"kind,omitempty"`
	Code string        `json:"code,omitempty"`
}

// IsZero reports whether the movement has no source document.
func (r Reference) IsZero() bool {
	return r.Kind == ReferenceNone
}

// Movement is one immutable row of the stock ledger. StockBefore and
// StockAfter snapshot the product balance around the movement so the ledger
// can be audited without replaying it.
type Movement struct {
	ID          int64        `json:"id"`
	Code        string       `json:"code"`
	ProductID   int64        `json:"product_id"`
	ProductCode string       `json:"product_code"`
	ProductName string       `json:"product_name"`
	Kind        MovementKind `json:"kind"`
	Quantity    int          `json:"quantity"`
	StockBefore int          `json:"stock_before"`
	StockAfter  int          `json:"stock_after"`
	Reference   Reference    `json:"reference"`
	Note        string       `json:"note"`
	ActorID     int64        `json:"actor_id"`
	ActorName   string       `json:"actor_name"`
	CreatedAt   time.Time    `json:"created_at"`
}

// RecordMovementRequest carries payload for POST /stock/movements. For
// adjustments Quantity is the counted stock level, not a delta.
type RecordMovementRequest struct {
	ProductCode string       `json:"product_code" validate:"required"`
	Kind        MovementKind `json:"kind" validate:"required,oneof=in out adjustment"`
	Quantity    int          `json:"quantity" validate:"gte=0"`
	Note        string       `json:"note" validate:"max=255"`
}

// ListFilter narrows movement listings.
type ListFilter struct {
	ProductCode string
	Kind        MovementKind
	Search      string
	From        time.Time
	To          time.Time
	Pagination  shared.Pagination
}

// ValidationError reports a rejected field with its reason.
type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("inventory: %s %s", e.Field, e.Msg)
}

// InsufficientStockError is returned when an outbound movement exceeds the
// available balance.
type InsufficientStockError struct {
	ProductCode string
	Requested   int
	Available   int
}

func (e InsufficientStockError) Error() string {
	return fmt.Sprintf("inventory: insufficient stock for %s: requested %d, available %d", e.ProductCode, e.Requested, e.Available)
}
