package printlog

import (
	"errors"
	"time"
)

// Supported print document types.
const (
	PrintTypeReceipt = "receipt"
	PrintTypeInvoice = "invoice"
)

// ErrUnknownPrintType is returned for a print type outside the supported set.
var ErrUnknownPrintType = errors.New("printlog: unknown print type")

// PrintLog records one receipt print. The first log for a sale is the
// original; later ones are reprints.
type PrintLog struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	SaleID        int64     `json:"sale_id"`
	SaleCode      string    `json:"sale_code"`
	PrintType     string    `json:"print_type"`
	IsReprint     bool      `json:"is_reprint"`
	PrinterName   string    `json:"printer_name,omitempty"`
	PrintedByID   int64     `json:"printed_by_id"`
	PrintedByName string    `json:"printed_by_name"`
	PrintedAt     time.Time `json:"printed_at"`
}
