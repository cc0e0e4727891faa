// Package receipt renders a committed sale into printable thermal receipt text
// and a structured payload for printer integrations. Rendering is pure: the
// same sale and settings always produce byte-identical output.
package receipt

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kasirpos/kasirpos/internal/sales"
)

// Settings describes the shop identity printed on every receipt.
type Settings struct {
	CompanyName  string
	Address      string
	Phone        string
	Width        int
	FooterText   string
	ReturnPolicy string
}

// Item is one printed line of the receipt payload.
type Item struct {
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Discount  decimal.Decimal `json:"discount"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Receipt is the rendered output.
type Receipt struct {
	Text    string  `json:"text"`
	Company Company `json:"company"`
	Sale    SaleRef `json:"transaction"`
	Items   []Item  `json:"items"`
	Summary Summary `json:"summary"`
}

// Company identifies the shop.
type Company struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

// SaleRef identifies the transaction.
type SaleRef struct {
	Code    string `json:"code"`
	Date    string `json:"date"`
	Cashier string `json:"cashier"`
}

// Summary carries the money totals.
type Summary struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	CashReceived  decimal.Decimal `json:"cash_received"`
	Change        decimal.Decimal `json:"change"`
}

var idPrinter = message.NewPrinter(language.Indonesian)

// formatAmount prints a rupiah amount with Indonesian digit grouping and no
// decimals, e.g. 15000 -> 15.000.
func formatAmount(d decimal.Decimal) string {
	return idPrinter.Sprintf("%d", d.Round(0).IntPart())
}

// Render produces the receipt for a sale.
func Render(sale *sales.Sale, settings Settings) Receipt {
	width := settings.Width
	if width <= 0 {
		width = 48
	}
	sep := strings.Repeat("=", width)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format+"\n", args...)
	}
	center := func(s string) {
		pad := (width - utf8.RuneCountInString(s)) / 2
		if pad < 0 {
			pad = 0
		}
		line("%s%s", strings.Repeat(" ", pad), s)
	}

	line("%s", sep)
	center(strings.ToUpper(settings.CompanyName))
	line("%s", sep)
	line("%s", settings.Address)
	line("Telp: %s", settings.Phone)
	line("%s", sep)
	line("")
	line("No. Transaksi: %s", sale.Code)
	line("Tanggal: %s", sale.CreatedAt.Format("02/01/2006 15:04:05"))
	line("Kasir: %s", sale.CashierName)
	line("%s", sep)

	for _, item := range sale.Items {
		line("%s", item.ProductName)
		line("%d x %s = %s", item.Quantity, formatAmount(item.Price), formatAmount(item.LineTotal))
		if item.Discount.IsPositive() {
			line("   Diskon: -%s", formatAmount(item.Discount))
		}
		line("")
	}

	line("%s", sep)
	line("Subtotal: %s", formatAmount(sale.Subtotal))
	if sale.Discount.IsPositive() {
		line("Diskon: -%s", formatAmount(sale.Discount))
	}
	if sale.Tax.IsPositive() {
		line("Pajak: %s", formatAmount(sale.Tax))
	}
	line("%s", sep)
	line("TOTAL: %s", formatAmount(sale.Total))
	line("%s", sep)

	if sale.PaymentMethod == sales.PaymentCash {
		line("Tunai: %s", formatAmount(sale.CashReceived))
		line("Kembali: %s", formatAmount(sale.Change))
	} else {
		method := string(sale.PaymentMethod)
		line("Pembayaran: %s", strings.ToUpper(method[:1])+method[1:])
	}

	line("%s", sep)
	center(strings.ToUpper(settings.FooterText))
	center(strings.ToUpper(settings.ReturnPolicy))
	line("%s", sep)

	items := make([]Item, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, Item{
			Name:      item.ProductName,
			Unit:      item.Unit,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Discount:  item.Discount,
			LineTotal: item.LineTotal,
		})
	}

	return Receipt{
		Text: b.String(),
		Company: Company{
			Name:    settings.CompanyName,
			Address: settings.Address,
			Phone:   settings.Phone,
		},
		Sale: SaleRef{
			Code:    sale.Code,
			Date:    sale.CreatedAt.Format("02/01/2006 15:04:05"),
			Cashier: sale.CashierName,
		},
		Items: items,
		Summary: Summary{
			Subtotal:      sale.Subtotal,
			Discount:      sale.Discount,
			Tax:           sale.Tax,
			Total:         sale.Total,
			PaymentMethod: string(sale.PaymentMethod),
			CashReceived:  sale.CashReceived,
			Change:        sale.Change,
		},
	}
}
