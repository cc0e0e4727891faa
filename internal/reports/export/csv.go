package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/kasirpos/kasirpos/internal/reports"
)

// WriteSummaryCSV serialises the period summary to CSV.
func WriteSummaryCSV(w io.Writer, summary reports.Summary, period string) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Metric", "Value"}); err != nil {
		return err
	}
	records := [][]string{
		{"Period", period},
		{"Transactions", strconv.Itoa(summary.Transactions)},
		{"Items Sold", strconv.Itoa(summary.ItemsSold)},
		{"Revenue", summary.Revenue.StringFixed(2)},
		{"Discounts Given", summary.DiscountsGiven.StringFixed(2)},
		{"Tax Collected", summary.TaxCollected.StringFixed(2)},
		{"Average Sale", summary.AverageSale.StringFixed(2)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteDailyRevenueCSV emits the per-day revenue series as CSV.
func WriteDailyRevenueCSV(w io.Writer, points []reports.DailyRevenue) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Date", "Transactions", "Revenue"}); err != nil {
		return err
	}
	for _, point := range points {
		if err := writer.Write([]string{
			point.Date,
			strconv.Itoa(point.Transactions),
			point.Revenue.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteSalesCSV emits one row per sale as CSV.
func WriteSalesCSV(w io.Writer, sales []reports.SaleRow) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Code", "Date", "Cashier", "Customer", "Payment", "Items", "Subtotal", "Tax", "Discount", "Total"}); err != nil {
		return err
	}
	for _, sale := range sales {
		if err := writer.Write([]string{
			sale.Code,
			sale.CreatedAt.Format("2006-01-02 15:04:05"),
			sale.CashierName,
			sale.CustomerName,
			sale.PaymentMethod,
			strconv.Itoa(sale.Items),
			sale.Subtotal.StringFixed(2),
			sale.Tax.StringFixed(2),
			sale.Discount.StringFixed(2),
			sale.Total.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteTopProductsCSV emits the product ranking as CSV.
func WriteTopProductsCSV(w io.Writer, products []reports.TopProduct) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Code", "Name", "Quantity", "Revenue"}); err != nil {
		return err
	}
	for _, product := range products {
		if err := writer.Write([]string{
			product.ProductCode,
			product.ProductName,
			strconv.Itoa(product.Quantity),
			product.Revenue.StringFixed(2),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
