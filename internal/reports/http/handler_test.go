package reporthttp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/reports"
)

type stubRepo struct{}

func (stubRepo) Summary(ctx context.Context, p reports.Period) (reports.Summary, error) {
	return reports.Summary{
		Transactions:   4,
		ItemsSold:      9,
		Revenue:        decimal.NewFromInt(180000),
		DiscountsGiven: decimal.NewFromInt(5000),
		TaxCollected:   decimal.NewFromInt(2000),
		AverageSale:    decimal.NewFromInt(45000),
	}, nil
}

func (stubRepo) PaymentBreakdown(ctx context.Context, p reports.Period) ([]reports.PaymentBreakdown, error) {
	return []reports.PaymentBreakdown{
		{Method: "cash", Transactions: 3, Revenue: decimal.NewFromInt(135000)},
		{Method: "card", Transactions: 1, Revenue: decimal.NewFromInt(45000)},
	}, nil
}

func (stubRepo) TopProducts(ctx context.Context, p reports.Period, limit int) ([]reports.TopProduct, error) {
	return []reports.TopProduct{
		{ProductCode: "PRD-001", ProductName: "Kopi Susu", Quantity: 6, Revenue: decimal.NewFromInt(90000)},
	}, nil
}

func (stubRepo) ListSales(ctx context.Context, p reports.Period) ([]reports.SaleRow, error) {
	return []reports.SaleRow{
		{
			Code:          "TRX-20250829-ABC123",
			CreatedAt:     time.Date(2025, 8, 29, 10, 0, 0, 0, time.UTC),
			CashierName:   "Kasir",
			PaymentMethod: "cash",
			Items:         3,
			Subtotal:      decimal.NewFromInt(45000),
			Total:         decimal.NewFromInt(45000),
		},
	}, nil
}

func (stubRepo) DailyRevenue(ctx context.Context, p reports.Period) ([]reports.DailyRevenue, error) {
	return []reports.DailyRevenue{
		{Date: "2025-08-28", Transactions: 2, Revenue: decimal.NewFromInt(90000)},
		{Date: "2025-08-29", Transactions: 2, Revenue: decimal.NewFromInt(90000)},
	}, nil
}

type stubEnqueuer struct {
	dates []string
}

func (s *stubEnqueuer) EnqueueDailySalesSummary(ctx context.Context, date string) error {
	s.dates = append(s.dates, date)
	return nil
}

func newTestRouter(jobs SummaryEnqueuer) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewHandler(logger, stubRepo{}, jobs)
	r := chi.NewRouter()
	handler.MountRoutes(r)
	return r
}

func TestSummaryJSON(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/reports/summary?from=2025-08-01&to=2025-08-29", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var got reports.Summary
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	require.Equal(t, 4, got.Transactions)
	require.True(t, got.Revenue.Equal(decimal.NewFromInt(180000)))
}

func TestSummaryCSV(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/reports/summary?format=csv&from=2025-08-01&to=2025-08-29", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "text/csv", res.Header().Get("Content-Type"))
	body := res.Body.String()
	require.True(t, strings.HasPrefix(body, "Metric,Value\n"))
	require.Contains(t, body, "Revenue,180000.00")
	require.Contains(t, body, "Period,2025-08-01 to 2025-08-29")
}

func TestDailyRevenueCSV(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/reports/daily-revenue?format=csv", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "Date,Transactions,Revenue")
	require.Contains(t, res.Body.String(), "2025-08-29,2,90000.00")
}

func TestSalesExportCSV(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/reports/sales?format=csv&from=2025-08-29&to=2025-08-29", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, "text/csv", res.Header().Get("Content-Type"))
	body := res.Body.String()
	require.True(t, strings.HasPrefix(body, "Code,Date,Cashier,Customer,Payment,Items,Subtotal,Tax,Discount,Total\n"))
	require.Contains(t, body, "TRX-20250829-ABC123,2025-08-29 10:00:00,Kasir,,cash,3,45000.00,0.00,0.00,45000.00")
}

func TestTopProductsJSON(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/reports/top-products?limit=5", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), "PRD-001")
}

func TestQueueDailySummary(t *testing.T) {
	enq := &stubEnqueuer{}
	router := newTestRouter(enq)
	req := httptest.NewRequest(http.MethodPost, "/reports/daily-summary?date=2025-08-28", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusAccepted, res.Code)
	require.Equal(t, []string{"2025-08-28"}, enq.dates)
}

func TestQueueDailySummaryRejectsBadDate(t *testing.T) {
	enq := &stubEnqueuer{}
	router := newTestRouter(enq)
	req := httptest.NewRequest(http.MethodPost, "/reports/daily-summary?date=28-08-2025", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Empty(t, enq.dates)
}

func TestQueueDailySummaryWithoutQueue(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodPost, "/reports/daily-summary", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusServiceUnavailable, res.Code)
}

func TestDashboardCombinesSections(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/reports/dashboard?from=2025-08-01&to=2025-08-29", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var got map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	require.Contains(t, got, "summary")
	require.Contains(t, got, "payments")
	require.Contains(t, got, "top_products")
	require.Contains(t, got, "daily_revenue")
	require.JSONEq(t, `"2025-08-01 to 2025-08-29"`, string(got["period"]))
}

func TestPaymentsJSON(t *testing.T) {
	router := newTestRouter(nil)
	req := httptest.NewRequest(http.MethodGet, "/reports/payments", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"cash"`)
}
