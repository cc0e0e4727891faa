package reporthttp

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/kasirpos/kasirpos/internal/platform/httpx"
	"github.com/kasirpos/kasirpos/internal/reports"
	"github.com/kasirpos/kasirpos/internal/reports/export"
)

// RepositoryPort abstracts repository usage for the handler.
type RepositoryPort interface {
	Summary(ctx context.Context, p reports.Period) (reports.Summary, error)
	PaymentBreakdown(ctx context.Context, p reports.Period) ([]reports.PaymentBreakdown, error)
	TopProducts(ctx context.Context, p reports.Period, limit int) ([]reports.TopProduct, error)
	DailyRevenue(ctx context.Context, p reports.Period) ([]reports.DailyRevenue, error)
	ListSales(ctx context.Context, p reports.Period) ([]reports.SaleRow, error)
}

// SummaryEnqueuer queues an end-of-day summary job on demand.
type SummaryEnqueuer interface {
	EnqueueDailySalesSummary(ctx context.Context, date string) error
}

// Handler wires owner-only reporting endpoints. The router mounts it behind
// the owner gate.
type Handler struct {
	logger *slog.Logger
	repo   RepositoryPort
	jobs   SummaryEnqueuer
}

// NewHandler constructs a Handler instance. jobs may be nil when no queue is
// configured.
func NewHandler(logger *slog.Logger, repo RepositoryPort, jobs SummaryEnqueuer) *Handler {
	return &Handler{logger: logger, repo: repo, jobs: jobs}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/reports/dashboard", h.dashboard)
	r.Get("/reports/summary", h.summary)
	r.Get("/reports/payments", h.payments)
	r.Get("/reports/top-products", h.topProducts)
	r.Get("/reports/daily-revenue", h.dailyRevenue)
	r.Get("/reports/sales", h.salesExport)
	r.Post("/reports/daily-summary", h.queueDailySummary)
}

// queueDailySummary enqueues the end-of-day aggregation for a given date, so
// a missed or corrected day can be replayed through the worker.
func (h *Handler) queueDailySummary(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "no job queue configured")
		return
	}
	date := r.URL.Query().Get("date")
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid date", "date must be YYYY-MM-DD")
			return
		}
	}
	if err := h.jobs.EnqueueDailySalesSummary(r.Context(), date); err != nil {
		h.logger.Warn("enqueue daily summary", slog.Any("error", err))
		httpx.Problem(w, http.StatusServiceUnavailable, "Queue unavailable", "could not enqueue summary job")
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

// periodFromQuery parses from/to dates. Defaults to the current day when
// absent; to is made exclusive by adding a day.
func periodFromQuery(r *http.Request) reports.Period {
	q := r.URL.Query()
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)
	if v := q.Get("from"); v != "" {
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			from = ts
		}
	}
	if v := q.Get("to"); v != "" {
		if ts, err := time.Parse("2006-01-02", v); err == nil {
			to = ts.AddDate(0, 0, 1)
		}
	}
	return reports.Period{From: from, To: to}
}

func periodLabel(p reports.Period) string {
	return p.From.Format("2006-01-02") + " to " + p.To.AddDate(0, 0, -1).Format("2006-01-02")
}

const dashboardTopLimit = 5

// dashboard returns all report sections in one payload. The aggregates are
// independent queries, so they run concurrently.
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	period := periodFromQuery(r)

	var (
		summary  reports.Summary
		payments []reports.PaymentBreakdown
		top      []reports.TopProduct
		series   []reports.DailyRevenue
	)

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		summary, err = h.repo.Summary(ctx, period)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = h.repo.PaymentBreakdown(ctx, period)
		return err
	})
	g.Go(func() error {
		var err error
		top, err = h.repo.TopProducts(ctx, period, dashboardTopLimit)
		return err
	})
	g.Go(func() error {
		var err error
		series, err = h.repo.DailyRevenue(ctx, period)
		return err
	})
	if err := g.Wait(); err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"period":        periodLabel(period),
		"summary":       summary,
		"payments":      payments,
		"top_products":  top,
		"daily_revenue": series,
	})
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	period := periodFromQuery(r)
	summary, err := h.repo.Summary(r.Context(), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="sales-summary.csv"`)
		if err := export.WriteSummaryCSV(w, summary, periodLabel(period)); err != nil {
			h.logger.Error("write summary csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) payments(w http.ResponseWriter, r *http.Request) {
	breakdown, err := h.repo.PaymentBreakdown(r.Context(), periodFromQuery(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"payments": breakdown})
}

func (h *Handler) topProducts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	products, err := h.repo.TopProducts(r.Context(), periodFromQuery(r), limit)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="top-products.csv"`)
		if err := export.WriteTopProductsCSV(w, products); err != nil {
			h.logger.Error("write top products csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) salesExport(w http.ResponseWriter, r *http.Request) {
	period := periodFromQuery(r)
	rows, err := h.repo.ListSales(r.Context(), period)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="sales.csv"`)
		if err := export.WriteSalesCSV(w, rows); err != nil {
			h.logger.Error("write sales csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": periodLabel(period), "sales": rows})
}

func (h *Handler) dailyRevenue(w http.ResponseWriter, r *http.Request) {
	series, err := h.repo.DailyRevenue(r.Context(), periodFromQuery(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="daily-revenue.csv"`)
		if err := export.WriteDailyRevenueCSV(w, series); err != nil {
			h.logger.Error("write daily revenue csv", slog.Any("error", err))
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"series": series})
}
