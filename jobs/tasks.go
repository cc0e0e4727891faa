package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kasirpos/kasirpos/internal/catalog"
	"github.com/kasirpos/kasirpos/internal/reports"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockDigest scans for products at or below their restock level.
	TaskLowStockDigest = "stock:low_digest"
	// TaskDailySalesSummary aggregates the previous day after close.
	TaskDailySalesSummary = "sales:daily_summary"
)

// LowStockDigestPayload carries scheduling metadata.
type LowStockDigestPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewLowStockDigestTask constructs the nightly low stock scan task.
func NewLowStockDigestTask(at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(LowStockDigestPayload{ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLowStockDigest, body, asynq.Queue(QueueDefault)), nil
}

// LowStockLister abstracts the catalog lookup the digest needs.
type LowStockLister interface {
	ListLowStock(ctx context.Context) ([]catalog.Product, error)
}

// NewLowStockDigestHandler builds the handler for TaskLowStockDigest. The
// digest is logged; a notification channel can hang off the same handler.
func NewLowStockDigestHandler(lister LowStockLister, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload LowStockDigestPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		products, err := lister.ListLowStock(ctx)
		if err != nil {
			return err
		}
		for _, p := range products {
			logger.Warn("product low on stock",
				slog.String("code", p.Code),
				slog.String("name", p.Name),
				slog.Int("stock", p.Stock),
				slog.Int("min_stock", p.MinStock))
		}
		logger.Info("low stock digest finished", slog.Int("products", len(products)))
		return nil
	}
}

// DailySummaryPayload carries the day to aggregate.
type DailySummaryPayload struct {
	Date string `json:"date"`
}

// NewDailySalesSummaryTask constructs the end-of-day summary task. An empty
// date means the previous day at run time.
func NewDailySalesSummaryTask(date string) (*asynq.Task, error) {
	body, err := json.Marshal(DailySummaryPayload{Date: date})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskDailySalesSummary, body, asynq.Queue(QueueDefault)), nil
}

// SummarySource abstracts the report aggregation the summary needs.
type SummarySource interface {
	Summary(ctx context.Context, p reports.Period) (reports.Summary, error)
	PaymentBreakdown(ctx context.Context, p reports.Period) ([]reports.PaymentBreakdown, error)
}

// NewDailySalesSummaryHandler builds the handler for TaskDailySalesSummary.
func NewDailySalesSummaryHandler(source SummarySource, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload DailySummaryPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		day := time.Now().UTC().AddDate(0, 0, -1)
		if payload.Date != "" {
			parsed, err := time.Parse("2006-01-02", payload.Date)
			if err != nil {
				return asynq.SkipRetry
			}
			day = parsed
		}
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		period := reports.Period{From: from, To: from.AddDate(0, 0, 1)}

		summary, err := source.Summary(ctx, period)
		if err != nil {
			return err
		}
		breakdown, err := source.PaymentBreakdown(ctx, period)
		if err != nil {
			return err
		}
		logger.Info("daily sales summary",
			slog.String("date", from.Format("2006-01-02")),
			slog.Int("transactions", summary.Transactions),
			slog.Int("items_sold", summary.ItemsSold),
			slog.String("revenue", summary.Revenue.StringFixed(2)))
		for _, b := range breakdown {
			logger.Info("daily payment breakdown",
				slog.String("date", from.Format("2006-01-02")),
				slog.String("method", b.Method),
				slog.Int("transactions", b.Transactions),
				slog.String("revenue", b.Revenue.StringFixed(2)))
		}
		return nil
	}
}
