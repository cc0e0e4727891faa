package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository runs report aggregations in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Summary aggregates sales over the period.
func (r *Repository) Summary(ctx context.Context, p Period) (Summary, error) {
	var s Summary
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(s.id),
		       COALESCE(SUM(s.total), 0),
		       COALESCE(SUM(s.discount), 0),
		       COALESCE(SUM(s.tax), 0),
		       COALESCE((SELECT SUM(i.quantity) FROM sale_items i JOIN sales sx ON sx.id = i.sale_id WHERE sx.created_at >= $1 AND sx.created_at < $2), 0)
		FROM sales s
		WHERE s.created_at >= $1 AND s.created_at < $2`, p.From, p.To).
		Scan(&s.Transactions, &s.Revenue, &s.DiscountsGiven, &s.TaxCollected, &s.ItemsSold)
	if err != nil {
		return Summary{}, err
	}
	if s.Transactions > 0 {
		s.AverageSale = s.Revenue.Div(decimal.NewFromInt(int64(s.Transactions))).Round(2)
	} else {
		s.AverageSale = decimal.Zero
	}
	return s, nil
}

// PaymentBreakdown tallies revenue by tender type over the period.
func (r *Repository) PaymentBreakdown(ctx context.Context, p Period) ([]PaymentBreakdown, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payment_method, COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY payment_method
		ORDER BY SUM(total) DESC`, p.From, p.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentBreakdown
	for rows.Next() {
		var b PaymentBreakdown
		if err := rows.Scan(&b.Method, &b.Transactions, &b.Revenue); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// TopProducts ranks products by quantity sold over the period.
func (r *Repository) TopProducts(ctx context.Context, p Period, limit int) ([]TopProduct, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx, `
		SELECT pr.code, pr.name, SUM(i.quantity), COALESCE(SUM(i.line_total), 0)
		FROM sale_items i
		JOIN sales s ON s.id = i.sale_id
		JOIN products pr ON pr.id = i.product_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		GROUP BY pr.code, pr.name
		ORDER BY SUM(i.quantity) DESC, pr.name
		LIMIT $3`, p.From, p.To, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.ProductCode, &t.ProductName, &t.Quantity, &t.Revenue); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListSales returns one flat row per sale over the period, oldest first.
func (r *Repository) ListSales(ctx context.Context, p Period) ([]SaleRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.code, s.created_at, COALESCE(u.name, ''), COALESCE(c.name, ''), s.payment_method,
		       (SELECT COALESCE(SUM(i.quantity), 0) FROM sale_items i WHERE i.sale_id = s.id),
		       s.subtotal, s.tax, s.discount, s.total
		FROM sales s
		LEFT JOIN users u ON u.id = s.cashier_id
		LEFT JOIN customers c ON c.id = s.customer_id
		WHERE s.created_at >= $1 AND s.created_at < $2
		ORDER BY s.created_at, s.id`, p.From, p.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaleRow
	for rows.Next() {
		var row SaleRow
		if err := rows.Scan(&row.Code, &row.CreatedAt, &row.CashierName, &row.CustomerName, &row.PaymentMethod,
			&row.Items, &row.Subtotal, &row.Tax, &row.Discount, &row.Total); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// DailyRevenue returns a per-day revenue series over the period.
func (r *Repository) DailyRevenue(ctx context.Context, p Period) ([]DailyRevenue, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT TO_CHAR(created_at::date, 'YYYY-MM-DD'), COUNT(*), COALESCE(SUM(total), 0)
		FROM sales
		WHERE created_at >= $1 AND created_at < $2
		GROUP BY created_at::date
		ORDER BY created_at::date`, p.From, p.To)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyRevenue
	for rows.Next() {
		var d DailyRevenue
		if err := rows.Scan(&d.Date, &d.Transactions, &d.Revenue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
