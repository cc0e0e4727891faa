package printlog

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists print logs in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CountForSale returns how many times the sale has been printed.
func (r *Repository) CountForSale(ctx context.Context, saleID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM print_logs WHERE sale_id = $1`, saleID).Scan(&n)
	return n, err
}

// Insert stores a print log.
func (r *Repository) Insert(ctx context.Context, log PrintLog) (PrintLog, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO print_logs (code, sale_id, print_type, is_reprint, printer_name, printed_by, printed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		log.Code, log.SaleID, log.PrintType, log.IsReprint, log.PrinterName, log.PrintedByID, log.PrintedAt).Scan(&log.ID)
	return log, err
}

// ListForSale returns the print history of a sale, oldest first.
func (r *Repository) ListForSale(ctx context.Context, saleID int64) ([]PrintLog, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.code, l.sale_id, s.code, l.print_type, l.is_reprint, l.printer_name, COALESCE(l.printed_by, 0), u.name, l.printed_at
		FROM print_logs l
		JOIN sales s ON s.id = l.sale_id
		LEFT JOIN users u ON u.id = l.printed_by
		WHERE l.sale_id = $1
		ORDER BY l.printed_at, l.id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []PrintLog
	for rows.Next() {
		var (
			log  PrintLog
			name *string
		)
		if err := rows.Scan(&log.ID, &log.Code, &log.SaleID, &log.SaleCode, &log.PrintType, &log.IsReprint, &log.PrinterName, &log.PrintedByID, &name, &log.PrintedAt); err != nil {
			return nil, err
		}
		if name != nil {
			log.PrintedByName = *name
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
