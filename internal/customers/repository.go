package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/kasirpos/internal/shared"
)

// Repository reads customer records from PostgreSQL. Writes happen inside the
// sale transaction and live with the sales repository.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const customerColumns = `id, code, name, phone, purchase_count, last_purchase_at, created_at, updated_at`

// List returns customers matching the filter plus the unpaged total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Customer, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf("(LOWER(name) LIKE $%d OR phone LIKE $%d OR LOWER(code) LIKE $%d)", len(args), len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Pagination.PerPage, filter.Pagination.Offset())
	query := `SELECT ` + customerColumns + ` FROM customers` + where +
		fmt.Sprintf(` ORDER BY last_purchase_at DESC NULLS LAST, name LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

// GetByCode fetches a customer by code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE code = $1`, code)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// FindByPhone fetches a customer by phone number.
func (r *Repository) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+customerColumns+` FROM customers WHERE phone = $1`, phone)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

type customerScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row customerScanner) (Customer, error) {
	var c Customer
	err := row.Scan(&c.ID, &c.Code, &c.Name, &c.Phone, &c.PurchaseCount, &c.LastPurchaseAt, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
