package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/platform/db"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the writes that must land atomically when a product is
// created together with its opening stock.
type TxRepository interface {
	InsertProduct(ctx context.Context, p Product) (int64, error)
	InsertMovement(ctx context.Context, m inventory.Movement) error
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const productColumns = `p.id, p.code, p.name, p.category_id, p.unit, p.price, p.cost_price, p.stock, p.min_stock, p.is_active, p.created_at, p.updated_at`

// GetByCode fetches a product by its code.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Product, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products p WHERE p.code = $1`, code)
	return scanProduct(row)
}

// List returns products matching the filter plus the unpaged total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf("(LOWER(p.name) LIKE $%d OR LOWER(p.code) LIKE $%d)", len(args), len(args)))
	}
	if filter.CategoryID != 0 {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if filter.ActiveOnly {
		conds = append(conds, "p.is_active")
	}
	if filter.LowStock {
		conds = append(conds, "p.is_active AND p.stock <= p.min_stock")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM products p`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Pagination.PerPage, filter.Pagination.Offset())
	query := `SELECT ` + productColumns + ` FROM products p` + where +
		fmt.Sprintf(` ORDER BY p.name LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, *p)
	}
	return products, total, rows.Err()
}

// ListLowStock returns active products at or below their restock level.
func (r *Repository) ListLowStock(ctx context.Context) ([]Product, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+productColumns+` FROM products p WHERE p.is_active AND p.stock <= p.min_stock ORDER BY p.stock`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// Update rewrites the mutable product fields. Stock is excluded; it only
// changes through movements.
func (r *Repository) Update(ctx context.Context, p Product) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE products
		SET name = $1, category_id = $2, unit = $3, price = $4, cost_price = $5, min_stock = $6, is_active = $7, updated_at = NOW()
		WHERE code = $8`,
		p.Name, p.CategoryID, p.Unit, p.Price, p.CostPrice, p.MinStock, p.IsActive, p.Code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes a product outright. Callers must have checked for sale
// history first.
func (r *Repository) Delete(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM products WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Deactivate hides the product from sale without touching its history.
func (r *Repository) Deactivate(ctx context.Context, code string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE products SET is_active = FALSE, updated_at = NOW() WHERE code = $1`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// HasSaleHistory reports whether any sale line references the product.
func (r *Repository) HasSaleHistory(ctx context.Context, productID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sale_items WHERE product_id = $1)`, productID).Scan(&exists)
	return exists, err
}

// ListCategories returns all categories ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// CreateCategory inserts a category.
func (r *Repository) CreateCategory(ctx context.Context, name string) (*Category, error) {
	var c Category
	err := r.pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ($1) RETURNING id, name, created_at`, name).
		Scan(&c.ID, &c.Name, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *txRepo) InsertProduct(ctx context.Context, p Product) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO products (code, name, category_id, unit, price, cost_price, stock, min_stock, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
		p.Code, p.Name, p.CategoryID, p.Unit, p.Price, p.CostPrice, p.Stock, p.MinStock, p.IsActive).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrDuplicateCode
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepo) InsertMovement(ctx context.Context, m inventory.Movement) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO stock_movements (code, product_id, kind, quantity, stock_before, stock_after, reference_kind, reference_code, note, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.Code, m.ProductID, m.Kind, m.Quantity, m.StockBefore, m.StockAfter, m.Reference.Kind, m.Reference.Code, m.Note, m.ActorID)
	return err
}

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Code, &p.Name, &p.CategoryID, &p.Unit, &p.Price, &p.CostPrice, &p.Stock, &p.MinStock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
