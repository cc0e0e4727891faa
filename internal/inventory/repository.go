package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kasirpos/kasirpos/internal/platform/db"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// ProductStock is the slice of a product the ledger needs while holding its
// row lock.
type ProductStock struct {
	ID    int64
	Code  string
	Name  string
	Stock int
}

// Repository persists the stock ledger in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by the service.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, code string) (ProductStock, error)
	UpdateProductStock(ctx context.Context, productID int64, stock int) error
	InsertMovement(ctx context.Context, m Movement) (int64, error)
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

const movementColumns = `m.id, m.code, m.product_id, p.code, p.name, m.kind, m.quantity, m.stock_before, m.stock_after, m.reference_kind, m.reference_code, m.note, m.actor_id, u.name, m.created_at`

// movementListSQL builds the count and page queries for a ledger listing.
// Split out from List so the filter grammar is testable without a database.
//
// Free-text search covers product code and name, movement code, reference,
// note, and actor name. The page is ordered by id, not created_at: ids are
// assigned while the product row lock is held, so id order always matches
// the stock snapshots even when transaction-start timestamps interleave.
func movementListSQL(filter ListFilter) (countSQL, listSQL string, args []any) {
	var conds []string
	if filter.ProductCode != "" {
		args = append(args, filter.ProductCode)
		conds = append(conds, fmt.Sprintf("p.code = $%d", len(args)))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		conds = append(conds, fmt.Sprintf("m.kind = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf(
			"(LOWER(p.code) LIKE $%d OR LOWER(p.name) LIKE $%d OR LOWER(m.code) LIKE $%d OR LOWER(m.reference_code) LIKE $%d OR LOWER(m.note) LIKE $%d OR LOWER(COALESCE(u.name, '')) LIKE $%d)",
			n, n, n, n, n, n))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("m.created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("m.created_at < $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	from := ` FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		LEFT JOIN users u ON u.id = m.actor_id`

	countSQL = `SELECT COUNT(*)` + from + where
	args = append(args, filter.Pagination.PerPage, filter.Pagination.Offset())
	listSQL = `SELECT ` + movementColumns + from + where +
		fmt.Sprintf(` ORDER BY m.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	return countSQL, listSQL, args
}

// List returns ledger entries matching the filter, newest first, plus the
// unpaged total.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Movement, int, error) {
	countSQL, listSQL, args := movementListSQL(filter)

	var total int
	if err := r.pool.QueryRow(ctx, countSQL, args[:len(args)-2]...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var movements []Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, 0, err
		}
		movements = append(movements, m)
	}
	return movements, total, rows.Err()
}

// GetByCode fetches a single ledger entry.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Movement, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+movementColumns+` FROM stock_movements m
		JOIN products p ON p.id = m.product_id
		LEFT JOIN users u ON u.id = m.actor_id
		WHERE m.code = $1`, code)
	m, err := scanMovement(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, code string) (ProductStock, error) {
	var p ProductStock
	err := r.tx.QueryRow(ctx, `SELECT id, code, name, stock FROM products WHERE code = $1 AND is_active FOR UPDATE`, code).
		Scan(&p.ID, &p.Code, &p.Name, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductStock{}, shared.ErrNotFound
		}
		return ProductStock{}, err
	}
	return p, nil
}

func (r *txRepo) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2`, stock, productID)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO stock_movements (code, product_id, kind, quantity, stock_before, stock_after, reference_kind, reference_code, note, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		m.Code, m.ProductID, m.Kind, m.Quantity, m.StockBefore, m.StockAfter, m.Reference.Kind, m.Reference.Code, m.Note, m.ActorID).Scan(&id)
	return id, err
}

type movementScanner interface {
	Scan(dest ...any) error
}

func scanMovement(row movementScanner) (Movement, error) {
	var (
		m         Movement
		actorName *string
	)
	err := row.Scan(&m.ID, &m.Code, &m.ProductID, &m.ProductCode, &m.ProductName, &m.Kind, &m.Quantity,
		&m.StockBefore, &m.StockAfter, &m.Reference.Kind, &m.Reference.Code, &m.Note, &m.ActorID, &actorName, &m.CreatedAt)
	if err != nil {
		return Movement{}, err
	}
	if actorName != nil {
		m.ActorName = *actorName
	}
	return m, nil
}
