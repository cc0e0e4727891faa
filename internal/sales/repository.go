package sales

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/kasirpos/kasirpos/internal/customers"
	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/platform/db"
	"github.com/kasirpos/kasirpos/internal/shared"
)

// SaleProduct is the slice of a product the sale engine needs while holding
// its row lock.
type SaleProduct struct {
	ID    int64
	Code  string
	Name  string
	Unit  string
	Price decimal.Decimal
	Stock int
}

// Repository persists sales in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes every write the sale engine performs. All of them
// commit or roll back together.
type TxRepository interface {
	GetProductForUpdate(ctx context.Context, code string) (SaleProduct, error)
	GetProductByIDForUpdate(ctx context.Context, productID int64) (SaleProduct, error)
	UpdateProductStock(ctx context.Context, productID int64, stock int) error
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) error
	InsertMovement(ctx context.Context, m inventory.Movement) error
	FindCustomerByPhone(ctx context.Context, phone string) (*customers.Customer, error)
	InsertCustomer(ctx context.Context, c customers.Customer) (int64, error)
	RecordCustomerPurchase(ctx context.Context, customerID int64, at time.Time) error
	GetSaleForUpdate(ctx context.Context, code string) (*Sale, error)
	DeleteSaleCascade(ctx context.Context, saleID int64) error
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

const saleColumns = `s.id, s.code, s.subtotal, s.tax, s.discount, s.total, s.payment_method, s.cash_received, s.change, s.customer_id, c.name, c.phone, s.notes, s.cashier_id, u.name, s.created_at`

const saleJoins = ` FROM sales s
	LEFT JOIN customers c ON c.id = s.customer_id
	LEFT JOIN users u ON u.id = s.cashier_id`

// GetByCode fetches a sale with its items.
func (r *Repository) GetByCode(ctx context.Context, code string) (*Sale, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+saleColumns+saleJoins+` WHERE s.code = $1`, code)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	items, err := r.listItems(ctx, r.pool, sale.ID)
	if err != nil {
		return nil, err
	}
	sale.Items = items
	return sale, nil
}

// List returns sales matching the filter, newest first, plus the unpaged
// total. Items are not loaded.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var (
		conds []string
		args  []any
	)
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("s.created_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("s.created_at < $%d", len(args)))
	}
	if filter.PaymentMethod != "" {
		args = append(args, filter.PaymentMethod)
		conds = append(conds, fmt.Sprintf("s.payment_method = $%d", len(args)))
	}
	if filter.CashierID != 0 {
		args = append(args, filter.CashierID)
		conds = append(conds, fmt.Sprintf("s.cashier_id = $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		conds = append(conds, fmt.Sprintf("(LOWER(s.code) LIKE $%d OR LOWER(c.name) LIKE $%d OR c.phone LIKE $%d)", len(args), len(args), len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+saleJoins+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Pagination.PerPage, filter.Pagination.Offset())
	query := `SELECT ` + saleColumns + saleJoins + where +
		fmt.Sprintf(` ORDER BY s.created_at DESC, s.id DESC LIMIT $%d OFFSET $%d`, len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, *sale)
	}
	return sales, total, rows.Err()
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *Repository) listItems(ctx context.Context, q queryer, saleID int64) ([]SaleItem, error) {
	rows, err := q.Query(ctx, `
		SELECT i.id, i.code, i.sale_id, i.product_id, p.code, i.product_name, i.unit, i.price, i.quantity, i.discount, i.line_total
		FROM sale_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.sale_id = $1
		ORDER BY i.id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.Code, &it.SaleID, &it.ProductID, &it.ProductCode, &it.ProductName, &it.Unit, &it.Price, &it.Quantity, &it.Discount, &it.LineTotal); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (r *txRepo) GetProductForUpdate(ctx context.Context, code string) (SaleProduct, error) {
	var p SaleProduct
	err := r.tx.QueryRow(ctx, `SELECT id, code, name, unit, price, stock FROM products WHERE code = $1 AND is_active FOR UPDATE`, code).
		Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleProduct{}, shared.ErrNotFound
		}
		return SaleProduct{}, err
	}
	return p, nil
}

// GetProductByIDForUpdate locks a product row regardless of its active flag.
// Cancellation restores stock even for products retired since the sale.
func (r *txRepo) GetProductByIDForUpdate(ctx context.Context, productID int64) (SaleProduct, error) {
	var p SaleProduct
	err := r.tx.QueryRow(ctx, `SELECT id, code, name, unit, price, stock FROM products WHERE id = $1 FOR UPDATE`, productID).
		Scan(&p.ID, &p.Code, &p.Name, &p.Unit, &p.Price, &p.Stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return SaleProduct{}, shared.ErrNotFound
		}
		return SaleProduct{}, err
	}
	return p, nil
}

func (r *txRepo) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	_, err := r.tx.Exec(ctx, `UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2`, stock, productID)
	return err
}

func (r *txRepo) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO sales (code, subtotal, tax, discount, total, payment_method, cash_received, change, customer_id, notes, cashier_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		sale.Code, sale.Subtotal, sale.Tax, sale.Discount, sale.Total, sale.PaymentMethod,
		sale.CashReceived, sale.Change, sale.CustomerID, sale.Notes, sale.CashierID, sale.CreatedAt).Scan(&id)
	return id, err
}

func (r *txRepo) InsertSaleItem(ctx context.Context, item SaleItem) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO sale_items (code, sale_id, product_id, product_name, unit, price, quantity, discount, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		item.Code, item.SaleID, item.ProductID, item.ProductName, item.Unit, item.Price, item.Quantity, item.Discount, item.LineTotal)
	return err
}

func (r *txRepo) InsertMovement(ctx context.Context, m inventory.Movement) error {
	_, err := r.tx.Exec(ctx, `
		INSERT INTO stock_movements (code, product_id, kind, quantity, stock_before, stock_after, reference_kind, reference_code, note, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.Code, m.ProductID, m.Kind, m.Quantity, m.StockBefore, m.StockAfter, m.Reference.Kind, m.Reference.Code, m.Note, m.ActorID)
	return err
}

func (r *txRepo) FindCustomerByPhone(ctx context.Context, phone string) (*customers.Customer, error) {
	var c customers.Customer
	err := r.tx.QueryRow(ctx, `
		SELECT id, code, name, phone, purchase_count, last_purchase_at, created_at, updated_at
		FROM customers WHERE phone = $1 FOR UPDATE`, phone).
		Scan(&c.ID, &c.Code, &c.Name, &c.Phone, &c.PurchaseCount, &c.LastPurchaseAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *txRepo) InsertCustomer(ctx context.Context, c customers.Customer) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `
		INSERT INTO customers (code, name, phone) VALUES ($1, $2, $3) RETURNING id`,
		c.Code, c.Name, c.Phone).Scan(&id)
	return id, err
}

func (r *txRepo) RecordCustomerPurchase(ctx context.Context, customerID int64, at time.Time) error {
	_, err := r.tx.Exec(ctx, `
		UPDATE customers SET purchase_count = purchase_count + 1, last_purchase_at = $1, updated_at = NOW() WHERE id = $2`,
		at, customerID)
	return err
}

func (r *txRepo) GetSaleForUpdate(ctx context.Context, code string) (*Sale, error) {
	row := r.tx.QueryRow(ctx, `
		SELECT s.id, s.code, s.subtotal, s.tax, s.discount, s.total, s.payment_method, s.cash_received, s.change, s.customer_id, s.notes, s.cashier_id, s.created_at
		FROM sales s WHERE s.code = $1 FOR UPDATE`, code)
	var sale Sale
	err := row.Scan(&sale.ID, &sale.Code, &sale.Subtotal, &sale.Tax, &sale.Discount, &sale.Total, &sale.PaymentMethod,
		&sale.CashReceived, &sale.Change, &sale.CustomerID, &sale.Notes, &sale.CashierID, &sale.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}

	rows, err := r.tx.Query(ctx, `
		SELECT i.id, i.code, i.sale_id, i.product_id, p.code, i.product_name, i.unit, i.price, i.quantity, i.discount, i.line_total
		FROM sale_items i
		JOIN products p ON p.id = i.product_id
		WHERE i.sale_id = $1
		ORDER BY i.id`, sale.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it SaleItem
		if err := rows.Scan(&it.ID, &it.Code, &it.SaleID, &it.ProductID, &it.ProductCode, &it.ProductName, &it.Unit, &it.Price, &it.Quantity, &it.Discount, &it.LineTotal); err != nil {
			return nil, err
		}
		sale.Items = append(sale.Items, it)
	}
	return &sale, rows.Err()
}

func (r *txRepo) DeleteSaleCascade(ctx context.Context, saleID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM print_logs WHERE sale_id = $1`, saleID); err != nil {
		return err
	}
	if _, err := r.tx.Exec(ctx, `DELETE FROM sale_items WHERE sale_id = $1`, saleID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE id = $1`, saleID)
	return err
}

type saleScanner interface {
	Scan(dest ...any) error
}

func scanSale(row saleScanner) (*Sale, error) {
	var (
		sale          Sale
		customerName  *string
		customerPhone *string
		cashierName   *string
	)
	err := row.Scan(&sale.ID, &sale.Code, &sale.Subtotal, &sale.Tax, &sale.Discount, &sale.Total, &sale.PaymentMethod,
		&sale.CashReceived, &sale.Change, &sale.CustomerID, &customerName, &customerPhone, &sale.Notes,
		&sale.CashierID, &cashierName, &sale.CreatedAt)
	if err != nil {
		return nil, err
	}
	if customerName != nil {
		sale.CustomerName = *customerName
	}
	if customerPhone != nil {
		sale.CustomerPhone = *customerPhone
	}
	if cashierName != nil {
		sale.CashierName = *cashierName
	}
	return &sale, nil
}
