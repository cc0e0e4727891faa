package sales

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/customers"
	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/shared"
)

type storedProduct struct {
	SaleProduct
	active bool
}

type memoryRepo struct {
	products  map[string]*storedProduct
	sales     map[string]*Sale
	movements []inventory.Movement
	customers map[string]*customers.Customer
	printLogs map[int64]int
	nextID    int64

	failuresLeft int
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo(products ...SaleProduct) *memoryRepo {
	repo := &memoryRepo{
		products:  make(map[string]*storedProduct),
		sales:     make(map[string]*Sale),
		customers: make(map[string]*customers.Customer),
		printLogs: make(map[int64]int),
	}
	for _, p := range products {
		repo.products[p.Code] = &storedProduct{SaleProduct: p, active: true}
	}
	return repo
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.failuresLeft > 0 {
		r.failuresLeft--
		return &pgconn.PgError{Code: "40001"}
	}
	snapshot := r.clone()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(snapshot)
		return err
	}
	return nil
}

func (r *memoryRepo) clone() *memoryRepo {
	cp := newMemoryRepo()
	for code, p := range r.products {
		sp := *p
		cp.products[code] = &sp
	}
	for code, s := range r.sales {
		sc := *s
		sc.Items = append([]SaleItem(nil), s.Items...)
		cp.sales[code] = &sc
	}
	cp.movements = append([]inventory.Movement(nil), r.movements...)
	for phone, c := range r.customers {
		cc := *c
		cp.customers[phone] = &cc
	}
	for id, n := range r.printLogs {
		cp.printLogs[id] = n
	}
	cp.nextID = r.nextID
	return cp
}

func (r *memoryRepo) restore(snapshot *memoryRepo) {
	r.products = snapshot.products
	r.sales = snapshot.sales
	r.movements = snapshot.movements
	r.customers = snapshot.customers
	r.printLogs = snapshot.printLogs
	r.nextID = snapshot.nextID
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (*Sale, error) {
	if s, ok := r.sales[code]; ok {
		clone := *s
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Sale, int, error) {
	var out []Sale
	for _, s := range r.sales {
		if filter.CashierID != 0 && s.CashierID != filter.CashierID {
			continue
		}
		out = append(out, *s)
	}
	return out, len(out), nil
}

func (tx *memoryTx) GetProductForUpdate(ctx context.Context, code string) (SaleProduct, error) {
	p, ok := tx.repo.products[code]
	if !ok || !p.active {
		return SaleProduct{}, shared.ErrNotFound
	}
	return p.SaleProduct, nil
}

func (tx *memoryTx) GetProductByIDForUpdate(ctx context.Context, productID int64) (SaleProduct, error) {
	for _, p := range tx.repo.products {
		if p.ID == productID {
			return p.SaleProduct, nil
		}
	}
	return SaleProduct{}, shared.ErrNotFound
}

func (tx *memoryTx) UpdateProductStock(ctx context.Context, productID int64, stock int) error {
	for _, p := range tx.repo.products {
		if p.ID == productID {
			p.Stock = stock
			return nil
		}
	}
	return shared.ErrNotFound
}

func (tx *memoryTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	tx.repo.nextID++
	sale.ID = tx.repo.nextID
	tx.repo.sales[sale.Code] = &sale
	return sale.ID, nil
}

func (tx *memoryTx) InsertSaleItem(ctx context.Context, item SaleItem) error {
	for _, s := range tx.repo.sales {
		if s.ID == item.SaleID {
			tx.repo.nextID++
			item.ID = tx.repo.nextID
			s.Items = append(s.Items, item)
			return nil
		}
	}
	return shared.ErrNotFound
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m inventory.Movement) error {
	tx.repo.movements = append(tx.repo.movements, m)
	return nil
}

func (tx *memoryTx) FindCustomerByPhone(ctx context.Context, phone string) (*customers.Customer, error) {
	if c, ok := tx.repo.customers[phone]; ok {
		clone := *c
		return &clone, nil
	}
	return nil, shared.ErrNotFound
}

func (tx *memoryTx) InsertCustomer(ctx context.Context, c customers.Customer) (int64, error) {
	tx.repo.nextID++
	c.ID = tx.repo.nextID
	tx.repo.customers[c.Phone] = &c
	return c.ID, nil
}

func (tx *memoryTx) RecordCustomerPurchase(ctx context.Context, customerID int64, at time.Time) error {
	for _, c := range tx.repo.customers {
		if c.ID == customerID {
			c.PurchaseCount++
			t := at
			c.LastPurchaseAt = &t
			return nil
		}
	}
	return shared.ErrNotFound
}

func (tx *memoryTx) GetSaleForUpdate(ctx context.Context, code string) (*Sale, error) {
	return tx.repo.GetByCode(ctx, code)
}

func (tx *memoryTx) DeleteSaleCascade(ctx context.Context, saleID int64) error {
	for code, s := range tx.repo.sales {
		if s.ID == saleID {
			delete(tx.repo.sales, code)
			delete(tx.repo.printLogs, saleID)
			return nil
		}
	}
	return shared.ErrNotFound
}

func newTestService(repo RepositoryPort) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := shared.FixedClock{Instant: time.Date(2025, 8, 29, 10, 0, 0, 0, time.UTC)}
	return NewService(repo, shared.NewCodeGenerator(clock), clock, logger)
}

func owner() shared.Actor {
	return shared.Actor{ID: 1, Username: "pemilik", Name: "Pemilik", Role: shared.RoleOwner}
}

func cashier() shared.Actor {
	return shared.Actor{ID: 2, Username: "kasir", Name: "Kasir", Role: shared.RoleEmployee}
}

func money(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func TestCreateSaleCashHappyPath(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi Susu", Unit: "pcs", Price: money(15000), Stock: 10})
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 3}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(50000),
	})
	require.NoError(t, err)

	require.True(t, sale.Subtotal.Equal(money(45000)))
	require.True(t, sale.Total.Equal(money(45000)))
	require.True(t, sale.Change.Equal(money(5000)))
	require.Equal(t, 7, repo.products["PRD-001"].Stock)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	require.Equal(t, inventory.MovementOut, m.Kind)
	require.Equal(t, 3, m.Quantity)
	require.Equal(t, 10, m.StockBefore)
	require.Equal(t, 7, m.StockAfter)
	require.Equal(t, inventory.ReferenceSale, m.Reference.Kind)
	require.Equal(t, sale.Code, m.Reference.Code)

	stored, err := repo.GetByCode(context.Background(), sale.Code)
	require.NoError(t, err)
	require.Len(t, stored.Items, 1)
	require.True(t, stored.Items[0].LineTotal.Equal(money(45000)))
}

func TestCreateSaleInsufficientStock(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi Susu", Unit: "pcs", Price: money(15000), Stock: 7})
	svc := newTestService(repo)

	_, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 8}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(200000),
	})
	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, "PRD-001", stockErr.ProductCode)
	require.Equal(t, 7, stockErr.Available)

	// nothing committed
	require.Equal(t, 7, repo.products["PRD-001"].Stock)
	require.Empty(t, repo.movements)
	require.Empty(t, repo.sales)
}

func TestCreateSaleDuplicateLinesShareStock(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(1000), Stock: 5})
	svc := newTestService(repo)

	_, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items: []CartLine{
			{ProductCode: "PRD-001", Quantity: 3},
			{ProductCode: "PRD-001", Quantity: 3},
		},
		PaymentMethod: PaymentCash,
		CashReceived:  money(10000),
	})
	var stockErr InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Equal(t, 2, stockErr.Available)
	require.Equal(t, 5, repo.products["PRD-001"].Stock)
}

func TestCreateSaleCashUnderpaidRollsBack(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(15000), Stock: 10})
	svc := newTestService(repo)

	_, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 3}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(40000),
	})
	var payErr InsufficientPaymentError
	require.ErrorAs(t, err, &payErr)
	require.True(t, payErr.Total.Equal(money(45000)))

	require.Equal(t, 10, repo.products["PRD-001"].Stock)
	require.Empty(t, repo.movements)
}

func TestCreateSaleNonCashIgnoresCashReceived(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(15000), Stock: 10})
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 2}},
		PaymentMethod: PaymentCard,
	})
	require.NoError(t, err)
	require.True(t, sale.CashReceived.Equal(money(30000)))
	require.True(t, sale.Change.IsZero())
}

func TestCreateSaleTaxAndDiscounts(t *testing.T) {
	repo := newMemoryRepo(
		SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(10000), Stock: 10},
		SaleProduct{ID: 2, Code: "PRD-002", Name: "Teh", Unit: "pcs", Price: money(5000), Stock: 10},
	)
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items: []CartLine{
			{ProductCode: "PRD-001", Quantity: 2, Discount: money(2000)},
			{ProductCode: "PRD-002", Quantity: 1},
		},
		Tax:           money(2300),
		Discount:      money(300),
		PaymentMethod: PaymentCash,
		CashReceived:  money(25000),
	})
	require.NoError(t, err)
	// (2*10000 - 2000) + 5000 = 23000; 23000 + 2300 - 300 = 25000
	require.True(t, sale.Subtotal.Equal(money(23000)))
	require.True(t, sale.Total.Equal(money(25000)))
	require.True(t, sale.Change.IsZero())
}

func TestCreateSaleRejectsLineDiscountAboveGross(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(1000), Stock: 10})
	svc := newTestService(repo)

	_, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1, Discount: money(1500)}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(10000),
	})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, 0, verr.Line)
}

func TestCreateSaleRejectsNegativeTotal(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(1000), Stock: 10})
	svc := newTestService(repo)

	_, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1}},
		Discount:      money(5000),
		PaymentMethod: PaymentCash,
		CashReceived:  money(10000),
	})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, 10, repo.products["PRD-001"].Stock)
}

func TestCreateSaleUnknownProduct(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "NOPE", Quantity: 1}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(10000),
	})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestCreateSaleCreatesAndBumpsCustomer(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(1000), Stock: 10})
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(1000),
		CustomerPhone: "0812345678",
		CustomerName:  "Budi",
	})
	require.NoError(t, err)
	require.NotNil(t, sale.CustomerID)
	require.Equal(t, "Budi", sale.CustomerName)

	c := repo.customers["0812345678"]
	require.NotNil(t, c)
	require.Equal(t, 1, c.PurchaseCount)
	require.NotNil(t, c.LastPurchaseAt)

	// second sale with the same phone reuses the record
	_, err = svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(1000),
		CustomerPhone: "0812345678",
	})
	require.NoError(t, err)
	require.Equal(t, 2, repo.customers["0812345678"].PurchaseCount)
	require.Len(t, repo.customers, 1)
}

func TestCreateSaleRetriesSerializationFailure(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(1000), Stock: 10})
	repo.failuresLeft = 2
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(1000),
	})
	require.NoError(t, err)
	require.Equal(t, 9, repo.products["PRD-001"].Stock)
	require.NotNil(t, sale)
}

func TestCreateSaleGivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(1000), Stock: 10})
	repo.failuresLeft = 5
	svc := newTestService(repo)

	_, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(1000),
	})
	require.Error(t, err)
	require.Equal(t, 10, repo.products["PRD-001"].Stock)
}

func TestCancelSaleRestoresStock(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(15000), Stock: 10})
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 3}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(50000),
	})
	require.NoError(t, err)
	require.Equal(t, 7, repo.products["PRD-001"].Stock)

	require.NoError(t, svc.CancelSale(context.Background(), owner(), sale.Code))
	require.Equal(t, 10, repo.products["PRD-001"].Stock)

	_, err = repo.GetByCode(context.Background(), sale.Code)
	require.ErrorIs(t, err, shared.ErrNotFound)

	require.Len(t, repo.movements, 2)
	comp := repo.movements[1]
	require.Equal(t, inventory.MovementIn, comp.Kind)
	require.Equal(t, inventory.ReferenceCancellation, comp.Reference.Kind)
	require.Equal(t, sale.Code, comp.Reference.Code)
	require.Equal(t, 7, comp.StockBefore)
	require.Equal(t, 10, comp.StockAfter)
}

func TestCancelSaleRestoresDeactivatedProduct(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(15000), Stock: 10})
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 3}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(50000),
	})
	require.NoError(t, err)

	repo.products["PRD-001"].active = false

	require.NoError(t, svc.CancelSale(context.Background(), owner(), sale.Code))
	require.Equal(t, 10, repo.products["PRD-001"].Stock)
}

func TestCancelSaleForbiddenForEmployee(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(15000), Stock: 10})
	svc := newTestService(repo)

	sale, err := svc.CreateSale(context.Background(), cashier(), CreateSaleRequest{
		Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1}},
		PaymentMethod: PaymentCash,
		CashReceived:  money(15000),
	})
	require.NoError(t, err)

	err = svc.CancelSale(context.Background(), cashier(), sale.Code)
	require.ErrorIs(t, err, shared.ErrForbidden)
	require.Equal(t, 9, repo.products["PRD-001"].Stock)
}

func TestCancelUnknownSale(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	err := svc.CancelSale(context.Background(), owner(), "TRX-20250829-XXXXXX")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestEmployeeSeesOnlyOwnSales(t *testing.T) {
	repo := newMemoryRepo(SaleProduct{ID: 1, Code: "PRD-001", Name: "Kopi", Unit: "pcs", Price: money(1000), Stock: 100})
	svc := newTestService(repo)

	mkSale := func(actor shared.Actor) *Sale {
		sale, err := svc.CreateSale(context.Background(), actor, CreateSaleRequest{
			Items:         []CartLine{{ProductCode: "PRD-001", Quantity: 1}},
			PaymentMethod: PaymentCash,
			CashReceived:  money(1000),
		})
		require.NoError(t, err)
		return sale
	}
	ownSale := mkSale(cashier())
	otherSale := mkSale(owner())

	listed, _, err := svc.ListSales(context.Background(), cashier(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Equal(t, cashier().ID, listed[0].CashierID)

	_, err = svc.GetSale(context.Background(), cashier(), otherSale.Code)
	require.ErrorIs(t, err, shared.ErrForbidden)

	got, err := svc.GetSale(context.Background(), cashier(), ownSale.Code)
	require.NoError(t, err)
	require.Equal(t, ownSale.Code, got.Code)

	all, _, err := svc.ListSales(context.Background(), owner(), ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
