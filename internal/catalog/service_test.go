package catalog

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kasirpos/kasirpos/internal/inventory"
	"github.com/kasirpos/kasirpos/internal/shared"
)

type memoryRepo struct {
	products   map[string]*Product
	movements  []inventory.Movement
	categories []Category
	soldIDs    map[int64]bool
	nextID     int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[string]*Product), soldIDs: make(map[int64]bool)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetByCode(ctx context.Context, code string) (*Product, error) {
	p, ok := r.products[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	clone := *p
	return &clone, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	var out []Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, len(out), nil
}

func (r *memoryRepo) ListLowStock(ctx context.Context) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if p.LowOnStock() {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memoryRepo) Update(ctx context.Context, p Product) error {
	stored, ok := r.products[p.Code]
	if !ok {
		return shared.ErrNotFound
	}
	p.ID = stored.ID
	p.Stock = stored.Stock
	r.products[p.Code] = &p
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, code string) error {
	if _, ok := r.products[code]; !ok {
		return shared.ErrNotFound
	}
	delete(r.products, code)
	return nil
}

func (r *memoryRepo) Deactivate(ctx context.Context, code string) error {
	p, ok := r.products[code]
	if !ok {
		return shared.ErrNotFound
	}
	p.IsActive = false
	return nil
}

func (r *memoryRepo) HasSaleHistory(ctx context.Context, productID int64) (bool, error) {
	return r.soldIDs[productID], nil
}

func (r *memoryRepo) ListCategories(ctx context.Context) ([]Category, error) {
	return r.categories, nil
}

func (r *memoryRepo) CreateCategory(ctx context.Context, name string) (*Category, error) {
	c := Category{ID: int64(len(r.categories) + 1), Name: name}
	r.categories = append(r.categories, c)
	return &c, nil
}

func (tx *memoryTx) InsertProduct(ctx context.Context, p Product) (int64, error) {
	if _, ok := tx.repo.products[p.Code]; ok {
		return 0, ErrDuplicateCode
	}
	tx.repo.nextID++
	p.ID = tx.repo.nextID
	tx.repo.products[p.Code] = &p
	return p.ID, nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, m inventory.Movement) error {
	tx.repo.movements = append(tx.repo.movements, m)
	return nil
}

func newTestService(repo RepositoryPort) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codes := shared.NewCodeGenerator(shared.SystemClock{})
	return NewService(repo, codes, logger)
}

func testActor() shared.Actor {
	return shared.Actor{ID: 1, Username: "owner", Name: "Owner", Role: shared.RoleOwner}
}

func TestCreateProductRecordsInitialStock(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	product, err := svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code:         "PRD-001",
		Name:         "Kopi Susu",
		CategoryID:   1,
		Unit:         "pcs",
		Price:        decimal.NewFromInt(15000),
		InitialStock: 10,
		MinStock:     3,
	})
	require.NoError(t, err)
	require.Equal(t, 10, product.Stock)
	require.True(t, product.IsActive)

	require.Len(t, repo.movements, 1)
	m := repo.movements[0]
	require.Equal(t, inventory.MovementIn, m.Kind)
	require.Equal(t, 10, m.Quantity)
	require.Equal(t, 0, m.StockBefore)
	require.Equal(t, 10, m.StockAfter)
	require.Equal(t, "Initial stock", m.Note)
	require.True(t, m.Reference.IsZero())
}

func TestCreateProductWithoutStockSkipsMovement(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code:       "PRD-002",
		Name:       "Teh Botol",
		CategoryID: 1,
		Unit:       "pcs",
		Price:      decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	require.Empty(t, repo.movements)
}

func TestCreateProductRejectsDuplicateCode(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	req := CreateProductRequest{Code: "PRD-001", Name: "Kopi", CategoryID: 1, Unit: "pcs", Price: decimal.NewFromInt(1000)}
	_, err := svc.CreateProduct(context.Background(), testActor(), req)
	require.NoError(t, err)

	_, err = svc.CreateProduct(context.Background(), testActor(), req)
	require.ErrorIs(t, err, ErrDuplicateCode)
}

func TestCreateProductRejectsNegativePrice(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code:       "PRD-003",
		Name:       "Rusak",
		CategoryID: 1,
		Unit:       "pcs",
		Price:      decimal.NewFromInt(-5),
	})
	var verr ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestUpdateProductLeavesStockAlone(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code: "PRD-001", Name: "Kopi", CategoryID: 1, Unit: "pcs",
		Price: decimal.NewFromInt(15000), InitialStock: 7,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProduct(context.Background(), testActor(), "PRD-001", UpdateProductRequest{
		Name: "Kopi Hitam", CategoryID: 1, Unit: "pcs", Price: decimal.NewFromInt(17000), MinStock: 2,
	})
	require.NoError(t, err)
	require.Equal(t, "Kopi Hitam", updated.Name)
	require.Equal(t, 7, updated.Stock)
}

func TestDeleteProductWithHistoryDeactivates(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	p, err := svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code: "PRD-001", Name: "Kopi", CategoryID: 1, Unit: "pcs", Price: decimal.NewFromInt(15000),
	})
	require.NoError(t, err)
	repo.soldIDs[p.ID] = true

	removed, err := svc.DeleteProduct(context.Background(), testActor(), "PRD-001")
	require.NoError(t, err)
	require.False(t, removed)

	kept, err := svc.GetProduct(context.Background(), "PRD-001")
	require.NoError(t, err)
	require.False(t, kept.IsActive)
}

func TestDeleteProductWithoutHistoryRemoves(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code: "PRD-001", Name: "Kopi", CategoryID: 1, Unit: "pcs", Price: decimal.NewFromInt(15000),
	})
	require.NoError(t, err)

	removed, err := svc.DeleteProduct(context.Background(), testActor(), "PRD-001")
	require.NoError(t, err)
	require.True(t, removed)

	_, err = svc.GetProduct(context.Background(), "PRD-001")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestLowStockListing(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code: "PRD-001", Name: "Kopi", CategoryID: 1, Unit: "pcs",
		Price: decimal.NewFromInt(15000), InitialStock: 2, MinStock: 5,
	})
	require.NoError(t, err)
	_, err = svc.CreateProduct(context.Background(), testActor(), CreateProductRequest{
		Code: "PRD-002", Name: "Teh", CategoryID: 1, Unit: "pcs",
		Price: decimal.NewFromInt(5000), InitialStock: 50, MinStock: 5,
	})
	require.NoError(t, err)

	low, err := svc.ListLowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, low, 1)
	require.Equal(t, "PRD-001", low[0].Code)
}
