package catalog_test

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/store-market/internal/catalog"
	"github.com/vasiliy-maslov/store-market/internal/db/dbtest"
)

var testDB *dbtest.Database

func TestMain(m *testing.M) {
	os.Exit(dbtest.Run(m, "catalog_test", &testDB))
}

func newTestRepository(t *testing.T) (catalog.Repository, *pgxpool.Pool) {
	t.Helper()
	pool := dbtest.RequirePool(t, testDB)

	sqlDB := stdlib.OpenDBFromPool(pool)
	t.Cleanup(func() {
		dbtest.Truncate(t, pool, "supplier_products", "suppliers", "products", "categories")
		_ = sqlDB.Close()
	})

	return catalog.NewRepository(sqlDB), pool
}

func createCategory(t *testing.T, repo catalog.Repository, name string) *catalog.Category {
	t.Helper()
	category := &catalog.Category{Name: name}
	require.NoError(t, repo.CreateCategory(context.Background(), category))
	return category
}

func createProduct(t *testing.T, repo catalog.Repository, name, price string, categoryID int64) *catalog.Product {
	t.Helper()
	product := &catalog.Product{
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Quantity:   10,
		CategoryID: categoryID,
	}
	require.NoError(t, repo.CreateProduct(context.Background(), product))
	return product
}

func TestCatalogRepository_DeleteCategory_Protected(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	category := createCategory(t, repo, "Lamps")
	product := createProduct(t, repo, "Desk lamp", "19.99", category.ID)

	err := repo.DeleteCategory(ctx, category.ID)
	require.ErrorIs(t, err, catalog.ErrCategoryInUse)

	foundCategory, err := repo.GetCategory(ctx, category.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamps", foundCategory.Name)

	foundProduct, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("19.99").Equal(foundProduct.Price))
}

func TestCatalogRepository_DeleteCategory_Empty(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	category := createCategory(t, repo, "Empty")

	require.NoError(t, repo.DeleteCategory(ctx, category.ID))
	require.ErrorIs(t, repo.DeleteCategory(ctx, category.ID), catalog.ErrCategoryNotFound)
}

func TestCatalogRepository_CreateCategory_Duplicate(t *testing.T) {
	repo, _ := newTestRepository(t)

	createCategory(t, repo, "Books")
	err := repo.CreateCategory(context.Background(), &catalog.Category{Name: "Books"})
	require.ErrorIs(t, err, catalog.ErrCategoryExists)
}

func TestCatalogRepository_CreateProduct_UnknownCategory(t *testing.T) {
	repo, _ := newTestRepository(t)

	err := repo.CreateProduct(context.Background(), &catalog.Product{
		Name:       "Ghost",
		Price:      decimal.RequireFromString("1.00"),
		CategoryID: 404,
	})
	require.ErrorIs(t, err, catalog.ErrCategoryNotFound)
}

func TestCatalogRepository_ListProducts_OrderAndFilter(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	lamps := createCategory(t, repo, "Lamps")
	books := createCategory(t, repo, "Books")
	createProduct(t, repo, "Zebra lamp", "30.00", lamps.ID)
	createProduct(t, repo, "Arc lamp", "25.50", lamps.ID)
	createProduct(t, repo, "Go book", "40.00", books.ID)

	all, err := repo.ListProducts(ctx, nil, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Arc lamp", "Go book", "Zebra lamp"}, []string{all[0].Name, all[1].Name, all[2].Name})

	onlyLamps, err := repo.ListProducts(ctx, &lamps.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, onlyLamps, 2)

	secondPage, err := repo.ListProducts(ctx, nil, 2, 2)
	require.NoError(t, err)
	require.Len(t, secondPage, 1)
	assert.Equal(t, "Zebra lamp", secondPage[0].Name)

	total, err := repo.CountProducts(ctx, &books.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestCatalogRepository_UpdateProductPrice(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	category := createCategory(t, repo, "Lamps")
	product := createProduct(t, repo, "Desk lamp", "100.00", category.ID)

	require.NoError(t, repo.UpdateProductPrice(ctx, product.ID, decimal.RequireFromString("200.00")))

	found, err := repo.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("200").Equal(found.Price))

	require.ErrorIs(t, repo.UpdateProductPrice(ctx, 999, decimal.NewFromInt(1)), catalog.ErrProductNotFound)
}

func TestCatalogRepository_Suppliers(t *testing.T) {
	repo, _ := newTestRepository(t)
	ctx := context.Background()

	category := createCategory(t, repo, "Lamps")
	product := createProduct(t, repo, "Desk lamp", "10.00", category.ID)

	supplier := &catalog.Supplier{Name: "Acme", City: "Moscow"}
	require.NoError(t, repo.CreateSupplier(ctx, supplier))

	require.NoError(t, repo.LinkSupplierProduct(ctx, supplier.ID, product.ID))
	require.NoError(t, repo.LinkSupplierProduct(ctx, supplier.ID, product.ID))
	require.ErrorIs(t, repo.LinkSupplierProduct(ctx, supplier.ID, 999), catalog.ErrProductNotFound)
	require.ErrorIs(t, repo.LinkSupplierProduct(ctx, 999, product.ID), catalog.ErrSupplierNotFound)

	suppliers, err := repo.ListSuppliers(ctx)
	require.NoError(t, err)
	require.Len(t, suppliers, 1)
	assert.Equal(t, []int64{product.ID}, suppliers[0].ProductIDs)

	require.NoError(t, repo.DeleteSupplier(ctx, supplier.ID))
	require.ErrorIs(t, repo.DeleteSupplier(ctx, supplier.ID), catalog.ErrSupplierNotFound)
}
