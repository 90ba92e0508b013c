package order_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/store-market/internal/access"
	"github.com/vasiliy-maslov/store-market/internal/cart"
	"github.com/vasiliy-maslov/store-market/internal/db/dbtest"
	"github.com/vasiliy-maslov/store-market/internal/order"
)

var testDB *dbtest.Database

func TestMain(m *testing.M) {
	os.Exit(dbtest.Run(m, "order_test", &testDB))
}

type fixture struct {
	pool     *pgxpool.Pool
	userID   int64
	productA int64
	productB int64
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	pool := dbtest.RequirePool(t, testDB)
	ctx := context.Background()

	t.Cleanup(func() {
		dbtest.Truncate(t, pool, "orders", "cart_lines", "products", "categories", "users")
	})

	f := fixture{pool: pool}
	var categoryID int64
	require.NoError(t, pool.QueryRow(ctx, `INSERT INTO categories (name) VALUES ('Misc') RETURNING id`).Scan(&categoryID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, price, quantity, category_id) VALUES ('A', 10.00, 5, $1) RETURNING id`, categoryID).Scan(&f.productA))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (name, price, quantity, category_id) VALUES ('B', 5.00, 5, $1) RETURNING id`, categoryID).Scan(&f.productB))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash) VALUES ('buyer', 'buyer@example.com', 'x') RETURNING id`).Scan(&f.userID))

	return f
}

func buyerFor(f fixture) access.Caller {
	return access.Caller{UserID: f.userID}
}

// fillCart кладёт в корзину A x2 и B x3 (итого 35.00).
func fillCart(t *testing.T, f fixture) {
	t.Helper()
	carts := cart.NewRepository(f.pool)
	for i := 0; i < 2; i++ {
		_, err := carts.AddProduct(context.Background(), f.userID, f.productA)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := carts.AddProduct(context.Background(), f.userID, f.productB)
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, query string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, pool.QueryRow(context.Background(), query, args...).Scan(&n))
	return n
}

func TestOrderCheckout_ProducesOrderAndEmptiesCart(t *testing.T) {
	f := newFixture(t)
	fillCart(t, f)
	svc := order.NewService(order.NewRepository(f.pool))

	placed, err := svc.Checkout(context.Background(), buyerFor(f), validRecipient())
	require.NoError(t, err)

	assert.NotZero(t, placed.ID)
	assert.False(t, placed.CreatedAt.IsZero())
	assert.Equal(t, int64(35), placed.ToPay)
	assert.Equal(t, int64(3500), placed.ToPayMinor)
	assert.Len(t, placed.Items, 2)

	assert.Equal(t, 0, countRows(t, f.pool, `SELECT count(*) FROM cart_lines WHERE user_id = $1`, f.userID))
	assert.Equal(t, 1, countRows(t, f.pool, `SELECT count(*) FROM orders WHERE user_id = $1`, f.userID))
}

func TestOrderCheckout_EmptyCartCreatesNothing(t *testing.T) {
	f := newFixture(t)
	svc := order.NewService(order.NewRepository(f.pool))

	_, err := svc.Checkout(context.Background(), buyerFor(f), validRecipient())
	require.ErrorIs(t, err, order.ErrEmptyCart)
	assert.Equal(t, 0, countRows(t, f.pool, `SELECT count(*) FROM orders`))
}

func TestOrderCheckout_FailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	fillCart(t, f)
	repo := order.NewRepository(f.pool)

	buildErr := errors.New("snapshot failed")
	_, err := repo.PlaceOrder(context.Background(), f.userID, func(lines []cart.Line) (*order.Order, error) {
		require.Len(t, lines, 2)
		return nil, buildErr
	})
	require.ErrorIs(t, err, buildErr)

	// заказ с невалидным статусом нарушает CHECK и откатывает транзакцию
	_, err = repo.PlaceOrder(context.Background(), f.userID, func(lines []cart.Line) (*order.Order, error) {
		return &order.Order{Recipient: validRecipient(), Status: order.Status(9), Items: cart.Serialize(lines)}, nil
	})
	require.Error(t, err)

	assert.Equal(t, 2, countRows(t, f.pool, `SELECT count(*) FROM cart_lines WHERE user_id = $1`, f.userID))
	assert.Equal(t, 0, countRows(t, f.pool, `SELECT count(*) FROM orders`))
}

func TestOrderCheckout_SnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.pool.Exec(ctx, `UPDATE products SET price = 100.00 WHERE id = $1`, f.productA)
	require.NoError(t, err)
	_, err = cart.NewRepository(f.pool).AddProduct(ctx, f.userID, f.productA)
	require.NoError(t, err)

	repo := order.NewRepository(f.pool)
	svc := order.NewService(repo)
	placed, err := svc.Checkout(ctx, buyerFor(f), validRecipient())
	require.NoError(t, err)
	require.Equal(t, int64(100), placed.ToPay)

	_, err = f.pool.Exec(ctx, `UPDATE products SET price = 200.00 WHERE id = $1`, f.productA)
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), stored.ToPay)
	assert.Equal(t, int64(10000), stored.ToPayMinor)
	require.Len(t, stored.Items, 1)
	assert.Equal(t, 100.0, stored.Items[0].ProductPrice)
	assert.Equal(t, 100.0, stored.Items[0].Price)
	assert.Equal(t, "A", stored.Items[0].ProductName)
}

func TestOrderCheckout_ConcurrentCheckoutsProduceOneOrder(t *testing.T) {
	f := newFixture(t)
	fillCart(t, f)
	svc := order.NewService(order.NewRepository(f.pool))

	const attempts = 5
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		empty     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(context.Background(), buyerFor(f), validRecipient())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, order.ErrEmptyCart):
				empty++
			default:
				t.Errorf("unexpected checkout error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, empty)
	assert.Equal(t, 1, countRows(t, f.pool, `SELECT count(*) FROM orders`))
	assert.Equal(t, 0, countRows(t, f.pool, `SELECT count(*) FROM cart_lines`))
}

func TestOrderRepository_ListAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	repo := order.NewRepository(f.pool)
	svc := order.NewService(repo)

	fillCart(t, f)
	first, err := svc.Checkout(ctx, buyerFor(f), validRecipient())
	require.NoError(t, err)
	fillCart(t, f)
	second, err := svc.Checkout(ctx, buyerFor(f), validRecipient())
	require.NoError(t, err)

	orders, err := repo.ListByUser(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)

	require.NoError(t, repo.UpdateStatus(ctx, first.ID, order.StatusTransit))
	stored, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, order.StatusTransit, stored.Status)

	require.ErrorIs(t, repo.UpdateStatus(ctx, 999999, order.StatusPaid), order.ErrOrderNotFound)
	_, err = repo.GetByID(ctx, 999999)
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}
