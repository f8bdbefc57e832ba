package repository

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"storefront-backend/internal/database"
	"storefront-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Needs a throwaway Postgres database; the row-lock serialization
// under test cannot be exercised against a mock.
//
//	STOREFRONT_TEST_DATABASE_URL=postgres://... go test ./internal/repository/
func livePool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("STOREFRONT_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("STOREFRONT_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool, "../database/migrations"))

	return pool
}

func TestPlaceOrder_ConcurrentSubmissionsNeverOversell(t *testing.T) {
	pool := livePool(t)
	ctx := context.Background()

	const (
		stock       = 5
		submissions = 12
	)

	var userID int
	email := fmt.Sprintf("oversell-%d@example.com", time.Now().UnixNano())
	err := pool.QueryRow(ctx,
		`INSERT INTO users (full_name, email, password) VALUES ($1, $2, $3) RETURNING id`,
		"Load Tester", email, "x").Scan(&userID)
	require.NoError(t, err)

	var productID int
	err = pool.QueryRow(ctx,
		`INSERT INTO products (title, price, stock) VALUES ($1, $2, $3) RETURNING id`,
		"Contended Benchy", 100.0, stock).Scan(&productID)
	require.NoError(t, err)

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM order_items WHERE product_id = $1`, productID)
		_, _ = pool.Exec(ctx, `DELETE FROM orders WHERE user_id = $1`, userID)
		_, _ = pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	})

	repo := NewOrderRepository(pool)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)

	for i := 0; i < submissions; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := repo.PlaceOrder(ctx, userID,
				[]models.OrderLine{{ProductID: productID, Quantity: 1}}, testAddress)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, ErrNotEnough)
		}()
	}

	wg.Wait()

	assert.Equal(t, stock, successes, "exactly the available stock may be sold")

	var finalStock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&finalStock))
	assert.Equal(t, 0, finalStock, "stock must end at zero, never negative")

	var orderCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&orderCount))
	assert.Equal(t, stock, orderCount, "one order per successful submission")
}

func TestPlaceOrder_LiveRollbackLeavesStockUntouched(t *testing.T) {
	pool := livePool(t)
	ctx := context.Background()

	var userID int
	email := fmt.Sprintf("rollback-%d@example.com", time.Now().UnixNano())
	err := pool.QueryRow(ctx,
		`INSERT INTO users (full_name, email, password) VALUES ($1, $2, $3) RETURNING id`,
		"Rollback Tester", email, "x").Scan(&userID)
	require.NoError(t, err)

	var inStockID, emptyID int
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (title, price, stock) VALUES ($1, $2, $3) RETURNING id`,
		"Available", 50.0, 10).Scan(&inStockID))
	require.NoError(t, pool.QueryRow(ctx,
		`INSERT INTO products (title, price, stock) VALUES ($1, $2, $3) RETURNING id`,
		"Sold Out", 50.0, 0).Scan(&emptyID))

	t.Cleanup(func() {
		_, _ = pool.Exec(ctx, `DELETE FROM products WHERE id IN ($1, $2)`, inStockID, emptyID)
		_, _ = pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	})

	repo := NewOrderRepository(pool)

	// The first line is valid; the second must undo it.
	_, err = repo.PlaceOrder(ctx, userID, []models.OrderLine{
		{ProductID: inStockID, Quantity: 3},
		{ProductID: emptyID, Quantity: 1},
	}, testAddress)
	require.ErrorIs(t, err, ErrNotEnough)

	var stock int
	require.NoError(t, pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, inStockID).Scan(&stock))
	assert.Equal(t, 10, stock)

	var orderCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&orderCount))
	assert.Equal(t, 0, orderCount)
}
