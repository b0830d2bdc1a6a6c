package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/microshop/backend/services/order-service/database"
	"github.com/microshop/backend/services/order-service/models"
)

func setupRepo(t *testing.T) *GormOrderRepository {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return NewGormOrderRepository(db, 5, 10*time.Millisecond)
}

func sampleOrder(userID uuid.UUID) *models.Order {
	orderID := uuid.New()
	return &models.Order{
		ID:     orderID,
		UserID: userID,
		Items: []models.OrderItem{
			{ID: uuid.New(), OrderID: orderID, SKU: "A1", Quantity: 2, UnitPrice: decimal.RequireFromString("9.99")},
			{ID: uuid.New(), OrderID: orderID, SKU: "B2", Quantity: 1, UnitPrice: decimal.RequireFromString("0.50")},
		},
		TotalAmount: decimal.RequireFromString("20.48"),
		Status:      models.StatusValidated,
	}
}

func TestCreateAndFindByID(t *testing.T) {
	repo := setupRepo(t)
	order := sampleOrder(uuid.New())

	require.NoError(t, repo.Create(context.Background(), order))

	got, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, order.UserID, got.UserID)
	assert.Equal(t, models.StatusValidated, got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("20.48")),
		"stored total drifted: %s", got.TotalAmount)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "A1", got.Items[0].SKU)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.RequireFromString("9.99")))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestFindByID_NotFound(t *testing.T) {
	repo := setupRepo(t)

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestFindAll_InsertionOrder(t *testing.T) {
	repo := setupRepo(t)

	var want []uuid.UUID
	for i := 0; i < 5; i++ {
		order := sampleOrder(uuid.New())
		require.NoError(t, repo.Create(context.Background(), order))
		want = append(want, order.ID)
	}

	orders, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, orders, 5)
	for i, o := range orders {
		assert.Equal(t, want[i], o.ID, "listing must preserve insertion order")
	}
}

func TestFindAll_Empty(t *testing.T) {
	repo := setupRepo(t)

	orders, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreate_RollsBackOnMidTransactionFailure(t *testing.T) {
	repo := setupRepo(t)

	orderID := uuid.New()
	itemID := uuid.New()
	order := &models.Order{
		ID:     orderID,
		UserID: uuid.New(),
		Items: []models.OrderItem{
			// Duplicate item primary keys force the second insert to fail
			// after the first succeeded inside the transaction.
			{ID: itemID, OrderID: orderID, SKU: "A1", Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")},
			{ID: itemID, OrderID: orderID, SKU: "B2", Quantity: 1, UnitPrice: decimal.RequireFromString("2.00")},
		},
		TotalAmount: decimal.RequireFromString("3.00"),
		Status:      models.StatusValidated,
	}

	err := repo.Create(context.Background(), order)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrStoreBusy)

	_, err = repo.FindByID(context.Background(), orderID)
	assert.ErrorIs(t, err, ErrOrderNotFound, "a failed write must leave no partial order visible")

	orders, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestCreate_ConcurrentWritersAllSucceed(t *testing.T) {
	repo := setupRepo(t)

	const writers = 10
	var wg sync.WaitGroup
	errs := make([]error, writers)
	ids := make([]uuid.UUID, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			order := sampleOrder(uuid.New())
			ids[i] = order.ID
			errs[i] = repo.Create(context.Background(), order)
		}(i)
	}
	wg.Wait()

	seen := make(map[uuid.UUID]bool)
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i])
		assert.False(t, seen[ids[i]])
		seen[ids[i]] = true
	}

	orders, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, writers)
	for _, o := range orders {
		assert.Len(t, o.Items, 2, "no order may be visible without its items")
	}
}

func TestCreate_SurvivesCancelledRequestContext(t *testing.T) {
	repo := setupRepo(t)
	order := sampleOrder(uuid.New())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The write runs to completion even though the caller is gone; the
	// result is simply discarded by the handler layer.
	require.NoError(t, repo.Create(ctx, order))

	got, err := repo.FindByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
}

func TestIsBusy(t *testing.T) {
	busy := sqlite3.Error{Code: sqlite3.ErrBusy}
	locked := sqlite3.Error{Code: sqlite3.ErrLocked}

	assert.True(t, isBusy(busy))
	assert.True(t, isBusy(locked))
	assert.True(t, isBusy(fmt.Errorf("insert failed: %w", busy)))
	assert.False(t, isBusy(errors.New("no such table")))
	assert.False(t, isBusy(gorm.ErrInvalidTransaction))
	assert.False(t, isBusy(nil))
}

func TestJitterBounds(t *testing.T) {
	base := 100 * time.Millisecond
	for i := 0; i < 1000; i++ {
		d := jitter(base)
		assert.GreaterOrEqual(t, d, base/2)
		assert.Less(t, d, base*3/2)
	}
	assert.Equal(t, time.Duration(0), jitter(0))
}
