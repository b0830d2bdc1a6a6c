package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/microshop/backend/services/order-service/models"
)

var (
	// ErrStoreBusy marks a write that lost the cross-replica lock race even
	// after the repository's own retries. The transaction was rolled back and
	// may safely be resubmitted by the caller.
	ErrStoreBusy = errors.New("order store busy")

	// ErrOrderNotFound is returned by lookups for unknown order IDs.
	ErrOrderNotFound = errors.New("order not found")
)

// OrderRepository defines the interface for order data access. The create
// path is the sole writer of order state in the process.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindAll(ctx context.Context) ([]models.Order, error)
}

// GormOrderRepository implements OrderRepository over the shared SQLite file.
//
// SQLite allows a single writer per file across all processes on the volume.
// Writes are serialized in-process by a mutex so replicas only contend with
// each other, and a SQLITE_BUSY from a sibling replica is retried a bounded
// number of times with randomized backoff before surfacing ErrStoreBusy.
type GormOrderRepository struct {
	db          *gorm.DB
	writeMu     sync.Mutex
	busyRetries int
	busyBackoff time.Duration
}

// NewGormOrderRepository creates a repository with the given busy-retry
// budget for contended writes.
func NewGormOrderRepository(db *gorm.DB, busyRetries int, busyBackoff time.Duration) *GormOrderRepository {
	return &GormOrderRepository{
		db:          db,
		busyRetries: busyRetries,
		busyBackoff: busyBackoff,
	}
}

// Create durably persists an order and all of its line items in one
// transaction. A failed attempt rolls back completely, so retrying resubmits
// the identical not-yet-committed transaction; a crash mid-write never leaves
// a partial order visible to readers.
//
// The write runs detached from request cancellation: once started, a
// transaction either commits or rolls back rather than being aborted in an
// ambiguous state when the client disconnects.
func (r *GormOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	writeCtx := context.WithoutCancel(ctx)
	for attempt := 0; ; attempt++ {
		err := r.db.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(order).Error
		})
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		if attempt >= r.busyRetries {
			return fmt.Errorf("create order %s: %w", order.ID, ErrStoreBusy)
		}
		time.Sleep(jitter(r.busyBackoff))
	}
}

// FindByID retrieves a single order with its items. Readers observe the last
// committed state and never take the write mutex.
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// FindAll lists all orders in insertion order.
func (r *GormOrderRepository) FindAll(ctx context.Context) ([]models.Order, error) {
	orders := make([]models.Order, 0)
	err := r.db.WithContext(ctx).
		Preload("Items").
		Order("orders.rowid").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// isBusy reports whether the engine rejected the write because another
// connection holds the file's write lock.
func isBusy(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code == sqlite3.ErrBusy || serr.Code == sqlite3.ErrLocked
	}
	return false
}

// jitter spreads retry delays in [base/2, base*3/2) so replicas backing off
// from the same collision don't retry in lockstep.
func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	return base/2 + time.Duration(rand.Int64N(int64(base)))
}
