package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/microshop/backend/services/order-service/models"
	"github.com/microshop/backend/services/order-service/repository"
)

type fakeOrderRepo struct {
	mu            sync.Mutex
	orders        []*models.Order
	createCalls   int
	busyRemaining int
	failWith      error
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failWith != nil {
		return f.failWith
	}
	if f.busyRemaining > 0 {
		f.busyRemaining--
		return fmt.Errorf("create order %s: %w", order.ID, repository.ErrStoreBusy)
	}
	stored := *order
	f.orders = append(f.orders, &stored)
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (f *fakeOrderRepo) FindAll(ctx context.Context) ([]models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrderRepo) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls
}

type fakeValidator struct {
	mu     sync.Mutex
	result ValidationResult
	calls  int
}

func (f *fakeValidator) ValidateUser(ctx context.Context, userID string) ValidationResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result
}

func (f *fakeValidator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestService(repo repository.OrderRepository, validator UserValidator, storeRetries int) *OrderService {
	return NewOrderService(repo, validator, nil, storeRetries, time.Millisecond, zap.NewNop())
}

func validRequest() *CreateOrderRequest {
	return &CreateOrderRequest{
		UserID: uuid.New(),
		Items: []LineItemRequest{
			{SKU: "A1", Quantity: 2, UnitPrice: decimal.RequireFromString("9.99")},
		},
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo := &fakeOrderRepo{}
	validator := &fakeValidator{result: ValidationConfirmed}
	svc := newTestService(repo, validator, 2)

	req := validRequest()
	order, serr := svc.CreateOrder(context.Background(), req)

	require.Nil(t, serr)
	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.Equal(t, req.UserID, order.UserID)
	assert.Equal(t, models.StatusValidated, order.Status)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("19.98")),
		"expected total 19.98, got %s", order.TotalAmount)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "A1", order.Items[0].SKU)
	assert.Equal(t, 1, repo.writes())
}

func TestCreateOrder_TotalIsExactDecimal(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeValidator{result: ValidationConfirmed}, 0)

	// 3 * 0.10 drifts under binary floating point; it must not here.
	req := &CreateOrderRequest{
		UserID: uuid.New(),
		Items: []LineItemRequest{
			{SKU: "B2", Quantity: 3, UnitPrice: decimal.RequireFromString("0.10")},
			{SKU: "C3", Quantity: 1, UnitPrice: decimal.RequireFromString("0.01")},
		},
	}

	order, serr := svc.CreateOrder(context.Background(), req)
	require.Nil(t, serr)
	assert.Equal(t, "0.31", order.TotalAmount.String())
}

func TestCreateOrder_StructurallyInvalid(t *testing.T) {
	tests := []struct {
		name  string
		items []LineItemRequest
	}{
		{"empty items", nil},
		{"zero quantity", []LineItemRequest{{SKU: "A1", Quantity: 0, UnitPrice: decimal.RequireFromString("1.00")}}},
		{"negative quantity", []LineItemRequest{{SKU: "A1", Quantity: -2, UnitPrice: decimal.RequireFromString("1.00")}}},
		{"negative price", []LineItemRequest{{SKU: "A1", Quantity: 1, UnitPrice: decimal.RequireFromString("-0.01")}}},
		{"blank sku", []LineItemRequest{{SKU: "  ", Quantity: 1, UnitPrice: decimal.RequireFromString("1.00")}}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo := &fakeOrderRepo{}
			validator := &fakeValidator{result: ValidationConfirmed}
			svc := newTestService(repo, validator, 2)

			_, serr := svc.CreateOrder(context.Background(), &CreateOrderRequest{UserID: uuid.New(), Items: tc.items})

			require.NotNil(t, serr)
			assert.Equal(t, http.StatusBadRequest, serr.StatusCode)
			assert.Equal(t, ReasonInvalidRequest, serr.Reason)
			assert.Equal(t, 0, validator.callCount(), "no external call for invalid input")
			assert.Equal(t, 0, repo.writes(), "no write attempt for invalid input")
		})
	}
}

func TestCreateOrder_UserNotFound(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeValidator{result: ValidationNotFound}, 2)

	_, serr := svc.CreateOrder(context.Background(), validRequest())

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
	assert.Equal(t, ReasonUserNotFound, serr.Reason)
	assert.Equal(t, 0, repo.writes(), "authoritative absence must not reach the store")
}

func TestCreateOrder_DependencyUnavailable(t *testing.T) {
	repo := &fakeOrderRepo{}
	svc := newTestService(repo, &fakeValidator{result: ValidationUnreachable}, 2)

	_, serr := svc.CreateOrder(context.Background(), validRequest())

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusServiceUnavailable, serr.StatusCode)
	assert.Equal(t, ReasonDependencyUnavailable, serr.Reason)
	assert.Equal(t, 0, repo.writes())
}

func TestCreateOrder_RetriesBusyWritesThenSucceeds(t *testing.T) {
	repo := &fakeOrderRepo{busyRemaining: 2}
	svc := newTestService(repo, &fakeValidator{result: ValidationConfirmed}, 2)

	order, serr := svc.CreateOrder(context.Background(), validRequest())

	require.Nil(t, serr)
	assert.Equal(t, 3, repo.writes())
	assert.Len(t, repo.orders, 1)
	assert.Equal(t, order.ID, repo.orders[0].ID)
}

func TestCreateOrder_PersistenceRetriesExhausted(t *testing.T) {
	repo := &fakeOrderRepo{busyRemaining: 100}
	svc := newTestService(repo, &fakeValidator{result: ValidationConfirmed}, 2)

	_, serr := svc.CreateOrder(context.Background(), validRequest())

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusServiceUnavailable, serr.StatusCode)
	assert.Equal(t, ReasonPersistenceFailed, serr.Reason)
	assert.Equal(t, 3, repo.writes(), "bounded attempts: initial try plus two retries")
	assert.Empty(t, repo.orders, "no order may be visible after exhausted retries")
}

func TestCreateOrder_UnexpectedStoreErrorNotRetried(t *testing.T) {
	repo := &fakeOrderRepo{failWith: fmt.Errorf("disk I/O error")}
	svc := newTestService(repo, &fakeValidator{result: ValidationConfirmed}, 2)

	_, serr := svc.CreateOrder(context.Background(), validRequest())

	require.NotNil(t, serr)
	assert.Equal(t, http.StatusInternalServerError, serr.StatusCode)
	assert.Equal(t, ReasonInternal, serr.Reason)
	assert.NotContains(t, serr.Message, "disk", "storage error text must not leak to the caller")
	assert.Equal(t, 1, repo.writes(), "the pipeline only retries failures it understands")
}

func TestCreateOrder_ConcurrentCallsProduceUniqueIDs(t *testing.T) {
	const workers = 20
	repo := &fakeOrderRepo{busyRemaining: 5}
	svc := newTestService(repo, &fakeValidator{result: ValidationConfirmed}, 5)

	var wg sync.WaitGroup
	results := make(chan uuid.UUID, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			order, serr := svc.CreateOrder(context.Background(), validRequest())
			if serr == nil {
				results <- order.ID
			}
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[uuid.UUID]bool)
	for id := range results {
		assert.False(t, seen[id], "identifier collision: %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers, "every call should survive the injected contention")
}
