package services

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/microshop/backend/services/common/logger"
	"github.com/microshop/backend/services/order-service/events"
	"github.com/microshop/backend/services/order-service/models"
	"github.com/microshop/backend/services/order-service/repository"
)

// Failure reasons surfaced to callers. Every pipeline failure is recovered to
// exactly one of these before crossing the component boundary.
const (
	ReasonInvalidRequest        = "invalid_request"
	ReasonUserNotFound          = "user_not_found"
	ReasonNotFound              = "not_found"
	ReasonDependencyUnavailable = "dependency_unavailable"
	ReasonPersistenceFailed     = "persistence_failed"
	ReasonInternal              = "internal"
)

type CreateOrderRequest struct {
	UserID uuid.UUID         `json:"userId" binding:"required"`
	Items  []LineItemRequest `json:"items" binding:"required,min=1,dive"`
}

type LineItemRequest struct {
	SKU       string          `json:"sku" binding:"required,max=50"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// ServiceError is a pipeline failure mapped to an HTTP status and a
// machine-readable reason.
type ServiceError struct {
	StatusCode int
	Reason     string
	Message    string
}

func (e *ServiceError) Error() string {
	return e.Message
}

// OrderService orchestrates order intake: structural validation, user
// validation, total computation and durable persistence, in that order.
type OrderService struct {
	orderRepo     repository.OrderRepository
	userValidator UserValidator
	producer      *events.Producer
	storeRetries  int
	storeBackoff  time.Duration
	logger        *zap.Logger
}

func NewOrderService(orderRepo repository.OrderRepository, userValidator UserValidator, producer *events.Producer, storeRetries int, storeBackoff time.Duration, log *zap.Logger) *OrderService {
	return &OrderService{
		orderRepo:     orderRepo,
		userValidator: userValidator,
		producer:      producer,
		storeRetries:  storeRetries,
		storeBackoff:  storeBackoff,
		logger:        log,
	}
}

// CreateOrder processes order creation. Validation strictly precedes
// persistence; nothing is written for invalid requests or unknown users, and
// the total is computed exactly once per attempt.
func (s *OrderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, *ServiceError) {
	log := s.logger.With(
		zap.String("request_id", logger.RequestID(ctx)),
		zap.String("user_id", req.UserID.String()),
	)

	if serr := validateRequest(req); serr != nil {
		return nil, serr
	}
	log.Info("order intake accepted", zap.Int("items", len(req.Items)))

	switch s.userValidator.ValidateUser(ctx, req.UserID.String()) {
	case ValidationConfirmed:
		log.Info("user validated")
	case ValidationNotFound:
		log.Warn("user not found")
		return nil, &ServiceError{
			StatusCode: http.StatusNotFound,
			Reason:     ReasonUserNotFound,
			Message:    "User does not exist",
		}
	default:
		log.Warn("user service unreachable")
		return nil, &ServiceError{
			StatusCode: http.StatusServiceUnavailable,
			Reason:     ReasonDependencyUnavailable,
			Message:    "User validation unavailable, retry later",
		}
	}

	order := buildOrder(req)

	if err := s.persist(ctx, order); err != nil {
		if errors.Is(err, repository.ErrStoreBusy) {
			log.Error("order store contended, retries exhausted", zap.Error(err))
			return nil, &ServiceError{
				StatusCode: http.StatusServiceUnavailable,
				Reason:     ReasonPersistenceFailed,
				Message:    "Order could not be stored, retry later",
			}
		}
		log.Error("order persistence failed", zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Reason:     ReasonInternal,
			Message:    "Failed to create order",
		}
	}
	log.Info("order persisted",
		zap.String("order_id", order.ID.String()),
		zap.String("total", order.TotalAmount.String()))

	if s.producer != nil {
		if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
			// Best-effort: the order is already durable.
			log.Warn("order event publish failed", zap.Error(err))
		}
	}

	return order, nil
}

// GetOrder retrieves a single order.
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, *ServiceError) {
	order, err := s.orderRepo.FindByID(ctx, id)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, &ServiceError{
			StatusCode: http.StatusNotFound,
			Reason:     ReasonNotFound,
			Message:    "Order not found",
		}
	}
	if err != nil {
		s.logger.Error("order lookup failed",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.String("order_id", id.String()),
			zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Reason:     ReasonInternal,
			Message:    "Failed to fetch order",
		}
	}
	return order, nil
}

// ListOrders returns all orders in insertion order.
func (s *OrderService) ListOrders(ctx context.Context) ([]models.Order, *ServiceError) {
	orders, err := s.orderRepo.FindAll(ctx)
	if err != nil {
		s.logger.Error("order listing failed",
			zap.String("request_id", logger.RequestID(ctx)),
			zap.Error(err))
		return nil, &ServiceError{
			StatusCode: http.StatusInternalServerError,
			Reason:     ReasonInternal,
			Message:    "Failed to fetch orders",
		}
	}
	return orders, nil
}

// persist delegates to the repository, retrying only its typed busy error a
// bounded number of times. Other storage failures are not retried here: the
// pipeline never retries a failure it does not understand.
func (s *OrderService) persist(ctx context.Context, order *models.Order) error {
	var err error
	for attempt := 0; attempt <= s.storeRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(s.storeBackoff)
		}
		err = s.orderRepo.Create(ctx, order)
		if err == nil || !errors.Is(err, repository.ErrStoreBusy) {
			return err
		}
	}
	return err
}

func validateRequest(req *CreateOrderRequest) *ServiceError {
	invalid := func(msg string) *ServiceError {
		return &ServiceError{
			StatusCode: http.StatusBadRequest,
			Reason:     ReasonInvalidRequest,
			Message:    msg,
		}
	}

	if len(req.Items) == 0 {
		return invalid("At least one item is required")
	}
	for _, item := range req.Items {
		if strings.TrimSpace(item.SKU) == "" {
			return invalid("Item SKU is required")
		}
		if item.Quantity <= 0 {
			return invalid("Item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return invalid("Item unit price must not be negative")
		}
	}
	return nil
}

// buildOrder assigns random identifiers and computes the exact decimal total.
// IDs are generated in-process rather than by the store: auto-increment
// sequencing is not safe with multiple replicas writing the same file.
func buildOrder(req *CreateOrderRequest) *models.Order {
	orderID := uuid.New()

	items := make([]models.OrderItem, 0, len(req.Items))
	total := decimal.Zero
	for _, item := range req.Items {
		line := item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
		items = append(items, models.OrderItem{
			ID:        uuid.New(),
			OrderID:   orderID,
			SKU:       item.SKU,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	return &models.Order{
		ID:          orderID,
		UserID:      req.UserID,
		Items:       items,
		TotalAmount: total,
		Status:      models.StatusValidated,
		CreatedAt:   time.Now().UTC(),
	}
}
