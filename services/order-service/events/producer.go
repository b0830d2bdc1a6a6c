package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/microshop/backend/services/order-service/models"
)

// OrderCreated is the event published after an order is durably persisted.
type OrderCreated struct {
	OrderID     string    `json:"order_id"`
	UserID      string    `json:"user_id"`
	TotalAmount string    `json:"total_amount"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Producer publishes order lifecycle events. Publishing is best-effort:
// a broker failure is logged by the caller and never fails the request.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{writer: w}
}

// PublishOrderCreated emits one event for a persisted order, keyed by order
// ID.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *models.Order) error {
	evt := OrderCreated{
		OrderID:     order.ID.String(),
		UserID:      order.UserID.String(),
		TotalAmount: order.TotalAmount.String(),
		Status:      order.Status,
		CreatedAt:   order.CreatedAt,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.OrderID),
		Value: data,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
