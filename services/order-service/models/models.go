package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are JSON numbers on the wire, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// StatusValidated is the only status an order is ever persisted with: the
// intake pipeline validates before it writes, and nothing mutates an order
// afterwards.
const StatusValidated = "validated"

type Order struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"userId"`
	Items       []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount decimal.Decimal `gorm:"type:text;not null" json:"totalAmount"`
	Status      string          `gorm:"type:varchar(20);not null" json:"status"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

// OrderItem is a line item. Items are immutable once the owning order is
// persisted. Prices are stored as exact decimal text, never floats.
type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"-"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	SKU       string          `gorm:"size:50;not null" json:"sku"`
	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:text;not null" json:"unitPrice"`
}
