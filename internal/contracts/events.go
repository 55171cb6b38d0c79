// Package contracts holds the event shapes exchanged between the
// fulfillment services. Events are flat records of primitive and value
// fields only; adding optional fields must not break existing consumers,
// so every field decodes to its zero value when absent.
package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated               = "OrderCreated"
	EventOrderCancelled             = "OrderCancelled"
	EventProductCreated             = "ProductCreated"
	EventProductReserved            = "ProductReserved"
	EventProductReservationFailed   = "ProductReservationFailed"
	EventInventoryReserved          = "InventoryReserved"
	EventInventoryReservationFailed = "InventoryReservationFailed"
	EventPaymentProcessed           = "PaymentProcessed"
	EventPaymentFailed              = "PaymentFailed"
)

// One topic per producing service. Every event for the same order shares
// a partition key, so events from one producer stay ordered per order.
const (
	TopicOrderEvents     = "orders.events"
	TopicProductEvents   = "products.events"
	TopicInventoryEvents = "inventory.events"
	TopicPaymentEvents   = "payments.events"
)

func PartitionKey(orderID string) []byte { return []byte(orderID) }

type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
}

type OrderCreated struct {
	OrderID       string          `json:"order_id"`
	CustomerID    string          `json:"customer_id"`
	CustomerEmail string          `json:"customer_email"`
	CustomerName  string          `json:"customer_name"`
	Items         []OrderItem     `json:"items"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	CreatedAt     time.Time       `json:"created_at"`
}

type OrderCancelled struct {
	OrderID     string      `json:"order_id"`
	Reason      string      `json:"reason"`
	Items       []OrderItem `json:"items"`
	CancelledAt time.Time   `json:"cancelled_at"`
}

type ProductCreated struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Stock     int             `json:"stock"`
	CreatedAt time.Time       `json:"created_at"`
}

type ProductReserved struct {
	OrderID    string    `json:"order_id"`
	ProductID  string    `json:"product_id"`
	Quantity   int       `json:"quantity"`
	ReservedAt time.Time `json:"reserved_at"`
}

type ProductReservationFailed struct {
	OrderID           string `json:"order_id"`
	ProductID         string `json:"product_id"`
	ProductName       string `json:"product_name,omitempty"`
	RequestedQuantity int    `json:"requested_quantity"`
	Reason            string `json:"reason"`
}

type ReservedItem struct {
	ReservationID string `json:"reservation_id"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
}

type InventoryReserved struct {
	OrderID    string         `json:"order_id"`
	Items      []ReservedItem `json:"items"`
	ExpiresAt  time.Time      `json:"expires_at"`
	ReservedAt time.Time      `json:"reserved_at"`
}

type InventoryReservationFailed struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}

type PaymentProcessed struct {
	PaymentID   string          `json:"payment_id"`
	OrderID     string          `json:"order_id"`
	UserID      string          `json:"user_id"`
	ExternalRef string          `json:"external_ref"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	CompletedAt time.Time       `json:"completed_at"`
}

type PaymentFailed struct {
	PaymentID string `json:"payment_id"`
	OrderID   string `json:"order_id"`
	Reason    string `json:"reason"`
}
