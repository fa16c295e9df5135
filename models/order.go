package models

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Order is the read-only view of an order that the payment core needs. The
// order subsystem owns creation and persistence; this core only reads it and
// reports status changes back through OrderStatusUpdater.
type Order struct {
	ID             uuid.UUID   `json:"id"`
	OrderReference string      `json:"order_reference"`
	Currency       string      `json:"currency"`
	TotalAmount    float64     `json:"total_amount"` // major units (naira)
	Items          []OrderItem `json:"items"`
	CustomerName   string      `json:"customer_name"`
	CustomerEmail  string      `json:"customer_email"`
	CustomerPhone  string      `json:"customer_phone"`
	DeliveryState  string      `json:"delivery_state,omitempty"`
	DeliveryCity   string      `json:"delivery_city,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

// Order statuses reported back to the order subsystem.
const (
	OrderStatusPaid          = "PAID"
	OrderStatusPaymentFailed = "PAYMENT_FAILED"
)

// OrderStatusUpdater is the callback boundary into the order subsystem,
// invoked after a successful terminal payment transition.
type OrderStatusUpdater interface {
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error
}

// OrderStatusUpdaterFunc adapts a function to the OrderStatusUpdater interface.
type OrderStatusUpdaterFunc func(ctx context.Context, orderID uuid.UUID, status string) error

func (f OrderStatusUpdaterFunc) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	return f(ctx, orderID, status)
}
