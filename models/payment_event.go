package models

import "time"

// Payment event types published to Kafka for the order subsystem.
const (
	EventPaymentSettled = "payment_settled"
	EventPaymentFailed  = "payment_failed"
)

// PaymentEvent is the standardized event emitted after a terminal payment
// transition.
type PaymentEvent struct {
	Type      string    `json:"type"`
	OrderID   string    `json:"order_id"`
	PaymentID string    `json:"payment_id"`
	Reference string    `json:"reference"`
	Gateway   string    `json:"gateway"`
	Amount    float64   `json:"amount"` // major units
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"` // UTC event time
}

// PaymentRequest is an asynchronous payment request consumed from SQS.
type PaymentRequest struct {
	OrderID        string      `json:"order_id"`
	OrderReference string      `json:"order_reference"`
	Amount         float64     `json:"amount"`
	Currency       string      `json:"currency"`
	CustomerName   string      `json:"customer_name"`
	CustomerEmail  string      `json:"customer_email"`
	CustomerPhone  string      `json:"customer_phone"`
	Items          []OrderItem `json:"items,omitempty"`
	IdempotencyKey string      `json:"idempotency_key,omitempty"`
}
