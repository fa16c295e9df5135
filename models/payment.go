package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentStatus is the internal payment lifecycle status. Transitions:
// PENDING -> SENT -> {SETTLED, FAILED}; PENDING -> CANCELLED (explicit
// cancellation only, never via webhook). SETTLED, FAILED and CANCELLED are
// terminal.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusSent      PaymentStatus = "SENT"
	PaymentStatusSettled   PaymentStatus = "SETTLED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusCancelled PaymentStatus = "CANCELLED"
	PaymentStatusUnknown   PaymentStatus = "UNKNOWN"
)

// IsTerminal reports whether the status can never be overwritten by a later
// webhook. A conflicting terminal webhook is logged as an anomaly instead.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusSettled || s == PaymentStatusFailed || s == PaymentStatusCancelled
}

// TerminalStatuses is the set used in conditional status updates.
var TerminalStatuses = []PaymentStatus{PaymentStatusSettled, PaymentStatusFailed, PaymentStatusCancelled}

// Payment is the persisted record of one payment attempt chain for an order.
// It is never deleted, only transitioned.
type Payment struct {
	ID               uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID          uuid.UUID      `gorm:"type:uuid;index;not null" json:"order_id"`
	OrderReference   string         `gorm:"type:varchar(64);uniqueIndex;not null" json:"order_reference"`
	Amount           float64        `gorm:"not null" json:"amount"` // major units (naira)
	Currency         string         `gorm:"type:varchar(10);not null" json:"currency"`
	Gateway          string         `gorm:"type:varchar(32);not null" json:"gateway"`
	Status           PaymentStatus  `gorm:"type:varchar(20);not null;index" json:"status"`
	GatewayReference *string        `gorm:"type:varchar(128);uniqueIndex" json:"gateway_reference,omitempty"`
	GatewayFee       float64        `json:"gateway_fee"`
	PaymentMethod    *string        `gorm:"type:varchar(32)" json:"payment_method,omitempty"`
	CheckoutURL      *string        `gorm:"type:varchar(1024)" json:"checkout_url,omitempty"`
	RawResponse      *string        `gorm:"type:jsonb" json:"-"` // opaque gateway payload retained for audit
	SentAt           *time.Time     `json:"sent_at,omitempty"`
	SettledAt        *time.Time     `json:"settled_at,omitempty"`
	FailedAt         *time.Time     `json:"failed_at,omitempty"`
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"-"`
}
