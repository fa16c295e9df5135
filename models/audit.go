package models

import "time"

// Audit record kinds stored in the audit collection.
const (
	AuditKindWebhook        = "webhook"
	AuditKindAmountMismatch = "amount_mismatch"
	AuditKindAnomaly        = "status_anomaly"
)

// AuditRecord is an insert-only document persisted for manual review. Raw
// gateway payloads are stored opaque, never reinterpreted.
type AuditRecord struct {
	Kind           string    `bson:"kind" json:"kind"`
	Gateway        string    `bson:"gateway" json:"gateway"`
	OrderReference string    `bson:"order_reference,omitempty" json:"order_reference,omitempty"`
	PaymentID      string    `bson:"payment_id,omitempty" json:"payment_id,omitempty"`
	Message        string    `bson:"message" json:"message"`
	OrderTotal     float64   `bson:"order_total,omitempty" json:"order_total,omitempty"`
	GatewayAmount  float64   `bson:"gateway_amount,omitempty" json:"gateway_amount,omitempty"`
	Ratio          float64   `bson:"ratio,omitempty" json:"ratio,omitempty"`
	RawPayload     []byte    `bson:"raw_payload,omitempty" json:"-"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}
