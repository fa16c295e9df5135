package models

import (
	"time"

	"github.com/google/uuid"
)

// GatewayAttempt records one gateway try during orchestration. Attempts are
// strictly ordered by priority and recorded even on failure so fallback
// behavior can be debugged later.
type GatewayAttempt struct {
	Gateway      string        `json:"gateway"`
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
	ResponseTime time.Duration `json:"response_time"`
}

// GatewayHealthRecord is the orchestrator-owned health entry for one gateway.
// A gateway that has not been checked yet defaults to healthy so a cold start
// does not blackhole traffic.
type GatewayHealthRecord struct {
	Gateway      string        `json:"gateway"`
	Healthy      bool          `json:"healthy"`
	ResponseTime time.Duration `json:"response_time"`
	LastChecked  time.Time     `json:"last_checked"`
	LastError    string        `json:"last_error,omitempty"`
}

// GatewayHealth is the result of a single read-only health probe.
type GatewayHealth struct {
	Healthy      bool          `json:"healthy"`
	ResponseTime time.Duration `json:"response_time"`
	CheckedAt    time.Time     `json:"checked_at"`
	Error        string        `json:"error,omitempty"`
}

// GatewayInitResult is one gateway's answer to an initialization call.
type GatewayInitResult struct {
	PaymentURL string            `json:"payment_url"`
	Reference  string            `json:"reference"`
	Gateway    string            `json:"gateway"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// GatewayWebhookEvent is a provider's normalized view of an inbound webhook.
// The provider verifies the signature and maps the gateway's event vocabulary
// to the internal status enum; it never applies side effects itself.
type GatewayWebhookEvent struct {
	Success          bool          `json:"success"`
	Processed        bool          `json:"processed"`
	Gateway          string        `json:"gateway"`
	EventType        string        `json:"event_type,omitempty"`
	Reference        string        `json:"reference,omitempty"`         // order reference embedded in the payload
	GatewayReference string        `json:"gateway_reference,omitempty"` // gateway-assigned transaction reference
	Status           PaymentStatus `json:"status,omitempty"`
	Amount           float64       `json:"amount,omitempty"` // major units after conversion
	Currency         string        `json:"currency,omitempty"`
	Fee              float64       `json:"fee,omitempty"`
	Raw              []byte        `json:"-"`
}

// PaymentInitResult is returned to the route layer after a successful
// initialization on some gateway.
type PaymentInitResult struct {
	PaymentID  uuid.UUID         `json:"payment_id"`
	PaymentURL string            `json:"payment_url"`
	Reference  string            `json:"reference"`
	Gateway    string            `json:"gateway"`
	Attempts   []GatewayAttempt  `json:"attempts"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// PaymentVerifyResult is a gateway's answer to a verification call. A failed
// payment is a normal result with Status FAILED, not an error.
type PaymentVerifyResult struct {
	Success          bool          `json:"success"`
	Status           PaymentStatus `json:"status"`
	Amount           float64       `json:"amount"` // major units
	Currency         string        `json:"currency"`
	Gateway          string        `json:"gateway"`
	GatewayReference string        `json:"gateway_reference"`
	Fee              float64       `json:"fee"`
	PaymentMethod    string        `json:"payment_method,omitempty"`
	RawResponse      []byte        `json:"-"`
}

// WebhookResult is the outcome of handling one inbound webhook delivery.
// Processed=false means the event was not relevant to the gateway that was
// asked, so the orchestrator tries the next candidate verifier.
type WebhookResult struct {
	Success       bool          `json:"success"`
	Processed     bool          `json:"processed"`
	Gateway       string        `json:"gateway,omitempty"`
	OrderID       *uuid.UUID    `json:"order_id,omitempty"`
	Reference     string        `json:"reference,omitempty"`
	PaymentStatus PaymentStatus `json:"payment_status,omitempty"`
	Applied       bool          `json:"applied,omitempty"`  // a status transition actually happened
	Orphaned      bool          `json:"orphaned,omitempty"` // acknowledged but matched no payment record
	Message       string        `json:"message,omitempty"`
}

// GatewayStats is the per-gateway snapshot exposed to the route layer.
type GatewayStats struct {
	Gateway          string              `json:"gateway"`
	Priority         int                 `json:"priority"`
	Health           GatewayHealthRecord `json:"health"`
	SupportedMethods []string            `json:"supported_methods"`
}
