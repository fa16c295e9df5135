package providers

import (
	"context"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
	"github.com/Moduloscript/pharmacy-project-sub001/utils"
)

// PaymentProvider is the contract every gateway integration implements. A
// provider talks to exactly one external processor and knows nothing about
// the others; fallback and health tracking live in the orchestrator.
type PaymentProvider interface {
	// InitializePayment creates a checkout session and returns the redirect
	// URL. Validation failures are typed InvalidInput errors; transport or
	// non-2xx failures are GatewayUnavailable.
	InitializePayment(ctx context.Context, order *models.Order) (*models.GatewayInitResult, error)

	// VerifyPayment queries the gateway for the outcome of a transaction. A
	// failed payment is a normal result with Status FAILED; an error means
	// the verification call itself could not be completed.
	VerifyPayment(ctx context.Context, reference string) (*models.PaymentVerifyResult, error)

	// HandleWebhook verifies the signature and normalizes the event. When
	// verification fails, Success is false and no side effect may follow.
	// When the event is not in this gateway's vocabulary, Processed is false
	// and the next candidate verifier is tried.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.GatewayWebhookEvent, error)

	// CheckHealth is a cheap, side-effect-free probe bounded by the caller's
	// context.
	CheckHealth(ctx context.Context) models.GatewayHealth

	// SupportedPaymentMethods returns static capability tags, no I/O.
	SupportedPaymentMethods() []string

	// Name returns the fixed gateway identifier.
	Name() string
}

// Payment method tags.
const (
	MethodCard         = "card"
	MethodBankTransfer = "bank_transfer"
	MethodUSSD         = "ussd"
	MethodQR           = "qr"
)

const (
	// SupportedCurrency is the single currency this core handles.
	SupportedCurrency = "NGN"

	// MaxPaymentAmount blocks obviously malformed requests before they reach
	// a gateway (major units).
	MaxPaymentAmount = 10_000_000
)

// ValidateOrder runs the shared initialization preconditions. It fails with
// a typed InvalidInput error tagged with the offending field and never
// coerces a bad value.
func ValidateOrder(order *models.Order) error {
	if order == nil {
		return apperrors.NewInvalidInput("order", "order is required")
	}
	if order.TotalAmount <= 0 {
		return apperrors.NewInvalidInput("amount", "amount must be positive")
	}
	if order.TotalAmount >= MaxPaymentAmount {
		return apperrors.NewInvalidInput("amount", "amount exceeds the maximum allowed")
	}
	if order.Currency != SupportedCurrency {
		return apperrors.NewInvalidInput("currency", "only NGN is supported")
	}
	if !utils.IsValidNigerianPhone(order.CustomerPhone) {
		return apperrors.NewInvalidInput("phone", "not a valid Nigerian phone number")
	}
	if !utils.IsValidEmail(order.CustomerEmail) {
		return apperrors.NewInvalidInput("email", "not a valid email address")
	}
	if order.OrderReference == "" {
		return apperrors.NewInvalidInput("order_reference", "order reference is required")
	}
	return nil
}
