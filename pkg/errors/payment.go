package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSignatureVerification is returned when a webhook signature does not
// match the shared secret. Handlers map it to 401 and drop the payload.
var ErrSignatureVerification = errors.New("webhook signature verification failed")

// ErrAllGatewaysDown is returned when health filtering leaves no gateway
// to attempt a payment on.
var ErrAllGatewaysDown = errors.New("no healthy payment gateway available")

// InvalidInputError reports a validation failure on a single request field.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func NewInvalidInput(field, message string) *InvalidInputError {
	return &InvalidInputError{Field: field, Message: message}
}

func IsInvalidInput(err error) bool {
	var target *InvalidInputError
	return errors.As(err, &target)
}

// GatewayUnavailableError marks a hard gateway outage: network failure,
// timeout, or a non-2xx response from the gateway API. It is the signal
// the orchestrator uses to degrade a gateway's health.
type GatewayUnavailableError struct {
	Gateway string
	Cause   error
}

func (e *GatewayUnavailableError) Error() string {
	return fmt.Sprintf("gateway %s unavailable: %v", e.Gateway, e.Cause)
}

func (e *GatewayUnavailableError) Unwrap() error { return e.Cause }

func NewGatewayUnavailable(gateway string, cause error) *GatewayUnavailableError {
	return &GatewayUnavailableError{Gateway: gateway, Cause: cause}
}

func IsGatewayUnavailable(err error) bool {
	var target *GatewayUnavailableError
	return errors.As(err, &target)
}

// AttemptError records the outcome of one gateway attempt for diagnostics.
type AttemptError struct {
	Gateway string `json:"gateway"`
	Message string `json:"message"`
}

// AllGatewaysFailedError aggregates the per-gateway failures after every
// configured gateway was attempted without success.
type AllGatewaysFailedError struct {
	Attempts []AttemptError
}

func (e *AllGatewaysFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Gateway, a.Message))
	}
	return "all payment gateways failed: " + strings.Join(parts, "; ")
}

// AmountMismatchError reports a gateway-settled amount that could not be
// reconciled against the recorded order total.
type AmountMismatchError struct {
	OrderReference string
	Expected       float64
	Reported       float64
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("amount mismatch on %s: expected %.2f, gateway reported %.2f",
		e.OrderReference, e.Expected, e.Reported)
}
