package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
)

// --- Stub provider ---

type stubProvider struct {
	name         string
	initCalls    int
	initErr      error
	verifyResult *models.PaymentVerifyResult
	verifyErr    error
	webhookEvent *models.GatewayWebhookEvent
	webhookErr   error
	healthy      bool
}

func (s *stubProvider) Name() string                      { return s.name }
func (s *stubProvider) SupportedPaymentMethods() []string { return []string{"card"} }

func (s *stubProvider) InitializePayment(ctx context.Context, order *models.Order) (*models.GatewayInitResult, error) {
	s.initCalls++
	if s.initErr != nil {
		return nil, s.initErr
	}
	return &models.GatewayInitResult{
		PaymentURL: "https://checkout." + s.name + ".example/" + order.OrderReference,
		Reference:  order.OrderReference,
		Gateway:    s.name,
	}, nil
}

func (s *stubProvider) VerifyPayment(ctx context.Context, reference string) (*models.PaymentVerifyResult, error) {
	return s.verifyResult, s.verifyErr
}

func (s *stubProvider) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.GatewayWebhookEvent, error) {
	return s.webhookEvent, s.webhookErr
}

func (s *stubProvider) CheckHealth(ctx context.Context) models.GatewayHealth {
	return models.GatewayHealth{Healthy: s.healthy}
}

func testOrder() *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		OrderReference: "PHM-TEST-002",
		Currency:       "NGN",
		TotalAmount:    15500,
		CustomerName:   "Adaeze Obi",
		CustomerEmail:  "adaeze@example.com",
		CustomerPhone:  "+2348012345678",
	}
}

func newTestOrchestrator(repo *memPaymentRepo, providerStubs ...*stubProvider) *PaymentOrchestrator {
	o := NewPaymentOrchestrator(repo, nil, 0, zap.NewNop(), nil)
	for _, p := range providerStubs {
		o.RegisterProvider(p)
	}
	return o
}

// --- Tests ---

func TestProcessPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("First successful gateway wins and later ones are never tried", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha"}
		beta := &stubProvider{name: "beta"}
		repo := newMemPaymentRepo()
		o := newTestOrchestrator(repo, alpha, beta)

		result, err := o.ProcessPayment(ctx, testOrder())

		assert.NoError(t, err)
		assert.Equal(t, "alpha", result.Gateway)
		assert.Equal(t, 1, alpha.initCalls)
		assert.Equal(t, 0, beta.initCalls)
		assert.Len(t, result.Attempts, 1)

		counts, _ := repo.CountByStatus(ctx)
		assert.Equal(t, int64(1), counts[models.PaymentStatusPending])
	})

	t.Run("Hard outage falls through to the next gateway and degrades health", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", initErr: apperrors.NewGatewayUnavailable("alpha", errors.New("connection refused"))}
		beta := &stubProvider{name: "beta"}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha, beta)

		result, err := o.ProcessPayment(ctx, testOrder())

		assert.NoError(t, err)
		assert.Equal(t, "beta", result.Gateway)
		assert.Len(t, result.Attempts, 2)
		assert.False(t, result.Attempts[0].Success)
		assert.True(t, result.Attempts[1].Success)

		// The outage took alpha out of rotation for the next payment.
		_, err = o.ProcessPayment(ctx, testOrder())
		assert.NoError(t, err)
		assert.Equal(t, 1, alpha.initCalls)
		assert.Equal(t, 2, beta.initCalls)
	})

	t.Run("Validation failure does not degrade gateway health", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", initErr: apperrors.NewInvalidInput("email", "not a valid email address")}
		beta := &stubProvider{name: "beta"}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha, beta)

		_, err := o.ProcessPayment(ctx, testOrder())
		assert.NoError(t, err)

		// Alpha stays in rotation.
		_, err = o.ProcessPayment(ctx, testOrder())
		assert.NoError(t, err)
		assert.Equal(t, 2, alpha.initCalls)
	})

	t.Run("No registered gateways means every payment is refused", func(t *testing.T) {
		o := newTestOrchestrator(newMemPaymentRepo())

		result, err := o.ProcessPayment(ctx, testOrder())

		assert.Nil(t, result)
		assert.ErrorIs(t, err, apperrors.ErrAllGatewaysDown)
	})

	t.Run("Exhausting every gateway reports each attempt", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", initErr: apperrors.NewGatewayUnavailable("alpha", errors.New("timeout"))}
		beta := &stubProvider{name: "beta", initErr: apperrors.NewGatewayUnavailable("beta", errors.New("503"))}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha, beta)

		result, err := o.ProcessPayment(ctx, testOrder())

		assert.Nil(t, result)
		var allFailed *apperrors.AllGatewaysFailedError
		assert.ErrorAs(t, err, &allFailed)
		assert.Len(t, allFailed.Attempts, 2)
		assert.Equal(t, "alpha", allFailed.Attempts[0].Gateway)
		assert.Equal(t, "beta", allFailed.Attempts[1].Gateway)
	})
}

func TestVerifyPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("First gateway that recognizes the reference answers", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", verifyErr: apperrors.NewGatewayUnavailable("alpha", errors.New("not found"))}
		beta := &stubProvider{name: "beta", verifyResult: &models.PaymentVerifyResult{
			Success: true,
			Status:  models.PaymentStatusSettled,
			Gateway: "beta",
		}}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha, beta)

		result, err := o.VerifyPayment(ctx, "PHM-TEST-002")

		assert.NoError(t, err)
		assert.Equal(t, "beta", result.Gateway)
		assert.Equal(t, models.PaymentStatusSettled, result.Status)
	})

	t.Run("Aggregates failures when no gateway recognizes the reference", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", verifyErr: apperrors.NewGatewayUnavailable("alpha", errors.New("not found"))}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha)

		result, err := o.VerifyPayment(ctx, "PHM-MISSING")

		assert.Nil(t, result)
		var allFailed *apperrors.AllGatewaysFailedError
		assert.ErrorAs(t, err, &allFailed)
		assert.Len(t, allFailed.Attempts, 1)
	})
}

func TestHandleWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown gateway name is rejected", func(t *testing.T) {
		o := newTestOrchestrator(newMemPaymentRepo(), &stubProvider{name: "alpha"})

		_, err := o.HandleWebhook(ctx, "nope", []byte(`{}`), "sig")

		assert.Error(t, err)
	})

	t.Run("Signature failure propagates and nothing is applied", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", webhookErr: apperrors.ErrSignatureVerification}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha)

		result, err := o.HandleWebhook(ctx, "alpha", []byte(`{}`), "bad-sig")

		assert.ErrorIs(t, err, apperrors.ErrSignatureVerification)
		assert.False(t, result.Success)
	})

	t.Run("Unrecognized event is acknowledged without state change", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", webhookEvent: &models.GatewayWebhookEvent{
			Success:   true,
			Processed: false,
			Gateway:   "alpha",
			EventType: "subscription.create",
		}}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha)

		result, err := o.HandleWebhook(ctx, "alpha", []byte(`{}`), "sig")

		assert.NoError(t, err)
		assert.True(t, result.Success)
		assert.False(t, result.Processed)
	})
}

func TestHealthCheckAndStats(t *testing.T) {
	ctx := context.Background()

	t.Run("Probes update the health table and priority order is preserved", func(t *testing.T) {
		alpha := &stubProvider{name: "alpha", healthy: false}
		beta := &stubProvider{name: "beta", healthy: true}
		o := newTestOrchestrator(newMemPaymentRepo(), alpha, beta)

		o.PerformHealthCheck(ctx)

		stats := o.GatewayStats()
		assert.Len(t, stats, 2)
		assert.Equal(t, "alpha", stats[0].Gateway)
		assert.Equal(t, 1, stats[0].Priority)
		assert.False(t, stats[0].Health.Healthy)
		assert.True(t, stats[1].Health.Healthy)
	})

	t.Run("Never-probed gateways default to healthy", func(t *testing.T) {
		o := newTestOrchestrator(newMemPaymentRepo(), &stubProvider{name: "alpha"})

		stats := o.GatewayStats()
		assert.True(t, stats[0].Health.Healthy)
	})
}

func TestCancelPayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Pending payments cancel, settled ones refuse", func(t *testing.T) {
		repo := newMemPaymentRepo()
		o := newTestOrchestrator(repo, &stubProvider{name: "alpha"})

		order := testOrder()
		result, err := o.ProcessPayment(ctx, order)
		assert.NoError(t, err)

		cancelled, err := o.CancelPayment(ctx, order.OrderReference)
		assert.NoError(t, err)
		assert.True(t, cancelled)
		assert.Equal(t, models.PaymentStatusCancelled, repo.status(result.PaymentID))

		// A second cancellation finds a terminal record and refuses.
		cancelled, err = o.CancelPayment(ctx, order.OrderReference)
		assert.NoError(t, err)
		assert.False(t, cancelled)
	})
}
