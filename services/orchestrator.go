package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	awspkg "github.com/Moduloscript/pharmacy-project-sub001/pkg/aws"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
	"github.com/Moduloscript/pharmacy-project-sub001/providers"
	"github.com/Moduloscript/pharmacy-project-sub001/repository"
)

const defaultGatewayTimeout = 30 * time.Second

// PaymentOrchestrator owns the provider registry and the gateway health
// table. Registration order defines fallback priority. All shared state is
// guarded by healthMu; orchestrator operations may run concurrently.
type PaymentOrchestrator struct {
	providerList []providers.PaymentProvider
	payments     repository.PaymentRepository
	webhooks     *WebhookProcessor
	timeout      time.Duration
	logger       *zap.Logger
	metrics      *awspkg.MetricsClient

	healthMu sync.RWMutex
	health   map[string]models.GatewayHealthRecord
}

func NewPaymentOrchestrator(payments repository.PaymentRepository, webhooks *WebhookProcessor, timeout time.Duration, logger *zap.Logger, metrics *awspkg.MetricsClient) *PaymentOrchestrator {
	if timeout <= 0 {
		timeout = defaultGatewayTimeout
	}
	return &PaymentOrchestrator{
		payments: payments,
		webhooks: webhooks,
		timeout:  timeout,
		logger:   logger,
		metrics:  metrics,
		health:   make(map[string]models.GatewayHealthRecord),
	}
}

// RegisterProvider appends a provider to the fallback chain. Earlier
// registrations have higher priority.
func (o *PaymentOrchestrator) RegisterProvider(p providers.PaymentProvider) {
	o.providerList = append(o.providerList, p)
	o.logger.Info("Registered payment gateway",
		zap.String("gateway", p.Name()),
		zap.Int("priority", len(o.providerList)),
	)
}

// ProcessPayment tries gateways in health-filtered priority order and
// returns on the first success; no further candidates are tried after one
// gateway produces a checkout link.
func (o *PaymentOrchestrator) ProcessPayment(ctx context.Context, order *models.Order) (*models.PaymentInitResult, error) {
	candidates := o.healthyProviders()
	if len(candidates) == 0 {
		o.logger.Error("No healthy payment gateway available",
			zap.String("order_reference", order.OrderReference),
		)
		return nil, apperrors.ErrAllGatewaysDown
	}

	var attempts []models.GatewayAttempt

	for i, provider := range candidates {
		start := time.Now()
		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		initResult, err := provider.InitializePayment(attemptCtx, order)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			attempts = append(attempts, models.GatewayAttempt{
				Gateway:      provider.Name(),
				Success:      true,
				Timestamp:    time.Now(),
				ResponseTime: elapsed,
			})
			o.setHealth(provider.Name(), models.GatewayHealth{
				Healthy:      true,
				ResponseTime: elapsed,
				CheckedAt:    time.Now(),
			})
			if i > 0 {
				o.recordMetric(ctx, awspkg.MetricGatewayFallback, map[string]string{"Gateway": provider.Name()})
			}
			return o.recordPayment(ctx, order, initResult, attempts)
		}

		attempts = append(attempts, models.GatewayAttempt{
			Gateway:      provider.Name(),
			Success:      false,
			Error:        err.Error(),
			Timestamp:    time.Now(),
			ResponseTime: elapsed,
		})
		o.logger.Warn("Gateway attempt failed",
			zap.String("gateway", provider.Name()),
			zap.String("order_reference", order.OrderReference),
			zap.Duration("response_time", elapsed),
			zap.Error(err),
		)

		// Only hard outages degrade health. A validation failure is not the
		// gateway's fault and must not take it out of rotation.
		if isHardOutage(err) {
			o.setHealth(provider.Name(), models.GatewayHealth{
				Healthy:      false,
				ResponseTime: elapsed,
				CheckedAt:    time.Now(),
				Error:        err.Error(),
			})
		}
	}

	failure := &apperrors.AllGatewaysFailedError{}
	for _, a := range attempts {
		failure.Attempts = append(failure.Attempts, apperrors.AttemptError{Gateway: a.Gateway, Message: a.Error})
	}
	o.logger.Error("All payment gateways failed",
		zap.String("order_reference", order.OrderReference),
		zap.Int("attempts", len(attempts)),
	)
	return nil, failure
}

// VerifyPayment queries every registered gateway, not just the healthy ones:
// the payment may predate a gateway's degradation. The first successful
// answer wins; if none succeeds the aggregate error lists every reason.
func (o *PaymentOrchestrator) VerifyPayment(ctx context.Context, reference string) (*models.PaymentVerifyResult, error) {
	if len(o.providerList) == 0 {
		return nil, apperrors.ErrAllGatewaysDown
	}

	var failures []apperrors.AttemptError

	for _, provider := range o.providerList {
		attemptCtx, cancel := context.WithTimeout(ctx, o.timeout)
		result, err := provider.VerifyPayment(attemptCtx, reference)
		cancel()

		if err == nil && result.Success {
			return result, nil
		}
		msg := "verification did not succeed"
		if err != nil {
			msg = err.Error()
		}
		failures = append(failures, apperrors.AttemptError{Gateway: provider.Name(), Message: msg})
	}

	return nil, &apperrors.AllGatewaysFailedError{Attempts: failures}
}

// HandleWebhook verifies and normalizes an inbound webhook through the named
// gateway's provider, then applies it idempotently. An empty gateway name
// tries every registered provider until one recognizes the event.
func (o *PaymentOrchestrator) HandleWebhook(ctx context.Context, gateway string, payload []byte, signature string) (*models.WebhookResult, error) {
	candidates := o.providerList
	if gateway != "" {
		p := o.providerByName(gateway)
		if p == nil {
			return nil, fmt.Errorf("unknown gateway %q", gateway)
		}
		candidates = []providers.PaymentProvider{p}
	}

	o.recordMetric(ctx, awspkg.MetricWebhookReceived, map[string]string{"Gateway": gateway})

	for _, provider := range candidates {
		event, err := provider.HandleWebhook(ctx, payload, signature)
		if err != nil {
			if errors.Is(err, apperrors.ErrSignatureVerification) {
				o.logger.Warn("Webhook signature verification failed",
					zap.String("gateway", provider.Name()),
				)
			}
			return &models.WebhookResult{Success: false, Processed: false, Gateway: provider.Name()}, err
		}
		if !event.Processed {
			continue
		}
		result, err := o.webhooks.Apply(ctx, event)
		if err == nil {
			switch {
			case result.Orphaned:
				o.recordMetric(ctx, awspkg.MetricWebhookOrphaned, map[string]string{"Gateway": provider.Name()})
			case result.Applied && result.PaymentStatus == models.PaymentStatusSettled:
				o.recordMetric(ctx, awspkg.MetricPaymentSettled, map[string]string{"Gateway": provider.Name()})
			case result.Applied && result.PaymentStatus == models.PaymentStatusFailed:
				o.recordMetric(ctx, awspkg.MetricPaymentFailed, map[string]string{"Gateway": provider.Name()})
			}
		}
		return result, err
	}

	// Recognized by no gateway: acknowledge without state change.
	return &models.WebhookResult{Success: true, Processed: false, Message: "event not applicable"}, nil
}

// CancelPayment moves a PENDING payment to CANCELLED. Webhooks can never
// cancel; this is the explicit path only.
func (o *PaymentOrchestrator) CancelPayment(ctx context.Context, reference string) (bool, error) {
	payment, err := o.payments.FindByOrderReference(ctx, reference)
	if err != nil {
		return false, err
	}
	return o.payments.Cancel(ctx, payment.ID)
}

// GatewayStats returns the per-gateway snapshot for the route layer.
func (o *PaymentOrchestrator) GatewayStats() []models.GatewayStats {
	o.healthMu.RLock()
	defer o.healthMu.RUnlock()

	stats := make([]models.GatewayStats, 0, len(o.providerList))
	for i, provider := range o.providerList {
		record, ok := o.health[provider.Name()]
		if !ok {
			record = models.GatewayHealthRecord{Gateway: provider.Name(), Healthy: true}
		}
		stats = append(stats, models.GatewayStats{
			Gateway:          provider.Name(),
			Priority:         i + 1,
			Health:           record,
			SupportedMethods: provider.SupportedPaymentMethods(),
		})
	}
	return stats
}

// PerformHealthCheck probes every registered provider concurrently, each
// call bounded by the orchestrator timeout, and replaces the health records
// atomically.
func (o *PaymentOrchestrator) PerformHealthCheck(ctx context.Context) {
	var wg sync.WaitGroup
	for _, provider := range o.providerList {
		wg.Add(1)
		go func(p providers.PaymentProvider) {
			defer wg.Done()
			probeCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()

			health := p.CheckHealth(probeCtx)
			o.setHealth(p.Name(), health)
			if !health.Healthy {
				o.logger.Warn("Gateway health check failed",
					zap.String("gateway", p.Name()),
					zap.String("error", health.Error),
				)
			}
		}(provider)
	}
	wg.Wait()
}

// recordPayment persists the successful initialization and assembles the
// orchestration result.
func (o *PaymentOrchestrator) recordPayment(ctx context.Context, order *models.Order, init *models.GatewayInitResult, attempts []models.GatewayAttempt) (*models.PaymentInitResult, error) {
	payment := &models.Payment{
		OrderID:        order.ID,
		OrderReference: order.OrderReference,
		Amount:         order.TotalAmount,
		Currency:       order.Currency,
		Gateway:        init.Gateway,
		Status:         models.PaymentStatusPending,
		CheckoutURL:    &init.PaymentURL,
	}
	if err := o.payments.Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("gateway %s initialized but payment record could not be saved: %w", init.Gateway, err)
	}

	o.logger.Info("Payment initialized",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", init.Gateway),
		zap.String("order_reference", order.OrderReference),
		zap.Float64("amount", order.TotalAmount),
	)
	o.recordMetric(ctx, awspkg.MetricPaymentInitialized, map[string]string{"Gateway": init.Gateway})

	return &models.PaymentInitResult{
		PaymentID:  payment.ID,
		PaymentURL: init.PaymentURL,
		Reference:  init.Reference,
		Gateway:    init.Gateway,
		Attempts:   attempts,
		Metadata:   init.Metadata,
	}, nil
}

// healthyProviders filters the registry to healthy gateways, preserving
// priority order. Never-checked gateways count as healthy.
func (o *PaymentOrchestrator) healthyProviders() []providers.PaymentProvider {
	o.healthMu.RLock()
	defer o.healthMu.RUnlock()

	healthy := make([]providers.PaymentProvider, 0, len(o.providerList))
	for _, p := range o.providerList {
		if record, ok := o.health[p.Name()]; ok && !record.Healthy {
			continue
		}
		healthy = append(healthy, p)
	}
	return healthy
}

func (o *PaymentOrchestrator) providerByName(name string) providers.PaymentProvider {
	for _, p := range o.providerList {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (o *PaymentOrchestrator) setHealth(gateway string, health models.GatewayHealth) {
	o.healthMu.Lock()
	defer o.healthMu.Unlock()
	o.health[gateway] = models.GatewayHealthRecord{
		Gateway:      gateway,
		Healthy:      health.Healthy,
		ResponseTime: health.ResponseTime,
		LastChecked:  health.CheckedAt,
		LastError:    health.Error,
	}
}

func (o *PaymentOrchestrator) recordMetric(ctx context.Context, name string, dimensions map[string]string) {
	if o.metrics == nil || !o.metrics.IsEnabled() {
		return
	}
	go func() {
		mctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.metrics.RecordCount(mctx, name, dimensions); err != nil {
			o.logger.Warn("Metric publish failed", zap.String("metric", name), zap.Error(err))
		}
	}()
}

// isHardOutage reports whether the failure signature indicates the gateway
// itself is down (timeout or explicit unavailability).
func isHardOutage(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || apperrors.IsGatewayUnavailable(err)
}
