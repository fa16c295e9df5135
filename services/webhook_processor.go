package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	awspkg "github.com/Moduloscript/pharmacy-project-sub001/pkg/aws"
	"github.com/Moduloscript/pharmacy-project-sub001/repository"
)

// PaymentEventPublisher publishes standardized payment events after terminal
// transitions. Implemented by the Kafka producer; mocked in tests.
type PaymentEventPublisher interface {
	SendPaymentEvent(ctx context.Context, event models.PaymentEvent) error
}

// DeliveryDeduper short-circuits replayed webhook deliveries by their raw
// payload. Implemented by cache.WebhookDedup; mocked in tests.
type DeliveryDeduper interface {
	// MarkDelivery returns true when this payload has not been seen before.
	MarkDelivery(ctx context.Context, gateway string, payload []byte) bool
	// Forget drops the marker so a redelivery is processed again.
	Forget(ctx context.Context, gateway string, payload []byte)
}

// WebhookProcessor applies normalized gateway webhook events to payment
// records, idempotently and with the terminal-state-wins rule.
type WebhookProcessor struct {
	payments      repository.PaymentRepository
	notifications repository.NotificationLogRepository
	audit         repository.AuditRepository
	reconciler    *AmountReconciler
	orderUpdater  models.OrderStatusUpdater
	events        PaymentEventPublisher
	alerts        awspkg.SNSPublisher
	alertTopicARN string
	dedup         DeliveryDeduper
	metrics       *awspkg.MetricsClient
	logger        *zap.Logger
}

// WebhookProcessorParams collects the processor's collaborators. The audit,
// alert, dedup, notification and event sinks are optional; a nil sink is
// skipped with a logged note rather than aborting the flow.
type WebhookProcessorParams struct {
	Payments      repository.PaymentRepository
	Notifications repository.NotificationLogRepository
	Audit         repository.AuditRepository
	Reconciler    *AmountReconciler
	OrderUpdater  models.OrderStatusUpdater
	Events        PaymentEventPublisher
	Alerts        awspkg.SNSPublisher
	AlertTopicARN string
	Dedup         DeliveryDeduper
	Metrics       *awspkg.MetricsClient
	Logger        *zap.Logger
}

func NewWebhookProcessor(p WebhookProcessorParams) *WebhookProcessor {
	if p.Reconciler == nil {
		p.Reconciler = NewAmountReconciler()
	}
	return &WebhookProcessor{
		payments:      p.Payments,
		notifications: p.Notifications,
		audit:         p.Audit,
		reconciler:    p.Reconciler,
		orderUpdater:  p.OrderUpdater,
		events:        p.Events,
		alerts:        p.Alerts,
		alertTopicARN: p.AlertTopicARN,
		dedup:         p.Dedup,
		metrics:       p.Metrics,
		logger:        p.Logger,
	}
}

// Apply takes a provider-normalized webhook event and applies it to the
// matching payment record. Replays and out-of-order terminal events are
// acknowledged as no-ops so gateways stop retrying.
func (w *WebhookProcessor) Apply(ctx context.Context, event *models.GatewayWebhookEvent) (*models.WebhookResult, error) {
	result := &models.WebhookResult{
		Success:       true,
		Processed:     true,
		Gateway:       event.Gateway,
		Reference:     event.Reference,
		PaymentStatus: event.Status,
	}

	// Fast-path replay short circuit. The conditional update below remains
	// the correctness guarantee if Redis is down. The marker is dropped again
	// on any failed apply so the gateway's redelivery is not swallowed.
	marked := false
	if w.dedup != nil && len(event.Raw) > 0 {
		if first := w.dedup.MarkDelivery(ctx, event.Gateway, event.Raw); !first {
			w.logger.Info("Skipping duplicate webhook delivery",
				zap.String("gateway", event.Gateway),
				zap.String("reference", event.Reference),
			)
			result.Message = "duplicate delivery"
			return result, nil
		}
		marked = true
	}

	if event.Status == models.PaymentStatusUnknown {
		w.logger.Warn("Webhook carries unrecognized gateway status",
			zap.String("gateway", event.Gateway),
			zap.String("event_type", event.EventType),
			zap.String("reference", event.Reference),
		)
		w.writeAudit(ctx, &models.AuditRecord{
			Kind:           models.AuditKindAnomaly,
			Gateway:        event.Gateway,
			OrderReference: event.Reference,
			Message:        fmt.Sprintf("unrecognized status in event %s", event.EventType),
			RawPayload:     event.Raw,
		})
		result.Message = "unrecognized status"
		return result, nil
	}

	payment, err := w.resolvePayment(ctx, event)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Acknowledge so the gateway does not retry forever.
			w.logger.Warn("Orphaned webhook: no payment record found",
				zap.String("gateway", event.Gateway),
				zap.String("reference", event.Reference),
				zap.String("gateway_reference", event.GatewayReference),
			)
			result.Orphaned = true
			result.Message = "orphaned event"
			return result, nil
		}
		if marked {
			w.dedup.Forget(ctx, event.Gateway, event.Raw)
		}
		return nil, err
	}
	result.OrderID = &payment.OrderID

	if payment.Status.IsTerminal() {
		if event.Status.IsTerminal() && event.Status != payment.Status {
			w.logger.Warn("Conflicting terminal webhook ignored",
				zap.String("payment_id", payment.ID.String()),
				zap.String("current_status", string(payment.Status)),
				zap.String("webhook_status", string(event.Status)),
			)
			w.writeAudit(ctx, &models.AuditRecord{
				Kind:           models.AuditKindAnomaly,
				Gateway:        event.Gateway,
				OrderReference: payment.OrderReference,
				PaymentID:      payment.ID.String(),
				Message:        fmt.Sprintf("webhook reported %s after payment settled as %s", event.Status, payment.Status),
				RawPayload:     event.Raw,
			})
		}
		result.PaymentStatus = payment.Status
		result.Message = "already in terminal state"
		return result, nil
	}

	if event.Status == models.PaymentStatusSettled {
		rec := w.reconciler.Reconcile(payment.Amount, payment.Amount, event.Amount, payment.Currency)
		if !rec.Valid {
			w.refuseSettlement(ctx, payment, event, rec)
			result.PaymentStatus = payment.Status
			result.Message = "settlement refused: " + rec.Reason
			return result, nil
		}
		if rec.Corrected {
			w.recordMismatchMetric(event.Gateway)
			w.logger.Warn("Amount mismatch auto-corrected",
				zap.String("payment_id", payment.ID.String()),
				zap.Float64("gateway_amount", event.Amount),
				zap.Float64("order_total", payment.Amount),
				zap.Float64("ratio", rec.Ratio),
			)
			w.writeAudit(ctx, &models.AuditRecord{
				Kind:           models.AuditKindAmountMismatch,
				Gateway:        event.Gateway,
				OrderReference: payment.OrderReference,
				PaymentID:      payment.ID.String(),
				Message:        "auto-corrected: " + rec.Reason,
				OrderTotal:     payment.Amount,
				GatewayAmount:  event.Amount,
				Ratio:          rec.Ratio,
				RawPayload:     event.Raw,
			})
		}
	}

	applied, err := w.payments.TransitionStatus(ctx, payment.ID, event.Status, w.transitionUpdates(payment, event))
	if err != nil {
		if marked {
			w.dedup.Forget(ctx, event.Gateway, event.Raw)
		}
		return nil, err
	}
	if !applied {
		// Lost the race against another webhook or a verification call; the
		// record is terminal now, which is exactly what replays expect.
		w.logger.Info("Status transition skipped, payment already terminal",
			zap.String("payment_id", payment.ID.String()),
			zap.String("webhook_status", string(event.Status)),
		)
		result.Message = "already in terminal state"
		return result, nil
	}

	result.Applied = true
	w.logger.Info("Payment status updated from webhook",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", event.Gateway),
		zap.String("status", string(event.Status)),
	)
	w.writeAudit(ctx, &models.AuditRecord{
		Kind:           models.AuditKindWebhook,
		Gateway:        event.Gateway,
		OrderReference: payment.OrderReference,
		PaymentID:      payment.ID.String(),
		Message:        fmt.Sprintf("applied %s from event %s", event.Status, event.EventType),
		RawPayload:     event.Raw,
	})

	if event.Status.IsTerminal() {
		w.afterTerminalTransition(ctx, payment, event)
	}

	result.PaymentStatus = event.Status
	return result, nil
}

// resolvePayment finds the target record by exact gateway reference first,
// then by the order reference embedded in the payload.
func (w *WebhookProcessor) resolvePayment(ctx context.Context, event *models.GatewayWebhookEvent) (*models.Payment, error) {
	if event.GatewayReference != "" {
		payment, err := w.payments.FindByGatewayReference(ctx, event.GatewayReference)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if event.Reference == "" {
		return nil, gorm.ErrRecordNotFound
	}
	return w.payments.FindByOrderReference(ctx, event.Reference)
}

func (w *WebhookProcessor) transitionUpdates(payment *models.Payment, event *models.GatewayWebhookEvent) map[string]interface{} {
	now := time.Now()
	updates := map[string]interface{}{
		"raw_response": string(event.Raw),
	}
	if event.GatewayReference != "" && payment.GatewayReference == nil {
		updates["gateway_reference"] = event.GatewayReference
	}
	if event.Fee > 0 {
		updates["gateway_fee"] = event.Fee
	}
	switch event.Status {
	case models.PaymentStatusSettled:
		updates["settled_at"] = &now
	case models.PaymentStatusFailed:
		updates["failed_at"] = &now
	case models.PaymentStatusSent:
		updates["sent_at"] = &now
	}
	return updates
}

// refuseSettlement writes the mismatch audit record and raises the SNS alert
// for manual review. The payment stays in its prior status; mismatches are
// never auto-retried.
func (w *WebhookProcessor) refuseSettlement(ctx context.Context, payment *models.Payment, event *models.GatewayWebhookEvent, rec ReconcileResult) {
	w.logger.Error("Settlement refused: amount mismatch",
		zap.String("payment_id", payment.ID.String()),
		zap.String("gateway", event.Gateway),
		zap.Float64("order_total", payment.Amount),
		zap.Float64("gateway_amount", event.Amount),
		zap.Float64("ratio", rec.Ratio),
		zap.String("reason", rec.Reason),
	)

	w.recordMismatchMetric(event.Gateway)

	record := &models.AuditRecord{
		Kind:           models.AuditKindAmountMismatch,
		Gateway:        event.Gateway,
		OrderReference: payment.OrderReference,
		PaymentID:      payment.ID.String(),
		Message:        "settlement refused: " + rec.Reason,
		OrderTotal:     payment.Amount,
		GatewayAmount:  event.Amount,
		Ratio:          rec.Ratio,
		RawPayload:     event.Raw,
	}
	w.writeAudit(ctx, record)

	if w.alerts != nil && w.alertTopicARN != "" {
		message, _ := json.Marshal(record)
		if err := w.alerts.Publish(ctx, w.alertTopicARN, message); err != nil {
			w.logger.Error("Failed to publish amount-mismatch alert", zap.Error(err))
		}
	}
}

// afterTerminalTransition runs the side effects of a terminal transition:
// order-status callback, Kafka event, idempotent notification log. Each is
// best-effort; a failure is logged and never aborts webhook acknowledgment.
func (w *WebhookProcessor) afterTerminalTransition(ctx context.Context, payment *models.Payment, event *models.GatewayWebhookEvent) {
	orderStatus := models.OrderStatusPaid
	eventType := models.EventPaymentSettled
	notifType := models.TypePaymentReceived
	if event.Status == models.PaymentStatusFailed {
		orderStatus = models.OrderStatusPaymentFailed
		eventType = models.EventPaymentFailed
		notifType = models.TypePaymentFailed
	}

	if w.orderUpdater != nil {
		if err := w.orderUpdater.UpdateOrderStatus(ctx, payment.OrderID, orderStatus); err != nil {
			w.logger.Error("Order status callback failed",
				zap.String("order_id", payment.OrderID.String()),
				zap.String("status", orderStatus),
				zap.Error(err),
			)
		}
	}

	if w.events != nil {
		err := w.events.SendPaymentEvent(ctx, models.PaymentEvent{
			Type:      eventType,
			OrderID:   payment.OrderID.String(),
			PaymentID: payment.ID.String(),
			Reference: payment.OrderReference,
			Gateway:   event.Gateway,
			Amount:    payment.Amount,
			Currency:  payment.Currency,
			Status:    string(event.Status),
			Timestamp: time.Now().UTC(),
		})
		if err != nil {
			w.logger.Error("Failed to publish payment event", zap.Error(err))
		}
	}

	if w.notifications != nil {
		key := models.NotificationIdempotencyKey(payment.OrderReference, notifType, models.ChannelSMS, map[string]interface{}{
			"payment_id": payment.ID.String(),
			"status":     string(event.Status),
		})
		_, created, err := w.notifications.CreateIdempotent(ctx, &models.NotificationLog{
			IdempotencyKey: key,
			Recipient:      payment.OrderReference,
			Type:           notifType,
			Channel:        models.ChannelSMS,
			Status:         models.NotificationStatusQueued,
		})
		if err != nil {
			w.logger.Error("Failed to queue payment notification", zap.Error(err))
		} else if !created {
			w.logger.Info("Payment notification already queued",
				zap.String("idempotency_key", key),
			)
		}
	}
}

func (w *WebhookProcessor) recordMismatchMetric(gateway string) {
	if w.metrics == nil || !w.metrics.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.metrics.RecordCount(ctx, awspkg.MetricAmountMismatch, map[string]string{"Gateway": gateway}); err != nil {
			w.logger.Warn("Metric publish failed", zap.String("metric", awspkg.MetricAmountMismatch), zap.Error(err))
		}
	}()
}

// writeAudit logs and discards sink failures; an audit write must never
// abort the payment flow.
func (w *WebhookProcessor) writeAudit(ctx context.Context, record *models.AuditRecord) {
	if w.audit == nil {
		return
	}
	if err := w.audit.Insert(ctx, record); err != nil {
		w.logger.Error("Failed to write audit record",
			zap.String("kind", record.Kind),
			zap.String("order_reference", record.OrderReference),
			zap.Error(err),
		)
	}
}
