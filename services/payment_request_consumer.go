package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	awspkg "github.com/Moduloscript/pharmacy-project-sub001/pkg/aws"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
	"github.com/Moduloscript/pharmacy-project-sub001/utils"
)

// PaymentRequestConsumer drains asynchronous payment requests from SQS and
// feeds them into the orchestrator. Other services (cart checkout, order
// placement) enqueue instead of calling the HTTP surface directly.
type PaymentRequestConsumer struct {
	consumer     *awspkg.SQSConsumer
	orchestrator *PaymentOrchestrator
	logger       *zap.Logger
}

func NewPaymentRequestConsumer(consumer *awspkg.SQSConsumer, orchestrator *PaymentOrchestrator, logger *zap.Logger) *PaymentRequestConsumer {
	return &PaymentRequestConsumer{
		consumer:     consumer,
		orchestrator: orchestrator,
		logger:       logger,
	}
}

// Start polls until the context is cancelled. Callers run it in its own
// goroutine.
func (c *PaymentRequestConsumer) Start(ctx context.Context) error {
	return c.consumer.StartPolling(ctx, c.handleMessage)
}

func (c *PaymentRequestConsumer) handleMessage(ctx context.Context, body string) error {
	var req models.PaymentRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		// Malformed messages are dropped, not retried: redelivery cannot fix them.
		c.logger.Error("Dropping malformed payment request", zap.Error(err))
		return nil
	}

	order, err := c.toOrder(&req)
	if err != nil {
		c.logger.Error("Dropping invalid payment request",
			zap.String("order_id", req.OrderID),
			zap.Error(err),
		)
		return nil
	}

	result, err := c.orchestrator.ProcessPayment(ctx, order)
	if err != nil {
		if apperrors.IsInvalidInput(err) {
			c.logger.Error("Payment request rejected by validation",
				zap.String("order_reference", order.OrderReference),
				zap.Error(err),
			)
			return nil
		}
		// Gateway-side failures are retryable: leave the message visible.
		return fmt.Errorf("payment processing failed for %s: %w", order.OrderReference, err)
	}

	c.logger.Info("Async payment request processed",
		zap.String("order_reference", order.OrderReference),
		zap.String("gateway", result.Gateway),
		zap.String("payment_id", result.PaymentID.String()),
	)
	return nil
}

func (c *PaymentRequestConsumer) toOrder(req *models.PaymentRequest) (*models.Order, error) {
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, fmt.Errorf("invalid order id %q: %w", req.OrderID, err)
	}

	reference := req.OrderReference
	if reference == "" {
		reference = utils.GenerateOrderReference()
	}

	return &models.Order{
		ID:             orderID,
		OrderReference: reference,
		Currency:       req.Currency,
		TotalAmount:    req.Amount,
		Items:          req.Items,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
	}, nil
}
