package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderServiceClient reports terminal payment outcomes back to the order
// subsystem over its internal HTTP API. It implements models.OrderStatusUpdater.
type OrderServiceClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewOrderServiceClient(baseURL string, logger *zap.Logger) *OrderServiceClient {
	return &OrderServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *OrderServiceClient) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status string) error {
	if c.baseURL == "" {
		// No order service configured (local dev); the callback is a no-op.
		c.logger.Info("Order status update skipped, no order service configured",
			zap.String("order_id", orderID.String()),
			zap.String("status", status),
		)
		return nil
	}

	body, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/internal/orders/%s/status", c.baseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("order status update failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("order service returned status %d", resp.StatusCode)
	}
	return nil
}
