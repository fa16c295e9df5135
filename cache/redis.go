package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient initializes and returns a Redis client
func NewRedisClient(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// WebhookDedup is a fast-path replay short circuit in front of the DB-level
// idempotency check. It marks webhook deliveries by a digest of their raw
// payload; a second delivery of the same bytes is skipped without touching
// the database. The DB conditional update remains the correctness guarantee,
// so a Redis outage only loses the fast path.
type WebhookDedup struct {
	client *redis.Client
	ttl    time.Duration
}

func NewWebhookDedup(client *redis.Client, ttl time.Duration) *WebhookDedup {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &WebhookDedup{client: client, ttl: ttl}
}

// MarkDelivery returns true when this payload has not been seen before.
// Errors degrade to "first delivery" so Redis can never block a webhook.
func (d *WebhookDedup) MarkDelivery(ctx context.Context, gateway string, payload []byte) bool {
	if d == nil || d.client == nil {
		return true
	}
	ok, err := d.client.SetNX(ctx, deliveryKey(gateway, payload), 1, d.ttl).Result()
	if err != nil {
		return true
	}
	return ok
}

// Forget drops a delivery marker after a failed apply so the gateway's
// redelivery of the same bytes is processed instead of short-circuited.
func (d *WebhookDedup) Forget(ctx context.Context, gateway string, payload []byte) {
	if d == nil || d.client == nil {
		return
	}
	d.client.Del(ctx, deliveryKey(gateway, payload))
}

func deliveryKey(gateway string, payload []byte) string {
	sum := sha256.Sum256(payload)
	return fmt.Sprintf("webhook:%s:%s", gateway, hex.EncodeToString(sum[:]))
}
