package models

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"

	NotificationStatusQueued = "queued"
	NotificationStatusSent   = "sent"
	NotificationStatusFailed = "failed"

	TypePaymentReceived = "payment_received"
	TypePaymentFailed   = "payment_failed"
	TypeOrderPaid       = "order_paid"
)

// NotificationLog records one outbound notification. At most one row may
// exist per idempotency key; a duplicate creation attempt returns the
// existing row, which makes webhook replay and client retries safe.
type NotificationLog struct {
	ID             int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	IdempotencyKey string    `json:"idempotency_key" gorm:"type:varchar(64);uniqueIndex;not null"`
	Recipient      string    `json:"recipient" gorm:"type:varchar(255);not null"`
	Type           string    `json:"type" gorm:"type:varchar(32);not null"`
	Channel        string    `json:"channel" gorm:"type:varchar(16);not null"`
	Status         string    `json:"status" gorm:"type:varchar(16);not null"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// NotificationIdempotencyKey computes the deterministic digest over
// (recipient, type, channel, canonical JSON encoding of data). Callers that
// supply their own key bypass this and store it directly.
func NotificationIdempotencyKey(recipient, notifType, channel string, data map[string]interface{}) string {
	// encoding/json sorts map keys, which gives a canonical byte form.
	encoded, _ := json.Marshal(data)
	h := sha256.New()
	h.Write([]byte(recipient))
	h.Write([]byte{0})
	h.Write([]byte(notifType))
	h.Write([]byte{0})
	h.Write([]byte(channel))
	h.Write([]byte{0})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}
