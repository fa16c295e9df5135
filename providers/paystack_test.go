package providers

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
)

func validOrder() *models.Order {
	return &models.Order{
		ID:             uuid.New(),
		OrderReference: "PHM-TEST-100",
		Currency:       "NGN",
		TotalAmount:    5000,
		CustomerName:   "Adaeze Obi",
		CustomerEmail:  "adaeze@example.com",
		CustomerPhone:  "08012345678",
	}
}

func signSHA512(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestPaystackInitializePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Amount is sent in kobo and the checkout URL comes back", func(t *testing.T) {
		var captured paystackInitRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/transaction/initialize", r.URL.Path)
			assert.Equal(t, "Bearer sk_test_xyz", r.Header.Get("Authorization"))
			_ = json.NewDecoder(r.Body).Decode(&captured)

			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status":  true,
				"message": "Authorization URL created",
				"data": map[string]string{
					"authorization_url": "https://checkout.paystack.com/abc123",
					"access_code":       "abc123",
					"reference":         "PHM-TEST-100",
				},
			})
		}))
		defer server.Close()

		p := NewPaystackProvider("sk_test_xyz")
		p.baseURL = server.URL

		result, err := p.InitializePayment(ctx, validOrder())

		assert.NoError(t, err)
		assert.Equal(t, int64(500000), captured.Amount)
		assert.Equal(t, "NGN", captured.Currency)
		assert.Equal(t, "https://checkout.paystack.com/abc123", result.PaymentURL)
		assert.Equal(t, "paystack", result.Gateway)
	})

	t.Run("Invalid order never reaches the network", func(t *testing.T) {
		p := NewPaystackProvider("sk_test_xyz")
		p.baseURL = "http://127.0.0.1:0"

		order := validOrder()
		order.CustomerPhone = "12345"

		_, err := p.InitializePayment(ctx, order)

		assert.True(t, apperrors.IsInvalidInput(err))
	})

	t.Run("Gateway outage is typed as unavailable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		p := NewPaystackProvider("sk_test_xyz")
		p.baseURL = server.URL

		_, err := p.InitializePayment(ctx, validOrder())

		assert.True(t, apperrors.IsGatewayUnavailable(err))
	})
}

func TestPaystackVerifyPayment(t *testing.T) {
	ctx := context.Background()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transaction/verify/PHM-TEST-100", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  true,
			"message": "Verification successful",
			"data": map[string]interface{}{
				"id":        987654321,
				"status":    "success",
				"reference": "PHM-TEST-100",
				"amount":    500000,
				"currency":  "NGN",
				"channel":   "card",
				"fees":      7500,
			},
		})
	}))
	defer server.Close()

	p := NewPaystackProvider("sk_test_xyz")
	p.baseURL = server.URL

	result, err := p.VerifyPayment(ctx, "PHM-TEST-100")

	assert.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.PaymentStatusSettled, result.Status)
	assert.Equal(t, 5000.0, result.Amount)
	assert.Equal(t, 75.0, result.Fee)
	assert.Equal(t, "card", result.PaymentMethod)
}

func TestPaystackHandleWebhook(t *testing.T) {
	ctx := context.Background()
	p := NewPaystackProvider("sk_test_xyz")

	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 987654321,
			"status": "success",
			"reference": "PHM-TEST-100",
			"amount": 500000,
			"currency": "NGN",
			"fees": 7500
		}
	}`)

	t.Run("Valid signature settles in naira", func(t *testing.T) {
		event, err := p.HandleWebhook(ctx, payload, signSHA512("sk_test_xyz", payload))

		assert.NoError(t, err)
		assert.True(t, event.Processed)
		assert.Equal(t, models.PaymentStatusSettled, event.Status)
		assert.Equal(t, 5000.0, event.Amount)
		assert.Equal(t, "PHM-TEST-100", event.Reference)
		assert.Equal(t, "987654321", event.GatewayReference)
	})

	t.Run("Bad signature is rejected and nothing is processed", func(t *testing.T) {
		event, err := p.HandleWebhook(ctx, payload, "deadbeef")

		assert.ErrorIs(t, err, apperrors.ErrSignatureVerification)
		assert.False(t, event.Success)
		assert.False(t, event.Processed)
	})

	t.Run("Tampered payload fails verification", func(t *testing.T) {
		tampered := []byte(`{"event":"charge.success","data":{"amount":1}}`)

		_, err := p.HandleWebhook(ctx, tampered, signSHA512("sk_test_xyz", payload))

		assert.ErrorIs(t, err, apperrors.ErrSignatureVerification)
	})

	t.Run("Events outside the vocabulary are passed over", func(t *testing.T) {
		other := []byte(`{"event":"subscription.create","data":{}}`)

		event, err := p.HandleWebhook(ctx, other, signSHA512("sk_test_xyz", other))

		assert.NoError(t, err)
		assert.True(t, event.Success)
		assert.False(t, event.Processed)
	})

	t.Run("Unmapped transaction status surfaces as UNKNOWN", func(t *testing.T) {
		odd := []byte(`{"event":"charge.success","data":{"status":"queued","reference":"PHM-TEST-100","amount":500000}}`)

		event, err := p.HandleWebhook(ctx, odd, signSHA512("sk_test_xyz", odd))

		assert.NoError(t, err)
		assert.True(t, event.Processed)
		assert.Equal(t, models.PaymentStatusUnknown, event.Status)
	})
}

func TestPaystackCheckHealth(t *testing.T) {
	ctx := context.Background()

	t.Run("Bank list probe reports healthy", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/bank", r.URL.Path)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data":   []map[string]string{{"name": "GTBank", "code": "058"}},
			})
		}))
		defer server.Close()

		p := NewPaystackProvider("sk_test_xyz")
		p.baseURL = server.URL

		health := p.CheckHealth(ctx)

		assert.True(t, health.Healthy)
		assert.Empty(t, health.Error)
	})

	t.Run("Unreachable gateway reports unhealthy with the cause", func(t *testing.T) {
		p := NewPaystackProvider("sk_test_xyz")
		p.baseURL = "http://127.0.0.1:1"

		health := p.CheckHealth(ctx)

		assert.False(t, health.Healthy)
		assert.NotEmpty(t, health.Error)
	})
}
