package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
)

func monnifyTestServer(t *testing.T, loginCalls *int) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			*loginCalls++
			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "MK_TEST_KEY", user)
			assert.Equal(t, "MONNIFY_SECRET", pass)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"requestSuccessful": true,
				"responseBody": map[string]interface{}{
					"accessToken": "token-abc",
					"expiresIn":   3600,
				},
			})
		case "/api/v1/merchant/transactions/init-transaction":
			assert.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"requestSuccessful": true,
				"responseBody": map[string]interface{}{
					"transactionReference": "MNFY|TX|001",
					"paymentReference":     "PHM-TEST-100",
					"checkoutUrl":          "https://sdk.monnify.com/checkout/MNFY-TX-001",
				},
			})
		default:
			t.Errorf("unexpected request to %s", r.URL.Path)
		}
	}))
}

func TestMonnifyInitializePayment(t *testing.T) {
	ctx := context.Background()

	t.Run("Logs in once and reuses the cached token", func(t *testing.T) {
		loginCalls := 0
		server := monnifyTestServer(t, &loginCalls)
		defer server.Close()

		p := NewMonnifyProvider("MK_TEST_KEY", "MONNIFY_SECRET", "100693167467")
		p.baseURL = server.URL

		first, err := p.InitializePayment(ctx, validOrder())
		assert.NoError(t, err)
		assert.Equal(t, "https://sdk.monnify.com/checkout/MNFY-TX-001", first.PaymentURL)
		assert.Equal(t, "monnify", first.Gateway)

		_, err = p.InitializePayment(ctx, validOrder())
		assert.NoError(t, err)

		assert.Equal(t, 1, loginCalls)
	})

	t.Run("Login failure is a gateway outage", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		p := NewMonnifyProvider("MK_TEST_KEY", "WRONG", "100693167467")
		p.baseURL = server.URL

		_, err := p.InitializePayment(ctx, validOrder())

		assert.True(t, apperrors.IsGatewayUnavailable(err))
	})
}

func TestMonnifyHandleWebhook(t *testing.T) {
	ctx := context.Background()
	p := NewMonnifyProvider("MK_TEST_KEY", "MONNIFY_SECRET", "100693167467")

	payload := []byte(`{
		"eventType": "SUCCESSFUL_TRANSACTION",
		"eventData": {
			"transactionReference": "MNFY|TX|001",
			"paymentReference": "PHM-TEST-100",
			"paymentStatus": "PAID",
			"amountPaid": 5000,
			"fee": 35.5,
			"currencyCode": "NGN",
			"paymentMethod": "ACCOUNT_TRANSFER"
		}
	}`)

	t.Run("PAID settles with the gateway transaction reference", func(t *testing.T) {
		event, err := p.HandleWebhook(ctx, payload, signSHA512("MONNIFY_SECRET", payload))

		assert.NoError(t, err)
		assert.True(t, event.Processed)
		assert.Equal(t, models.PaymentStatusSettled, event.Status)
		assert.Equal(t, "PHM-TEST-100", event.Reference)
		assert.Equal(t, "MNFY|TX|001", event.GatewayReference)
		assert.Equal(t, 5000.0, event.Amount)
	})

	t.Run("Bad signature is rejected", func(t *testing.T) {
		_, err := p.HandleWebhook(ctx, payload, "deadbeef")

		assert.ErrorIs(t, err, apperrors.ErrSignatureVerification)
	})

	t.Run("Failed transactions map to FAILED even with an odd status", func(t *testing.T) {
		failed := []byte(`{"eventType":"FAILED_TRANSACTION","eventData":{"paymentReference":"PHM-TEST-100","paymentStatus":"REJECTED"}}`)

		event, err := p.HandleWebhook(ctx, failed, signSHA512("MONNIFY_SECRET", failed))

		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStatusFailed, event.Status)
	})

	t.Run("Settlement notifications for other products are passed over", func(t *testing.T) {
		other := []byte(`{"eventType":"SETTLEMENT","eventData":{}}`)

		event, err := p.HandleWebhook(ctx, other, signSHA512("MONNIFY_SECRET", other))

		assert.NoError(t, err)
		assert.False(t, event.Processed)
	})
}
