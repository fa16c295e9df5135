package controllers_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/Moduloscript/pharmacy-project-sub001/controllers"
	"github.com/Moduloscript/pharmacy-project-sub001/models"
	"github.com/Moduloscript/pharmacy-project-sub001/providers"
	"github.com/Moduloscript/pharmacy-project-sub001/routes"
	"github.com/Moduloscript/pharmacy-project-sub001/services"
)

// --- In-memory payment repository ---

type fakePaymentRepo struct {
	mu            sync.Mutex
	payments      map[uuid.UUID]*models.Payment
	transitionErr error // returned by the next TransitionStatus call, then cleared
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{payments: make(map[uuid.UUID]*models.Payment)}
}

func (r *fakePaymentRepo) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	clone := *payment
	r.payments[payment.ID] = &clone
	return nil
}

func (r *fakePaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.payments[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) FindByGatewayReference(ctx context.Context, ref string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.GatewayReference != nil && *p.GatewayReference == ref {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) FindByOrderReference(ctx context.Context, ref string) (*models.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.payments {
		if p.OrderReference == ref {
			clone := *p
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakePaymentRepo) TransitionStatus(ctx context.Context, id uuid.UUID, to models.PaymentStatus, updates map[string]interface{}) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.transitionErr != nil {
		err := r.transitionErr
		r.transitionErr = nil
		return false, err
	}
	p, ok := r.payments[id]
	if !ok || p.Status.IsTerminal() {
		return false, nil
	}
	p.Status = to
	if ref, ok := updates["gateway_reference"].(string); ok {
		p.GatewayReference = &ref
	}
	return true, nil
}

func (r *fakePaymentRepo) Cancel(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return false, nil
	}
	p.Status = models.PaymentStatusCancelled
	return true, nil
}

func (r *fakePaymentRepo) CountByStatus(ctx context.Context) (map[models.PaymentStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.PaymentStatus]int64)
	for _, p := range r.payments {
		counts[p.Status]++
	}
	return counts, nil
}

// --- Test harness ---

const (
	testJWTSecret      = "payment-test-secret"
	testPaystackSecret = "sk_test_controller"
)

type harness struct {
	router *gin.Engine
	repo   *fakePaymentRepo
	server *httptest.Server
}

// newHarness wires the full HTTP surface against an httptest Paystack and an
// in-memory store.
func newHarness(t *testing.T) *harness {
	gin.SetMode(gin.TestMode)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/transaction/initialize":
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"status": true,
				"data": map[string]string{
					"authorization_url": "https://checkout.paystack.com/h123",
					"reference":         "PHM-CTRL-001",
				},
			})
		default:
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": true})
		}
	}))
	t.Cleanup(server.Close)

	provider := providers.NewPaystackProvider(testPaystackSecret)
	provider.SetBaseURL(server.URL)

	repo := newFakePaymentRepo()
	processor := services.NewWebhookProcessor(services.WebhookProcessorParams{
		Payments: repo,
		Logger:   zap.NewNop(),
	})
	orchestrator := services.NewPaymentOrchestrator(repo, processor, 5*time.Second, zap.NewNop(), nil)
	orchestrator.RegisterProvider(provider)

	router := gin.New()
	pc := controllers.NewPaymentController(orchestrator, zap.NewNop())
	routes.RegisterPaymentRoutes(router, pc, []byte(testJWTSecret))

	return &harness{router: router, repo: repo, server: server}
}

func (h *harness) authToken(t *testing.T) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	assert.NoError(t, err)
	return "Bearer " + signed
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) initiate(t *testing.T, reference string) {
	body, _ := json.Marshal(map[string]interface{}{
		"order_id":        uuid.New().String(),
		"order_reference": reference,
		"amount":          5000,
		"currency":        "NGN",
		"customer_name":   "Adaeze Obi",
		"customer_email":  "adaeze@example.com",
		"customer_phone":  "08012345678",
	})
	req := httptest.NewRequest(http.MethodPost, "/payments/initiate", bytes.NewBuffer(body))
	req.Header.Set("Authorization", h.authToken(t))

	w := h.do(req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func signWebhook(payload []byte) string {
	mac := hmac.New(sha512.New, []byte(testPaystackSecret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// --- Tests ---

func TestInitiatePaymentRoute(t *testing.T) {
	t.Run("Success - 200 with checkout URL", func(t *testing.T) {
		h := newHarness(t)
		body, _ := json.Marshal(map[string]interface{}{
			"order_id":       uuid.New().String(),
			"amount":         5000,
			"currency":       "NGN",
			"customer_name":  "Adaeze Obi",
			"customer_email": "adaeze@example.com",
			"customer_phone": "08012345678",
		})
		req := httptest.NewRequest(http.MethodPost, "/payments/initiate", bytes.NewBuffer(body))
		req.Header.Set("Authorization", h.authToken(t))

		w := h.do(req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "https://checkout.paystack.com/h123", resp["payment_url"])
		assert.Equal(t, "paystack", resp["gateway"])
	})

	t.Run("Missing token - 401", func(t *testing.T) {
		h := newHarness(t)
		req := httptest.NewRequest(http.MethodPost, "/payments/initiate", bytes.NewBufferString(`{}`))

		w := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Malformed body - 400", func(t *testing.T) {
		h := newHarness(t)
		req := httptest.NewRequest(http.MethodPost, "/payments/initiate", bytes.NewBufferString(`{"amount": -1}`))
		req.Header.Set("Authorization", h.authToken(t))

		w := h.do(req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Invalid phone - 400 with the offending field", func(t *testing.T) {
		h := newHarness(t)
		body, _ := json.Marshal(map[string]interface{}{
			"order_id":       uuid.New().String(),
			"amount":         5000,
			"currency":       "NGN",
			"customer_name":  "Adaeze Obi",
			"customer_email": "adaeze@example.com",
			"customer_phone": "12345",
		})
		req := httptest.NewRequest(http.MethodPost, "/payments/initiate", bytes.NewBuffer(body))
		req.Header.Set("Authorization", h.authToken(t))

		w := h.do(req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp map[string]interface{}
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		assert.Equal(t, "phone", resp["field"])
	})
}

func TestWebhookRoute(t *testing.T) {
	payload := []byte(`{
		"event": "charge.success",
		"data": {
			"id": 555,
			"status": "success",
			"reference": "PHM-CTRL-001",
			"amount": 500000,
			"currency": "NGN"
		}
	}`)

	t.Run("Bad signature - 401 and no state change", func(t *testing.T) {
		h := newHarness(t)
		h.initiate(t, "PHM-CTRL-001")

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewBuffer(payload))
		req.Header.Set("X-Paystack-Signature", "deadbeef")

		w := h.do(req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		payment, err := h.repo.FindByOrderReference(context.Background(), "PHM-CTRL-001")
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStatusPending, payment.Status)
	})

	t.Run("Triple delivery settles exactly once", func(t *testing.T) {
		h := newHarness(t)
		h.initiate(t, "PHM-CTRL-001")

		for i := 0; i < 3; i++ {
			req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewBuffer(payload))
			req.Header.Set("X-Paystack-Signature", signWebhook(payload))

			w := h.do(req)
			assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		}

		payment, err := h.repo.FindByOrderReference(context.Background(), "PHM-CTRL-001")
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStatusSettled, payment.Status)
	})

	t.Run("Internal failure while applying - 500 so the gateway redelivers", func(t *testing.T) {
		h := newHarness(t)
		h.initiate(t, "PHM-CTRL-001")
		h.repo.transitionErr = errors.New("pq: connection refused")

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewBuffer(payload))
		req.Header.Set("X-Paystack-Signature", signWebhook(payload))
		w := h.do(req)
		assert.Equal(t, http.StatusInternalServerError, w.Code, w.Body.String())

		// Redelivery after the outage clears settles the payment.
		req = httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewBuffer(payload))
		req.Header.Set("X-Paystack-Signature", signWebhook(payload))
		w = h.do(req)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

		payment, err := h.repo.FindByOrderReference(context.Background(), "PHM-CTRL-001")
		assert.NoError(t, err)
		assert.Equal(t, models.PaymentStatusSettled, payment.Status)
	})

	t.Run("Empty payload - 400", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/webhooks/paystack", bytes.NewBuffer(nil))

		w := h.do(req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCancelPaymentRoute(t *testing.T) {
	t.Run("Pending cancels once, second attempt conflicts", func(t *testing.T) {
		h := newHarness(t)
		h.initiate(t, "PHM-CTRL-002")

		req := httptest.NewRequest(http.MethodPost, "/payments/PHM-CTRL-002/cancel", nil)
		req.Header.Set("Authorization", h.authToken(t))
		w := h.do(req)
		assert.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodPost, "/payments/PHM-CTRL-002/cancel", nil)
		req.Header.Set("Authorization", h.authToken(t))
		w = h.do(req)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Unknown reference - 404", func(t *testing.T) {
		h := newHarness(t)

		req := httptest.NewRequest(http.MethodPost, "/payments/PHM-NOPE/cancel", nil)
		req.Header.Set("Authorization", h.authToken(t))
		w := h.do(req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestGatewayStatsRoute(t *testing.T) {
	h := newHarness(t)

	req := httptest.NewRequest(http.MethodGet, "/payments/gateways/stats", nil)
	req.Header.Set("Authorization", h.authToken(t))
	w := h.do(req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Gateways []models.GatewayStats `json:"gateways"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Len(t, resp.Gateways, 1)
	assert.Equal(t, "paystack", resp.Gateways[0].Gateway)
}
