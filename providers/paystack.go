package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
	"github.com/Moduloscript/pharmacy-project-sub001/utils"
)

const (
	paystackName    = "paystack"
	paystackBaseURL = "https://api.paystack.co"
)

// PaystackProvider implements PaymentProvider against the Paystack API.
// Paystack bills in kobo on the wire; all conversions happen here.
type PaystackProvider struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewPaystackProvider creates a new PaystackProvider.
func NewPaystackProvider(secretKey string) *PaystackProvider {
	return &PaystackProvider{
		secretKey: secretKey,
		baseURL:   paystackBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ---- Paystack API request/response structs ----

type paystackInitRequest struct {
	Email     string            `json:"email"`
	Amount    int64             `json:"amount"` // kobo
	Currency  string            `json:"currency"`
	Reference string            `json:"reference"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type paystackInitResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		AuthorizationURL string `json:"authorization_url"`
		AccessCode       string `json:"access_code"`
		Reference        string `json:"reference"`
	} `json:"data"`
}

type paystackVerifyResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"` // kobo
		Currency  string `json:"currency"`
		Channel   string `json:"channel"`
		Fees      int64  `json:"fees"` // kobo
	} `json:"data"`
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID        int64  `json:"id"`
		Status    string `json:"status"`
		Reference string `json:"reference"`
		Amount    int64  `json:"amount"` // kobo
		Currency  string `json:"currency"`
		Fees      int64  `json:"fees"`
	} `json:"data"`
}

type paystackBankListResponse struct {
	Status bool `json:"status"`
	Data   []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"data"`
}

// Fixed, exhaustive mapping from Paystack transaction statuses to the
// internal enum. Anything else maps to UNKNOWN and is never coerced.
var paystackStatusMap = map[string]models.PaymentStatus{
	"success":   models.PaymentStatusSettled,
	"failed":    models.PaymentStatusFailed,
	"abandoned": models.PaymentStatusFailed,
	"reversed":  models.PaymentStatusFailed,
	"pending":   models.PaymentStatusPending,
	"ongoing":   models.PaymentStatusSent,
}

func paystackStatus(s string) models.PaymentStatus {
	if mapped, ok := paystackStatusMap[s]; ok {
		return mapped
	}
	return models.PaymentStatusUnknown
}

// SetBaseURL points the provider at a different API host, e.g. a sandbox.
func (p *PaystackProvider) SetBaseURL(u string) { p.baseURL = u }

func (p *PaystackProvider) Name() string { return paystackName }

func (p *PaystackProvider) SupportedPaymentMethods() []string {
	return []string{MethodCard, MethodBankTransfer, MethodUSSD, MethodQR}
}

func (p *PaystackProvider) InitializePayment(ctx context.Context, order *models.Order) (*models.GatewayInitResult, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	reqBody := paystackInitRequest{
		Email:     order.CustomerEmail,
		Amount:    utils.NairaToKobo(order.TotalAmount),
		Currency:  order.Currency,
		Reference: order.OrderReference,
		Metadata: map[string]string{
			"order_id":       order.ID.String(),
			"customer_name":  order.CustomerName,
			"customer_phone": utils.NormalizeNigerianPhone(order.CustomerPhone),
		},
	}

	var resp paystackInitResponse
	if err := p.doRequest(ctx, http.MethodPost, "/transaction/initialize", reqBody, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, apperrors.NewGatewayUnavailable(paystackName, fmt.Errorf("initialization rejected: %s", resp.Message))
	}

	return &models.GatewayInitResult{
		PaymentURL: resp.Data.AuthorizationURL,
		Reference:  resp.Data.Reference,
		Gateway:    paystackName,
		Metadata:   map[string]string{"access_code": resp.Data.AccessCode},
	}, nil
}

func (p *PaystackProvider) VerifyPayment(ctx context.Context, reference string) (*models.PaymentVerifyResult, error) {
	var resp paystackVerifyResponse
	if err := p.doRequest(ctx, http.MethodGet, "/transaction/verify/"+reference, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.Status {
		return nil, apperrors.NewGatewayUnavailable(paystackName, fmt.Errorf("verification rejected: %s", resp.Message))
	}

	raw, _ := json.Marshal(resp)
	status := paystackStatus(resp.Data.Status)

	return &models.PaymentVerifyResult{
		Success:          true,
		Status:           status,
		Amount:           utils.KoboToNaira(resp.Data.Amount),
		Currency:         resp.Data.Currency,
		Gateway:          paystackName,
		GatewayReference: resp.Data.Reference,
		Fee:              utils.KoboToNaira(resp.Data.Fees),
		PaymentMethod:    resp.Data.Channel,
		RawResponse:      raw,
	}, nil
}

func (p *PaystackProvider) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.GatewayWebhookEvent, error) {
	if p.secretKey != "" && !p.verifySignature(payload, signature) {
		return &models.GatewayWebhookEvent{Success: false, Processed: false, Gateway: paystackName}, apperrors.ErrSignatureVerification
	}

	var event paystackWebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return &models.GatewayWebhookEvent{Success: false, Processed: false, Gateway: paystackName}, fmt.Errorf("malformed paystack payload: %w", err)
	}

	switch event.Event {
	case "charge.success", "charge.failed", "transfer.reversed":
	default:
		// Not in this gateway's recognized vocabulary; the next candidate
		// verifier is tried.
		return &models.GatewayWebhookEvent{Success: true, Processed: false, Gateway: paystackName, EventType: event.Event}, nil
	}

	return &models.GatewayWebhookEvent{
		Success:          true,
		Processed:        true,
		Gateway:          paystackName,
		EventType:        event.Event,
		Reference:        event.Data.Reference,
		GatewayReference: fmt.Sprintf("%d", event.Data.ID),
		Status:           paystackStatus(event.Data.Status),
		Amount:           utils.KoboToNaira(event.Data.Amount),
		Currency:         event.Data.Currency,
		Fee:              utils.KoboToNaira(event.Data.Fees),
		Raw:              payload,
	}, nil
}

func (p *PaystackProvider) CheckHealth(ctx context.Context) models.GatewayHealth {
	start := time.Now()
	var resp paystackBankListResponse
	err := p.doRequest(ctx, http.MethodGet, "/bank?currency=NGN&perPage=1", nil, &resp)

	health := models.GatewayHealth{
		ResponseTime: time.Since(start),
		CheckedAt:    time.Now(),
	}
	if err != nil {
		health.Error = err.Error()
		return health
	}
	health.Healthy = resp.Status
	if !resp.Status {
		health.Error = "bank list probe returned status=false"
	}
	return health
}

// verifySignature checks the HMAC-SHA512 of the raw body against the
// x-paystack-signature header value.
func (p *PaystackProvider) verifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (p *PaystackProvider) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode paystack request: %w", err)
		}
		reader = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return apperrors.NewGatewayUnavailable(paystackName, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.NewGatewayUnavailable(paystackName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewGatewayUnavailable(paystackName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewGatewayUnavailable(paystackName, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.NewGatewayUnavailable(paystackName, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
