package providers

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
	"github.com/Moduloscript/pharmacy-project-sub001/utils"
)

const (
	flutterwaveName    = "flutterwave"
	flutterwaveBaseURL = "https://api.flutterwave.com/v3"
)

// FlutterwaveProvider implements PaymentProvider against the Flutterwave v3
// API. Flutterwave bills in major units on the wire, so no kobo conversion
// is needed.
type FlutterwaveProvider struct {
	secretKey  string
	verifHash  string // secret hash compared against the verif-hash header
	baseURL    string
	httpClient *http.Client
}

// NewFlutterwaveProvider creates a new FlutterwaveProvider.
func NewFlutterwaveProvider(secretKey, verifHash string) *FlutterwaveProvider {
	return &FlutterwaveProvider{
		secretKey: secretKey,
		verifHash: verifHash,
		baseURL:   flutterwaveBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ---- Flutterwave API request/response structs ----

type flwCustomer struct {
	Email       string `json:"email"`
	PhoneNumber string `json:"phonenumber"`
	Name        string `json:"name"`
}

type flwInitRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      float64           `json:"amount"` // major units
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Customer    flwCustomer       `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type flwInitResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

type flwTransaction struct {
	ID          int64   `json:"id"`
	TxRef       string  `json:"tx_ref"`
	FlwRef      string  `json:"flw_ref"`
	Status      string  `json:"status"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	AppFee      float64 `json:"app_fee"`
	PaymentType string  `json:"payment_type"`
}

type flwVerifyResponse struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    flwTransaction `json:"data"`
}

type flwWebhookPayload struct {
	Event string         `json:"event"`
	Data  flwTransaction `json:"data"`
}

type flwBankListResponse struct {
	Status string `json:"status"`
	Data   []struct {
		Name string `json:"name"`
		Code string `json:"code"`
	} `json:"data"`
}

var flutterwaveStatusMap = map[string]models.PaymentStatus{
	"successful": models.PaymentStatusSettled,
	"failed":     models.PaymentStatusFailed,
	"cancelled":  models.PaymentStatusFailed,
	"pending":    models.PaymentStatusSent,
}

func flutterwaveStatus(s string) models.PaymentStatus {
	if mapped, ok := flutterwaveStatusMap[s]; ok {
		return mapped
	}
	return models.PaymentStatusUnknown
}

// SetBaseURL points the provider at a different API host, e.g. a sandbox.
func (p *FlutterwaveProvider) SetBaseURL(u string) { p.baseURL = u }

func (p *FlutterwaveProvider) Name() string { return flutterwaveName }

func (p *FlutterwaveProvider) SupportedPaymentMethods() []string {
	return []string{MethodCard, MethodBankTransfer, MethodUSSD}
}

func (p *FlutterwaveProvider) InitializePayment(ctx context.Context, order *models.Order) (*models.GatewayInitResult, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	reqBody := flwInitRequest{
		TxRef:    order.OrderReference,
		Amount:   order.TotalAmount,
		Currency: order.Currency,
		Customer: flwCustomer{
			Email:       order.CustomerEmail,
			PhoneNumber: utils.NormalizeNigerianPhone(order.CustomerPhone),
			Name:        order.CustomerName,
		},
		Meta: map[string]string{"order_id": order.ID.String()},
	}

	var resp flwInitResponse
	if err := p.doRequest(ctx, http.MethodPost, "/payments", reqBody, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, apperrors.NewGatewayUnavailable(flutterwaveName, fmt.Errorf("initialization rejected: %s", resp.Message))
	}

	return &models.GatewayInitResult{
		PaymentURL: resp.Data.Link,
		Reference:  order.OrderReference,
		Gateway:    flutterwaveName,
	}, nil
}

func (p *FlutterwaveProvider) VerifyPayment(ctx context.Context, reference string) (*models.PaymentVerifyResult, error) {
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)

	var resp flwVerifyResponse
	if err := p.doRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, apperrors.NewGatewayUnavailable(flutterwaveName, fmt.Errorf("verification rejected: %s", resp.Message))
	}

	raw, _ := json.Marshal(resp)

	return &models.PaymentVerifyResult{
		Success:          true,
		Status:           flutterwaveStatus(resp.Data.Status),
		Amount:           resp.Data.Amount,
		Currency:         resp.Data.Currency,
		Gateway:          flutterwaveName,
		GatewayReference: resp.Data.FlwRef,
		Fee:              resp.Data.AppFee,
		PaymentMethod:    resp.Data.PaymentType,
		RawResponse:      raw,
	}, nil
}

func (p *FlutterwaveProvider) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.GatewayWebhookEvent, error) {
	// Flutterwave sends the configured secret hash verbatim in verif-hash
	// rather than an HMAC over the body.
	if p.verifHash != "" && subtle.ConstantTimeCompare([]byte(p.verifHash), []byte(signature)) != 1 {
		return &models.GatewayWebhookEvent{Success: false, Processed: false, Gateway: flutterwaveName}, apperrors.ErrSignatureVerification
	}

	var event flwWebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return &models.GatewayWebhookEvent{Success: false, Processed: false, Gateway: flutterwaveName}, fmt.Errorf("malformed flutterwave payload: %w", err)
	}

	if event.Event != "charge.completed" {
		return &models.GatewayWebhookEvent{Success: true, Processed: false, Gateway: flutterwaveName, EventType: event.Event}, nil
	}

	return &models.GatewayWebhookEvent{
		Success:          true,
		Processed:        true,
		Gateway:          flutterwaveName,
		EventType:        event.Event,
		Reference:        event.Data.TxRef,
		GatewayReference: event.Data.FlwRef,
		Status:           flutterwaveStatus(event.Data.Status),
		Amount:           event.Data.Amount,
		Currency:         event.Data.Currency,
		Fee:              event.Data.AppFee,
		Raw:              payload,
	}, nil
}

func (p *FlutterwaveProvider) CheckHealth(ctx context.Context) models.GatewayHealth {
	start := time.Now()
	var resp flwBankListResponse
	err := p.doRequest(ctx, http.MethodGet, "/banks/NG", nil, &resp)

	health := models.GatewayHealth{
		ResponseTime: time.Since(start),
		CheckedAt:    time.Now(),
	}
	if err != nil {
		health.Error = err.Error()
		return health
	}
	health.Healthy = resp.Status == "success"
	if !health.Healthy {
		health.Error = "bank list probe returned status=" + resp.Status
	}
	return health
}

func (p *FlutterwaveProvider) doRequest(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode flutterwave request: %w", err)
		}
		reader = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return apperrors.NewGatewayUnavailable(flutterwaveName, err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.NewGatewayUnavailable(flutterwaveName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewGatewayUnavailable(flutterwaveName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewGatewayUnavailable(flutterwaveName, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.NewGatewayUnavailable(flutterwaveName, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
