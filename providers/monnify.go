package providers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
)

const (
	monnifyName    = "monnify"
	monnifyBaseURL = "https://api.monnify.com"
)

// MonnifyProvider implements PaymentProvider against the Monnify API.
// Monnify requires an access token obtained with basic auth before any API
// call; the token is cached until shortly before expiry.
type MonnifyProvider struct {
	apiKey       string
	secretKey    string
	contractCode string
	baseURL      string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewMonnifyProvider creates a new MonnifyProvider.
func NewMonnifyProvider(apiKey, secretKey, contractCode string) *MonnifyProvider {
	return &MonnifyProvider{
		apiKey:       apiKey,
		secretKey:    secretKey,
		contractCode: contractCode,
		baseURL:      monnifyBaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ---- Monnify API request/response structs ----

type monnifyLoginResponse struct {
	RequestSuccessful bool   `json:"requestSuccessful"`
	ResponseMessage   string `json:"responseMessage"`
	ResponseBody      struct {
		AccessToken string `json:"accessToken"`
		ExpiresIn   int64  `json:"expiresIn"` // seconds
	} `json:"responseBody"`
}

type monnifyInitRequest struct {
	Amount             float64 `json:"amount"` // major units
	CustomerName       string  `json:"customerName"`
	CustomerEmail      string  `json:"customerEmail"`
	PaymentReference   string  `json:"paymentReference"`
	PaymentDescription string  `json:"paymentDescription"`
	CurrencyCode       string  `json:"currencyCode"`
	ContractCode       string  `json:"contractCode"`
}

type monnifyInitResponse struct {
	RequestSuccessful bool   `json:"requestSuccessful"`
	ResponseMessage   string `json:"responseMessage"`
	ResponseBody      struct {
		TransactionReference string `json:"transactionReference"`
		PaymentReference     string `json:"paymentReference"`
		CheckoutURL          string `json:"checkoutUrl"`
	} `json:"responseBody"`
}

type monnifyTransaction struct {
	TransactionReference string  `json:"transactionReference"`
	PaymentReference     string  `json:"paymentReference"`
	PaymentStatus        string  `json:"paymentStatus"`
	AmountPaid           float64 `json:"amountPaid"`
	Fee                  float64 `json:"fee"`
	CurrencyCode         string  `json:"currencyCode"`
	PaymentMethod        string  `json:"paymentMethod"`
}

type monnifyVerifyResponse struct {
	RequestSuccessful bool               `json:"requestSuccessful"`
	ResponseMessage   string             `json:"responseMessage"`
	ResponseBody      monnifyTransaction `json:"responseBody"`
}

type monnifyWebhookPayload struct {
	EventType string             `json:"eventType"`
	EventData monnifyTransaction `json:"eventData"`
}

var monnifyStatusMap = map[string]models.PaymentStatus{
	"PAID":           models.PaymentStatusSettled,
	"OVERPAID":       models.PaymentStatusSettled,
	"PARTIALLY_PAID": models.PaymentStatusSent,
	"PENDING":        models.PaymentStatusSent,
	"FAILED":         models.PaymentStatusFailed,
	"CANCELLED":      models.PaymentStatusFailed,
	"EXPIRED":        models.PaymentStatusFailed,
}

func monnifyStatus(s string) models.PaymentStatus {
	if mapped, ok := monnifyStatusMap[s]; ok {
		return mapped
	}
	return models.PaymentStatusUnknown
}

// SetBaseURL points the provider at a different API host, e.g. the sandbox.
func (p *MonnifyProvider) SetBaseURL(u string) { p.baseURL = u }

func (p *MonnifyProvider) Name() string { return monnifyName }

func (p *MonnifyProvider) SupportedPaymentMethods() []string {
	return []string{MethodCard, MethodBankTransfer, MethodUSSD}
}

func (p *MonnifyProvider) InitializePayment(ctx context.Context, order *models.Order) (*models.GatewayInitResult, error) {
	if err := ValidateOrder(order); err != nil {
		return nil, err
	}

	reqBody := monnifyInitRequest{
		Amount:             order.TotalAmount,
		CustomerName:       order.CustomerName,
		CustomerEmail:      order.CustomerEmail,
		PaymentReference:   order.OrderReference,
		PaymentDescription: fmt.Sprintf("Pharmacy order %s", order.OrderReference),
		CurrencyCode:       order.Currency,
		ContractCode:       p.contractCode,
	}

	var resp monnifyInitResponse
	if err := p.doAuthedRequest(ctx, http.MethodPost, "/api/v1/merchant/transactions/init-transaction", reqBody, &resp); err != nil {
		return nil, err
	}
	if !resp.RequestSuccessful {
		return nil, apperrors.NewGatewayUnavailable(monnifyName, fmt.Errorf("initialization rejected: %s", resp.ResponseMessage))
	}

	return &models.GatewayInitResult{
		PaymentURL: resp.ResponseBody.CheckoutURL,
		Reference:  resp.ResponseBody.PaymentReference,
		Gateway:    monnifyName,
		Metadata:   map[string]string{"transaction_reference": resp.ResponseBody.TransactionReference},
	}, nil
}

func (p *MonnifyProvider) VerifyPayment(ctx context.Context, reference string) (*models.PaymentVerifyResult, error) {
	path := "/api/v1/merchant/transactions/query?paymentReference=" + url.QueryEscape(reference)

	var resp monnifyVerifyResponse
	if err := p.doAuthedRequest(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if !resp.RequestSuccessful {
		return nil, apperrors.NewGatewayUnavailable(monnifyName, fmt.Errorf("verification rejected: %s", resp.ResponseMessage))
	}

	raw, _ := json.Marshal(resp)

	return &models.PaymentVerifyResult{
		Success:          true,
		Status:           monnifyStatus(resp.ResponseBody.PaymentStatus),
		Amount:           resp.ResponseBody.AmountPaid,
		Currency:         resp.ResponseBody.CurrencyCode,
		Gateway:          monnifyName,
		GatewayReference: resp.ResponseBody.TransactionReference,
		Fee:              resp.ResponseBody.Fee,
		PaymentMethod:    resp.ResponseBody.PaymentMethod,
		RawResponse:      raw,
	}, nil
}

func (p *MonnifyProvider) HandleWebhook(ctx context.Context, payload []byte, signature string) (*models.GatewayWebhookEvent, error) {
	if p.secretKey != "" && !p.verifySignature(payload, signature) {
		return &models.GatewayWebhookEvent{Success: false, Processed: false, Gateway: monnifyName}, apperrors.ErrSignatureVerification
	}

	var event monnifyWebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		return &models.GatewayWebhookEvent{Success: false, Processed: false, Gateway: monnifyName}, fmt.Errorf("malformed monnify payload: %w", err)
	}

	switch event.EventType {
	case "SUCCESSFUL_TRANSACTION", "FAILED_TRANSACTION":
	default:
		return &models.GatewayWebhookEvent{Success: true, Processed: false, Gateway: monnifyName, EventType: event.EventType}, nil
	}

	status := monnifyStatus(event.EventData.PaymentStatus)
	if event.EventType == "FAILED_TRANSACTION" && status == models.PaymentStatusUnknown {
		status = models.PaymentStatusFailed
	}

	return &models.GatewayWebhookEvent{
		Success:          true,
		Processed:        true,
		Gateway:          monnifyName,
		EventType:        event.EventType,
		Reference:        event.EventData.PaymentReference,
		GatewayReference: event.EventData.TransactionReference,
		Status:           status,
		Amount:           event.EventData.AmountPaid,
		Currency:         event.EventData.CurrencyCode,
		Fee:              event.EventData.Fee,
		Raw:              payload,
	}, nil
}

// CheckHealth probes the auth endpoint, which is the cheapest read-only call
// Monnify exposes without a transaction.
func (p *MonnifyProvider) CheckHealth(ctx context.Context) models.GatewayHealth {
	start := time.Now()
	_, err := p.login(ctx)

	health := models.GatewayHealth{
		ResponseTime: time.Since(start),
		CheckedAt:    time.Now(),
	}
	if err != nil {
		health.Error = err.Error()
		return health
	}
	health.Healthy = true
	return health
}

func (p *MonnifyProvider) verifySignature(payload []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(p.secretKey))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// login obtains an access token, reusing the cached one until a minute
// before expiry.
func (p *MonnifyProvider) login(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.accessToken != "" && time.Now().Before(p.tokenExpiry.Add(-time.Minute)) {
		return p.accessToken, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/v1/auth/login", nil)
	if err != nil {
		return "", apperrors.NewGatewayUnavailable(monnifyName, err)
	}
	creds := base64.StdEncoding.EncodeToString([]byte(p.apiKey + ":" + p.secretKey))
	req.Header.Set("Authorization", "Basic "+creds)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", apperrors.NewGatewayUnavailable(monnifyName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", apperrors.NewGatewayUnavailable(monnifyName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", apperrors.NewGatewayUnavailable(monnifyName, fmt.Errorf("login failed with status %d: %s", resp.StatusCode, body))
	}

	var loginResp monnifyLoginResponse
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return "", apperrors.NewGatewayUnavailable(monnifyName, fmt.Errorf("failed to decode login response: %w", err))
	}
	if !loginResp.RequestSuccessful || loginResp.ResponseBody.AccessToken == "" {
		return "", apperrors.NewGatewayUnavailable(monnifyName, fmt.Errorf("login rejected: %s", loginResp.ResponseMessage))
	}

	p.accessToken = loginResp.ResponseBody.AccessToken
	p.tokenExpiry = time.Now().Add(time.Duration(loginResp.ResponseBody.ExpiresIn) * time.Second)
	return p.accessToken, nil
}

func (p *MonnifyProvider) doAuthedRequest(ctx context.Context, method, path string, body, out interface{}) error {
	token, err := p.login(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode monnify request: %w", err)
		}
		reader = bytes.NewBuffer(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return apperrors.NewGatewayUnavailable(monnifyName, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.NewGatewayUnavailable(monnifyName, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.NewGatewayUnavailable(monnifyName, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apperrors.NewGatewayUnavailable(monnifyName, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.NewGatewayUnavailable(monnifyName, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}
