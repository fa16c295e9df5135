package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
)

// Gateway-specific signature header names.
const (
	paystackSignatureHeader    = "X-Paystack-Signature"
	flutterwaveSignatureHeader = "verif-hash"
	monnifySignatureHeader     = "monnify-signature"
)

// PaystackWebhook receives Paystack event deliveries.
func (pc *PaymentController) PaystackWebhook(c *gin.Context) {
	pc.handleWebhook(c, "paystack", c.GetHeader(paystackSignatureHeader))
}

// FlutterwaveWebhook receives Flutterwave event deliveries.
func (pc *PaymentController) FlutterwaveWebhook(c *gin.Context) {
	pc.handleWebhook(c, "flutterwave", c.GetHeader(flutterwaveSignatureHeader))
}

// MonnifyWebhook receives Monnify event deliveries.
func (pc *PaymentController) MonnifyWebhook(c *gin.Context) {
	pc.handleWebhook(c, "monnify", c.GetHeader(monnifySignatureHeader))
}

// handleWebhook acknowledges with 2xx whenever the event was handled or is
// simply not applicable, so the gateway's retry storm never starts. 4xx is
// reserved for deliveries that must not be retried blindly: bad signatures
// and malformed payloads. Internal failures answer 5xx so the gateway
// redelivers once the outage clears.
func (pc *PaymentController) handleWebhook(c *gin.Context, gateway, signature string) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil || len(payload) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty or unreadable payload"})
		return
	}

	result, err := pc.Orchestrator.HandleWebhook(c.Request.Context(), gateway, payload, signature)
	if err != nil {
		if errors.Is(err, apperrors.ErrSignatureVerification) {
			pc.Logger.Warn("Rejected webhook with bad signature",
				zap.String("gateway", gateway),
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}
		if isMalformedPayload(err) {
			pc.Logger.Warn("Rejected malformed webhook payload",
				zap.String("gateway", gateway),
				zap.Error(err),
			)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
			return
		}
		pc.Logger.Error("Webhook processing failed",
			zap.String("gateway", gateway),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "webhook processing failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "received",
		"processed": result.Processed,
	})
}

// isMalformedPayload reports whether the event body itself could not be
// decoded, as opposed to a downstream failure while applying it.
func isMalformedPayload(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}
