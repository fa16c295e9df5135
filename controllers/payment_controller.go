package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Moduloscript/pharmacy-project-sub001/models"
	"github.com/Moduloscript/pharmacy-project-sub001/services"
	"github.com/Moduloscript/pharmacy-project-sub001/utils"
)

type PaymentController struct {
	Orchestrator *services.PaymentOrchestrator
	Logger       *zap.Logger
}

func NewPaymentController(orchestrator *services.PaymentOrchestrator, logger *zap.Logger) *PaymentController {
	return &PaymentController{Orchestrator: orchestrator, Logger: logger}
}

type initiatePaymentRequest struct {
	OrderID        string             `json:"order_id" binding:"required,uuid"`
	OrderReference string             `json:"order_reference"`
	Amount         float64            `json:"amount" binding:"required,gt=0"`
	Currency       string             `json:"currency" binding:"required"`
	CustomerName   string             `json:"customer_name" binding:"required"`
	CustomerEmail  string             `json:"customer_email" binding:"required"`
	CustomerPhone  string             `json:"customer_phone" binding:"required"`
	Items          []models.OrderItem `json:"items"`
}

// InitiatePayment starts the gateway fallback chain for an order and returns
// the redirect URL of the first gateway that accepts it.
func (pc *PaymentController) InitiatePayment(c *gin.Context) {
	var req initiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reference := req.OrderReference
	if reference == "" {
		reference = utils.GenerateOrderReference()
	}

	order := &models.Order{
		ID:             uuid.MustParse(req.OrderID),
		OrderReference: reference,
		Currency:       req.Currency,
		TotalAmount:    req.Amount,
		Items:          req.Items,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		CustomerPhone:  req.CustomerPhone,
	}

	result, err := pc.Orchestrator.ProcessPayment(c.Request.Context(), order)
	if err != nil {
		pc.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":  result.PaymentID,
		"payment_url": result.PaymentURL,
		"reference":   result.Reference,
		"gateway":     result.Gateway,
	})
}

// VerifyPayment asks every registered gateway for the outcome of a
// transaction by its cross-gateway reference.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required"})
		return
	}

	result, err := pc.Orchestrator.VerifyPayment(c.Request.Context(), reference)
	if err != nil {
		pc.respondPaymentError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelPayment explicitly cancels a payment still in PENDING.
func (pc *PaymentController) CancelPayment(c *gin.Context) {
	reference := c.Param("reference")

	cancelled, err := pc.Orchestrator.CancelPayment(c.Request.Context(), reference)
	if err != nil {
		pc.respondPaymentError(c, err)
		return
	}
	if !cancelled {
		c.JSON(http.StatusConflict, gin.H{"error": "payment is no longer pending"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled", "reference": reference})
}

// GatewayStats exposes the health and capability snapshot per gateway.
func (pc *PaymentController) GatewayStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"gateways": pc.Orchestrator.GatewayStats()})
}
