package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/Moduloscript/pharmacy-project-sub001/pkg/errors"
)

// respondPaymentError maps the payment error taxonomy onto HTTP responses:
// validation failures are 4xx, exhausted gateways are a retryable 5xx with
// the diagnostic attempt list, everything else is a plain 500.
func (pc *PaymentController) respondPaymentError(c *gin.Context, err error) {
	var invalidInput *apperrors.InvalidInputError
	if errors.As(err, &invalidInput) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": invalidInput.Message,
			"field": invalidInput.Field,
		})
		return
	}

	if errors.Is(err, apperrors.ErrAllGatewaysDown) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "no payment gateway is currently available, please retry shortly",
		})
		return
	}

	var allFailed *apperrors.AllGatewaysFailedError
	if errors.As(err, &allFailed) {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "payment could not be processed on any gateway, please retry shortly",
			"attempts": allFailed.Attempts,
		})
		return
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "payment not found"})
		return
	}

	pc.Logger.Error("Unhandled payment error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
