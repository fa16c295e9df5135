package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/Moduloscript/pharmacy-project-sub001/controllers"
	"github.com/Moduloscript/pharmacy-project-sub001/middleware"
)

func RegisterPaymentRoutes(r *gin.Engine, pc *controllers.PaymentController, jwtSecret []byte) {
	payments := r.Group("/payments")
	payments.Use(middleware.JWTMiddleware(jwtSecret))
	payments.POST("/initiate", pc.InitiatePayment)
	payments.GET("/verify/:reference", pc.VerifyPayment)
	payments.POST("/:reference/cancel", pc.CancelPayment)
	payments.GET("/gateways/stats", pc.GatewayStats)

	// Gateway webhooks (no auth; signature-checked per gateway)
	webhooks := r.Group("/webhooks")
	webhooks.POST("/paystack", pc.PaystackWebhook)
	webhooks.POST("/flutterwave", pc.FlutterwaveWebhook)
	webhooks.POST("/monnify", pc.MonnifyWebhook)
}
