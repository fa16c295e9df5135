package main

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Moduloscript/pharmacy-project-sub001/cache"
	"github.com/Moduloscript/pharmacy-project-sub001/config"
	"github.com/Moduloscript/pharmacy-project-sub001/controllers"
	"github.com/Moduloscript/pharmacy-project-sub001/database"
	"github.com/Moduloscript/pharmacy-project-sub001/kafka"
	"github.com/Moduloscript/pharmacy-project-sub001/middleware"
	"github.com/Moduloscript/pharmacy-project-sub001/models"
	awspkg "github.com/Moduloscript/pharmacy-project-sub001/pkg/aws"
	"github.com/Moduloscript/pharmacy-project-sub001/providers"
	"github.com/Moduloscript/pharmacy-project-sub001/repository"
	"github.com/Moduloscript/pharmacy-project-sub001/routes"
	"github.com/Moduloscript/pharmacy-project-sub001/services"
)

const webhookDedupTTL = 48 * time.Hour

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to load config:", err)
	}

	logger, err := zap.NewProduction()
	if cfg.Env == "development" {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to initialize logger:", err)
	}
	defer logger.Sync()

	db, err := database.ConnectPostgres(cfg.PostgresDSN(), logger,
		&models.Payment{}, &models.NotificationLog{})
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to connect to Postgres:", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mongoClient, mongoDB, err := database.ConnectMongo(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatal("[PaymentService] ❌ Failed to connect to Mongo:", err)
	}
	defer database.DisconnectMongo(context.Background(), mongoClient)

	// Redis is a fast-path dedup cache only; the service stays correct
	// without it, so a connection failure is not fatal.
	var dedup services.DeliveryDeduper
	if redisClient, err := cache.NewRedisClient(cfg.RedisURL); err != nil {
		logger.Warn("Redis unavailable, webhook dedup falls back to the database", zap.Error(err))
	} else {
		dedup = cache.NewWebhookDedup(redisClient, webhookDedupTTL)
	}

	metricsClient, err := awspkg.NewMetricsClient(ctx)
	if err != nil {
		logger.Warn("CloudWatch metrics disabled", zap.Error(err))
		metricsClient = nil
	}

	var alerts awspkg.SNSPublisher
	if cfg.AuditSNSTopicARN != "" {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatal("[PaymentService] ❌ Failed to load AWS config:", err)
		}
		alerts = awspkg.NewSNSClient(awsCfg)
	}

	paymentProducer := kafka.NewPaymentEventProducer(
		strings.Split(cfg.KafkaBrokers, ","), cfg.KafkaTopic, logger)
	defer paymentProducer.Close()

	paymentRepo := repository.NewGormPaymentRepo(db)
	notificationRepo := repository.NewNotificationLogRepository(db)
	auditRepo := repository.NewMongoAuditRepo(mongoDB)

	webhookProcessor := services.NewWebhookProcessor(services.WebhookProcessorParams{
		Payments:      paymentRepo,
		Notifications: notificationRepo,
		Audit:         auditRepo,
		Reconciler:    services.NewAmountReconciler(),
		OrderUpdater:  services.NewOrderServiceClient(cfg.OrderServiceURL, logger),
		Events:        paymentProducer,
		Alerts:        alerts,
		AlertTopicARN: cfg.AuditSNSTopicARN,
		Dedup:         dedup,
		Metrics:       metricsClient,
		Logger:        logger,
	})

	orchestrator := services.NewPaymentOrchestrator(
		paymentRepo, webhookProcessor, cfg.GatewayTimeout, logger, metricsClient)

	// Registration order is the fallback priority.
	if cfg.PaystackSecretKey != "" {
		orchestrator.RegisterProvider(providers.NewPaystackProvider(cfg.PaystackSecretKey))
	}
	if cfg.FlutterwaveSecretKey != "" {
		orchestrator.RegisterProvider(providers.NewFlutterwaveProvider(
			cfg.FlutterwaveSecretKey, cfg.FlutterwaveVerifHash))
	}
	if cfg.MonnifySecretKey != "" {
		orchestrator.RegisterProvider(providers.NewMonnifyProvider(
			cfg.MonnifyAPIKey, cfg.MonnifySecretKey, cfg.MonnifyContractCode))
	}

	healthMonitor := services.NewHealthMonitor(orchestrator, cfg.HealthCheckInterval, logger)
	go healthMonitor.Run(ctx)

	if cfg.PaymentRequestQueueURL != "" {
		awsCfg, err := awspkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Fatal("[PaymentService] ❌ Failed to load AWS config for SQS:", err)
		}
		sqsConsumer := awspkg.NewSQSConsumer(awsCfg, cfg.PaymentRequestQueueURL)
		requestConsumer := services.NewPaymentRequestConsumer(sqsConsumer, orchestrator, logger)
		go func() {
			if err := requestConsumer.Start(ctx); err != nil {
				logger.Error("Payment request consumer stopped", zap.Error(err))
			}
		}()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.MetricsMiddleware(metricsClient, "payment-service"))

	pc := controllers.NewPaymentController(orchestrator, logger)
	routes.RegisterPaymentRoutes(r, pc, []byte(cfg.JWTSecret))

	log.Println("[PaymentService] ✅ Running on port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("[PaymentService] ❌ Server failed:", err)
	}
}
