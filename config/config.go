package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	awspkg "github.com/Moduloscript/pharmacy-project-sub001/pkg/aws"
)

type Config struct {
	Port string
	Env  string

	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresHost     string
	PostgresPort     string
	PostgresSSLMode  string
	PostgresTimeZone string

	MongoURI string
	MongoDB  string

	RedisURL string

	KafkaBrokers string
	KafkaTopic   string

	PaymentRequestQueueURL string // SQS queue URL for async payment requests
	AuditSNSTopicARN       string // SNS topic for amount-mismatch alerts

	JWTSecret       string
	OrderServiceURL string

	// Gateway credentials. When AWS_SECRETS_ENABLED=true they are fetched
	// from Secrets Manager instead of the environment.
	PaystackSecretKey    string
	FlutterwaveSecretKey string
	FlutterwaveVerifHash string
	MonnifyAPIKey        string
	MonnifySecretKey     string
	MonnifyContractCode  string

	GatewayTimeout      time.Duration
	HealthCheckInterval time.Duration
}

func LoadConfig() (*Config, error) {
	// No .env file is fine in deployed environments.
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   getEnv("PORT", "8087"),
		Env:                    getEnv("APP_ENV", "development"),
		PostgresUser:           os.Getenv("POSTGRES_USER"),
		PostgresPassword:       os.Getenv("POSTGRES_PASSWORD"),
		PostgresDB:             os.Getenv("POSTGRES_DB"),
		PostgresHost:           getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:           getEnv("POSTGRES_PORT", "5432"),
		PostgresSSLMode:        getEnv("POSTGRES_SSLMODE", "disable"),
		PostgresTimeZone:       getEnv("POSTGRES_TIMEZONE", "Africa/Lagos"),
		MongoURI:               getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:                getEnv("MONGO_DB", "pharmacy_audit"),
		RedisURL:               getEnv("REDIS_URL", "redis://localhost:6379/0"),
		KafkaBrokers:           getEnv("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:             getEnv("KAFKA_PAYMENT_TOPIC", "payment-events"),
		PaymentRequestQueueURL: os.Getenv("PAYMENT_REQUEST_QUEUE_URL"),
		AuditSNSTopicARN:       os.Getenv("AUDIT_SNS_TOPIC_ARN"),
		JWTSecret:              os.Getenv("JWT_SECRET"),
		OrderServiceURL:        os.Getenv("ORDER_SERVICE_URL"),
		PaystackSecretKey:      os.Getenv("PAYSTACK_SECRET_KEY"),
		FlutterwaveSecretKey:   os.Getenv("FLUTTERWAVE_SECRET_KEY"),
		FlutterwaveVerifHash:   os.Getenv("FLUTTERWAVE_VERIF_HASH"),
		MonnifyAPIKey:          os.Getenv("MONNIFY_API_KEY"),
		MonnifySecretKey:       os.Getenv("MONNIFY_SECRET_KEY"),
		MonnifyContractCode:    os.Getenv("MONNIFY_CONTRACT_CODE"),
		GatewayTimeout:         getEnvDuration("GATEWAY_TIMEOUT_SECONDS", 30) * time.Second,
		HealthCheckInterval:    getEnvDuration("HEALTH_CHECK_INTERVAL_MINUTES", 5) * time.Minute,
	}

	if os.Getenv("AWS_SECRETS_ENABLED") == "true" {
		if err := cfg.loadGatewaySecrets(context.Background()); err != nil {
			return nil, err
		}
	}

	if cfg.PostgresUser == "" || cfg.PostgresPassword == "" || cfg.PostgresDB == "" {
		return nil, fmt.Errorf("missing required postgres environment variables")
	}
	if cfg.PaystackSecretKey == "" && cfg.FlutterwaveSecretKey == "" && cfg.MonnifySecretKey == "" {
		return nil, fmt.Errorf("no payment gateway is configured")
	}

	return cfg, nil
}

// loadGatewaySecrets overrides gateway credentials from AWS Secrets Manager.
// Missing secrets are not fatal; the env value stays in place.
func (c *Config) loadGatewaySecrets(ctx context.Context) error {
	awsCfg, err := awspkg.LoadAWSConfig(ctx)
	if err != nil {
		return fmt.Errorf("failed to load aws config for secrets: %w", err)
	}
	secrets := awspkg.NewSecretsClient(awsCfg)

	targets := map[string]*string{
		"pharmacy/paystack-secret-key":    &c.PaystackSecretKey,
		"pharmacy/flutterwave-secret-key": &c.FlutterwaveSecretKey,
		"pharmacy/flutterwave-verif-hash": &c.FlutterwaveVerifHash,
		"pharmacy/monnify-api-key":        &c.MonnifyAPIKey,
		"pharmacy/monnify-secret-key":     &c.MonnifySecretKey,
	}
	for name, dst := range targets {
		if v, err := secrets.GetSecret(ctx, name); err == nil && v != "" {
			*dst = v
		}
	}
	return nil
}

// PostgresDSN builds the GORM postgres connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		c.PostgresHost, c.PostgresUser, c.PostgresPassword, c.PostgresDB,
		c.PostgresPort, c.PostgresSSLMode, c.PostgresTimeZone,
	)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil && n > 0 {
			return time.Duration(n)
		}
	}
	return time.Duration(fallback)
}
