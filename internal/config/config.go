package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	libconfig "openspots/libs/config"
)

// HTTPConfig holds listener settings.
type HTTPConfig struct {
	Port string `yaml:"port" env:"OPENSPOTS_HTTP_PORT"`
}

// MongoConfig holds document store settings.
type MongoConfig struct {
	URI      string `yaml:"uri" env:"OPENSPOTS_MONGO_URI"`
	Database string `yaml:"database" env:"OPENSPOTS_MONGO_DB"`
	MaxPool  uint64 `yaml:"maxPool" env:"OPENSPOTS_MONGO_MAX_POOL"`
	MinPool  uint64 `yaml:"minPool" env:"OPENSPOTS_MONGO_MIN_POOL"`
}

// RedisConfig holds occupancy cache settings. An empty addr disables the
// cache.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"OPENSPOTS_REDIS_ADDR"`
	Password string `yaml:"password" env:"OPENSPOTS_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"OPENSPOTS_REDIS_DB"`
}

// AuthConfig holds token verification settings. An empty secret disables
// auth, for local runs and tests.
type AuthConfig struct {
	JWTSecret string `yaml:"jwtSecret" env:"OPENSPOTS_JWT_SECRET"`
}

// StripeConfig holds payment processor settings. Empty keys disable the
// checkout and webhook surfaces.
type StripeConfig struct {
	SecretKey     string `yaml:"secretKey" env:"STRIPE_SECRET_KEY"`
	WebhookSecret string `yaml:"webhookSecret" env:"STRIPE_WEBHOOK_SECRET"`
}

// EmailConfig holds transactional mail settings. An empty API key disables
// outbound mail.
type EmailConfig struct {
	ResendAPIKey string `yaml:"resendApiKey" env:"RESEND_API_KEY"`
	From         string `yaml:"from" env:"OPENSPOTS_EMAIL_FROM"`
	SupportEmail string `yaml:"supportEmail" env:"OPENSPOTS_SUPPORT_EMAIL"`
}

// AMQPConfig holds sensor feed settings. An empty URL disables the
// consumer.
type AMQPConfig struct {
	URL   string `yaml:"url" env:"OPENSPOTS_AMQP_URL"`
	Queue string `yaml:"queue" env:"OPENSPOTS_AMQP_QUEUE"`
}

// ParkingConfig holds the session lifecycle timings.
type ParkingConfig struct {
	PendingWindow   time.Duration `yaml:"pendingWindow" env:"OPENSPOTS_PENDING_WINDOW"`
	PendingInterval time.Duration `yaml:"pendingInterval" env:"OPENSPOTS_PENDING_INTERVAL"`
	AccrualInterval time.Duration `yaml:"accrualInterval" env:"OPENSPOTS_ACCRUAL_INTERVAL"`
}

// Config defines the full service configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Mongo   MongoConfig   `yaml:"mongo"`
	Redis   RedisConfig   `yaml:"redis"`
	Auth    AuthConfig    `yaml:"auth"`
	Stripe  StripeConfig  `yaml:"stripe"`
	Email   EmailConfig   `yaml:"email"`
	AMQP    AMQPConfig    `yaml:"amqp"`
	Parking ParkingConfig `yaml:"parking"`
	BaseURL string        `yaml:"baseUrl" env:"OPENSPOTS_BASE_URL"`
}

// Load reads configuration via the shared helper and applies defaults.
func Load() (*Config, error) {
	cfg := &Config{
		HTTP:  HTTPConfig{Port: "8080"},
		Mongo: MongoConfig{Database: "openspots", MaxPool: 20, MinPool: 2},
		AMQP:  AMQPConfig{Queue: "sensor.readings"},
		Email: EmailConfig{
			From:         "OpenSpots <no-reply@openspots.app>",
			SupportEmail: "support@openspots.app",
		},
		Parking: ParkingConfig{
			PendingWindow:   30 * time.Second,
			PendingInterval: time.Second,
			AccrualInterval: time.Minute,
		},
		BaseURL: "http://localhost:8080",
	}

	if err := libconfig.LoadConfig(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Mongo.URI) == "" {
		return nil, errors.New("config: mongo uri required")
	}
	if cfg.Parking.PendingWindow <= 0 {
		return nil, errors.New("config: pending window must be positive")
	}
	if cfg.Parking.PendingInterval <= 0 || cfg.Parking.AccrualInterval <= 0 {
		return nil, errors.New("config: sweep intervals must be positive")
	}
	if cfg.Stripe.SecretKey != "" && cfg.Stripe.WebhookSecret == "" {
		return nil, errors.New("config: stripe webhook secret required when stripe is enabled")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
