package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	OTLPEndpoint string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	Redis     RedisConfig
	RateLimit RateLimitConfig

	FrontendOrigin string

	PaymentProvider       string
	PaymentGatewayTimeout time.Duration
	Midtrans              MidtransConfig
	Stripe                StripeConfig

	Email EmailConfig

	Scheduler SchedulerConfig

	SeedDefaultPlans bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// RateLimitConfig bounds webhook deliveries per client IP.
type RateLimitConfig struct {
	WebhookRate  float64
	WebhookBurst int
}

type MidtransConfig struct {
	ServerKey    string
	ClientKey    string
	IsProduction bool
	BaseURL      string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
}

type EmailConfig struct {
	Provider string
	From     string
	ReplyTo  string

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	PostmarkServerToken  string
	PostmarkAccountToken string
}

type SchedulerConfig struct {
	Enabled        bool
	RecomputeSweep bool
	LockTTL        time.Duration
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "jobboard"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		NodeID:       int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),
		OTLPEndpoint: strings.TrimSpace(getenv("OTLP_ENDPOINT", "")),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "jobboard"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getenvInt("REDIS_DB", 0),
		},

		RateLimit: RateLimitConfig{
			WebhookRate:  getenvFloat("WEBHOOK_RATE_LIMIT_RPS", 10),
			WebhookBurst: getenvInt("WEBHOOK_RATE_LIMIT_BURST", 30),
		},

		FrontendOrigin: strings.TrimRight(getenv("FRONTEND_ORIGIN", "http://localhost:5173"), "/"),

		PaymentProvider:       strings.ToLower(getenv("PAYMENT_PROVIDER", "midtrans")),
		PaymentGatewayTimeout: getenvDuration("PAYMENT_GATEWAY_TIMEOUT", 15*time.Second),
		Midtrans: MidtransConfig{
			ServerKey:    strings.TrimSpace(getenv("MIDTRANS_SERVER_KEY", "")),
			ClientKey:    strings.TrimSpace(getenv("MIDTRANS_CLIENT_KEY", "")),
			IsProduction: getenvBool("MIDTRANS_IS_PRODUCTION", false),
			BaseURL:      strings.TrimSpace(getenv("MIDTRANS_BASE_URL", "")),
		},
		Stripe: StripeConfig{
			SecretKey:     strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			WebhookSecret: strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			Currency:      strings.ToLower(getenv("STRIPE_CURRENCY", "idr")),
		},

		Email: EmailConfig{
			Provider:             strings.ToLower(getenv("EMAIL_PROVIDER", "smtp")),
			From:                 getenv("EMAIL_FROM", ""),
			ReplyTo:              getenv("EMAIL_REPLY_TO", ""),
			SMTPHost:             strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:             getenvInt("SMTP_PORT", 587),
			SMTPUsername:         getenv("SMTP_USER", ""),
			SMTPPassword:         getenv("SMTP_PASS", ""),
			PostmarkServerToken:  strings.TrimSpace(getenv("POSTMARK_SERVER_TOKEN", "")),
			PostmarkAccountToken: strings.TrimSpace(getenv("POSTMARK_ACCOUNT_TOKEN", "")),
		},

		Scheduler: SchedulerConfig{
			Enabled:        getenvBool("SCHEDULER_ENABLED", true),
			RecomputeSweep: getenvBool("SCHEDULER_RECOMPUTE_SWEEP", false),
			LockTTL:        getenvDuration("SCHEDULER_LOCK_TTL", 10*time.Minute),
		},

		SeedDefaultPlans: getenvBool("SEED_DEFAULT_PLANS", false),
	}

	if cfg.Email.From == "" {
		cfg.Email.From = cfg.Email.SMTPUsername
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

// getenvDuration accepts Go durations ("15s") or plain seconds ("15").
func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return def
}
