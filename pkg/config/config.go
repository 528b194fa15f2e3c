package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Supported payment providers.
const (
	PaymentProviderSandbox  = "sandbox"
	PaymentProviderStripe   = "stripe"
	PaymentProviderMidtrans = "midtrans"
)

// Supported slot lock backends.
const (
	LockBackendMemory = "memory"
	LockBackendRedis  = "redis"
)

const lockTTLMargin = 5 * time.Second

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	CORS         CORSConfig
	Log          LogConfig
	Payments     PaymentsConfig
	Settlement   SettlementConfig
	Sweeps       SweepConfig
	Locks        LockConfig
	Availability AvailabilityConfig
}

type DatabaseConfig struct {
	Host           string
	Port           int
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MigrationsDir  string
	MigrateOnStart bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret string
	Issuer string
	Expiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaymentsConfig selects and configures the payment gateway.
type PaymentsConfig struct {
	Provider       string
	IntentTTL      time.Duration
	GatewayTimeout time.Duration
	SuccessURL     string
	CancelURL      string
	SandboxSecret  string
	SandboxURL     string
	Stripe         StripeConfig
	Midtrans       MidtransConfig
}

// StripeConfig holds Stripe Checkout credentials.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// MidtransConfig holds Midtrans Snap credentials.
type MidtransConfig struct {
	ServerKey  string
	Production bool
}

// SettlementConfig tunes the settlement worker pool.
type SettlementConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// SweepConfig controls the cron sweeps for stale payments and elapsed sessions.
type SweepConfig struct {
	Enabled  bool
	Schedule string
}

// LockConfig selects the slot lock implementation.
type LockConfig struct {
	Backend string
	TTL     time.Duration
}

// AvailabilityConfig tunes the open-slot listing cache.
type AvailabilityConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:           v.GetString("DB_HOST"),
		Port:           v.GetInt("DB_PORT"),
		User:           v.GetString("DB_USER"),
		Password:       v.GetString("DB_PASSWORD"),
		Name:           v.GetString("DB_NAME"),
		SSLMode:        v.GetString("DB_SSL_MODE"),
		MaxOpenConns:   v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns:   v.GetInt("DB_MAX_IDLE_CONNS"),
		MigrationsDir:  v.GetString("DB_MIGRATIONS_DIR"),
		MigrateOnStart: v.GetBool("DB_MIGRATE_ON_START"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
		Expiry: parseDuration(v.GetString("JWT_EXPIRATION"), time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Payments = PaymentsConfig{
		Provider:       strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
		IntentTTL:      parseDuration(v.GetString("PAYMENT_INTENT_TTL"), 30*time.Minute),
		GatewayTimeout: parseDuration(v.GetString("PAYMENT_GATEWAY_TIMEOUT"), 10*time.Second),
		SuccessURL:     v.GetString("PAYMENT_SUCCESS_URL"),
		CancelURL:      v.GetString("PAYMENT_CANCEL_URL"),
		SandboxSecret:  v.GetString("SANDBOX_PAYMENT_SECRET"),
		SandboxURL:     v.GetString("SANDBOX_CHECKOUT_URL"),
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		Midtrans: MidtransConfig{
			ServerKey:  v.GetString("MIDTRANS_SERVER_KEY"),
			Production: v.GetBool("MIDTRANS_PRODUCTION"),
		},
	}

	cfg.Settlement = SettlementConfig{
		Workers:    v.GetInt("SETTLEMENT_WORKERS"),
		BufferSize: v.GetInt("SETTLEMENT_BUFFER_SIZE"),
		MaxRetries: v.GetInt("SETTLEMENT_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SETTLEMENT_RETRY_DELAY"), 2*time.Second),
	}

	cfg.Sweeps = SweepConfig{
		Enabled:  v.GetBool("ENABLE_SWEEPS"),
		Schedule: v.GetString("SWEEP_SCHEDULE"),
	}

	cfg.Locks = LockConfig{
		Backend: strings.ToLower(v.GetString("LOCK_BACKEND")),
		TTL:     parseDuration(v.GetString("LOCK_TTL"), 30*time.Second),
	}

	// Locks are held across the gateway call in InitiatePayment.
	if floor := cfg.Payments.GatewayTimeout + lockTTLMargin; cfg.Locks.TTL < floor {
		cfg.Locks.TTL = floor
	}

	cfg.Availability = AvailabilityConfig{
		CacheTTL: parseDuration(v.GetString("AVAILABILITY_CACHE_TTL"), 2*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "tutor_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	v.SetDefault("DB_MIGRATE_ON_START", false)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "tutor-booking-api")
	v.SetDefault("JWT_EXPIRATION", "1h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYMENT_PROVIDER", PaymentProviderSandbox)
	v.SetDefault("PAYMENT_INTENT_TTL", "30m")
	v.SetDefault("PAYMENT_GATEWAY_TIMEOUT", "10s")
	v.SetDefault("PAYMENT_SUCCESS_URL", "http://localhost:3000/bookings/success")
	v.SetDefault("PAYMENT_CANCEL_URL", "http://localhost:3000/bookings/cancel")
	v.SetDefault("SANDBOX_PAYMENT_SECRET", "dev_sandbox_secret")
	v.SetDefault("SANDBOX_CHECKOUT_URL", "http://localhost:8080/api/v1/payments/sandbox/checkout")
	v.SetDefault("STRIPE_SECRET_KEY", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
	v.SetDefault("MIDTRANS_SERVER_KEY", "")
	v.SetDefault("MIDTRANS_PRODUCTION", false)

	v.SetDefault("SETTLEMENT_WORKERS", 2)
	v.SetDefault("SETTLEMENT_BUFFER_SIZE", 64)
	v.SetDefault("SETTLEMENT_RETRIES", 3)
	v.SetDefault("SETTLEMENT_RETRY_DELAY", "2s")

	v.SetDefault("ENABLE_SWEEPS", true)
	v.SetDefault("SWEEP_SCHEDULE", "*/5 * * * *")

	v.SetDefault("LOCK_BACKEND", LockBackendMemory)
	v.SetDefault("LOCK_TTL", "30s")

	v.SetDefault("AVAILABILITY_CACHE_TTL", "2m")
}

// isMissingFile covers viper returning a raw fs error for an explicit config path.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
