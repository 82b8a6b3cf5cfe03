package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port         string
	Environment  string
	LogLevel     string
	Database     DatabaseConfig
	Redis        RedisConfig
	OrderService OrderServiceConfig
	Geography    GeographyConfig
	Stripe       StripeConfig
	Checkout     CheckoutConfig
	API          APIConfig
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig points at the store that carries checkout continuations across the gateway redirect
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OrderServiceConfig is used to call the Order Service for orders, addresses and cart lines
type OrderServiceConfig struct {
	BaseURL    string        // e.g. http://order-service:3000
	ServiceKey string        // ORDER_SERVICE_API_KEY
	Timeout    time.Duration // per call
}

// GeographyConfig is the third-party province/district/ward directory
type GeographyConfig struct {
	BaseURL  string // GEO_DIRECTORY_URL, required
	Timeout  time.Duration
	CacheTTL time.Duration
}

type StripeConfig struct {
	SecretKey         string
	Currency          string
	MinorExponent     int32
	BaseUnitsPerMajor string // storefront currency units per gateway major unit
	Timeout           time.Duration
}

type CheckoutConfig struct {
	PhonePattern       string
	ContinuationTTL    time.Duration
	DirectoryWarmEvery time.Duration
	SessionIdleTimeout time.Duration
	SupportWebhookURL  string // SUPPORT_WEBHOOK_URL: alerted when a charged card cannot be recorded
}

type APIConfig struct {
	EdgeKeyHash string // bcrypt hash of the key the storefront edge presents
}

func Load() (*Config, error) {
	if err := setup(); err != nil {
		return nil, err
	}

	redisDB, err := strconv.Atoi(getEnvOrViper("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	exponent, err := strconv.ParseInt(getEnvOrViper("STRIPE_MINOR_EXPONENT", "0"), 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid STRIPE_MINOR_EXPONENT: %w", err)
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		LogLevel:    getEnvOrViper("LOG_LEVEL", "info"),
		Database:    databaseConfig(),
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		OrderService: OrderServiceConfig{
			BaseURL:    strings.TrimSpace(getEnvOrViper("ORDER_SERVICE_URL", "")),
			ServiceKey: strings.TrimSpace(getEnvOrViper("ORDER_SERVICE_API_KEY", "")),
			Timeout:    getDurationOrDefault("ORDER_SERVICE_TIMEOUT", 10*time.Second),
		},
		Geography: GeographyConfig{
			BaseURL:  strings.TrimSpace(getEnvOrViper("GEO_DIRECTORY_URL", "")),
			Timeout:  getDurationOrDefault("GEO_TIMEOUT", 5*time.Second),
			CacheTTL: getDurationOrDefault("GEO_CACHE_TTL", 24*time.Hour),
		},
		Stripe: StripeConfig{
			SecretKey:         strings.TrimSpace(getEnvOrViper("STRIPE_SECRET_KEY", "")),
			Currency:          getEnvOrViper("STRIPE_CURRENCY", "vnd"),
			MinorExponent:     int32(exponent),
			BaseUnitsPerMajor: getEnvOrViper("STRIPE_BASE_UNITS_PER_MAJOR", "1"),
			Timeout:           getDurationOrDefault("STRIPE_TIMEOUT", 15*time.Second),
		},
		Checkout: CheckoutConfig{
			PhonePattern:       getEnvOrViper("PHONE_PATTERN", ""),
			ContinuationTTL:    getDurationOrDefault("CONTINUATION_TTL", 24*time.Hour),
			DirectoryWarmEvery: getDurationOrDefault("DIRECTORY_WARM_INTERVAL", 6*time.Hour),
			SessionIdleTimeout: getDurationOrDefault("SESSION_IDLE_TIMEOUT", 2*time.Hour),
			SupportWebhookURL:  strings.TrimSpace(getEnvOrViper("SUPPORT_WEBHOOK_URL", "")),
		},
		API: APIConfig{
			EdgeKeyHash: strings.TrimSpace(getEnvOrViper("EDGE_API_KEY_HASH", "")),
		},
	}

	// Validate required fields
	if cfg.OrderService.BaseURL == "" {
		return nil, fmt.Errorf("ORDER_SERVICE_URL is required")
	}
	if cfg.Geography.BaseURL == "" {
		return nil, fmt.Errorf("GEO_DIRECTORY_URL is required")
	}

	return cfg, nil
}

// LoadDatabase reads only the database section, for tools that do not talk
// to the Order Service.
func LoadDatabase() (DatabaseConfig, error) {
	if err := setup(); err != nil {
		return DatabaseConfig{}, err
	}
	return databaseConfig(), nil
}

func setup() error {
	// .env next to the binary or one level up; existing variables win
	_ = godotenv.Load(".env")
	_ = godotenv.Load("../.env")

	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func databaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Host:     getEnvOrViper("DB_HOST", "localhost"),
		Port:     getEnvOrViper("DB_PORT", "5432"),
		User:     getEnvOrViper("DB_USER", "postgres"),
		Password: getEnvOrViper("DB_PASSWORD", "postgres"),
		DBName:   getEnvOrViper("DB_NAME", "checkout"),
		SSLMode:  getEnvOrViper("DB_SSLMODE", "disable"),
	}
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

// getDurationOrDefault accepts Go durations ("15s") or plain seconds ("15")
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(getEnvOrViper(key, ""))
	if raw == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
