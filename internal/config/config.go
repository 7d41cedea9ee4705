package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config is the full service configuration, read from the environment by Load.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Tax      TaxConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	LogLevel string
}

// ServerConfig controls the HTTP listener. Timeouts are read in seconds.
type ServerConfig struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds PostgreSQL connection URLs; TestURL is used only by integration tests.
type DatabaseConfig struct {
	URL     string
	TestURL string
}

// AuthConfig holds the HS256 secret for shopper tokens. Empty means every request is anonymous.
type AuthConfig struct {
	JWTSecret string
}

// TaxConfig mirrors the store-wide tax settings. ShippingTaxRate is a fraction (0.25 = 25 %).
type TaxConfig struct {
	ShipmentIncVAT  bool
	ShippingTaxRate decimal.Decimal
}

// RedisConfig is optional: an empty Addr disables the bought-items cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// KafkaConfig is optional: no brokers disables event publishing.
type KafkaConfig struct {
	Brokers     []string
	OrdersTopic string
}

// Load reads configuration from the environment. Call godotenv.Load() first to pick up .env.
func Load() (*Config, error) {
	rate, err := getEnvDecimal("SHIPPING_TAX_RATE", decimal.Zero)
	if err != nil {
		return nil, err
	}
	if rate.IsNegative() {
		return nil, fmt.Errorf("SHIPPING_TAX_RATE must not be negative, got %s", rate)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:    time.Duration(getEnvInt("SERVER_READ_TIMEOUT", 30)) * time.Second,
			WriteTimeout:   time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT", 30)) * time.Second,
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			URL:     getEnvString("DATABASE_URL", ""),
			TestURL: getEnvString("TEST_DATABASE_URL", ""),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvString("JWT_SECRET", ""),
		},
		Tax: TaxConfig{
			ShipmentIncVAT:  getEnvBool("SHIPMENT_INC_VAT", false),
			ShippingTaxRate: rate,
		},
		Redis: RedisConfig{
			Addr:     getEnvString("REDIS_ADDR", ""),
			Password: getEnvString("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 300)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:     getEnvList("KAFKA_BROKERS", nil),
			OrdersTopic: getEnvString("KAFKA_ORDERS_TOPIC", "marketplace.orders"),
		},
		LogLevel: getEnvString("LOG_LEVEL", "info"),
	}
	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDecimal fails loudly: a mistyped tax rate must not silently fall back to the default.
func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return d, nil
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
