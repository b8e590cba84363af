package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in APP_STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NewRelic NewRelicConfig
	Auth     AuthConfig
	Events   EventsConfig
	Booking  BookingConfig
}

// AppConfig holds process-wide settings.
type AppConfig struct {
	Env         string // development or production
	StoreDriver string
	CORSOrigin  string
}

// IsProduction reports whether the app runs in production mode.
func (c AppConfig) IsProduction() bool {
	return c.Env == "production"
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// DefaultJWTSecret is the development signing secret. Production refuses it.
const DefaultJWTSecret = "change-me"

// minProductionSecretLen is the HS256 key size in bytes.
const minProductionSecretLen = 32

// ErrInsecureJWTSecret is returned by Validate for a weak production secret.
var ErrInsecureJWTSecret = errors.New("JWT_SECRET must be set to a random value of at least 32 bytes in production")

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	JWTSecret string
}

// EventsConfig holds the booking event queue. An empty QueueURL disables publishing.
type EventsConfig struct {
	Region   string
	QueueURL string
}

// BookingConfig holds booking engine settings.
type BookingConfig struct {
	SlotLockTTL       time.Duration
	ReferenceAttempts int
}

// Validate rejects settings that are unsafe for the configured environment.
func (c *Config) Validate() error {
	if c.App.IsProduction() {
		secret := c.Auth.JWTSecret
		if secret == "" || secret == DefaultJWTSecret || len(secret) < minProductionSecretLen {
			return ErrInsecureJWTSecret
		}
	}
	return nil
}

// Load loads configuration from environment variables, reading a .env
// file first when one exists. Variables already set take precedence.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		App: AppConfig{
			Env:         getEnv("APP_ENV", "development"),
			StoreDriver: getEnv("APP_STORE_DRIVER", StoreDriverPostgres),
			CORSOrigin:  getEnv("CORS_ORIGIN", ""),
		},
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "parking"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "parking-service"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", DefaultJWTSecret),
		},
		Events: EventsConfig{
			Region:   getEnv("AWS_REGION", "us-east-1"),
			QueueURL: getEnv("BOOKING_EVENTS_QUEUE_URL", ""),
		},
		Booking: BookingConfig{
			SlotLockTTL:       getDurationEnv("BOOKING_SLOT_LOCK_TTL", 10*time.Second),
			ReferenceAttempts: getIntEnv("BOOKING_REFERENCE_ATTEMPTS", 5),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
