package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server       ServerConfig
	ContentStore ContentStoreConfig
	Auth         AuthConfig
	RateLimit    RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

// ContentStoreConfig points at the hosted document store holding the
// adminUser and loginAttempt documents.
type ContentStoreConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string // write token; required for patches and audit records
	Timeout    time.Duration
}

type AuthConfig struct {
	SessionSecret    string
	EncryptionKey    string // exactly 32 characters, reserved for symmetric encryption
	SessionDuration  time.Duration
	LockoutThreshold int
	LockoutDuration  time.Duration

	DefaultAdminPassword string // optional; bootstrap generates one when empty
}

type RateLimitConfig struct {
	// Per-username limiter.
	UsernamePoints   int
	UsernameWindow   time.Duration
	UsernameBlockFor time.Duration

	// Per-network-origin limiter.
	OriginPoints   int
	OriginWindow   time.Duration
	OriginBlockFor time.Duration

	// Optional shared counter backend. Empty = in-process counters.
	RedisAddr     string
	RedisPassword string
}

// Load reads configuration from the environment. Missing or malformed
// secrets are a fatal startup error, never a per-request one: the process
// must refuse to start rather than sign sessions with a defaulted secret.
func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	encryptionKey := getEnv("ENCRYPTION_KEY", "")
	if encryptionKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 characters long (got %d)", len(encryptionKey))
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnv("PORT", "8080"),
			Env:      env,
			LogLevel: getEnv("LOG_LEVEL", "info"),
		},
		ContentStore: ContentStoreConfig{
			ProjectID:  getEnv("CONTENT_STORE_PROJECT_ID", ""),
			Dataset:    getEnv("CONTENT_STORE_DATASET", "production"),
			APIVersion: getEnv("CONTENT_STORE_API_VERSION", "2024-01-01"),
			Token:      getEnv("CONTENT_STORE_TOKEN", ""),
			Timeout:    getEnvAsDuration("CONTENT_STORE_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			SessionSecret:        sessionSecret,
			EncryptionKey:        encryptionKey,
			SessionDuration:      getEnvAsDuration("SESSION_DURATION", 24*time.Hour),
			LockoutThreshold:     getEnvAsInt("LOCKOUT_THRESHOLD", 5),
			LockoutDuration:      getEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			DefaultAdminPassword: getEnv("DEFAULT_ADMIN_PASSWORD", ""),
		},
		RateLimit: RateLimitConfig{
			UsernamePoints:   getEnvAsInt("LOGIN_LIMIT_POINTS", 5),
			UsernameWindow:   getEnvAsDuration("LOGIN_LIMIT_WINDOW", 15*time.Minute),
			UsernameBlockFor: getEnvAsDuration("LOGIN_LIMIT_BLOCK", 15*time.Minute),
			OriginPoints:     getEnvAsInt("IP_LIMIT_POINTS", 20),
			OriginWindow:     getEnvAsDuration("IP_LIMIT_WINDOW", time.Hour),
			OriginBlockFor:   getEnvAsDuration("IP_LIMIT_BLOCK", time.Hour),
			RedisAddr:        getEnv("REDIS_ADDR", ""),
			RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		},
	}

	if cfg.ContentStore.ProjectID == "" {
		return nil, fmt.Errorf("CONTENT_STORE_PROJECT_ID is required")
	}
	if cfg.ContentStore.Token == "" {
		return nil, fmt.Errorf("CONTENT_STORE_TOKEN is required")
	}

	return cfg, nil
}

// validateSessionSecret enforces minimum strength for the signing secret
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
