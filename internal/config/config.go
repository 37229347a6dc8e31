package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultBaseURL         = "http://localhost:8081/api/v1"
	DefaultTimeout         = 10 * time.Second
	DefaultDevServerAddr   = ":8081"
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// Config holds all configuration for the application
type Config struct {
	// Client Configuration
	Client ClientConfig

	// Token persistence
	TokenStore TokenStoreConfig

	// Logging Configuration
	Logging LoggingConfig

	// Reference backend
	DevServer DevServerConfig
}

// ClientConfig configures the authenticated request pipeline
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// TokenStoreConfig selects where the access credential is persisted
type TokenStoreConfig struct {
	Kind           string // keyring, file, redis, memory
	Profile        string
	KeyringService string
	FilePath       string
	RedisAddress   string
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// DevServerConfig configures the reference auth backend
type DevServerConfig struct {
	Addr            string
	DatabaseURL     string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CORSOrigins     []string
	CookieSecure    bool
	PurgeSchedule   string // cron expression for removing expired tokens and codes
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	timeout, err := durationEnv("AUTH_TIMEOUT", DefaultTimeout)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("AUTH_TIMEOUT must be positive, got %s", timeout)
	}

	accessTTL, err := durationEnv("ACCESS_TOKEN_TTL", DefaultAccessTokenTTL)
	if err != nil {
		return nil, err
	}

	refreshTTL, err := durationEnv("REFRESH_TOKEN_TTL", DefaultRefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	cookieSecure, err := boolEnv("COOKIE_SECURE", false)
	if err != nil {
		return nil, err
	}

	return &Config{
		Client: ClientConfig{
			BaseURL: strings.TrimRight(stringEnv("AUTH_BASE_URL", DefaultBaseURL), "/"),
			Timeout: timeout,
		},
		TokenStore: TokenStoreConfig{
			Kind:           stringEnv("AUTH_TOKEN_STORE", "keyring"),
			Profile:        stringEnv("AUTH_PROFILE", "default"),
			KeyringService: stringEnv("AUTH_KEYRING_SERVICE", "authclient"),
			FilePath:       os.Getenv("AUTH_TOKEN_FILE"),
			RedisAddress:   stringEnv("REDIS_ADDRESS", "localhost:6379"),
		},
		Logging: LoggingConfig{
			Level:  stringEnv("LOG_LEVEL", "info"),
			Format: stringEnv("LOG_FORMAT", "console"),
		},
		DevServer: DevServerConfig{
			Addr:            stringEnv("DEVSERVER_ADDR", DefaultDevServerAddr),
			DatabaseURL:     stringEnv("DATABASE_URL", "authdev.sqlite"),
			JWTSecret:       os.Getenv("JWT_SECRET"),
			AccessTokenTTL:  accessTTL,
			RefreshTokenTTL: refreshTTL,
			CORSOrigins:     listEnv("CORS_ORIGINS", []string{"http://localhost:5173"}),
			CookieSecure:    cookieSecure,
			PurgeSchedule:   os.Getenv("DEVSERVER_PURGE_SCHEDULE"),
		},
	}, nil
}

func stringEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return b, nil
}

func listEnv(key string, fallback []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
