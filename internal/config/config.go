package config

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"domus-api/internal/security"
)

// Config is loaded once at startup and never mutated afterwards. The signing
// keypair lives here as process-wide immutable state; rotation means
// redeploying with new key material.
type Config struct {
	ServerPort              string
	ServerReadHeaderTimeout time.Duration
	ServerWriteTimeout      time.Duration
	ServerIdleTimeout       time.Duration
	RequestTimeout          time.Duration

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	AuthPrivateKey ed25519.PrivateKey
	AuthPublicKey  ed25519.PublicKey
	AuthIssuer     string
	AuthAudience   string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration

	CORSOrigins      []string
	RateLimitRPM     int
	AuthRateLimitRPM int

	TokenCleanupInterval time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ServerPort:              getEnv("SERVER_PORT", "8080"),
		ServerReadHeaderTimeout: getDuration("SERVER_READ_HEADER_TIMEOUT", 15*time.Second),
		ServerWriteTimeout:      getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
		ServerIdleTimeout:       getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		RequestTimeout:          getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:             strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:              int32(getInt("DB_MAX_CONNS", 10)),
		DBMinConns:              int32(getInt("DB_MIN_CONNS", 2)),
		AuthIssuer:              getEnv("AUTH_ISSUER", "api.domus.jacksonc.dev"),
		AuthAudience:            getEnv("AUTH_AUDIENCE", "domus.jacksonc.dev"),
		AccessTTL:               getDuration("AUTH_ACCESS_TTL", 30*time.Minute),
		RefreshTTL:              getDuration("AUTH_REFRESH_TTL", 720*time.Hour),
		CORSOrigins:             splitCSV(getEnv("CORS_ORIGINS", "*")),
		RateLimitRPM:            getInt("RATE_LIMIT_RPM", 100),
		AuthRateLimitRPM:        getInt("AUTH_RATE_LIMIT_RPM", 10),
		TokenCleanupInterval:    getDuration("TOKEN_CLEANUP_INTERVAL", time.Hour),
	}

	privateKey := strings.TrimSpace(os.Getenv("AUTH_PRIVATE_KEY"))
	publicKey := strings.TrimSpace(os.Getenv("AUTH_PUBLIC_KEY"))
	if privateKey != "" {
		key, err := security.DecodePrivateKey(privateKey)
		if err != nil {
			return nil, fmt.Errorf("AUTH_PRIVATE_KEY: %w", err)
		}
		cfg.AuthPrivateKey = key
	}
	if publicKey != "" {
		key, err := security.DecodePublicKey(publicKey)
		if err != nil {
			return nil, fmt.Errorf("AUTH_PUBLIC_KEY: %w", err)
		}
		cfg.AuthPublicKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return fmt.Errorf("SERVER_PORT cannot be empty")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.AuthPrivateKey) == 0 {
		return fmt.Errorf("AUTH_PRIVATE_KEY is required (run cmd/genkeys to create a keypair)")
	}

	if len(c.AuthPublicKey) == 0 {
		return fmt.Errorf("AUTH_PUBLIC_KEY is required (run cmd/genkeys to create a keypair)")
	}

	if !c.AuthPrivateKey.Public().(ed25519.PublicKey).Equal(c.AuthPublicKey) {
		return fmt.Errorf("AUTH_PUBLIC_KEY does not match AUTH_PRIVATE_KEY")
	}

	if strings.TrimSpace(c.AuthIssuer) == "" {
		return fmt.Errorf("AUTH_ISSUER cannot be empty")
	}

	if strings.TrimSpace(c.AuthAudience) == "" {
		return fmt.Errorf("AUTH_AUDIENCE cannot be empty")
	}

	if c.AccessTTL <= 0 {
		return fmt.Errorf("AUTH_ACCESS_TTL must be positive")
	}

	if c.RefreshTTL <= c.AccessTTL {
		return fmt.Errorf("AUTH_REFRESH_TTL must be longer than AUTH_ACCESS_TTL")
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return nil
}

func getEnv(key string, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}

	return v
}

func getInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}

	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	v, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return v
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}

	return out
}
