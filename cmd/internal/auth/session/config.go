package session

import (
	"os"
	"strconv"
	"time"
)

// Config defines runtime configuration for the session subsystem.
//
// It is intentionally explicit and environment-driven so production
// deployments can tune security parameters without code changes.
type Config struct {
	// SessionTTL is the lifetime of a bearer session. The session cookie
	// max-age must match this value.
	SessionTTL time.Duration

	// TokenBytes is the number of random bytes used to generate opaque
	// session tokens.
	TokenBytes int
}

// DefaultConfig returns defaults suitable for development.
func DefaultConfig() Config {
	return Config{
		SessionTTL: 24 * time.Hour,
		TokenBytes: 32,
	}
}

// LoadConfigFromEnv loads session configuration from environment variables.
//
// Optional:
//   - QUILL_SESSION_TTL (Go duration string)
//   - QUILL_SESSION_TOKEN_BYTES (32..64)
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := os.Getenv("QUILL_SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.SessionTTL = d
	}

	if v := os.Getenv("QUILL_SESSION_TOKEN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 32 || n > 64 {
			return Config{}, ErrConfig
		}
		cfg.TokenBytes = n
	}

	return cfg, nil
}
