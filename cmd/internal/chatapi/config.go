package chatapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls the chat API's cookie policy, body limits, and the
// rate-limit gate fronting session creation.
type Config struct {
	// CookieName is the session cookie's name.
	CookieName string
	// CookiePath scopes the session cookie.
	CookiePath string
	// CookieDomain optionally pins the cookie to a domain.
	CookieDomain string
	// CookieSecure must be true in production (HTTPS-only cookie).
	CookieSecure bool

	// TrustProxy enables X-Forwarded-For / X-Real-IP parsing for the
	// rate-limit key. Only enable behind a trusted reverse proxy.
	TrustProxy bool

	// MaxBodyBytes caps request bodies.
	MaxBodyBytes int64

	// SessionCreateLimit and SessionCreateWindow define the per-IP gate on
	// POST /session: at most Limit creations per Window per key.
	SessionCreateLimit  int
	SessionCreateWindow time.Duration

	// ShareTTL is the lifetime embedded in minted share tokens.
	ShareTTL time.Duration
}

// LoadConfigFromEnv loads chat API config from environment variables with
// safe defaults.
func LoadConfigFromEnv() Config {
	cfg := Config{
		CookieName:          envString("QUILL_SESSION_COOKIE_NAME", "quill_session"),
		CookiePath:          envString("QUILL_SESSION_COOKIE_PATH", "/"),
		CookieDomain:        envString("QUILL_SESSION_COOKIE_DOMAIN", ""),
		CookieSecure:        envBool("QUILL_SESSION_COOKIE_SECURE", false),
		TrustProxy:          envBool("QUILL_TRUST_PROXY", false),
		MaxBodyBytes:        envInt64("QUILL_MAX_BODY_BYTES", 1<<20), // 1 MiB
		SessionCreateLimit:  envInt("QUILL_SESSION_CREATE_LIMIT", 10),
		SessionCreateWindow: envDuration("QUILL_SESSION_CREATE_WINDOW", time.Minute),
		ShareTTL:            envDuration("QUILL_SHARE_TTL", 7*24*time.Hour),
	}

	if cfg.CookieName == "" {
		cfg.CookieName = "quill_session"
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	return cfg
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
