package chatapi

import (
	"testing"
	"time"
)

func TestLoadConfigFromEnvDefaults(t *testing.T) {
	cfg := LoadConfigFromEnv()

	if cfg.CookieName != "quill_session" {
		t.Errorf("CookieName = %q", cfg.CookieName)
	}
	if cfg.CookiePath != "/" {
		t.Errorf("CookiePath = %q", cfg.CookiePath)
	}
	if cfg.CookieSecure || cfg.TrustProxy {
		t.Error("secure/proxy flags must default off")
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("MaxBodyBytes = %d", cfg.MaxBodyBytes)
	}
	if cfg.SessionCreateLimit != 10 || cfg.SessionCreateWindow != time.Minute {
		t.Errorf("rate limit = %d/%v", cfg.SessionCreateLimit, cfg.SessionCreateWindow)
	}
	if cfg.ShareTTL != 7*24*time.Hour {
		t.Errorf("ShareTTL = %v", cfg.ShareTTL)
	}
}

func TestLoadConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("QUILL_SESSION_COOKIE_NAME", "sid")
	t.Setenv("QUILL_SESSION_COOKIE_SECURE", "true")
	t.Setenv("QUILL_TRUST_PROXY", "1")
	t.Setenv("QUILL_SESSION_CREATE_LIMIT", "25")
	t.Setenv("QUILL_SESSION_CREATE_WINDOW", "30s")
	t.Setenv("QUILL_SHARE_TTL", "48h")

	cfg := LoadConfigFromEnv()
	if cfg.CookieName != "sid" || !cfg.CookieSecure || !cfg.TrustProxy {
		t.Errorf("cookie/proxy overrides not applied: %+v", cfg)
	}
	if cfg.SessionCreateLimit != 25 || cfg.SessionCreateWindow != 30*time.Second {
		t.Errorf("rate limit overrides not applied: %d/%v", cfg.SessionCreateLimit, cfg.SessionCreateWindow)
	}
	if cfg.ShareTTL != 48*time.Hour {
		t.Errorf("ShareTTL = %v", cfg.ShareTTL)
	}
}

func TestLoadConfigFromEnvRejectsGarbage(t *testing.T) {
	t.Setenv("QUILL_SESSION_CREATE_LIMIT", "-4")
	t.Setenv("QUILL_SESSION_CREATE_WINDOW", "soon")
	t.Setenv("QUILL_MAX_BODY_BYTES", "zero")

	cfg := LoadConfigFromEnv()
	if cfg.SessionCreateLimit != 10 || cfg.SessionCreateWindow != time.Minute {
		t.Errorf("invalid rate limit not defaulted: %d/%v", cfg.SessionCreateLimit, cfg.SessionCreateWindow)
	}
	if cfg.MaxBodyBytes != 1<<20 {
		t.Errorf("invalid MaxBodyBytes not defaulted: %d", cfg.MaxBodyBytes)
	}
}
