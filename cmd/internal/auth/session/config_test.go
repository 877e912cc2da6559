package session

import (
	"errors"
	"testing"
	"time"
)

func TestLoadConfigFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("expected 24h default TTL, got %v", cfg.SessionTTL)
	}
	if cfg.TokenBytes != 32 {
		t.Fatalf("expected 32 default token bytes, got %d", cfg.TokenBytes)
	}
}

func TestLoadConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv("QUILL_SESSION_TTL", "12h")
	t.Setenv("QUILL_SESSION_TOKEN_BYTES", "48")

	cfg, err := LoadConfigFromEnv()
	if err != nil {
		t.Fatalf("LoadConfigFromEnv: %v", err)
	}
	if cfg.SessionTTL != 12*time.Hour {
		t.Fatalf("expected 12h TTL, got %v", cfg.SessionTTL)
	}
	if cfg.TokenBytes != 48 {
		t.Fatalf("expected 48 token bytes, got %d", cfg.TokenBytes)
	}
}

func TestLoadConfigFromEnv_Invalid(t *testing.T) {
	t.Setenv("QUILL_SESSION_TTL", "not-a-duration")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}

	t.Setenv("QUILL_SESSION_TTL", "1h")
	t.Setenv("QUILL_SESSION_TOKEN_BYTES", "8")
	if _, err := LoadConfigFromEnv(); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected ErrConfig for short token bytes, got %v", err)
	}
}
