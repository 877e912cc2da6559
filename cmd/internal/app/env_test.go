package app

import (
	"testing"
	"time"
)

func TestEnvHelpers(t *testing.T) {
	t.Setenv("QUILL_TEST_STR", "  hello  ")
	t.Setenv("QUILL_TEST_BOOL", "true")
	t.Setenv("QUILL_TEST_INT", "42")
	t.Setenv("QUILL_TEST_INT_BAD", "-3")
	t.Setenv("QUILL_TEST_DUR", "90s")
	t.Setenv("QUILL_TEST_LIST", "a, b, ,c")

	if got := EnvString("QUILL_TEST_STR", "x"); got != "hello" {
		t.Errorf("EnvString = %q", got)
	}
	if got := EnvString("QUILL_TEST_MISSING", "x"); got != "x" {
		t.Errorf("EnvString default = %q", got)
	}
	if !EnvBool("QUILL_TEST_BOOL", false) {
		t.Error("EnvBool = false")
	}
	if got := EnvInt("QUILL_TEST_INT", 1); got != 42 {
		t.Errorf("EnvInt = %d", got)
	}
	if got := EnvInt("QUILL_TEST_INT_BAD", 7); got != 7 {
		t.Errorf("EnvInt negative not defaulted: %d", got)
	}
	if got := EnvDuration("QUILL_TEST_DUR", time.Second); got != 90*time.Second {
		t.Errorf("EnvDuration = %v", got)
	}
	got := EnvStringList("QUILL_TEST_LIST", nil)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("EnvStringList = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("EnvStringList = %v, want %v", got, want)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()

	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.DatabaseURL != "" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.ReadHeaderTimeout != 5*time.Second || cfg.IdleTimeout != 60*time.Second {
		t.Errorf("timeouts = %+v", cfg)
	}
	if cfg.DBMaxConns != 10 || cfg.DBMinConns != 0 {
		t.Errorf("pool sizing = %d/%d", cfg.DBMaxConns, cfg.DBMinConns)
	}
	if cfg.ReadinessRequireDB {
		t.Error("ReadinessRequireDB must default off")
	}
	if !cfg.CORSAllowCredentials || cfg.CORSMaxAgeSeconds != 600 {
		t.Errorf("CORS defaults = %+v", cfg)
	}
}
