package app

import "time"

// Config contains all runtime configuration loaded from environment variables.
type Config struct {
	HTTPAddr string
	LogLevel string

	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	MaxHeaderBytes    int

	DatabaseURL string
	DBMaxConns  int32
	DBMinConns  int32

	// If true:
	// - /readyz returns 503 unless DB is configured and reachable.
	ReadinessRequireDB bool

	// CORS policy for browser clients. Origins may carry a wildcard port
	// ("http://127.0.0.1:*"). Empty list means same-origin only: no CORS
	// headers are emitted and cross-origin requests are refused.
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int
}

// LoadConfig loads Config from environment variables with defaults.
func LoadConfig() Config {
	return Config{
		HTTPAddr: EnvString("QUILL_HTTP_ADDR", "0.0.0.0:8080"),
		LogLevel: EnvString("QUILL_LOG_LEVEL", "info"),

		ReadHeaderTimeout: EnvDuration("QUILL_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		ReadTimeout:       EnvDuration("QUILL_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("QUILL_HTTP_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:       EnvDuration("QUILL_HTTP_IDLE_TIMEOUT", 60*time.Second),

		MaxHeaderBytes: EnvInt("QUILL_HTTP_MAX_HEADER_BYTES", 1<<20),

		DatabaseURL: EnvString("QUILL_DATABASE_URL", ""),
		DBMaxConns:  EnvInt32("QUILL_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("QUILL_DB_MIN_CONNS", 0),

		ReadinessRequireDB: EnvBool("QUILL_READINESS_REQUIRE_DB", false),

		CORSAllowedOrigins:   EnvStringList("QUILL_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("QUILL_CORS_ALLOW_CREDENTIALS", true),
		CORSMaxAgeSeconds:    EnvInt("QUILL_CORS_MAX_AGE_SECONDS", 600),
	}
}
