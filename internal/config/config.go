package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every recognized environment option for the auth service.
type Config struct {
	// Runtime
	Env  string
	Addr string

	// Store
	DatabaseURL string

	// Tokens
	JWTSecret string
	TokenTTL  time.Duration

	// Mail relay
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	// Frontend origin: CORS allow-origin and base for emailed links.
	FrontendURL string

	// Rate limiting
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// Production reports whether the service runs with production error redaction.
func (c Config) Production() bool { return c.Env == "production" }

// Load reads configuration from the environment, honoring a local .env file.
func Load() (Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return Config{}, fmt.Errorf("missing required env JWT_SECRET")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return Config{}, fmt.Errorf("missing required env DATABASE_URL")
	}

	cfg := Config{
		Env:         getenv("ENVIRONMENT", "development"),
		Addr:        ":" + getenv("PORT", "5001"),
		DatabaseURL: dsn,
		JWTSecret:   secret,
		TokenTTL:    getdur("JWT_TTL", 24*time.Hour),

		SMTPHost: getenv("SMTP_HOST", "localhost"),
		SMTPPort: getint("SMTP_PORT", 587),
		SMTPUser: os.Getenv("SMTP_USER"),
		SMTPPass: os.Getenv("SMTP_PASS"),

		FrontendURL: getenv("FRONTEND_URL", "http://localhost:3000"),

		RateLimitWindow: getdur("RATE_LIMIT_WINDOW", 15*time.Minute),
		RateLimitMax:    getint("RATE_LIMIT_MAX_REQUESTS", 100),
	}
	cfg.MailFrom = getenv("MAIL_FROM", cfg.SMTPUser)
	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
