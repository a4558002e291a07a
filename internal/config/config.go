package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port      string
	JwtSecret string
	DbURL     string // optional; empty selects the in-memory credential store

	MaxLoginAttempts int
	LockoutDuration  time.Duration
	RateLimitWindow  time.Duration

	MinPasswordLength int
	RequireUppercase  bool
	RequireLowercase  bool
	RequireDigit      bool
	RequireSpecial    bool
}

// Load reads the configuration from a .env file or environment variables and
// returns a Config struct. Security knobs all have defaults; only JWT_SECRET
// is required.
func Load() (*Config, error) {
	// Try to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("missing required environment variable JWT_SECRET")
	}

	maxAttempts, err := envInt("MAX_LOGIN_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	lockoutMinutes, err := envInt("LOCKOUT_DURATION_MINUTES", 15)
	if err != nil {
		return nil, err
	}
	windowMinutes, err := envInt("RATE_LIMIT_WINDOW_MINUTES", 5)
	if err != nil {
		return nil, err
	}
	minPasswordLength, err := envInt("MIN_PASSWORD_LENGTH", 8)
	if err != nil {
		return nil, err
	}
	requireUppercase, err := envBool("REQUIRE_UPPERCASE", true)
	if err != nil {
		return nil, err
	}
	requireLowercase, err := envBool("REQUIRE_LOWERCASE", true)
	if err != nil {
		return nil, err
	}
	requireDigit, err := envBool("REQUIRE_DIGIT", true)
	if err != nil {
		return nil, err
	}
	requireSpecial, err := envBool("REQUIRE_SPECIAL", true)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:      envString("PORT", "8080"),
		JwtSecret: jwtSecret,
		DbURL:     os.Getenv("DATABASE_URL"),

		MaxLoginAttempts: maxAttempts,
		LockoutDuration:  time.Duration(lockoutMinutes) * time.Minute,
		RateLimitWindow:  time.Duration(windowMinutes) * time.Minute,

		MinPasswordLength: minPasswordLength,
		RequireUppercase:  requireUppercase,
		RequireLowercase:  requireLowercase,
		RequireDigit:      requireDigit,
		RequireSpecial:    requireSpecial,
	}

	if cfg.MaxLoginAttempts < 1 {
		return nil, fmt.Errorf("MAX_LOGIN_ATTEMPTS must be at least 1, got %d", cfg.MaxLoginAttempts)
	}
	if cfg.LockoutDuration <= 0 || cfg.RateLimitWindow <= 0 {
		return nil, fmt.Errorf("LOCKOUT_DURATION_MINUTES and RATE_LIMIT_WINDOW_MINUTES must be positive")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: %q", key, v)
	}
	return b, nil
}
