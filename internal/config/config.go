package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds the server settings read from the environment
type Config struct {
	HTTPPort string
	AppEnv   string

	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// MongoURI empty disables the game archive and the stored word bank
	MongoURI string
	MongoDB  string

	JWTSecret string
	TokenTTL  time.Duration

	ReapSchedule string

	GuessRateLimit float64
	GuessRateBurst int

	CORSAllowedOrigins []string
}

// IsDevelopment reports whether APP_ENV=development
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// Load reads an optional .env file, then the environment
func Load(files ...string) (*Config, error) {
	// a missing .env is fine; real deployments set the environment directly
	_ = godotenv.Load(files...)

	var errs []string
	cfg := &Config{
		HTTPPort:      getEnvOrDefault("HTTP_PORT", "8080"),
		AppEnv:        getEnvOrDefault("APP_ENV", "production"),
		StoreBackend:  strings.ToLower(getEnvOrDefault("STORE_BACKEND", StoreRedis)),
		RedisAddr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		MongoURI:      os.Getenv("MONGO_URI"),
		MongoDB:       getEnvOrDefault("MONGO_DB", "sketchrooms"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ReapSchedule:  getEnvOrDefault("REAP_SCHEDULE", "@every 5m"),
	}

	var err error
	if cfg.RedisDB, err = getEnvInt("REDIS_DB", 0); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.TokenTTL, err = getEnvDuration("TOKEN_TTL", 24*time.Hour); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.GuessRateLimit, err = getEnvFloat("GUESS_RATE_LIMIT", 5); err != nil {
		errs = append(errs, err.Error())
	}
	if cfg.GuessRateBurst, err = getEnvInt("GUESS_RATE_BURST", 10); err != nil {
		errs = append(errs, err.Error())
	}
	cfg.CORSAllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*"))

	if cfg.StoreBackend != StoreRedis && cfg.StoreBackend != StoreMemory {
		errs = append(errs, fmt.Sprintf("STORE_BACKEND must be %q or %q, got %q", StoreRedis, StoreMemory, cfg.StoreBackend))
	}
	if cfg.JWTSecret == "" {
		if !cfg.IsDevelopment() {
			errs = append(errs, "JWT_SECRET is required outside development")
		}
		cfg.JWTSecret = devJWTSecret
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, fallback int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not an integer", key, val)
	}
	return i, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a number", key, val)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback, fmt.Errorf("%s: %q is not a duration", key, val)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
