package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port      string
	Env       string
	LogLevel  string
	LogFormat string

	// External booking service
	APIBaseURL   string
	CourseDomain string
	HTTPTimeout  time.Duration

	// Session snapshot storage
	UseMemorySessions bool
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	RedisAddr         string
	RedisPassword     string
	RedisTLS          bool

	// Workflow defaults
	DefaultCartRequired bool

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		Env:       getEnv("ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:5001/api"),
		CourseDomain: getEnv("COURSE_DOMAIN", "example.golfshopapp.com"),
		HTTPTimeout:  getEnvAsDuration("HTTP_TIMEOUT", 15*time.Second),

		UseMemorySessions: getEnvAsBool("USE_MEMORY_SESSIONS", false),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		SweepInterval:     getEnvAsDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),
		RedisAddr:         getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisTLS:          getEnvAsBool("REDIS_TLS", false),

		DefaultCartRequired: getEnvAsBool("DEFAULT_CART_REQUIRED", true),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSlice retrieves a comma-separated environment variable as a string slice.
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
