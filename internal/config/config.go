package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	Stage      string
	LogLevel   string

	BackendBaseURL    string
	BackendTimeout    time.Duration
	BackendMaxRetries int

	JWTSecret string

	CheckoutRefreshInterval time.Duration
	CheckoutSessionTTL      time.Duration
	AllowZeroAmountCheckout bool

	// The receipt journal is disabled when DBHost is empty.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	// The rate cache is disabled when RedisAddr is empty.
	RedisAddr    string
	RateCacheTTL time.Duration

	AWSRegion           string
	SQSCheckoutQueueURL string

	CORSAllowedOrigins []string
	RateLimitPerSecond int
	RateLimitBurst     int
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		Stage:      getEnv("STAGE", "dev"),
		LogLevel:   getEnv("LOG_LEVEL", ""),

		BackendBaseURL:    getEnv("BACKEND_BASE_URL", "http://localhost:3000/api"),
		BackendTimeout:    time.Duration(getEnvInt("BACKEND_TIMEOUT_SECONDS", 10)) * time.Second,
		BackendMaxRetries: getEnvInt("BACKEND_MAX_RETRIES", 3),

		JWTSecret: getEnv("JWT_SECRET", ""),

		CheckoutRefreshInterval: time.Duration(getEnvInt("CHECKOUT_REFRESH_SECONDS", 30)) * time.Second,
		CheckoutSessionTTL:      time.Duration(getEnvInt("CHECKOUT_SESSION_TTL_MINUTES", 30)) * time.Minute,
		AllowZeroAmountCheckout: getEnvBool("ALLOW_ZERO_AMOUNT_CHECKOUT", false),

		DBHost:     getEnv("DB_HOST", ""),
		DBPort:     getEnvInt("DB_PORT", 5432),
		DBUser:     getEnv("DB_USER", "parkflow"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "parkflow"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:    getEnv("REDIS_ADDR", ""),
		RateCacheTTL: time.Duration(getEnvInt("RATE_CACHE_TTL_SECONDS", 60)) * time.Second,

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		SQSCheckoutQueueURL: getEnv("SQS_CHECKOUT_QUEUE_URL", ""),

		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),
		RateLimitPerSecond: getEnvInt("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),
	}
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || v < 0 {
		log.Printf("Warning: %s=%q is not a valid non-negative integer, using %d", key, raw, fallback)
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("Warning: %s=%q is not a valid boolean, using %t", key, raw, fallback)
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
