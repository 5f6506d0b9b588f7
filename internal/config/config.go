package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port           string
	Env            string
	LogLevel       string
	UseMemoryQueue bool
	UseMemoryStore bool
	WorkerCount    int
	InlineWorker   bool

	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool
	DialogStateTTL time.Duration
	DialogLockTTL  time.Duration
	DialogLockWait time.Duration

	AWSRegion             string
	AWSAccessKeyID        string
	AWSSecretAccessKey    string
	AWSEndpointOverride   string
	ConversationQueueURL  string
	// Empty keeps job status in memory.
	ConversationJobsTable string
	// Empty disables transcript archival.
	ArchiveBucket         string

	// Intent recognition
	RecognizerProvider string
	RecognizerFallback bool
	GeminiAPIKey       string
	GeminiModelID      string
	BedrockModelID     string

	// Presentation
	CardTemplatePath string
	JokeChance       float64
	ComplimentChance float64
	VariantSeed      uint64

	// Telemetry
	DatabaseURL     string
	TelemetryBuffer int

	// HTTP surface
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	ChatRateLimit      float64
	ChatRateBurst      int
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 2),
		InlineWorker:   getEnvAsBool("INLINE_WORKER", false),

		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),
		DialogStateTTL: getEnvAsDuration("DIALOG_STATE_TTL", 24*time.Hour),
		DialogLockTTL:  getEnvAsDuration("DIALOG_LOCK_TTL", 30*time.Second),
		DialogLockWait: getEnvAsDuration("DIALOG_LOCK_WAIT", 10*time.Second),

		AWSRegion:             getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:        getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:    getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:   getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		ConversationQueueURL:  getEnv("CONVERSATION_QUEUE_URL", ""),
		ConversationJobsTable: getEnv("CONVERSATION_JOBS_TABLE", ""),
		ArchiveBucket:         getEnv("ARCHIVE_BUCKET", ""),

		RecognizerProvider: strings.ToLower(strings.TrimSpace(getEnv("RECOGNIZER_PROVIDER", "none"))),
		RecognizerFallback: getEnvAsBool("RECOGNIZER_FALLBACK", true),
		GeminiAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:      getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		BedrockModelID:     getEnv("BEDROCK_MODEL_ID", ""),

		CardTemplatePath: getEnv("CARD_TEMPLATE_PATH", ""),
		JokeChance:       getEnvAsFloat("JOKE_CHANCE", 0.10),
		ComplimentChance: getEnvAsFloat("COMPLIMENT_CHANCE", 0.90),
		VariantSeed:      uint64(getEnvAsInt("VARIANT_SEED", 0)),

		DatabaseURL:     getEnv("DATABASE_URL", ""),
		TelemetryBuffer: getEnvAsInt("TELEMETRY_BUFFER", 256),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		ChatRateLimit:      getEnvAsFloat("CHAT_RATE_LIMIT", 5),
		ChatRateBurst:      getEnvAsInt("CHAT_RATE_BURST", 10),
	}
}

// RecognizerConfigured reports whether an intent recognizer has been selected.
func (c *Config) RecognizerConfigured() bool {
	switch c.RecognizerProvider {
	case "pattern":
		return true
	case "gemini":
		return strings.TrimSpace(c.GeminiAPIKey) != ""
	case "bedrock":
		return strings.TrimSpace(c.BedrockModelID) != ""
	default:
		return false
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
