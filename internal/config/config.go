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
	DatabaseURL    string
	BaseLanguage   string
	RateLimitRPS   float64
	RateLimitBurst int
	CORSOrigins    []string

	// Turn processing
	UseMemoryQueue bool
	TurnQueueURL   string
	WorkerCount    int

	// Session storage
	SessionBackend string
	SessionTable   string
	SessionTTL     time.Duration
	LockTTL        time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Language model providers
	LLMProvider         string
	LLMFallbackProvider string
	GroqAPIKey          string
	GroqModel           string
	GroqBaseURL         string
	BedrockModelID      string
	GeminiAPIKey        string
	GeminiModel         string
	ExtractTimeout      time.Duration
	TranslateTimeout    time.Duration

	// Placeholder pricing
	PriceMin int
	PriceMax int

	// WhatsApp Cloud API
	WhatsAppAPIToken      string
	WhatsAppPhoneNumberID string
	WhatsAppVerifyToken   string
	WhatsAppAppSecret     string
	WhatsAppGraphBaseURL  string

	// AWS
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	AdminJWTSecret string

	// Order notifications
	NotifyEmailProvider string
	PharmacyNotifyEmail string
	SendGridAPIKey      string
	SendGridFromEmail   string
	SendGridFromName    string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8000"),
		Env:            getEnv("ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		BaseLanguage:   strings.ToLower(getEnv("BASE_LANGUAGE", "english")),
		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 20),
		CORSOrigins:    getEnvAsList("CORS_ALLOWED_ORIGINS"),

		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", false),
		TurnQueueURL:   getEnv("TURN_QUEUE_URL", ""),
		WorkerCount:    getEnvAsInt("WORKER_COUNT", 4),

		SessionBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "redis"))),
		SessionTable:   getEnv("SESSION_TABLE", "pharmastic_sessions"),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 0),
		LockTTL:        getEnvAsDuration("LOCK_TTL", 45*time.Second),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		LLMProvider:         strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "groq"))),
		LLMFallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		GroqAPIKey:          getEnv("GROQ_API_KEY", ""),
		GroqModel:           getEnv("GROQ_MODEL", "llama-3.1-70b-versatile"),
		GroqBaseURL:         getEnv("GROQ_BASE_URL", ""),
		BedrockModelID:      getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", ""),
		ExtractTimeout:      getEnvAsDuration("EXTRACT_TIMEOUT", 8*time.Second),
		TranslateTimeout:    getEnvAsDuration("TRANSLATE_TIMEOUT", 8*time.Second),

		PriceMin: getEnvAsInt("PRICE_MIN", 50),
		PriceMax: getEnvAsInt("PRICE_MAX", 500),

		WhatsAppAPIToken:      getEnv("WHATSAPP_API_TOKEN", ""),
		WhatsAppPhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
		WhatsAppVerifyToken:   getEnv("WHATSAPP_VERIFY_TOKEN", ""),
		WhatsAppAppSecret:     getEnv("WHATSAPP_APP_SECRET", ""),
		WhatsAppGraphBaseURL:  getEnv("WHATSAPP_GRAPH_BASE_URL", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		NotifyEmailProvider: strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_EMAIL_PROVIDER", "sendgrid"))),
		PharmacyNotifyEmail: getEnv("PHARMACY_NOTIFY_EMAIL", ""),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:   getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:    getEnv("SENDGRID_FROM_NAME", "Pharmastic"),
	}
}

// UsesQueue reports whether inbound turns go through the turn queue instead of running inline.
func (c *Config) UsesQueue() bool {
	if c == nil {
		return false
	}
	return c.UseMemoryQueue || strings.TrimSpace(c.TurnQueueURL) != ""
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

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
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
