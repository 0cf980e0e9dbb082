package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SESSION_BACKEND", "")
	t.Setenv("TURN_QUEUE_URL", "")
	t.Setenv("USE_MEMORY_QUEUE", "")
	cfg := Load()
	if cfg.Port != "8000" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BaseLanguage != "english" {
		t.Fatalf("expected english base language, got %s", cfg.BaseLanguage)
	}
	if cfg.SessionBackend != "redis" {
		t.Fatalf("expected redis session backend, got %s", cfg.SessionBackend)
	}
	if cfg.PriceMin != 50 || cfg.PriceMax != 500 {
		t.Fatalf("expected price range 50-500, got %d-%d", cfg.PriceMin, cfg.PriceMax)
	}
	if cfg.ExtractTimeout != 8*time.Second {
		t.Fatalf("expected default extract timeout, got %s", cfg.ExtractTimeout)
	}
	if cfg.UsesQueue() {
		t.Fatalf("expected inline turn processing by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("SESSION_BACKEND", " DynamoDB ")
	t.Setenv("LLM_PROVIDER", "Bedrock")
	t.Setenv("TRANSLATE_TIMEOUT", "3s")
	t.Setenv("PRICE_MAX", "900")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("TURN_QUEUE_URL", "https://sqs.ap-south-1.amazonaws.com/123/turns.fifo")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://chat.example.com, ,https://admin.example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if cfg.SessionBackend != "dynamodb" {
		t.Fatalf("expected normalized session backend, got %q", cfg.SessionBackend)
	}
	if cfg.LLMProvider != "bedrock" {
		t.Fatalf("expected normalized llm provider, got %q", cfg.LLMProvider)
	}
	if cfg.TranslateTimeout != 3*time.Second {
		t.Fatalf("expected translate timeout override, got %s", cfg.TranslateTimeout)
	}
	if cfg.PriceMax != 900 {
		t.Fatalf("expected price max override, got %d", cfg.PriceMax)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Fatalf("expected rate limit override, got %v", cfg.RateLimitRPS)
	}
	if !cfg.UsesQueue() {
		t.Fatalf("expected queued turn processing when a queue url is set")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://admin.example.com" {
		t.Fatalf("expected two cors origins, got %v", cfg.CORSOrigins)
	}
}

func TestInvalidValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("WORKER_COUNT", "many")
	t.Setenv("LOCK_TTL", "soon")
	cfg := Load()
	if cfg.WorkerCount != 4 {
		t.Fatalf("expected default worker count, got %d", cfg.WorkerCount)
	}
	if cfg.LockTTL != 45*time.Second {
		t.Fatalf("expected default lock ttl, got %s", cfg.LockTTL)
	}
}
