package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/llm"
	"github.com/wolfman30/pharmastic-ai-platform/internal/nlu"
	"github.com/wolfman30/pharmastic-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// BuildLLMClient wires LLM_PROVIDER with an optional LLM_FALLBACK_PROVIDER.
// It returns nil when no provider is usable; extraction then runs on fallbacks.
func BuildLLMClient(ctx context.Context, cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) (llm.Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	primary, err := buildProvider(ctx, cfg.LLMProvider, cfg, awsCfg)
	if err != nil {
		logger.Warn("primary llm provider unavailable; using fallback extraction", "provider", cfg.LLMProvider, "error", err)
		return nil, nil
	}
	if primary == nil {
		logger.Warn("no llm provider configured; using fallback extraction")
		return nil, nil
	}

	var fallback llm.Client
	if name := cfg.LLMFallbackProvider; name != "" && name != cfg.LLMProvider {
		fallback, err = buildProvider(ctx, name, cfg, awsCfg)
		if err != nil {
			logger.Warn("fallback llm provider unavailable", "provider", name, "error", err)
			fallback = nil
		}
	}

	logger.Info("llm client configured", "provider", cfg.LLMProvider, "fallback", cfg.LLMFallbackProvider)
	return llm.NewFallbackClient(primary, fallback, logger), nil
}

func buildProvider(ctx context.Context, name string, cfg *appconfig.Config, awsCfg *aws.Config) (llm.Client, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return nil, nil
	case "groq":
		return llm.NewGroqClient(cfg.GroqBaseURL, cfg.GroqAPIKey, cfg.GroqModel, nil)
	case "bedrock":
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			return nil, fmt.Errorf("bootstrap: BEDROCK_MODEL_ID is required")
		}
		if awsCfg == nil {
			return nil, fmt.Errorf("bootstrap: bedrock requires aws config")
		}
		return llm.NewBedrockClient(bedrockruntime.NewFromConfig(*awsCfg), cfg.BedrockModelID), nil
	case "gemini":
		return llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	default:
		return nil, fmt.Errorf("bootstrap: unknown llm provider %q", name)
	}
}

// BuildLanguageServices returns the extractor and translator. A nil client
// yields the no-op fallbacks.
func BuildLanguageServices(cfg *appconfig.Config, client llm.Client, m *metrics.ConversationMetrics, logger *logging.Logger) (nlu.Extractor, nlu.Translator) {
	base := nlu.BaseLanguage
	var extractTimeout, translateTimeout time.Duration
	if cfg != nil {
		if cfg.BaseLanguage != "" {
			base = cfg.BaseLanguage
		}
		extractTimeout, translateTimeout = cfg.ExtractTimeout, cfg.TranslateTimeout
	}
	if client == nil {
		return nlu.FallbackExtractor{BaseLanguage: base}, nlu.PassthroughTranslator{}
	}
	common := []nlu.Option{
		nlu.WithBaseLanguage(base),
		nlu.WithLogger(logger),
		nlu.WithMetrics(m),
	}
	extractOpts := append([]nlu.Option{nlu.WithTimeout(extractTimeout)}, common...)
	translateOpts := append([]nlu.Option{nlu.WithTimeout(translateTimeout)}, common...)
	return nlu.NewLLMExtractor(client, extractOpts...), nlu.NewLLMTranslator(client, translateOpts...)
}
