package bootstrap

import (
	"fmt"

	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/nlu"
	"github.com/wolfman30/pharmastic-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// EngineDeps are the already-built collaborators for BuildEngine.
type EngineDeps struct {
	Sessions   session.Store
	Profiles   customers.Store
	Orders     orders.Store
	Extractor  nlu.Extractor
	Translator nlu.Translator
	Locker     conversation.Locker
	Notifier   conversation.OrderNotifier
	Metrics    *metrics.ConversationMetrics
}

// BuildEngine assembles the conversation engine with configured pricing.
func BuildEngine(cfg *appconfig.Config, deps EngineDeps, logger *logging.Logger) (*conversation.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if deps.Sessions == nil || deps.Profiles == nil || deps.Orders == nil {
		return nil, fmt.Errorf("bootstrap: session, profile and order stores are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	minPrice, maxPrice := int64(cfg.PriceMin), int64(cfg.PriceMax)
	if minPrice <= 0 || maxPrice < minPrice {
		logger.Warn("invalid price range; using defaults", "min", cfg.PriceMin, "max", cfg.PriceMax)
		minPrice, maxPrice = conversation.DefaultMinPrice, conversation.DefaultMaxPrice
	}

	return conversation.NewEngine(conversation.Deps{
		Sessions:   deps.Sessions,
		Profiles:   deps.Profiles,
		Orders:     deps.Orders,
		Extractor:  deps.Extractor,
		Translator: deps.Translator,
		Locker:     deps.Locker,
		Pricer:     conversation.NewRandomPricer(minPrice, maxPrice),
		Notifier:   deps.Notifier,
		Logger:     logger,
		Metrics:    deps.Metrics,
	}, conversation.WithBaseLanguage(cfg.BaseLanguage)), nil
}
