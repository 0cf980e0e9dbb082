package bootstrap

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/pharmastic-ai-platform/cmd/mainconfig"
	"github.com/wolfman30/pharmastic-ai-platform/internal/channels/whatsapp"
	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// App is everything a process needs to run conversation turns.
type App struct {
	Config    *appconfig.Config
	Logger    *logging.Logger
	Redis     *redis.Client
	Postgres  *pgxpool.Pool
	Stores    Stores
	Sessions  session.Store
	Engine    *conversation.Engine
	WhatsApp  *whatsapp.Adapter
	Queue     conversation.TurnQueue
	Messaging *metrics.MessagingMetrics
}

// BuildApp wires the full dependency graph from config. reg receives the
// application metrics; nil uses the default registerer.
func BuildApp(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var awsCfg *aws.Config
	if loaded, err := mainconfig.LoadAWSConfig(ctx, cfg); err != nil {
		logger.Warn("aws config unavailable; aws-backed components disabled", "error", err)
	} else {
		awsCfg = &loaded
	}

	app := &App{Config: cfg, Logger: logger}
	app.Redis = BuildRedisClient(ctx, cfg, logger, true)

	pool, err := BuildPostgresPool(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Postgres = pool
	app.Stores = BuildStores(pool, logger)

	app.Sessions, err = BuildSessionStore(cfg, app.Redis, awsCfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	convMetrics := metrics.NewConversationMetrics(reg)
	app.Messaging = metrics.NewMessagingMetrics(reg)

	llmClient, err := BuildLLMClient(ctx, cfg, awsCfg, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	extractor, translator := BuildLanguageServices(cfg, llmClient, convMetrics, logger)

	app.Engine, err = BuildEngine(cfg, EngineDeps{
		Sessions:   app.Sessions,
		Profiles:   app.Stores.Profiles,
		Orders:     app.Stores.Orders,
		Extractor:  extractor,
		Translator: translator,
		Locker:     BuildLocker(cfg, app.Redis, logger),
		Notifier:   BuildOrderNotifier(cfg, awsCfg, logger),
		Metrics:    convMetrics,
	}, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.WhatsApp = whatsapp.NewAdapter(whatsapp.AdapterConfig{
		AccessToken:   cfg.WhatsAppAPIToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		AppSecret:     cfg.WhatsAppAppSecret,
		VerifyToken:   cfg.WhatsAppVerifyToken,
		GraphAPIBase:  cfg.WhatsAppGraphBaseURL,
		Metrics:       app.Messaging,
		Logger:        logger,
	})

	app.Queue, err = BuildTurnQueue(cfg, awsCfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// HealthChecks returns reachability probes for the configured backends.
func (a *App) HealthChecks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return a.Redis.Ping(ctx).Err() }
	}
	if a.Postgres != nil {
		checks["postgres"] = a.Postgres.Ping
	}
	return checks
}

// Close releases network clients.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.Postgres != nil {
		a.Postgres.Close()
	}
}
