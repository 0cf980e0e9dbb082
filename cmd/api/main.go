package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/pharmastic-ai-platform/internal/api/router"
	appbootstrap "github.com/wolfman30/pharmastic-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/http/handlers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/webchat"
	conversationworker "github.com/wolfman30/pharmastic-ai-platform/internal/worker/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting pharmastic API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"queued_turns", cfg.UsesQueue(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, metricsHandler := setupMetrics()
	app, err := appbootstrap.BuildApp(ctx, cfg, registry, logger)
	if err != nil {
		logger.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	worker := setupDispatch(ctx, app)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(app, metricsHandler),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if worker != nil {
		_ = conversationworker.Drain(worker, logger)
	}
	logger.Info("server stopped")
}

func setupMetrics() (*prometheus.Registry, http.Handler) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry, promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// setupDispatch decides how webhook messages reach the engine. With the
// in-memory queue the API also runs the consumers; with SQS a separate
// conversation-worker does.
func setupDispatch(ctx context.Context, app *appbootstrap.App) *conversation.Worker {
	if app.Queue == nil {
		app.WhatsApp.SetDispatcher(conversation.NewInlineDispatcher(app.Engine, app.WhatsApp, app.Logger))
		return nil
	}
	app.WhatsApp.SetDispatcher(conversation.NewPublisher(app.Queue, app.Logger))
	if app.Config.UseMemoryQueue {
		return conversationworker.StartWorker(ctx, app)
	}
	return nil
}

func newHandler(app *appbootstrap.App, metricsHandler http.Handler) http.Handler {
	cfg := app.Config
	return router.New(&router.Config{
		Logger:             app.Logger,
		WhatsApp:           app.WhatsApp,
		WebChat:            webchat.NewHandler(app.Engine, app.Logger),
		AdminCustomers:     handlers.NewAdminCustomersHandler(app.Stores.Profiles, app.Stores.Orders, app.Sessions, app.Logger),
		MetricsHandler:     metricsHandler,
		HealthChecks:       app.HealthChecks(),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSOrigins,
		RateLimitRPS:       cfg.RateLimitRPS,
		RateLimitBurst:     cfg.RateLimitBurst,
	})
}
