// Package conversationworker runs the queue consumer that executes
// conversation turns outside the webhook process.
package conversationworker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	appbootstrap "github.com/wolfman30/pharmastic-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

const shutdownTimeout = 30 * time.Second

// Run starts the async conversation worker and blocks until ctx is canceled.
func Run(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, logger *logging.Logger) error {
	if cfg == nil {
		return fmt.Errorf("conversation worker requires config")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if cfg.UseMemoryQueue {
		return fmt.Errorf("conversation worker cannot run when USE_MEMORY_QUEUE=true; run inline workers via the API process instead")
	}
	if cfg.TurnQueueURL == "" {
		return fmt.Errorf("conversation worker requires TURN_QUEUE_URL")
	}

	app, err := appbootstrap.BuildApp(ctx, cfg, reg, logger)
	if err != nil {
		return fmt.Errorf("conversation worker: %w", err)
	}
	defer app.Close()

	worker := StartWorker(ctx, app)
	<-ctx.Done()
	return Drain(worker, logger)
}

// StartWorker launches turn consumers that reply over WhatsApp.
func StartWorker(ctx context.Context, app *appbootstrap.App) *conversation.Worker {
	worker := conversation.NewWorker(
		app.Engine,
		app.Queue,
		app.WhatsApp,
		app.Logger,
		conversation.WithWorkerCount(app.Config.WorkerCount),
	)
	worker.Start(ctx)
	app.Logger.Info("conversation worker started", "workers", app.Config.WorkerCount)
	return worker
}

// Drain waits for in-flight turns after the worker's context is canceled.
func Drain(worker *conversation.Worker, logger *logging.Logger) error {
	waitCh := make(chan struct{})
	go func() {
		worker.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		logger.Info("conversation worker stopped")
		return nil
	case <-time.After(shutdownTimeout):
		logger.Error("conversation worker shutdown timed out")
		return fmt.Errorf("conversation worker: shutdown timed out after %s", shutdownTimeout)
	}
}
