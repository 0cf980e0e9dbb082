package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	appbootstrap "github.com/wolfman30/pharmastic-ai-platform/internal/app/bootstrap"
	appconfig "github.com/wolfman30/pharmastic-ai-platform/internal/config"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

func buildTestApp(t *testing.T, cfg *appconfig.Config) (*appbootstrap.App, http.Handler) {
	t.Helper()
	registry, metricsHandler := setupMetrics()
	app, err := appbootstrap.BuildApp(context.Background(), cfg, registry, logging.New("error"))
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	t.Cleanup(app.Close)
	return app, metricsHandler
}

func memoryConfig() *appconfig.Config {
	return &appconfig.Config{
		SessionBackend: "memory",
		BaseLanguage:   "english",
		PriceMin:       50,
		PriceMax:       500,
		AWSRegion:      "ap-south-1",
		WorkerCount:    2,
	}
}

func TestSetupMetricsExposesConversationMetrics(t *testing.T) {
	app, metricsHandler := buildTestApp(t, memoryConfig())
	app.Messaging.ObserveInbound("text", "accepted")

	rr := httptest.NewRecorder()
	metricsHandler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "pharmastic_whatsapp_inbound_webhook_total") {
		t.Fatalf("expected inbound counter to be exported")
	}
}

func TestInlineDispatchServesWebChat(t *testing.T) {
	app, metricsHandler := buildTestApp(t, memoryConfig())
	if worker := setupDispatch(context.Background(), app); worker != nil {
		t.Fatalf("expected no worker for inline dispatch")
	}

	handler := newHandler(app, metricsHandler)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewBufferString(`{"phone":"919876543210","message":"hello"}`))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(strings.ToLower(rr.Body.String()), "name") {
		t.Fatalf("expected onboarding prompt, got %s", rr.Body.String())
	}
}

func TestMemoryQueueStartsInProcessWorker(t *testing.T) {
	cfg := memoryConfig()
	cfg.UseMemoryQueue = true
	app, _ := buildTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	worker := setupDispatch(ctx, app)
	if worker == nil {
		t.Fatalf("expected in-process worker for memory queue")
	}
	cancel()
	worker.Wait()
}
