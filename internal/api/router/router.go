package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/pharmastic-ai-platform/internal/channels/whatsapp"
	"github.com/wolfman30/pharmastic-ai-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/pharmastic-ai-platform/internal/http/middleware"
	"github.com/wolfman30/pharmastic-ai-platform/internal/webchat"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	WhatsApp       *whatsapp.Adapter
	WebChat        *webchat.Handler
	AdminCustomers *handlers.AdminCustomersHandler
	MetricsHandler http.Handler
	HealthChecks   map[string]func(context.Context) error

	AdminAuthSecret    string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.WhatsApp != nil {
			public.Get("/webhook/whatsapp", cfg.WhatsApp.HandleVerification)
			public.Post("/webhook/whatsapp", cfg.WhatsApp.HandleWebhook)
		}
	})

	if cfg.WebChat != nil {
		r.Route("/api/chat", func(chat chi.Router) {
			chat.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
			chat.Post("/", cfg.WebChat.HandleChat)
			chat.Get("/ws", cfg.WebChat.HandleWebSocket)
		})
	}

	if cfg.AdminCustomers != nil && cfg.AdminAuthSecret != "" {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/customers/{userID}", cfg.AdminCustomers.GetCustomer)
			admin.Get("/customers/{userID}/orders", cfg.AdminCustomers.ListCustomerOrders)
			admin.Get("/orders/{orderID}", cfg.AdminCustomers.GetOrder)
			admin.Get("/sessions/{userID}", cfg.AdminCustomers.GetSession)
		})
	}

	return r
}

func healthHandler(checks map[string]func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok"}
		failures := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				failures[name] = err.Error()
			}
		}
		if len(failures) > 0 {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["checks"] = failures
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
