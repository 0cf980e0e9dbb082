package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/pharmastic-ai-platform/internal/channels/whatsapp"
	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/http/handlers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
	"github.com/wolfman30/pharmastic-ai-platform/internal/webchat"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

const adminSecret = "router-secret"

type stubTurns struct{}

func (stubTurns) HandleMessage(ctx context.Context, in conversation.Inbound) (conversation.Reply, error) {
	return conversation.Reply{Text: "hello " + conversation.NormalizeUserID(in.UserID)}, nil
}

func newTestRouter(t *testing.T, checks map[string]func(context.Context) error) (http.Handler, *customers.MemoryStore) {
	t.Helper()

	logger := logging.Default()
	profiles := customers.NewMemoryStore()
	adapter := whatsapp.NewAdapter(whatsapp.AdapterConfig{
		VerifyToken: "verify-me",
		Logger:      logger,
	})

	return New(&Config{
		Logger:          logger,
		WhatsApp:        adapter,
		WebChat:         webchat.NewHandler(stubTurns{}, logger),
		AdminCustomers:  handlers.NewAdminCustomersHandler(profiles, orders.NewMemoryStore(), session.NewMemoryStore(), logger),
		HealthChecks:    checks,
		AdminAuthSecret: adminSecret,
	}), profiles
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterHealthReportsFailingCheck(t *testing.T) {
	router, _ := newTestRouter(t, map[string]func(context.Context) error{
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status %d, got %d", http.StatusServiceUnavailable, rr.Code)
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("connection refused")) {
		t.Fatalf("expected failure detail in body, got %s", rr.Body.String())
	}
}

func TestRouterWhatsAppVerification(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	q := url.Values{}
	q.Set("hub.mode", "subscribe")
	q.Set("hub.verify_token", "verify-me")
	q.Set("hub.challenge", "12345")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhook/whatsapp?"+q.Encode(), nil))

	if rr.Code != http.StatusOK || rr.Body.String() != "12345" {
		t.Fatalf("expected challenge echo, got %d %q", rr.Code, rr.Body.String())
	}
}

func TestRouterWebChat(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	body := bytes.NewBufferString(`{"phone":"+91 98765 43210","message":"hi"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if !bytes.Contains(rr.Body.Bytes(), []byte("hello 919876543210")) {
		t.Fatalf("unexpected chat response %s", rr.Body.String())
	}
}

func TestRouterWebChatPreflight(t *testing.T) {
	logger := logging.Default()
	router := New(&Config{
		Logger:             logger,
		WebChat:            webchat.NewHandler(stubTurns{}, logger),
		CORSAllowedOrigins: []string{"https://shop.pharmastic.in"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "https://shop.pharmastic.in")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "content-type, x-request-id")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.pharmastic.in" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); !bytes.Contains([]byte(got), []byte("X-Request-ID")) {
		t.Fatalf("expected X-Request-ID in allow headers, got %q", got)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id on preflight response")
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/customers/919876543210", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}
}

func TestRouterAdminCustomerLookup(t *testing.T) {
	router, profiles := newTestRouter(t, nil)
	if err := profiles.Create(context.Background(), customers.Profile{
		UserID: "919876543210", Name: "Ravi", Gender: "Male", Age: 51, PreferredLanguage: "hindi",
	}); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "pharmacist@example.com",
		"role": "pharmacist",
		"exp":  time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(adminSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/customers/919876543210", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	var resp handlers.CustomerResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "Ravi" || resp.PreferredLanguage != "hindi" {
		t.Fatalf("unexpected customer %+v", resp)
	}
}

func TestRouterAdminDisabledWithoutSecret(t *testing.T) {
	router := New(&Config{
		AdminCustomers: handlers.NewAdminCustomersHandler(customers.NewMemoryStore(), orders.NewMemoryStore(), nil, nil),
	})
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/customers/919876543210", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
