package main

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
)

func apiEvent(method, path string) events.APIGatewayV2HTTPRequest {
	return events.APIGatewayV2HTTPRequest{
		RawPath: path,
		RequestContext: events.APIGatewayV2HTTPRequestContext{
			HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
				Method: method,
				Path:   path,
			},
		},
	}
}

func testConfig(base string) (config, *http.Client) {
	return config{upstreamBaseURL: base, upstreamTimeout: time.Second}, &http.Client{Timeout: time.Second}
}

func TestHandleHealth(t *testing.T) {
	cfg, client := testConfig("http://example.com")
	resp, err := handle(context.Background(), cfg, client, apiEvent(http.MethodGet, "/health"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "ok" {
		t.Fatalf("expected ok health response, got %d %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleRejectsUnsupportedMethod(t *testing.T) {
	cfg, client := testConfig("http://example.com")
	resp, err := handle(context.Background(), cfg, client, apiEvent(http.MethodDelete, whatsappWebhookPath))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, resp.StatusCode)
	}
}

func TestHandleRejectsUnknownPath(t *testing.T) {
	cfg, client := testConfig("http://example.com")
	resp, err := handle(context.Background(), cfg, client, apiEvent(http.MethodPost, "/webhooks/unknown"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, resp.StatusCode)
	}
}

func TestHandleInvalidBase64Body(t *testing.T) {
	cfg, client := testConfig("http://example.com")
	evt := apiEvent(http.MethodPost, whatsappWebhookPath)
	evt.Body = "not-base64"
	evt.IsBase64Encoded = true

	resp, err := handle(context.Background(), cfg, client, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusBadRequest || resp.Body != "invalid body" {
		t.Fatalf("expected invalid body response, got %d %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleForwardsVerificationChallenge(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Query().Get("hub.challenge") != "42" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = io.WriteString(w, r.URL.Query().Get("hub.challenge"))
	}))
	defer upstream.Close()

	cfg, _ := testConfig(upstream.URL)
	evt := apiEvent(http.MethodGet, whatsappWebhookPath)
	evt.RawQueryString = "hub.mode=subscribe&hub.verify_token=t&hub.challenge=42"

	resp, err := handle(context.Background(), cfg, upstream.Client(), evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "42" {
		t.Fatalf("expected challenge echo, got %d %q", resp.StatusCode, resp.Body)
	}
}

func TestHandleForwardsWhatsAppWebhook(t *testing.T) {
	type captured struct {
		method  string
		path    string
		headers http.Header
		body    string
	}
	reqCh := make(chan captured, 1)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		reqCh <- captured{
			method:  r.Method,
			path:    r.URL.Path,
			headers: r.Header.Clone(),
			body:    string(body),
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("EVENT_RECEIVED"))
	}))
	defer upstream.Close()

	client := upstream.Client()
	client.Timeout = time.Second
	cfg := config{upstreamBaseURL: upstream.URL, upstreamTimeout: time.Second}

	payload := `{"object":"whatsapp_business_account","entry":[]}`
	evt := apiEvent(http.MethodPost, whatsappWebhookPath)
	evt.Body = base64.StdEncoding.EncodeToString([]byte(payload))
	evt.IsBase64Encoded = true
	evt.Headers = map[string]string{
		"Content-Type":        "application/json",
		"X-Hub-Signature-256": "sha256=abc",
	}
	evt.RequestContext.DomainName = "hooks.example.com"

	resp, err := handle(context.Background(), cfg, client, evt)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK || resp.Body != "EVENT_RECEIVED" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, resp.Body)
	}
	if ct := resp.Headers["content-type"]; ct != "text/plain" {
		t.Fatalf("expected content-type to be forwarded, got %q", ct)
	}

	select {
	case got := <-reqCh:
		if got.method != http.MethodPost || got.path != whatsappWebhookPath {
			t.Fatalf("unexpected upstream request %s %s", got.method, got.path)
		}
		if got.body != payload {
			t.Fatalf("expected decoded body, got %q", got.body)
		}
		if got.headers.Get("X-Hub-Signature-256") != "sha256=abc" {
			t.Fatalf("expected signature header to be forwarded, got %q", got.headers.Get("X-Hub-Signature-256"))
		}
		if got.headers.Get("X-Forwarded-Host") != "hooks.example.com" {
			t.Fatalf("expected forwarded host, got %q", got.headers.Get("X-Forwarded-Host"))
		}
	default:
		t.Fatalf("expected upstream request")
	}
}

func TestLoadConfigRequiresUpstream(t *testing.T) {
	t.Setenv("UPSTREAM_BASE_URL", "")
	if _, err := loadConfig(); err == nil {
		t.Fatalf("expected error without upstream")
	}
	t.Setenv("UPSTREAM_BASE_URL", "https://api.example.com/")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.upstreamBaseURL != "https://api.example.com" || cfg.upstreamTimeout != 3*time.Second {
		t.Fatalf("unexpected config %+v", cfg)
	}
}
