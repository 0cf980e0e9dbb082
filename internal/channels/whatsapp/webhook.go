package whatsapp

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const maxWebhookBody = 1 << 20

// WebhookHandler handles WhatsApp webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onMessage   func(r *http.Request, msg ParsedInboundMessage)
	onSkipped   func(reason string)
}

// NewWebhookHandler creates a new webhook handler. onMessage is called for
// each actionable message after the 200 has been written. Signatures are
// only checked when appSecret is set.
func NewWebhookHandler(verifyToken, appSecret string, onMessage func(*http.Request, ParsedInboundMessage)) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onMessage:   onMessage,
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if h.appSecret != "" && !VerifySignature(h.appSecret, body, r.Header.Get("X-Hub-Signature-256")) {
		h.skipped("bad_signature")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		h.skipped("decode")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Meta retries anything that is not a quick 200.
	w.WriteHeader(http.StatusOK)

	messages := ParseWebhookEvent(event)
	if len(messages) == 0 {
		h.skipped("no_message")
		return
	}
	for _, msg := range messages {
		if h.onMessage != nil {
			h.onMessage(r, msg)
		}
	}
}

func (h *WebhookHandler) skipped(reason string) {
	if h.onSkipped != nil {
		h.onSkipped(reason)
	}
}

// ParseWebhookEvent extracts actionable messages. Status callbacks and
// unsupported message types are dropped. A button tap is read as its title.
func ParseWebhookEvent(event WebhookEvent) []ParsedInboundMessage {
	var messages []ParsedInboundMessage

	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			names := make(map[string]string, len(change.Value.Contacts))
			for _, c := range change.Value.Contacts {
				names[c.WaID] = c.Profile.Name
			}
			for _, m := range change.Value.Messages {
				parsed := ParsedInboundMessage{
					From:        m.From,
					Name:        names[m.From],
					MessageID:   m.ID,
					Timestamp:   parseUnix(m.Timestamp),
					PhoneNumber: change.Value.Metadata.PhoneNumberID,
				}

				switch {
				case m.Type == "text" && m.Text != nil:
					parsed.Text = m.Text.Body
				case m.Type == "interactive" && m.Interactive != nil && m.Interactive.ButtonReply != nil:
					parsed.IsButton = true
					parsed.Text = m.Interactive.ButtonReply.Title
					parsed.ButtonID = m.Interactive.ButtonReply.ID
				case m.Type == "interactive" && m.Interactive != nil && m.Interactive.ListReply != nil:
					parsed.IsButton = true
					parsed.Text = m.Interactive.ListReply.Title
					parsed.ButtonID = m.Interactive.ListReply.ID
				case m.Type == "button" && m.Button != nil:
					parsed.IsButton = true
					parsed.Text = m.Button.Text
					parsed.ButtonID = m.Button.Payload
				default:
					continue
				}

				if strings.TrimSpace(parsed.From) == "" || strings.TrimSpace(parsed.Text) == "" {
					continue
				}
				messages = append(messages, parsed)
			}
		}
	}

	return messages
}

func parseUnix(raw string) time.Time {
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}

// VerifySignature verifies the X-Hub-Signature-256 header.
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	// Signature format: "sha256=<hex>"
	const prefix = "sha256="
	if len(signature) <= len(prefix) || !strings.HasPrefix(signature, prefix) {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}
