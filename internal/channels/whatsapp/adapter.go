// Package whatsapp is the WhatsApp Cloud API gateway: webhook intake and
// outbound text and button messages.
package whatsapp

import (
	"context"
	"net/http"
	"time"

	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/internal/observability/metrics"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// ChannelName tags inbound messages from this gateway.
const ChannelName = "whatsapp"

const dispatchTimeout = 45 * time.Second

// AdapterConfig holds the adapter's credentials and collaborators.
type AdapterConfig struct {
	AccessToken   string
	PhoneNumberID string
	AppSecret     string
	VerifyToken   string
	GraphAPIBase  string
	Dispatcher    conversation.Dispatcher
	Metrics       *metrics.MessagingMetrics
	Logger        *logging.Logger
}

// Adapter connects the webhook to the conversation engine and implements
// conversation.ReplyMessenger for outbound replies.
type Adapter struct {
	client     *Client
	webhook    *WebhookHandler
	dispatcher conversation.Dispatcher
	metrics    *metrics.MessagingMetrics
	logger     *logging.Logger
}

var _ conversation.ReplyMessenger = (*Adapter)(nil)

// NewAdapter creates a new WhatsApp adapter. The dispatcher may be set later
// with SetDispatcher when it needs the adapter as its messenger.
func NewAdapter(cfg AdapterConfig) *Adapter {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	a := &Adapter{
		client:     NewClient(cfg.AccessToken, cfg.PhoneNumberID),
		dispatcher: cfg.Dispatcher,
		metrics:    cfg.Metrics,
		logger:     logger,
	}
	if cfg.GraphAPIBase != "" {
		a.client.SetGraphAPIBase(cfg.GraphAPIBase)
	}
	a.webhook = NewWebhookHandler(cfg.VerifyToken, cfg.AppSecret, a.handleInboundMessage)
	a.webhook.onSkipped = func(reason string) {
		a.metrics.ObserveInbound(reason, "skipped")
	}
	return a
}

// SetDispatcher installs the destination for inbound messages.
func (a *Adapter) SetDispatcher(d conversation.Dispatcher) {
	a.dispatcher = d
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (a *Adapter) SetGraphAPIBase(base string) {
	a.client.SetGraphAPIBase(base)
}

// HandleVerification handles GET /webhook/whatsapp (Meta challenge).
func (a *Adapter) HandleVerification(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleVerification(w, r)
}

// HandleWebhook handles POST /webhook/whatsapp (inbound messages).
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	a.webhook.HandleInbound(w, r)
	a.metrics.ObserveWebhookLatency("whatsapp", time.Since(start).Seconds())
}

func (a *Adapter) handleInboundMessage(r *http.Request, msg ParsedInboundMessage) {
	kind := "text"
	if msg.IsButton {
		kind = "button"
	}
	if a.dispatcher == nil {
		a.logger.Warn("whatsapp: no dispatcher configured, dropping message", "message_id", msg.MessageID)
		a.metrics.ObserveInbound(kind, "dropped")
		return
	}

	in := conversation.Inbound{
		UserID:    msg.From,
		Text:      msg.Text,
		MessageID: msg.MessageID,
		Channel:   ChannelName,
	}
	// The response is already written; keep request values but not its cancellation.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), dispatchTimeout)
	defer cancel()

	if err := a.dispatcher.Dispatch(ctx, in); err != nil {
		a.logger.Error("whatsapp: dispatch failed", "message_id", msg.MessageID, "error", err)
		a.metrics.ObserveInbound(kind, "error")
		return
	}
	a.metrics.ObserveInbound(kind, "accepted")
}

// SendReply delivers a conversation reply, as interactive buttons when it has any.
func (a *Adapter) SendReply(ctx context.Context, userID string, reply conversation.Reply) error {
	var err error
	msgType := "text"
	if reply.HasButtons() {
		msgType = "interactive"
		buttons := make([]Button, 0, len(reply.Buttons))
		for _, b := range reply.Buttons {
			buttons = append(buttons, Button{ID: b.ID, Title: b.Label})
		}
		_, err = a.client.SendButtonMessage(ctx, userID, reply.Text, buttons)
	} else {
		_, err = a.client.SendTextMessage(ctx, userID, reply.Text)
	}

	a.metrics.ObserveOutbound(msgType, err == nil)
	if err != nil {
		a.logger.Error("whatsapp: failed to send message",
			"user_id", userID,
			"type", msgType,
			"error", err,
		)
	}
	return err
}
