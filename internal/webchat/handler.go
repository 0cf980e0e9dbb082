// Package webchat serves the browser chat surface: a synchronous JSON
// endpoint and a websocket, both running turns inline.
package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/websocket"

	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

// ChannelName tags inbound messages from web chat.
const ChannelName = "webchat"

// Handler runs web chat turns against the conversation engine.
type Handler struct {
	turns  conversation.TurnHandler
	logger *logging.Logger
}

// ChatRequest is the POST /api/chat body.
type ChatRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// ChatResponse is the reply to a chat request.
type ChatResponse struct {
	Text    string                `json:"text"`
	Buttons []conversation.Button `json:"buttons"`
}

// InboundMessage is what the widget sends over the websocket.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string                `json:"type"` // "message", "typing", "pong", "error"
	Text      string                `json:"text,omitempty"`
	Buttons   []conversation.Button `json:"buttons,omitempty"`
	Timestamp string                `json:"timestamp,omitempty"`
}

// NewHandler creates a web chat handler.
func NewHandler(turns conversation.TurnHandler, logger *logging.Logger) *Handler {
	if turns == nil {
		panic("webchat: turn handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{turns: turns, logger: logger}
}

// HandleChat is POST /api/chat. It answers with the turn's reply.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if conversation.NormalizeUserID(req.Phone) == "" || strings.TrimSpace(req.Message) == "" {
		http.Error(w, "phone and message are required", http.StatusBadRequest)
		return
	}

	reply := h.runTurn(r.Context(), req.Phone, req.Message)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatResponse{Text: reply.Text, Buttons: buttonsOrEmpty(reply.Buttons)})
}

// HandleWebSocket is GET /api/chat/ws?phone=... upgraded to a websocket.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	phone := r.URL.Query().Get("phone")
	if conversation.NormalizeUserID(phone) == "" {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: "missing phone parameter"})
		return
	}

	h.logger.Info("webchat: connection opened", "user_id", conversation.NormalizeUserID(phone))

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
		reply := h.runTurn(r.Context(), phone, msg.Text)
		if err := websocket.JSON.Send(conn, OutboundMessage{
			Type:      "message",
			Text:      reply.Text,
			Buttons:   reply.Buttons,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			h.logger.Debug("webchat: send failed", "error", err)
			return
		}
	}
}

func (h *Handler) runTurn(ctx context.Context, phone, text string) conversation.Reply {
	ctx, cancel := context.WithTimeout(ctx, conversation.DefaultTurnTimeout)
	defer cancel()

	reply, err := h.turns.HandleMessage(ctx, conversation.Inbound{
		UserID:  phone,
		Text:    text,
		Channel: ChannelName,
	})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			h.logger.Error("webchat: turn failed", "error", err)
		}
		return conversation.ApologyReply()
	}
	return reply
}

func buttonsOrEmpty(b []conversation.Button) []conversation.Button {
	if b == nil {
		return []conversation.Button{}
	}
	return b
}
