package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/pharmastic-ai-platform/internal/conversation"
	"github.com/wolfman30/pharmastic-ai-platform/pkg/logging"
)

type stubTurns struct {
	seen []conversation.Inbound
	err  error
}

func (s *stubTurns) HandleMessage(_ context.Context, in conversation.Inbound) (conversation.Reply, error) {
	s.seen = append(s.seen, in)
	if s.err != nil {
		return conversation.Reply{}, s.err
	}
	return conversation.Reply{
		Text:    "echo: " + in.Text,
		Buttons: []conversation.Button{{ID: "my_orders", Label: "My Orders"}},
	}, nil
}

func TestHandleChat(t *testing.T) {
	turns := &stubTurns{}
	h := NewHandler(turns, logging.New("error"))

	body := `{"phone":"+91 98765 43210","message":"hello"}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.HandleChat(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "echo: hello", resp.Text)
	require.Len(t, resp.Buttons, 1)
	assert.Equal(t, "My Orders", resp.Buttons[0].Label)

	require.Len(t, turns.seen, 1)
	assert.Equal(t, ChannelName, turns.seen[0].Channel)
	assert.Equal(t, "+91 98765 43210", turns.seen[0].UserID)
}

func TestHandleChatValidation(t *testing.T) {
	h := NewHandler(&stubTurns{}, logging.New("error"))

	for _, body := range []string{`{`, `{"phone":"","message":"hi"}`, `{"phone":"919","message":"  "}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
		w := httptest.NewRecorder()
		h.HandleChat(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestHandleChatReturnsApologyOnFailure(t *testing.T) {
	h := NewHandler(&stubTurns{err: errors.New("store down")}, logging.New("error"))

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"phone":"919","message":"hi"}`))
	w := httptest.NewRecorder()
	h.HandleChat(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ChatResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, conversation.ApologyReply().Text, resp.Text)
	assert.NotNil(t, resp.Buttons)
}

func TestWebSocketConversation(t *testing.T) {
	turns := &stubTurns{}
	h := NewHandler(turns, logging.New("error"))
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/chat/ws?phone=919000000001"
	conn, err := websocket.Dial(wsURL, "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	var out OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &out))
	assert.Equal(t, "pong", out.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "Dolo"}))
	require.NoError(t, websocket.JSON.Receive(conn, &out))
	assert.Equal(t, "typing", out.Type)
	out = OutboundMessage{}
	require.NoError(t, websocket.JSON.Receive(conn, &out))
	assert.Equal(t, "message", out.Type)
	assert.Equal(t, "echo: Dolo", out.Text)
	assert.Len(t, out.Buttons, 1)
}

func TestWebSocketRequiresPhone(t *testing.T) {
	h := NewHandler(&stubTurns{}, logging.New("error"))
	server := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer server.Close()

	conn, err := websocket.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/api/chat/ws", "", server.URL)
	require.NoError(t, err)
	defer conn.Close()

	var out OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &out))
	assert.Equal(t, "error", out.Type)
}
