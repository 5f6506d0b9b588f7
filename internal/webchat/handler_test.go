package webchat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/pkg/logging"
	"golang.org/x/net/websocket"
)

// mockPublisher records enqueued messages.
type mockPublisher struct {
	mu       sync.Mutex
	messages []conversation.MessageRequest
	err      error
}

func (m *mockPublisher) EnqueueMessage(_ context.Context, _ string, req conversation.MessageRequest, _ ...conversation.PublishOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, req)
	return nil
}

func (m *mockPublisher) snapshot() []conversation.MessageRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]conversation.MessageRequest(nil), m.messages...)
}

// mockTranscript stores messages in memory.
type mockTranscript struct {
	store map[string][]conversation.TranscriptMessage
}

func newMockTranscript() *mockTranscript {
	return &mockTranscript{store: make(map[string][]conversation.TranscriptMessage)}
}

func (m *mockTranscript) List(_ context.Context, convID string, limit int64) ([]conversation.TranscriptMessage, error) {
	msgs := m.store[convID]
	if int64(len(msgs)) > limit {
		msgs = msgs[:limit]
	}
	return msgs, nil
}

func TestConversationID(t *testing.T) {
	assert.Equal(t, "webchat:sess456", ConversationID("sess456"))

	sess, ok := SessionID("webchat:sess456")
	assert.True(t, ok)
	assert.Equal(t, "sess456", sess)

	_, ok = SessionID("api:abc")
	assert.False(t, ok)
}

func TestGenerateSessionID(t *testing.T) {
	s1 := generateSessionID()
	s2 := generateSessionID()
	assert.NotEmpty(t, s1)
	assert.NotEqual(t, s1, s2)
	assert.Len(t, s1, 32) // 16 bytes = 32 hex chars
}

func TestHandleMessage_HTTP(t *testing.T) {
	pub := &mockPublisher{}
	h := NewHandler(pub, newMockTranscript(), logging.Discard())

	body := `{"session_id":"sess1","text":"Hello"}`
	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "queued", resp["status"])
	assert.Equal(t, "sess1", resp["session_id"])

	msgs := pub.snapshot()
	require.Len(t, msgs, 1)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, conversation.ChannelWebChat, msgs[0].Channel)
	assert.Equal(t, "webchat:sess1", msgs[0].ConversationID)
	assert.Equal(t, "sess1", msgs[0].Metadata["session_id"])
}

func TestHandleMessage_MissingText(t *testing.T) {
	h := NewHandler(&mockPublisher{}, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"session_id":"s","text":"  "}`))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_InvalidBody(t *testing.T) {
	h := NewHandler(&mockPublisher{}, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{`))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleMessage_EnqueueFailure(t *testing.T) {
	h := NewHandler(&mockPublisher{err: errors.New("queue down")}, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"text":"Hi"}`))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHandleMessage_GeneratesSessionID(t *testing.T) {
	h := NewHandler(&mockPublisher{}, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodPost, "/chat/message", strings.NewReader(`{"text":"Hi"}`))
	w := httptest.NewRecorder()

	h.HandleMessage(w, req)
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp["session_id"], 32)
}

func TestHandleHistory(t *testing.T) {
	ts := newMockTranscript()
	ts.store["webchat:sess1"] = []conversation.TranscriptMessage{
		{Role: conversation.RoleUser, Text: "book a flight"},
		{Role: conversation.RoleBot, Text: "Where would you like to travel to?"},
	}
	h := NewHandler(nil, ts, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "user", resp.Messages[0].Role)
	assert.Equal(t, "book a flight", resp.Messages[0].Text)
	assert.Equal(t, "bot", resp.Messages[1].Role)
}

func TestHandleHistory_MissingParams(t *testing.T) {
	h := NewHandler(nil, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/chat/history", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleHistory_NoTranscriptStore(t *testing.T) {
	h := NewHandler(nil, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/chat/history?session=sess1", nil)
	w := httptest.NewRecorder()

	h.HandleHistory(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []HistoryMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Messages)
}

func TestHandleWidgetJS(t *testing.T) {
	h := NewHandler(nil, nil, logging.Discard())

	req := httptest.NewRequest(http.MethodGet, "/chat/widget.js", nil)
	w := httptest.NewRecorder()

	h.HandleWidgetJS(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/javascript", w.Header().Get("Content-Type"))
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Body.String(), "/chat/ws")
}

// dialWS opens a widget connection and consumes the session frame.
func dialWS(t *testing.T, srv *httptest.Server, session string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/chat/ws?session=" + session
	conn, err := websocket.Dial(url, "", srv.URL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	var msg OutboundMessage
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	require.Equal(t, "session", msg.Type)
	require.Equal(t, session, msg.SessionID)
	return conn
}

func waitForSession(t *testing.T, h *Handler, convID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.sessions[convID]
		return ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocket_HistoryPingAndMessage(t *testing.T) {
	pub := &mockPublisher{}
	ts := newMockTranscript()
	ts.store["webchat:abc"] = []conversation.TranscriptMessage{{Role: conversation.RoleBot, Text: "What can I help you with today?"}}
	h := NewHandler(pub, ts, logging.Discard())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "abc")

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "history", msg.Type)
	require.Len(t, msg.Messages, 1)
	assert.Equal(t, "What can I help you with today?", msg.Messages[0].Text)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "ping"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "pong", msg.Type)

	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "book a flight"}))
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "typing", msg.Type)

	require.Eventually(t, func() bool { return len(pub.snapshot()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := pub.snapshot()[0]
	assert.Equal(t, "webchat:abc", got.ConversationID)
	assert.Equal(t, "book a flight", got.Text)
}

func TestWebSocket_EnqueueFailureSendsError(t *testing.T) {
	h := NewHandler(&mockPublisher{err: errors.New("boom")}, nil, logging.Discard())
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	defer srv.Close()

	conn := dialWS(t, srv, "s1")
	require.NoError(t, websocket.JSON.Send(conn, InboundMessage{Type: "message", Text: "hi"}))

	var msg OutboundMessage
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "typing", msg.Type)
	require.NoError(t, websocket.JSON.Receive(conn, &msg))
	assert.Equal(t, "error", msg.Type)
}

func TestSendToSession_NotConnected(t *testing.T) {
	h := NewHandler(nil, nil, logging.Discard())
	assert.False(t, h.SendToSession("webchat:nobody", OutboundMessage{Type: "message"}))
}
