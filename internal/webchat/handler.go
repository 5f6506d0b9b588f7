package webchat

import (
	"context"
	"crypto/rand"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/pkg/logging"
	"golang.org/x/net/websocket"
)

//go:embed widget.js
var widgetJS []byte

const (
	conversationPrefix = "webchat:"
	historyLimit       = 50
	maxTextLength      = 2000
)

// HistoryReader reads chat history.
type HistoryReader interface {
	List(ctx context.Context, conversationID string, limit int64) ([]conversation.TranscriptMessage, error)
}

// Handler manages web chat connections and messages.
type Handler struct {
	publisher  conversation.Enqueuer
	transcript HistoryReader
	logger     *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // conversationID -> active connection
}

type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type      string `json:"type"` // "message", "ping"
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type        string              `json:"type"` // "message", "typing", "history", "session", "error", "pong"
	Text        string              `json:"text,omitempty"`
	Role        string              `json:"role,omitempty"`
	SessionID   string              `json:"session_id,omitempty"`
	Timestamp   string              `json:"timestamp,omitempty"`
	Choices     []string            `json:"choices,omitempty"`
	Attachments []dialog.Attachment `json:"attachments,omitempty"`
	DelayMS     int                 `json:"delay_ms,omitempty"`
	Expecting   bool                `json:"expecting,omitempty"`
	Messages    []HistoryMessage    `json:"messages,omitempty"`
}

// HistoryMessage is a simplified message for history responses.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Kind      string `json:"kind,omitempty"`
	Timestamp string `json:"timestamp"`
}

// NewHandler creates a web chat handler. transcript may be nil.
func NewHandler(publisher conversation.Enqueuer, transcript HistoryReader, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		publisher:  publisher,
		transcript: transcript,
		logger:     logger,
		sessions:   make(map[string]*wsConn),
	}
}

// ConversationID builds the canonical conversation ID for a webchat session.
func ConversationID(sessionID string) string {
	return conversationPrefix + sessionID
}

// SessionID extracts the session from a webchat conversation ID.
func SessionID(conversationID string) (string, bool) {
	return strings.CutPrefix(conversationID, conversationPrefix)
}

// generateSessionID creates a random session identifier.
func generateSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return hex.EncodeToString(b)
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		sessionID = generateSessionID()
	}
	convID := ConversationID(sessionID)
	wsc := &wsConn{conn: conn}

	_ = wsc.send(OutboundMessage{Type: "session", SessionID: sessionID})

	if history, err := h.history(r.Context(), convID, historyLimit); err == nil && len(history) > 0 {
		_ = wsc.send(OutboundMessage{Type: "history", Messages: history})
	}

	h.mu.Lock()
	h.sessions[convID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[convID] == wsc {
			delete(h.sessions, convID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = wsc.send(OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		if err := h.processMessage(r.Context(), sessionID, msg.Text); err != nil {
			_ = wsc.send(OutboundMessage{Type: "error", Text: "Sorry, something went wrong. Please try again."})
		}
	}
}

func (h *Handler) processMessage(ctx context.Context, sessionID, text string) error {
	convID := ConversationID(sessionID)
	if len(text) > maxTextLength {
		text = text[:maxTextLength]
	}

	h.SendToSession(convID, OutboundMessage{Type: "typing"})

	req := conversation.MessageRequest{
		ConversationID: convID,
		Text:           text,
		Channel:        conversation.ChannelWebChat,
		Metadata:       map[string]string{"session_id": sessionID},
	}
	if err := h.publisher.EnqueueMessage(ctx, uuid.New().String(), req, conversation.WithoutJobTracking()); err != nil {
		h.logger.Error("webchat: failed to enqueue message", "error", err, "session_id", sessionID)
		return err
	}
	return nil
}

// SendToSession sends a message to an active WebSocket session. It reports
// whether a session was connected.
func (h *Handler) SendToSession(convID string, msg OutboundMessage) bool {
	h.mu.RLock()
	wsc, ok := h.sessions[convID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	if err := wsc.send(msg); err != nil {
		h.logger.Debug("webchat: send failed", "conversation_id", convID, "error", err)
		return false
	}
	return true
}

// HandleMessage is the HTTP fallback for sending messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID string `json:"session_id"`
		Text      string `json:"text"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if req.SessionID == "" {
		req.SessionID = generateSessionID()
	}

	if err := h.processMessage(r.Context(), req.SessionID, req.Text); err != nil {
		http.Error(w, "failed to queue message", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":     "queued",
		"session_id": req.SessionID,
	})
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	history, err := h.history(r.Context(), ConversationID(sessionID), 100)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"messages": history})
}

func (h *Handler) history(ctx context.Context, convID string, limit int64) ([]HistoryMessage, error) {
	history := []HistoryMessage{}
	if h.transcript == nil {
		return history, nil
	}
	msgs, err := h.transcript.List(ctx, convID, limit)
	if err != nil {
		return nil, err
	}
	for _, m := range msgs {
		history = append(history, HistoryMessage{
			Role:      m.Role,
			Text:      m.Text,
			Kind:      m.Kind,
			Timestamp: m.Timestamp.Format(time.RFC3339),
		})
	}
	return history, nil
}

// HandleWidgetJS serves the embeddable widget JavaScript.
func (h *Handler) HandleWidgetJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	_, _ = w.Write(widgetJS)
}
