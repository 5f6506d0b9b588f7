package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/flymebot/internal/archive"
	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/internal/http/middleware"
	"github.com/wolfman30/flymebot/pkg/logging"
)

const (
	defaultTranscriptLimit = 100
	maxTranscriptLimit     = 250
)

// StateInspector reads and resets dialog stacks.
type StateInspector interface {
	State(ctx context.Context, conversationID string) (*dialog.State, error)
	Reset(ctx context.Context, conversationID string) error
}

// TranscriptReader lists recent conversation messages.
type TranscriptReader interface {
	List(ctx context.Context, conversationID string, limit int64) ([]conversation.TranscriptMessage, error)
}

// TranscriptArchiver snapshots a transcript to long-term storage.
type TranscriptArchiver interface {
	Archive(ctx context.Context, conversationID string) (string, error)
}

// AdminConversationsHandler exposes operator endpoints for inspecting and
// resetting conversations.
type AdminConversationsHandler struct {
	states     StateInspector
	transcript TranscriptReader
	archiver   TranscriptArchiver
	logger     *logging.Logger
}

// NewAdminConversationsHandler creates a new admin conversations handler.
// transcript may be nil.
func NewAdminConversationsHandler(states StateInspector, transcript TranscriptReader, logger *logging.Logger) *AdminConversationsHandler {
	if states == nil {
		panic("handlers: state inspector required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminConversationsHandler{states: states, transcript: transcript, logger: logger}
}

// WithArchiver enables the archive endpoint.
func (h *AdminConversationsHandler) WithArchiver(a TranscriptArchiver) *AdminConversationsHandler {
	h.archiver = a
	return h
}

// StateResponse describes a persisted dialog stack.
type StateResponse struct {
	ConversationID string         `json:"conversation_id"`
	Empty          bool           `json:"empty"`
	Depth          int            `json:"depth"`
	Kinds          []dialog.Kind  `json:"kinds"`
	Turns          int            `json:"turns"`
	UpdatedAt      *string        `json:"updated_at,omitempty"`
	Pending        *dialog.Prompt `json:"pending,omitempty"`
	Frames         []dialog.Frame `json:"frames"`
}

// MessageResponse represents a message in a conversation.
type MessageResponse struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Kind      string `json:"kind,omitempty"`
	Channel   string `json:"channel,omitempty"`
	Timestamp string `json:"timestamp"`
}

// Routes mounts the handler under /admin/conversations. It expects
// middleware.AdminJWT in front; reads need the read scope, resets and
// archives the write scope.
func (h *AdminConversationsHandler) Routes(r chi.Router) {
	read := middleware.RequireScope(middleware.ScopeConversationsRead)
	write := middleware.RequireScope(middleware.ScopeConversationsWrite)
	r.Route("/conversations/{conversationID}", func(c chi.Router) {
		c.With(read).Get("/state", h.GetState)
		c.With(write).Delete("/state", h.ResetConversation)
		c.With(read).Get("/transcript", h.GetTranscript)
		c.With(write).Post("/archive", h.ArchiveTranscript)
	})
}

// GetState returns the dialog stack of a conversation.
// GET /admin/conversations/{conversationID}/state
func (h *AdminConversationsHandler) GetState(w http.ResponseWriter, r *http.Request) {
	convID, ok := conversationParam(w, r)
	if !ok {
		return
	}
	st, err := h.states.State(r.Context(), convID)
	if err != nil {
		h.logger.Error("admin: load state failed", "conversation_id", convID, "error", err)
		jsonError(w, "failed to load state", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(convID, st))
}

// ResetConversation drops the dialog stack and transcript so the next
// message starts at the main menu.
// DELETE /admin/conversations/{conversationID}/state
func (h *AdminConversationsHandler) ResetConversation(w http.ResponseWriter, r *http.Request) {
	convID, ok := conversationParam(w, r)
	if !ok {
		return
	}
	if err := h.states.Reset(r.Context(), convID); err != nil {
		h.logger.Error("admin: reset failed", "conversation_id", convID, "error", err)
		jsonError(w, "failed to reset conversation", http.StatusInternalServerError)
		return
	}
	h.logger.Info("admin: conversation reset", "conversation_id", convID, "operator", operator(r))
	w.WriteHeader(http.StatusNoContent)
}

// GetTranscript returns recent messages of a conversation.
// GET /admin/conversations/{conversationID}/transcript?limit=N
func (h *AdminConversationsHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	convID, ok := conversationParam(w, r)
	if !ok {
		return
	}
	limit := defaultTranscriptLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			jsonError(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxTranscriptLimit)
	}

	messages := []MessageResponse{}
	if h.transcript != nil {
		msgs, err := h.transcript.List(r.Context(), convID, int64(limit))
		if err != nil {
			h.logger.Error("admin: load transcript failed", "conversation_id", convID, "error", err)
			jsonError(w, "failed to load transcript", http.StatusInternalServerError)
			return
		}
		for _, m := range msgs {
			messages = append(messages, MessageResponse{
				ID:        m.ID,
				Role:      m.Role,
				Content:   m.Text,
				Kind:      m.Kind,
				Channel:   string(m.Channel),
				Timestamp: m.Timestamp.UTC().Format(time.RFC3339),
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": convID,
		"messages":        messages,
	})
}

// ArchiveTranscript writes the scrubbed transcript to the archive bucket.
// POST /admin/conversations/{conversationID}/archive
func (h *AdminConversationsHandler) ArchiveTranscript(w http.ResponseWriter, r *http.Request) {
	convID, ok := conversationParam(w, r)
	if !ok {
		return
	}
	if h.archiver == nil {
		jsonError(w, "archive not configured", http.StatusNotImplemented)
		return
	}
	key, err := h.archiver.Archive(r.Context(), convID)
	switch {
	case errors.Is(err, archive.ErrEmptyTranscript):
		jsonError(w, "transcript is empty", http.StatusNotFound)
		return
	case errors.Is(err, archive.ErrDisabled):
		jsonError(w, "archive not configured", http.StatusNotImplemented)
		return
	case err != nil:
		h.logger.Error("admin: archive failed", "conversation_id", convID, "error", err)
		jsonError(w, "failed to archive transcript", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"conversation_id": convID,
		"s3_key":          key,
	})
}

func operator(r *http.Request) string {
	claims, _ := middleware.AdminClaimsFromContext(r.Context())
	return claims.Subject
}

func stateResponse(convID string, st *dialog.State) StateResponse {
	resp := StateResponse{
		ConversationID: convID,
		Empty:          st.Empty(),
		Depth:          st.Depth(),
		Kinds:          st.Kinds(),
		Frames:         []dialog.Frame{},
	}
	if resp.Kinds == nil {
		resp.Kinds = []dialog.Kind{}
	}
	if st == nil {
		return resp
	}
	resp.Turns = st.Turns
	resp.Frames = append(resp.Frames, st.Stack...)
	if !st.UpdatedAt.IsZero() {
		ts := st.UpdatedAt.UTC().Format(time.RFC3339)
		resp.UpdatedAt = &ts
	}
	if top := st.Active(); top != nil {
		resp.Pending = top.Pending
	}
	return resp
}

func conversationParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	convID := strings.TrimSpace(chi.URLParam(r, "conversationID"))
	if convID == "" {
		jsonError(w, "missing conversationID", http.StatusBadRequest)
		return "", false
	}
	return convID, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
