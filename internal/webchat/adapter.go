package webchat

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/internal/dialog"
	"github.com/wolfman30/flymebot/pkg/logging"
)

var _ conversation.ReplyMessenger = (*ReplyMessenger)(nil)

// ReplyMessenger implements conversation.ReplyMessenger for web chat.
// It pushes bot activities back through the WebSocket connection.
type ReplyMessenger struct {
	handler *Handler
	logger  *logging.Logger
}

// NewReplyMessenger creates a webchat reply messenger.
func NewReplyMessenger(handler *Handler, logger *logging.Logger) *ReplyMessenger {
	if logger == nil {
		logger = logging.Default()
	}
	return &ReplyMessenger{handler: handler, logger: logger}
}

// Deliver pushes a processed turn to the visitor's WebSocket. Responses for
// other channels and disconnected sessions are skipped; the transcript keeps
// them for the next history load.
func (m *ReplyMessenger) Deliver(_ context.Context, resp *conversation.Response) error {
	if resp == nil {
		return errors.New("webchat: nil response")
	}
	if _, ok := SessionID(resp.ConversationID); !ok {
		return nil
	}

	ts := resp.Timestamp.UTC().Format(time.RFC3339)
	sent := 0
	for _, act := range resp.Activities {
		if !m.handler.SendToSession(resp.ConversationID, outbound(act, ts)) {
			m.logger.Debug("webchat: session not connected", "conversation_id", resp.ConversationID)
			return nil
		}
		sent++
	}

	m.logger.Info("webchat: reply sent",
		"conversation_id", resp.ConversationID,
		"activities", sent,
		"status", resp.Status,
	)
	return nil
}

func outbound(act dialog.Activity, ts string) OutboundMessage {
	if act.Type == dialog.ActivityDelay {
		return OutboundMessage{Type: "typing", DelayMS: act.DelayMS}
	}
	return OutboundMessage{
		Type:        "message",
		Role:        conversation.RoleBot,
		Text:        act.Text,
		Choices:     act.Choices,
		Attachments: act.Attachments,
		Expecting:   act.InputHint == dialog.HintExpecting,
		Timestamp:   ts,
	}
}
