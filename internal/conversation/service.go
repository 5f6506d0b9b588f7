// Package conversation holds the per-conversation plumbing around the dialog
// runtime: durable dialog state, transcripts, the inbound job queue and the
// worker pool that drains it.
package conversation

import (
	"context"
	"time"

	"github.com/wolfman30/flymebot/internal/dialog"
)

// Service runs one conversation turn.
type Service interface {
	ProcessMessage(ctx context.Context, req MessageRequest) (*Response, error)
}

// Resetter drops a conversation's dialog state.
type Resetter interface {
	Reset(ctx context.Context, conversationID string) error
}

// Channel identifies which transport the conversation is happening on.
type Channel string

const (
	ChannelUnknown Channel = ""
	ChannelAPI     Channel = "api"
	ChannelWebChat Channel = "webchat"
	ChannelConsole Channel = "console"
)

// MessageRequest represents a single inbound user message.
type MessageRequest struct {
	ConversationID string            `json:"conversation_id" validate:"required,max=128"`
	Text           string            `json:"text" validate:"max=2000"`
	Channel        Channel           `json:"channel,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// Response is what one turn produced.
type Response struct {
	ConversationID string            `json:"conversation_id"`
	Status         dialog.Status     `json:"status"`
	Activities     []dialog.Activity `json:"activities"`
	Timestamp      time.Time         `json:"timestamp"`
}

// Texts returns the text of every message activity in order.
func (r *Response) Texts() []string {
	if r == nil {
		return nil
	}
	var out []string
	for _, a := range r.Activities {
		if a.Type == dialog.ActivityMessage && a.Text != "" {
			out = append(out, a.Text)
		}
	}
	return out
}
