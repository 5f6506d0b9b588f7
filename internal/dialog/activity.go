package dialog

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActivityType separates plain messages from pacing hints.
type ActivityType string

const (
	ActivityMessage ActivityType = "message"
	ActivityDelay   ActivityType = "delay"
)

// InputHint tells the channel whether the bot expects a reply to a message.
type InputHint string

const (
	HintIgnoring  InputHint = "ignoringInput"
	HintExpecting InputHint = "expectingInput"
)

// Attachment is a rich payload such as a card.
type Attachment struct {
	ContentType string          `json:"content_type"`
	Content     json.RawMessage `json:"content"`
}

// Activity is a single inbound or outbound unit on the channel.
type Activity struct {
	Type        ActivityType `json:"type"`
	Text        string       `json:"text,omitempty"`
	Choices     []string     `json:"choices,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	DelayMS     int          `json:"delay_ms,omitempty"`
	InputHint   InputHint    `json:"input_hint,omitempty"`
}

// Message builds an informational text activity.
func Message(text string) Activity {
	return Activity{Type: ActivityMessage, Text: text, InputHint: HintIgnoring}
}

// Messagef builds an informational text activity from a format string.
func Messagef(format string, args ...any) Activity {
	return Message(fmt.Sprintf(format, args...))
}

// Delay builds a pacing activity; channels may render it as a typing indicator.
func Delay(d time.Duration) Activity {
	return Activity{Type: ActivityDelay, DelayMS: int(d / time.Millisecond)}
}

// WithAttachment builds a message carrying a single attachment.
func WithAttachment(att Attachment) Activity {
	return Activity{Type: ActivityMessage, Attachments: []Attachment{att}, InputHint: HintIgnoring}
}

// Inbound builds the activity representing a user utterance.
func Inbound(text string) Activity {
	return Activity{Type: ActivityMessage, Text: text}
}
