package dialog

import (
	"context"
	"time"
)

// EndReason tells a dialog why its frame is leaving the stack.
type EndReason string

const (
	EndCompleted EndReason = "completed"
	EndCancelled EndReason = "cancelled"
	EndReplaced  EndReason = "replaced"
)

// Dialog is one registered kind of dialog.
//
// Begin runs when a frame is pushed and Resume runs with the frame's cursor
// positioned on the step to execute. Both mutate the frame's State in place.
// End is a notification only; the frame is already leaving the stack.
type Dialog interface {
	Kind() Kind
	Begin(ctx context.Context, t *Turn, f *Frame, options any) (Action, error)
	Resume(ctx context.Context, t *Turn, f *Frame, in Result) (Action, error)
	End(ctx context.Context, t *Turn, f *Frame, reason EndReason)
}

// Turn carries one inbound message through the runtime and collects the
// outbound activities in order.
type Turn struct {
	ConversationID string
	Inbound        Activity

	now      time.Time
	outbound []Activity
}

// NewTurn builds a turn for an inbound message.
func NewTurn(conversationID string, inbound Activity, now time.Time) *Turn {
	return &Turn{ConversationID: conversationID, Inbound: inbound, now: now}
}

// Send appends outbound activities.
func (t *Turn) Send(acts ...Activity) {
	t.outbound = append(t.outbound, acts...)
}

// Activities returns the activities sent so far.
func (t *Turn) Activities() []Activity {
	return t.outbound
}

// Now is the wall clock at the start of the turn.
func (t *Turn) Now() time.Time {
	if t.now.IsZero() {
		return time.Now()
	}
	return t.now
}
