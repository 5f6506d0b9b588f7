package dialog

import (
	"encoding/json"
	"time"
)

// Frame is one live dialog instance on the stack.
//
// Step is the index of the step that runs when the frame is next resumed.
// It only ever moves forward for a given frame.
type Frame struct {
	ID      string          `json:"id"`
	Kind    Kind            `json:"kind"`
	Step    int             `json:"step"`
	State   json.RawMessage `json:"state,omitempty"`
	Pending *Prompt         `json:"pending,omitempty"`
}

// State is the persisted dialog stack of one conversation.
type State struct {
	ConversationID string    `json:"conversation_id"`
	Stack          []Frame   `json:"stack"`
	Turns          int       `json:"turns"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewState returns an empty stack for a conversation.
func NewState(conversationID string) *State {
	return &State{ConversationID: conversationID, Stack: []Frame{}}
}

// Empty reports whether no dialog is active.
func (s *State) Empty() bool { return s == nil || len(s.Stack) == 0 }

// Depth returns the number of live frames.
func (s *State) Depth() int {
	if s == nil {
		return 0
	}
	return len(s.Stack)
}

// Active returns the top frame, nil when the stack is empty.
func (s *State) Active() *Frame {
	if s.Empty() {
		return nil
	}
	return &s.Stack[len(s.Stack)-1]
}

// Kinds lists frame kinds from bottom to top.
func (s *State) Kinds() []Kind {
	if s == nil {
		return nil
	}
	kinds := make([]Kind, len(s.Stack))
	for i, f := range s.Stack {
		kinds[i] = f.Kind
	}
	return kinds
}

// Clear drops every frame.
func (s *State) Clear() {
	s.Stack = s.Stack[:0]
}

func (s *State) push(f Frame) *Frame {
	s.Stack = append(s.Stack, f)
	return s.Active()
}

func (s *State) pop() {
	if len(s.Stack) > 0 {
		s.Stack = s.Stack[:len(s.Stack)-1]
	}
}
