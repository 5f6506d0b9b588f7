// Package recognizer extracts a booking intent and its entities from a user
// utterance. Providers range from a regex matcher to hosted LLMs.
package recognizer

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned by recognizers that cannot run.
	ErrNotConfigured = errors.New("recognizer: not configured")
	// ErrMalformedResponse is returned when a provider reply cannot be decoded.
	ErrMalformedResponse = errors.New("recognizer: malformed provider response")
)

// Intent is the recognized goal of an utterance.
type Intent string

const (
	IntentBookFlight Intent = "BookFlight"
	IntentCancel     Intent = "Cancel"
	IntentNone       Intent = "None"
)

// Entities are the booking fields found in an utterance. Unset fields are
// empty. Dates are temporal expressions and may be ambiguous.
type Entities struct {
	Origin      string `json:"origin,omitempty"`
	Destination string `json:"destination,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Budget      string `json:"budget,omitempty"`
}

// Empty reports whether nothing was extracted.
func (e Entities) Empty() bool {
	return e == Entities{}
}

// Request is one recognition call.
type Request struct {
	ConversationID string
	Utterance      string
	Now            time.Time
}

// Result is what a recognizer found.
type Result struct {
	Intent   Intent   `json:"intent"`
	Score    float64  `json:"score,omitempty"`
	Entities Entities `json:"entities"`
}

// BookFlight reports whether the result asks for a flight booking.
func (r Result) BookFlight() bool {
	return r.Intent == IntentBookFlight
}

// Recognizer finds intents. Configured false means callers should skip
// recognition entirely.
type Recognizer interface {
	Configured() bool
	Recognize(ctx context.Context, req Request) (Result, error)
}

// Unconfigured is the recognizer used when no provider is set up.
type Unconfigured struct{}

func (Unconfigured) Configured() bool { return false }

func (Unconfigured) Recognize(context.Context, Request) (Result, error) {
	return Result{Intent: IntentNone}, ErrNotConfigured
}

func normalizeIntent(s string) Intent {
	switch strings.ToLower(strings.NewReplacer("_", "", " ", "", "-", "").Replace(strings.TrimSpace(s))) {
	case "bookflight", "book":
		return IntentBookFlight
	case "cancel":
		return IntentCancel
	default:
		return IntentNone
	}
}
