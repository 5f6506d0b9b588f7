// Package telemetry records business events such as confirmed or rejected
// bookings. Sinks are fire-and-forget: Track never returns an error and must
// not block a conversation turn.
package telemetry

import (
	"context"
	"sync"
	"time"
)

// Severity mirrors log levels.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Event names emitted by the dialogs.
const (
	EventBookingConfirmed = "booking_confirmed"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
	EventDateOrderAnomaly = "date_order_anomaly"
	EventDateSkipped      = "date_skipped"
	EventIntentUnknown    = "intent_not_understood"
)

// Event is one tracked occurrence.
type Event struct {
	Name           string         `json:"event"`
	Message        string         `json:"message,omitempty"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Severity       Severity       `json:"severity"`
	Properties     map[string]any `json:"properties,omitempty"`
	Time           time.Time      `json:"time"`
}

// Sink receives events.
type Sink interface {
	Track(ctx context.Context, evt Event)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(ctx context.Context, evt Event)

func (fn SinkFunc) Track(ctx context.Context, evt Event) { fn(ctx, evt) }

// Nop discards events.
type Nop struct{}

func (Nop) Track(context.Context, Event) {}

// Multi fans an event out to every sink in order.
type Multi []Sink

func (m Multi) Track(ctx context.Context, evt Event) {
	for _, s := range m {
		if s != nil {
			s.Track(ctx, evt)
		}
	}
}

// Recorder keeps events in memory. Useful for tests and the console.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Track(_ context.Context, evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

// Events returns a copy of what was tracked.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Named returns tracked events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, evt := range r.Events() {
		if evt.Name == name {
			out = append(out, evt)
		}
	}
	return out
}

func stamp(evt Event) Event {
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}
	if evt.Severity == "" {
		evt.Severity = SeverityInfo
	}
	return evt
}
