package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/pkg/logging"
)

// ErrEmptyTranscript is returned when there is nothing to archive.
var ErrEmptyTranscript = errors.New("archive: transcript is empty")

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("archive: not configured")

// TranscriptReader lists recent conversation messages.
type TranscriptReader interface {
	List(ctx context.Context, conversationID string, limit int64) ([]conversation.TranscriptMessage, error)
}

// Archiver snapshots a conversation transcript into the Store.
type Archiver struct {
	store      *Store
	transcript TranscriptReader
	limit      int64
	logger     *logging.Logger
	now        func() time.Time
}

// NewArchiver returns nil if the store is not enabled or there is no
// transcript to read from.
func NewArchiver(store *Store, transcript TranscriptReader, logger *logging.Logger) *Archiver {
	if !store.Enabled() || transcript == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Archiver{
		store:      store,
		transcript: transcript,
		limit:      250,
		logger:     logger,
		now:        time.Now,
	}
}

// Archive writes the scrubbed transcript of a conversation and returns the
// object key.
func (a *Archiver) Archive(ctx context.Context, conversationID string) (string, error) {
	if a == nil {
		return "", ErrDisabled
	}
	msgs, err := a.transcript.List(ctx, conversationID, a.limit)
	if err != nil {
		return "", fmt.Errorf("archive: load transcript: %w", err)
	}
	if len(msgs) == 0 {
		return "", ErrEmptyTranscript
	}

	record := buildRecord(conversationID, msgs, a.now().UTC())
	key, err := a.store.Put(ctx, record)
	if err != nil {
		return "", err
	}
	return key, nil
}

func buildRecord(conversationID string, msgs []conversation.TranscriptMessage, now time.Time) *TranscriptRecord {
	out := make([]Message, 0, len(msgs))
	outcome := OutcomeAbandoned
	var channel string
	for _, m := range msgs {
		if m.Kind == "card" {
			outcome = OutcomeBooked
		}
		if channel == "" && m.Channel != "" {
			channel = string(m.Channel)
		}
		out = append(out, Message{Role: m.Role, Text: m.Text, Kind: m.Kind, Timestamp: m.Timestamp})
	}
	ScrubMessages(out)

	var duration int
	if len(out) >= 2 {
		duration = int(out[len(out)-1].Timestamp.Sub(out[0].Timestamp).Seconds())
	}
	return &TranscriptRecord{
		Version:         recordVersion,
		ConversationID:  conversationID,
		Channel:         channel,
		ArchivedAt:      now,
		DurationSeconds: duration,
		MessageCount:    len(out),
		Outcome:         outcome,
		Messages:        out,
	}
}
