package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/flymebot/internal/conversation"
	"github.com/wolfman30/flymebot/pkg/logging"
)

type stubTranscript struct {
	msgs []conversation.TranscriptMessage
	err  error
}

func (s stubTranscript) List(context.Context, string, int64) ([]conversation.TranscriptMessage, error) {
	return s.msgs, s.err
}

func TestNewArchiver_NilWhenDisabled(t *testing.T) {
	assert.Nil(t, NewArchiver(NewStore(nil, "", nil), stubTranscript{}, nil))
	assert.Nil(t, NewArchiver(NewStore(newMockS3(), "bucket", nil), nil, nil))

	var a *Archiver
	_, err := a.Archive(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestArchiver_Archive(t *testing.T) {
	start := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)
	mock := newMockS3()
	transcript := stubTranscript{msgs: []conversation.TranscriptMessage{
		{Role: conversation.RoleUser, Text: "book a flight, mail me at a@b.com", Channel: conversation.ChannelWebChat, Timestamp: start},
		{Role: conversation.RoleBot, Text: "To what city would you like to travel?", Timestamp: start.Add(5 * time.Second)},
		{Role: conversation.RoleBot, Text: "Paris to Berlin", Kind: "card", Timestamp: start.Add(90 * time.Second)},
	}}
	a := NewArchiver(NewStore(mock, "bucket", logging.Discard()), transcript, logging.Discard())
	require.NotNil(t, a)
	a.now = func() time.Time { return start.Add(time.Hour) }

	key, err := a.Archive(context.Background(), "webchat:s1")
	require.NoError(t, err)
	assert.Equal(t, "transcripts/v1/by-date/2026/05/04/webchat_s1.json", key)

	var record TranscriptRecord
	require.NoError(t, json.Unmarshal(mock.objects[key], &record))
	assert.Equal(t, OutcomeBooked, record.Outcome)
	assert.Equal(t, "webchat", record.Channel)
	assert.Equal(t, 3, record.MessageCount)
	assert.Equal(t, 90, record.DurationSeconds)
	assert.Equal(t, "book a flight, mail me at [EMAIL]", record.Messages[0].Text)
}

func TestArchiver_AbandonedWithoutCard(t *testing.T) {
	mock := newMockS3()
	transcript := stubTranscript{msgs: []conversation.TranscriptMessage{
		{Role: conversation.RoleUser, Text: "hi", Timestamp: time.Now()},
	}}
	a := NewArchiver(NewStore(mock, "bucket", logging.Discard()), transcript, logging.Discard())

	key, err := a.Archive(context.Background(), "conv-1")
	require.NoError(t, err)

	var record TranscriptRecord
	require.NoError(t, json.Unmarshal(mock.objects[key], &record))
	assert.Equal(t, OutcomeAbandoned, record.Outcome)
	assert.Zero(t, record.DurationSeconds)
}

func TestArchiver_Errors(t *testing.T) {
	store := NewStore(newMockS3(), "bucket", logging.Discard())

	_, err := NewArchiver(store, stubTranscript{}, nil).Archive(context.Background(), "conv-1")
	assert.ErrorIs(t, err, ErrEmptyTranscript)

	boom := errors.New("redis down")
	_, err = NewArchiver(store, stubTranscript{err: boom}, nil).Archive(context.Background(), "conv-1")
	assert.ErrorIs(t, err, boom)
}
