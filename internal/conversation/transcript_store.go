package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptKeyPrefix   = "transcript:"
	transcriptTTL         = 24 * time.Hour
	transcriptMaxMessages = 250
)

const (
	RoleUser = "user"
	RoleBot  = "bot"
)

// TranscriptMessage is one line of a conversation transcript.
type TranscriptMessage struct {
	ID        string            `json:"id"`
	Role      string            `json:"role"`
	Text      string            `json:"text"`
	Kind      string            `json:"kind,omitempty"` // "card" for attachments
	Channel   Channel           `json:"channel,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// TranscriptStore keeps the most recent messages of each conversation in a
// capped Redis list. A nil store is valid and records nothing.
type TranscriptStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

func NewTranscriptStore(redisClient *redis.Client) *TranscriptStore {
	if redisClient == nil {
		return nil
	}
	return &TranscriptStore{
		redis:       redisClient,
		tracer:      otel.Tracer("flymebot.internal.conversation.transcript"),
		maxMessages: transcriptMaxMessages,
	}
}

func (s *TranscriptStore) Append(ctx context.Context, conversationID string, msgs ...TranscriptMessage) error {
	if s == nil || s.redis == nil || len(msgs) == 0 {
		return nil
	}
	if conversationID == "" {
		return errors.New("conversation: transcript conversationID required")
	}

	values := make([]any, 0, len(msgs))
	for _, msg := range msgs {
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("conversation: marshal transcript message: %w", err)
		}
		values = append(values, data)
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.append")
	defer span.End()

	key := transcriptKey(conversationID)
	pipe := s.redis.TxPipeline()
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, transcriptTTL)
	if s.maxMessages > 0 {
		pipe.LTrim(ctx, key, -s.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: append transcript message: %w", err)
	}
	return nil
}

// List returns the last limit messages, or all of them when limit <= 0.
func (s *TranscriptStore) List(ctx context.Context, conversationID string, limit int64) ([]TranscriptMessage, error) {
	if s == nil || s.redis == nil {
		return nil, nil
	}
	if conversationID == "" {
		return nil, errors.New("conversation: transcript conversationID required")
	}

	ctx, span := s.tracer.Start(ctx, "conversation.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}

	raw, err := s.redis.LRange(ctx, transcriptKey(conversationID), start, -1).Result()
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, redis.Nil) {
			return []TranscriptMessage{}, nil
		}
		return nil, fmt.Errorf("conversation: list transcript: %w", err)
	}

	out := make([]TranscriptMessage, 0, len(raw))
	for _, item := range raw {
		var msg TranscriptMessage
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

func (s *TranscriptStore) Delete(ctx context.Context, conversationID string) error {
	if s == nil || s.redis == nil {
		return nil
	}
	return s.redis.Del(ctx, transcriptKey(conversationID)).Err()
}

func transcriptKey(conversationID string) string {
	return transcriptKeyPrefix + conversationID
}
