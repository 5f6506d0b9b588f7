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
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/flymebot/internal/dialog"
)

var releaseLock = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisStateStore keeps dialog stacks as JSON strings with a sliding TTL.
type RedisStateStore struct {
	redis  *redis.Client
	tracer trace.Tracer
	cfg    storeConfig
}

var _ StateStore = (*RedisStateStore)(nil)

func NewRedisStateStore(client *redis.Client, opts ...StoreOption) *RedisStateStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	return &RedisStateStore{
		redis:  client,
		tracer: otel.Tracer("flymebot.internal.conversation.state"),
		cfg:    newStoreConfig(opts),
	}
}

func (s *RedisStateStore) Load(ctx context.Context, conversationID string) (*dialog.State, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_state",
		trace.WithAttributes(attribute.String("conversation_id", conversationID)))
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return dialog.NewState(conversationID), nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load state: %w", err)
	}

	st := dialog.NewState(conversationID)
	if err := json.Unmarshal(data, st); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode state: %w", err)
	}
	span.SetAttributes(attribute.Int("dialog.depth", st.Depth()))
	return st, nil
}

func (s *RedisStateStore) Save(ctx context.Context, st *dialog.State) error {
	if st == nil {
		return dialog.ErrNilState
	}
	ctx, span := s.tracer.Start(ctx, "conversation.save_state",
		trace.WithAttributes(attribute.String("conversation_id", st.ConversationID)))
	defer span.End()

	data, err := json.Marshal(st)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal state: %w", err)
	}
	if err := s.redis.Set(ctx, stateKey(st.ConversationID), data, s.cfg.stateTTL).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist state: %w", err)
	}
	return nil
}

func (s *RedisStateStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.redis.Del(ctx, stateKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("conversation: failed to delete state: %w", err)
	}
	return nil
}

// Lock takes a token-guarded SET NX lock. Release only deletes the key when
// it still holds our token, so an expired lock taken over by another worker
// is left alone.
func (s *RedisStateStore) Lock(ctx context.Context, conversationID string) (UnlockFunc, error) {
	key := lockKey(conversationID)
	token := uuid.NewString()
	deadline := time.Now().Add(s.cfg.lockWait)

	for {
		ok, err := s.redis.SetNX(ctx, key, token, s.cfg.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("conversation: failed to acquire lock: %w", err)
		}
		if ok {
			return func(ctx context.Context) error {
				if err := releaseLock.Run(ctx, s.redis, []string{key}, token).Err(); err != nil {
					return fmt.Errorf("conversation: failed to release lock: %w", err)
				}
				return nil
			}, nil
		}
		if !time.Now().Before(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollEvery):
		}
	}
}

func stateKey(id string) string {
	return fmt.Sprintf("dialog_state:%s", id)
}

func lockKey(id string) string {
	return fmt.Sprintf("dialog_lock:%s", id)
}
