package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/flymebot/internal/dialog"
)

const (
	defaultStateTTL = 24 * time.Hour
	defaultLockTTL  = 30 * time.Second
	defaultLockWait = 10 * time.Second
	lockPollEvery   = 25 * time.Millisecond
)

// ErrLockTimeout is returned when a conversation lock could not be acquired
// within the configured wait.
var ErrLockTimeout = errors.New("conversation: timed out waiting for conversation lock")

// UnlockFunc releases a conversation lock.
type UnlockFunc func(ctx context.Context) error

// StateStore persists dialog stacks between turns. Load returns an empty
// stack for unknown conversations. Lock serialises turns of one conversation
// across processes.
type StateStore interface {
	Load(ctx context.Context, conversationID string) (*dialog.State, error)
	Save(ctx context.Context, st *dialog.State) error
	Delete(ctx context.Context, conversationID string) error
	Lock(ctx context.Context, conversationID string) (UnlockFunc, error)
}

type storeConfig struct {
	stateTTL time.Duration
	lockTTL  time.Duration
	lockWait time.Duration
}

// StoreOption customizes a StateStore.
type StoreOption func(*storeConfig)

// WithStateTTL sets how long an idle conversation's stack is kept.
func WithStateTTL(ttl time.Duration) StoreOption {
	return func(cfg *storeConfig) {
		if ttl > 0 {
			cfg.stateTTL = ttl
		}
	}
}

// WithLockTTL bounds how long a crashed holder can block a conversation.
func WithLockTTL(ttl time.Duration) StoreOption {
	return func(cfg *storeConfig) {
		if ttl > 0 {
			cfg.lockTTL = ttl
		}
	}
}

// WithLockWait sets how long Lock polls before giving up.
func WithLockWait(wait time.Duration) StoreOption {
	return func(cfg *storeConfig) {
		if wait >= 0 {
			cfg.lockWait = wait
		}
	}
}

func newStoreConfig(opts []StoreOption) storeConfig {
	cfg := storeConfig{stateTTL: defaultStateTTL, lockTTL: defaultLockTTL, lockWait: defaultLockWait}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}
