package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/wolfman30/flymebot/internal/dialog"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// memoryLock is dropped from the map once no holder or waiter refers to it.
type memoryLock struct {
	sem  chan struct{}
	refs int
}

// MemoryStateStore is a single-process StateStore for local runs and tests.
// Stacks are stored as JSON so they go through the same encoding as Redis.
type MemoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	locks   map[string]*memoryLock
	cfg     storeConfig
	now     func() time.Time
}

var _ StateStore = (*MemoryStateStore)(nil)

func NewMemoryStateStore(opts ...StoreOption) *MemoryStateStore {
	return &MemoryStateStore{
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]*memoryLock),
		cfg:     newStoreConfig(opts),
		now:     time.Now,
	}
}

func (s *MemoryStateStore) Load(_ context.Context, conversationID string) (*dialog.State, error) {
	s.mu.Lock()
	entry, ok := s.entries[conversationID]
	if ok && s.now().After(entry.expiresAt) {
		delete(s.entries, conversationID)
		ok = false
	}
	s.mu.Unlock()

	st := dialog.NewState(conversationID)
	if !ok {
		return st, nil
	}
	if err := json.Unmarshal(entry.data, st); err != nil {
		return nil, fmt.Errorf("conversation: failed to decode state: %w", err)
	}
	return st, nil
}

func (s *MemoryStateStore) Save(_ context.Context, st *dialog.State) error {
	if st == nil {
		return dialog.ErrNilState
	}
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("conversation: failed to marshal state: %w", err)
	}
	s.mu.Lock()
	s.entries[st.ConversationID] = memoryEntry{data: data, expiresAt: s.now().Add(s.cfg.stateTTL)}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) Delete(_ context.Context, conversationID string) error {
	s.mu.Lock()
	delete(s.entries, conversationID)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStateStore) Lock(ctx context.Context, conversationID string) (UnlockFunc, error) {
	s.mu.Lock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &memoryLock{sem: make(chan struct{}, 1)}
		s.locks[conversationID] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
	default:
		timer := time.NewTimer(s.cfg.lockWait)
		defer timer.Stop()
		select {
		case l.sem <- struct{}{}:
		case <-timer.C:
			s.release(conversationID, l)
			return nil, ErrLockTimeout
		case <-ctx.Done():
			s.release(conversationID, l)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func(context.Context) error {
		once.Do(func() {
			<-l.sem
			s.release(conversationID, l)
		})
		return nil
	}, nil
}

func (s *MemoryStateStore) release(conversationID string, l *memoryLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 && s.locks[conversationID] == l {
		delete(s.locks, conversationID)
	}
}

// lockCount is the number of conversations with a live lock entry.
func (s *MemoryStateStore) lockCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}
