package session

import (
	"context"
	"sync"
	"time"
)

// Store persists one session per user. Set replaces the stored state wholesale.
type Store interface {
	Get(ctx context.Context, userID string) (Session, error)
	Set(ctx context.Context, sess Session) error
}

// MemoryStore keeps sessions in process. Used in development and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
		now:     time.Now,
	}
}

// Get returns the stored session or the initial session when none exists.
func (m *MemoryStore) Get(ctx context.Context, userID string) (Session, error) {
	m.mu.RLock()
	rec, ok := m.records[userID]
	m.mu.RUnlock()
	if !ok {
		return New(userID), nil
	}
	return FromRecord(rec)
}

func (m *MemoryStore) Set(ctx context.Context, sess Session) error {
	if sess.UpdatedAt.IsZero() {
		sess.UpdatedAt = m.now().UTC()
	}
	rec, err := ToRecord(sess)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.records[sess.UserID] = rec
	m.mu.Unlock()
	return nil
}
