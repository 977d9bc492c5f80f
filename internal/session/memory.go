package session

import (
	"context"
	"sync"
	"time"

	"github.com/microbes-potential/conatoc-net/internal/domain"
)

// MemoryStore is the in-process fallback used when Redis is not
// configured. Sessions do not survive a restart, which matches the
// documented lifecycle: a process-wide reset ends every session.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore constructs an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]domain.Session)}
}

func (s *MemoryStore) Save(_ context.Context, sess domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (domain.Session, bool, error) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return domain.Session{}, false, nil
	}
	if sess.Expired(now) {
		delete(s.sessions, id)
		return domain.Session{}, false, nil
	}
	return sess, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}
