package workbench

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sqlscribe/sqlscribe/internal/observability"
)

type Store struct {
	compiler Compiler
	idleTTL  time.Duration
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewStore(compiler Compiler, idleTTL time.Duration) (*Store, error) {
	if compiler == nil {
		return nil, fmt.Errorf("compiler is required")
	}
	return &Store{
		compiler: compiler,
		idleTTL:  idleTTL,
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: map[string]*Session{},
	}, nil
}

func (s *Store) Create(query, schema string) *Session {
	s.Prune()

	session := newSession(s.newID(), s.compiler, query, schema, s.now)
	s.mu.Lock()
	s.sessions[session.ID()] = session
	count := len(s.sessions)
	s.mu.Unlock()

	observability.SetActiveSessions(count)
	return session
}

func (s *Store) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	_, ok := s.sessions[id]
	delete(s.sessions, id)
	count := len(s.sessions)
	s.mu.Unlock()

	if !ok {
		return ErrSessionNotFound
	}
	observability.SetActiveSessions(count)
	return nil
}

// Prune drops sessions untouched for longer than the idle TTL. Sessions with
// an attempt in flight are kept. A non-positive TTL disables pruning.
func (s *Store) Prune() int {
	if s.idleTTL <= 0 {
		return 0
	}
	now := s.now()

	s.mu.Lock()
	removed := 0
	for id, session := range s.sessions {
		if session.idle(now, s.idleTTL) {
			delete(s.sessions, id)
			removed++
		}
	}
	count := len(s.sessions)
	s.mu.Unlock()

	if removed > 0 {
		observability.SetActiveSessions(count)
	}
	return removed
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
