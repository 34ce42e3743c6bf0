package memory

import (
	"context"
	"fmt"
	"sync"

	"deadline-quiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionDirectory.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]domain.Session
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]domain.Session),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, session domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Token]; ok {
		return fmt.Errorf("session %q already exists", session.Token)
	}
	s.sessions[session.Token] = session
	return nil
}

func (s *SessionStore) GetSession(_ context.Context, token string) (domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[token]
	if !ok {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return session, nil
}
