package app

import (
	"context"
	"errors"
	"time"

	"deadline-quiz-service/internal/domain"
	"github.com/google/uuid"
)

// SessionDirectory persists session timing state keyed by token.
// GetSession must return domain.ErrSessionNotFound for unknown tokens.
type SessionDirectory interface {
	CreateSession(ctx context.Context, session domain.Session) error
	GetSession(ctx context.Context, token string) (domain.Session, error)
}

// SessionRegistry issues tokens and resolves them to sessions.
type SessionRegistry struct {
	dir      SessionDirectory
	now      func() time.Time
	newToken func() string
}

func NewSessionRegistry(dir SessionDirectory, now func() time.Time) *SessionRegistry {
	if now == nil {
		now = time.Now
	}
	return &SessionRegistry{dir: dir, now: now, newToken: uuid.NewString}
}

// Create starts a session of the given length and returns its token.
func (r *SessionRegistry) Create(ctx context.Context, minutes int) (domain.Session, error) {
	start := r.now().UTC()
	if _, err := OpenSession(start, minutes); err != nil {
		return domain.Session{}, err
	}
	session := domain.Session{
		Token:           r.newToken(),
		StartTime:       start,
		DurationMinutes: minutes,
	}
	if err := r.dir.CreateSession(ctx, session); err != nil {
		return domain.Session{}, asStorageError("create session", err)
	}
	return session, nil
}

// Lookup resolves token or fails with domain.ErrSessionNotFound.
func (r *SessionRegistry) Lookup(ctx context.Context, token string) (domain.Session, error) {
	if token == "" {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	session, err := r.dir.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, asStorageError("get session", err)
	}
	session.StartTime = session.StartTime.UTC()
	return session, nil
}

func asStorageError(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) {
		return err
	}
	return domain.StorageError(op, err)
}
