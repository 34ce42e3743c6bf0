package postgres

import (
	"context"
	"errors"

	"deadline-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionStore persists session timing state in quiz_sessions.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) CreateSession(ctx context.Context, session domain.Session) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO quiz_sessions (token, start_time, duration_minutes) VALUES ($1, $2, $3)`,
		session.Token, session.StartTime.UTC(), session.DurationMinutes,
	)
	if err != nil {
		return domain.StorageError("create session", err)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (domain.Session, error) {
	session := domain.Session{Token: token}
	err := s.pool.QueryRow(ctx,
		`SELECT start_time, duration_minutes FROM quiz_sessions WHERE token=$1`, token,
	).Scan(&session.StartTime, &session.DurationMinutes)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, domain.StorageError("get session", err)
	}
	session.StartTime = session.StartTime.UTC()
	return session, nil
}
