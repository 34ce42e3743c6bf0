package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"deadline-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// SessionStore keeps session timing state in Redis, one key per token:
//
//	SET quiz:session:{token} {"token":..,"startTime":..,"durationMinutes":..} NX [EX retention]
//
// A zero retention keeps sessions forever.
type SessionStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewSessionStore(client *redis.Client, retention time.Duration) *SessionStore {
	return &SessionStore{client: client, retention: retention}
}

func (s *SessionStore) CreateSession(ctx context.Context, session domain.Session) error {
	session.StartTime = session.StartTime.UTC()
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	created, err := s.client.SetNX(ctx, s.key(session.Token), payload, s.retention).Result()
	if err != nil {
		return domain.StorageError("redis create session", err)
	}
	if !created {
		return fmt.Errorf("session %q already exists", session.Token)
	}
	return nil
}

func (s *SessionStore) GetSession(ctx context.Context, token string) (domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.Session{}, domain.StorageError("redis get session", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return domain.Session{}, fmt.Errorf("unmarshal session: %w", err)
	}
	session.StartTime = session.StartTime.UTC()
	return session, nil
}

func (s *SessionStore) key(token string) string {
	return "quiz:session:" + token
}
