package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"deadline-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ResponseStore keeps responses in one hash per session:
//
//	HSET quiz:responses:{token} {questionID} {response JSON}
//
// HSET replaces the field atomically, so a question holds at most one response.
type ResponseStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewResponseStore(client *redis.Client, retention time.Duration) *ResponseStore {
	return &ResponseStore{client: client, retention: retention}
}

func (s *ResponseStore) UpsertResponse(ctx context.Context, response domain.Response) error {
	response.RecordedAt = response.RecordedAt.UTC()
	payload, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}
	key := s.key(response.SessionToken)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(response.QuestionID), payload)
	if s.retention > 0 {
		pipe.Expire(ctx, key, s.retention)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return domain.StorageError("redis upsert response", err)
	}
	return nil
}

func (s *ResponseStore) ListResponses(ctx context.Context, token string) ([]domain.Response, error) {
	fields, err := s.client.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return nil, domain.StorageError("redis list responses", err)
	}
	responses := make([]domain.Response, 0, len(fields))
	for field, raw := range fields {
		var r domain.Response
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("unmarshal response %s: %w", field, err)
		}
		responses = append(responses, r)
	}
	sort.Slice(responses, func(i, j int) bool { return responses[i].QuestionID < responses[j].QuestionID })
	return responses, nil
}

func (s *ResponseStore) key(token string) string {
	return "quiz:responses:" + token
}
