package memory

import (
	"context"
	"sort"
	"sync"

	"deadline-quiz-service/internal/domain"
)

type responseKey struct {
	token      string
	questionID int
}

// ResponseStore keeps one response per (session, question) in a keyed map.
type ResponseStore struct {
	mu        sync.RWMutex
	responses map[responseKey]domain.Response
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{responses: make(map[responseKey]domain.Response)}
}

func (s *ResponseStore) UpsertResponse(_ context.Context, response domain.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.responses[responseKey{response.SessionToken, response.QuestionID}] = response
	return nil
}

func (s *ResponseStore) ListResponses(_ context.Context, token string) ([]domain.Response, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Response
	for key, r := range s.responses {
		if key.token == token {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].QuestionID < out[j].QuestionID })
	return out, nil
}
