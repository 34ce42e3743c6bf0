package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"deadline-quiz-service/internal/domain"
)

// QuestionStore is an in-memory catalog (useful for tests/demos).
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[int]domain.Question
	nextID    int
}

func NewQuestionStore(questions ...domain.Question) *QuestionStore {
	s := &QuestionStore{questions: make(map[int]domain.Question, len(questions))}
	for _, q := range questions {
		s.questions[q.ID] = q
		if q.ID > s.nextID {
			s.nextID = q.ID
		}
	}
	return s
}

func (s *QuestionStore) ListQuestions(_ context.Context) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, 0, len(s.questions))
	for _, q := range s.questions {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *QuestionStore) AddQuestion(_ context.Context, text, correctAnswer string) (domain.Question, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(correctAnswer) == "" {
		return domain.Question{}, domain.ErrInvalidQuestion
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	q := domain.Question{ID: s.nextID, Text: text, CorrectAnswer: correctAnswer}
	s.questions[q.ID] = q
	return q, nil
}
