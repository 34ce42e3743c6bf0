package app

import (
	"context"
	"time"

	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/metrics"
)

// QuestionAuthor adds questions to the catalog. It is not part of the quiz core.
type QuestionAuthor interface {
	AddQuestion(ctx context.Context, text, correctAnswer string) (domain.Question, error)
}

// QuizService contains the timed quiz use cases.
type QuizService struct {
	registry  *SessionRegistry
	processor *SubmissionProcessor
	scorer    *Scorer
	questions QuestionStore
	now       func() time.Time
}

func NewQuizService(questions QuestionStore, responses ResponseStore, sessions SessionDirectory) *QuizService {
	return NewQuizServiceWithClock(questions, responses, sessions, time.Now)
}

// NewQuizServiceWithClock is used by tests for deterministic timestamps.
func NewQuizServiceWithClock(questions QuestionStore, responses ResponseStore, sessions SessionDirectory, now func() time.Time) *QuizService {
	registry := NewSessionRegistry(sessions, now)
	return &QuizService{
		registry:  registry,
		processor: NewSubmissionProcessor(registry, questions, responses, now),
		scorer:    NewScorer(registry, questions, responses),
		questions: questions,
		now:       now,
	}
}

// Start creates a session lasting minutes.
func (s *QuizService) Start(ctx context.Context, minutes int) (domain.SessionState, error) {
	session, err := s.registry.Create(ctx, minutes)
	if err != nil {
		return domain.SessionState{}, err
	}
	metrics.SessionsStarted.Inc()
	return StateAt(session, session.StartTime)
}

// State reports the remaining time of a session.
func (s *QuizService) State(ctx context.Context, token string) (domain.SessionState, error) {
	session, err := s.registry.Lookup(ctx, token)
	if err != nil {
		return domain.SessionState{}, err
	}
	return StateAt(session, s.now())
}

// Questions returns the catalog with correct answers stripped.
func (s *QuizService) Questions(ctx context.Context) ([]domain.Question, error) {
	catalog, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return nil, asStorageError("list questions", err)
	}
	out := make([]domain.Question, len(catalog))
	for i, q := range catalog {
		out[i] = domain.Question{ID: q.ID, Text: q.Text}
	}
	return out, nil
}

// Submit records answers for an active session.
func (s *QuizService) Submit(ctx context.Context, token string, answers map[int]string) (domain.SubmissionResult, error) {
	return s.processor.Submit(ctx, token, answers)
}

// Score builds the result report of a session.
func (s *QuizService) Score(ctx context.Context, token string) (domain.Report, error) {
	return s.scorer.Score(ctx, token)
}
