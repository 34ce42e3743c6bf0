package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"deadline-quiz-service/internal/domain"
	"deadline-quiz-service/internal/log"
	"deadline-quiz-service/internal/metrics"
	"github.com/hashicorp/go-multierror"
)

// QuestionStore lists the catalog in question ID order.
type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]domain.Question, error)
}

// ResponseStore persists responses. UpsertResponse must keep at most one
// response per (session token, question ID), replacing the previous one.
type ResponseStore interface {
	UpsertResponse(ctx context.Context, response domain.Response) error
	ListResponses(ctx context.Context, token string) ([]domain.Response, error)
}

// SubmissionProcessor validates and records answers for a session.
type SubmissionProcessor struct {
	registry  *SessionRegistry
	questions QuestionStore
	responses ResponseStore
	now       func() time.Time
}

func NewSubmissionProcessor(registry *SessionRegistry, questions QuestionStore, responses ResponseStore, now func() time.Time) *SubmissionProcessor {
	if now == nil {
		now = time.Now
	}
	return &SubmissionProcessor{registry: registry, questions: questions, responses: responses, now: now}
}

// Submit records answers keyed by question ID. Records that fail to persist are
// listed in the result and reported together in an error matching domain.ErrStorage.
func (p *SubmissionProcessor) Submit(ctx context.Context, token string, answers map[int]string) (domain.SubmissionResult, error) {
	result := domain.SubmissionResult{Failed: []int{}}

	session, err := p.registry.Lookup(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			metrics.Submissions.WithLabelValues(metrics.OutcomeNotFound).Inc()
		}
		return result, err
	}

	// One instant for the expiry check and every record of the batch.
	now := p.now().UTC()
	state, err := StateAt(session, now)
	if err != nil {
		return result, err
	}
	if state.Status == domain.StatusExpired {
		metrics.Submissions.WithLabelValues(metrics.OutcomeExpired).Inc()
		return result, domain.ErrSessionExpired
	}

	catalog, err := p.questions.ListQuestions(ctx)
	if err != nil {
		return result, asStorageError("list questions", err)
	}

	var merr *multierror.Error
	for _, response := range gradeAnswers(token, catalog, answers, now) {
		if err := p.responses.UpsertResponse(ctx, response); err != nil {
			result.Failed = append(result.Failed, response.QuestionID)
			merr = multierror.Append(merr, fmt.Errorf("question %d: %w", response.QuestionID, err))
			continue
		}
		result.Recorded++
	}
	metrics.ResponsesRecorded.Add(float64(result.Recorded))

	if err := merr.ErrorOrNil(); err != nil {
		metrics.Submissions.WithLabelValues(metrics.OutcomePartial).Inc()
		log.WithField("session", token).Warnf("%d of %d responses failed: %v", len(result.Failed), len(result.Failed)+result.Recorded, err)
		return result, asStorageError("upsert responses", err)
	}
	metrics.Submissions.WithLabelValues(metrics.OutcomeAccepted).Inc()
	return result, nil
}

// gradeAnswers builds responses for known questions with a non-blank answer, in question ID order.
func gradeAnswers(token string, catalog []domain.Question, answers map[int]string, now time.Time) []domain.Response {
	byID := make(map[int]domain.Question, len(catalog))
	for _, q := range catalog {
		byID[q.ID] = q
	}

	ids := make([]int, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	responses := make([]domain.Response, 0, len(ids))
	for _, id := range ids {
		question, ok := byID[id]
		if !ok {
			// stale forms may still reference removed questions
			continue
		}
		submitted := answers[id]
		if strings.TrimSpace(submitted) == "" {
			continue
		}
		responses = append(responses, domain.Response{
			SessionToken:    token,
			QuestionID:      id,
			SubmittedAnswer: submitted,
			IsCorrect:       normalizeAnswer(submitted) == normalizeAnswer(question.CorrectAnswer),
			RecordedAt:      now,
		})
	}
	return responses
}

func normalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
