package app

import (
	"context"
	"sort"

	"deadline-quiz-service/internal/domain"
)

// Scorer builds reports from stored responses. It never writes.
type Scorer struct {
	registry  *SessionRegistry
	questions QuestionStore
	responses ResponseStore
}

func NewScorer(registry *SessionRegistry, questions QuestionStore, responses ResponseStore) *Scorer {
	return &Scorer{registry: registry, questions: questions, responses: responses}
}

// Score joins the session's responses against the catalog.
func (s *Scorer) Score(ctx context.Context, token string) (domain.Report, error) {
	if _, err := s.registry.Lookup(ctx, token); err != nil {
		return domain.Report{}, err
	}

	catalog, err := s.questions.ListQuestions(ctx)
	if err != nil {
		return domain.Report{}, asStorageError("list questions", err)
	}
	responses, err := s.responses.ListResponses(ctx, token)
	if err != nil {
		return domain.Report{}, asStorageError("list responses", err)
	}
	return buildReport(token, catalog, responses), nil
}

func buildReport(token string, catalog []domain.Question, responses []domain.Response) domain.Report {
	byQuestion := make(map[int]domain.Response, len(responses))
	for _, r := range responses {
		// Stores keep one response per question; should duplicates slip through, the latest wins.
		if prev, ok := byQuestion[r.QuestionID]; ok && prev.RecordedAt.After(r.RecordedAt) {
			continue
		}
		byQuestion[r.QuestionID] = r
	}

	questions := make([]domain.Question, len(catalog))
	copy(questions, catalog)
	sort.SliceStable(questions, func(i, j int) bool { return questions[i].ID < questions[j].ID })

	report := domain.Report{
		SessionToken:   token,
		Entries:        make([]domain.ReportEntry, 0, len(questions)),
		TotalQuestions: len(questions),
	}
	for _, q := range questions {
		entry := domain.ReportEntry{
			QuestionID:    q.ID,
			QuestionText:  q.Text,
			CorrectAnswer: q.CorrectAnswer,
		}
		if r, ok := byQuestion[q.ID]; ok {
			answer := r.SubmittedAnswer
			entry.SubmittedAnswer = &answer
			entry.IsCorrect = r.IsCorrect
			report.AnsweredCount++
			if r.IsCorrect {
				report.CorrectCount++
			}
		}
		report.Entries = append(report.Entries, entry)
	}
	return report
}
