package postgres

import (
	"context"
	"time"

	"deadline-quiz-service/internal/domain"
	"github.com/uptrace/bun"
)

type responseRow struct {
	bun.BaseModel `bun:"table:responses,alias:r"`

	ID              int64     `bun:"id,pk,autoincrement"`
	SessionToken    string    `bun:"session_token"`
	QuestionID      int       `bun:"question_id"`
	SubmittedAnswer string    `bun:"submitted_answer"`
	IsCorrect       bool      `bun:"is_correct"`
	RecordedAt      time.Time `bun:"recorded_at"`
}

// ResponseStore upserts responses against the unique (session_token, question_id) index.
type ResponseStore struct {
	db *bun.DB
}

func NewResponseStore(db *bun.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

func (s *ResponseStore) UpsertResponse(ctx context.Context, response domain.Response) error {
	row := &responseRow{
		SessionToken:    response.SessionToken,
		QuestionID:      response.QuestionID,
		SubmittedAnswer: response.SubmittedAnswer,
		IsCorrect:       response.IsCorrect,
		RecordedAt:      response.RecordedAt.UTC(),
	}
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (session_token, question_id) DO UPDATE").
		Set("submitted_answer = EXCLUDED.submitted_answer").
		Set("is_correct = EXCLUDED.is_correct").
		Set("recorded_at = EXCLUDED.recorded_at").
		Exec(ctx)
	if err != nil {
		return domain.StorageError("upsert response", err)
	}
	return nil
}

func (s *ResponseStore) ListResponses(ctx context.Context, token string) ([]domain.Response, error) {
	var rows []responseRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("session_token = ?", token).
		Order("question_id ASC").
		Scan(ctx)
	if err != nil {
		return nil, domain.StorageError("list responses", err)
	}
	responses := make([]domain.Response, 0, len(rows))
	for _, row := range rows {
		responses = append(responses, domain.Response{
			SessionToken:    row.SessionToken,
			QuestionID:      row.QuestionID,
			SubmittedAnswer: row.SubmittedAnswer,
			IsCorrect:       row.IsCorrect,
			RecordedAt:      row.RecordedAt.UTC(),
		})
	}
	return responses, nil
}
