package postgres

import (
	"context"
	"strings"

	"deadline-quiz-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionStore reads and authors the catalog in the questions table.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) ListQuestions(ctx context.Context) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, question_text, correct_answer FROM questions ORDER BY id`)
	if err != nil {
		return nil, domain.StorageError("list questions", err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var q domain.Question
		if err := rows.Scan(&q.ID, &q.Text, &q.CorrectAnswer); err != nil {
			return nil, domain.StorageError("scan question", err)
		}
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.StorageError("list questions", err)
	}
	return questions, nil
}

func (s *QuestionStore) AddQuestion(ctx context.Context, text, correctAnswer string) (domain.Question, error) {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(correctAnswer) == "" {
		return domain.Question{}, domain.ErrInvalidQuestion
	}
	q := domain.Question{Text: text, CorrectAnswer: correctAnswer}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO questions (question_text, correct_answer) VALUES ($1, $2) RETURNING id`,
		text, correctAnswer,
	).Scan(&q.ID)
	if err != nil {
		return domain.Question{}, domain.StorageError("add question", err)
	}
	return q, nil
}
