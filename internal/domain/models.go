package domain

import "time"

// Question is a catalog entry. It is never mutated by the quiz core.
type Question struct {
	ID            int    `json:"id" yaml:"id"`
	Text          string `json:"text" yaml:"text"`
	CorrectAnswer string `json:"correctAnswer" yaml:"correctAnswer"`
}

// Session is a single timed quiz attempt.
type Session struct {
	Token           string    `json:"token"`
	StartTime       time.Time `json:"startTime"`
	DurationMinutes int       `json:"durationMinutes"`
}

// SessionStatus reports whether a session still accepts answers.
type SessionStatus string

const (
	StatusActive  SessionStatus = "active"
	StatusExpired SessionStatus = "expired"
)

// SessionState is the timing view of a session at a given instant.
type SessionState struct {
	Session   Session       `json:"session"`
	EndTime   time.Time     `json:"endTime"`
	Remaining time.Duration `json:"remaining"`
	Status    SessionStatus `json:"status"`
}

// Response is the recorded answer of one session to one question.
type Response struct {
	SessionToken    string    `json:"sessionToken"`
	QuestionID      int       `json:"questionId"`
	SubmittedAnswer string    `json:"submittedAnswer"`
	IsCorrect       bool      `json:"isCorrect"`
	RecordedAt      time.Time `json:"recordedAt"`
}

// SubmissionResult summarizes a batch of answers.
type SubmissionResult struct {
	Recorded int   `json:"recorded"`
	Failed   []int `json:"failed"`
}

// ReportEntry is the outcome for one catalog question.
type ReportEntry struct {
	QuestionID      int     `json:"questionId"`
	QuestionText    string  `json:"questionText"`
	SubmittedAnswer *string `json:"submittedAnswer"` // nil when unanswered
	CorrectAnswer   string  `json:"correctAnswer"`
	IsCorrect       bool    `json:"isCorrect"`
}

// Report is the scored result of a session.
type Report struct {
	SessionToken   string        `json:"sessionToken"`
	Entries        []ReportEntry `json:"entries"`
	TotalQuestions int           `json:"totalQuestions"`
	AnsweredCount  int           `json:"answeredCount"`
	CorrectCount   int           `json:"correctCount"`
}
