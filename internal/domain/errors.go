package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDuration is returned when a session is requested with a non-positive duration.
	ErrInvalidDuration = errors.New("session duration must be a positive number of minutes")
	// ErrSessionNotFound is returned when a token does not reference a known session.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrSessionExpired is returned when answers arrive after the session deadline.
	ErrSessionExpired = errors.New("quiz session expired")
	// ErrStorage marks failures reported by a question, response or session store.
	ErrStorage = errors.New("storage failure")
	// ErrInvalidQuestion indicates an authored question is missing its text or answer.
	ErrInvalidQuestion = errors.New("question text and correct answer are required")
)

// StorageError wraps a backing store error so that it matches ErrStorage.
func StorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %v", op, ErrStorage, err)
}
