package app

import (
	"math"
	"time"

	"deadline-quiz-service/internal/domain"
)

// MaxDurationMinutes is the longest session whose length still fits in a time.Duration.
const MaxDurationMinutes = int(math.MaxInt64 / int64(time.Minute))

// OpenSession returns the deadline of a session started at start lasting minutes.
func OpenSession(start time.Time, minutes int) (time.Time, error) {
	if minutes <= 0 || minutes > MaxDurationMinutes {
		return time.Time{}, domain.ErrInvalidDuration
	}
	return start.UTC().Add(time.Duration(minutes) * time.Minute), nil
}

// SessionStatusAt reports Expired once now reaches end.
func SessionStatusAt(now, end time.Time) domain.SessionStatus {
	if !now.UTC().Before(end.UTC()) {
		return domain.StatusExpired
	}
	return domain.StatusActive
}

// RemainingAt is the time left until end, never negative.
func RemainingAt(now, end time.Time) time.Duration {
	left := end.UTC().Sub(now.UTC())
	if left < 0 {
		return 0
	}
	return left
}

// StateAt derives the timing view of session at now.
func StateAt(session domain.Session, now time.Time) (domain.SessionState, error) {
	end, err := OpenSession(session.StartTime, session.DurationMinutes)
	if err != nil {
		return domain.SessionState{}, err
	}
	return domain.SessionState{
		Session:   session,
		EndTime:   end,
		Remaining: RemainingAt(now, end),
		Status:    SessionStatusAt(now, end),
	}, nil
}
