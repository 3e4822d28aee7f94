package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sekolahlab/examgate-backend/internal/model"
)

// Terminal domain errors returned verbatim to the caller.
var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrAttemptNotFound = errors.New("attempt not found")
	ErrIneligible      = errors.New("student is not in this exam's audience")
	// ErrStoreBusy is surfaced after internal conflict retries are exhausted;
	// the caller should retry the whole operation.
	ErrStoreBusy = errors.New("storage conflict persisted, retry the request")
	// ErrGradingUnavailable means a grading-path dependency failed. Grading
	// is pure and idempotent, so retrying is always safe and never produces
	// a different committed score.
	ErrGradingUnavailable = errors.New("grading dependency unavailable")
)

// NotYetOpenError rejects a start before the exam admits attempts. OpensAt
// carries the boundary for client display; zero when the gate is a manual
// override with no scheduled opening.
type NotYetOpenError struct {
	OpensAt time.Time
}

func (e *NotYetOpenError) Error() string {
	return fmt.Sprintf("exam is not open yet (opens at %s)", e.OpensAt.Format(time.RFC3339))
}

// ClosedError rejects a start after the exam stopped admitting attempts.
type ClosedError struct {
	ClosedAt time.Time
}

func (e *ClosedError) Error() string {
	return fmt.Sprintf("exam is closed (closed at %s)", e.ClosedAt.Format(time.RFC3339))
}

// AttemptLimitError rejects a start once the submitted-attempt count reached
// the exam's limit.
type AttemptLimitError struct {
	MaxAttempts int
	Submitted   int
}

func (e *AttemptLimitError) Error() string {
	return fmt.Sprintf("attempt limit reached (%d of %d used)", e.Submitted, e.MaxAttempts)
}

// ExpiredAutoSubmittedError is informational: the touched attempt had run out
// of time, so the server settled and graded it on the caller's behalf. The
// caller must issue a fresh start request for a new attempt.
type ExpiredAutoSubmittedError struct {
	Result *model.Result
}

func (e *ExpiredAutoSubmittedError) Error() string {
	return "attempt expired and was auto-submitted"
}

// AlreadySubmittedError makes duplicate submits idempotent: instead of
// failing, the existing (or re-derived) result is reported back.
type AlreadySubmittedError struct {
	Result *model.Result
}

func (e *AlreadySubmittedError) Error() string {
	return "attempt was already submitted"
}
