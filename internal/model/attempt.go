package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. There is no separate EXPIRED
// state: an attempt that runs out of time is settled into SUBMITTED on the
// next touch.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "IN_PROGRESS"
	AttemptStatusSubmitted  AttemptStatus = "SUBMITTED"
)

// Attempt is one timed sitting of an exam by one student. AttemptNumber is
// 1-based and gapless per (student, exam); the unique constraint on
// (exam_id, student_id, attempt_number) backs the race-safe create.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	StudentID     int           `json:"student_id"`
	AttemptNumber int           `json:"attempt_number"`
	Status        AttemptStatus `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	SubmittedAt   *time.Time    `json:"submitted_at,omitempty"`
	TimeSpentMs   *int64        `json:"time_spent_ms,omitempty"`
	ClientIP      string        `json:"client_ip,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
}

// ClientMetadata is informational request context recorded on the attempt.
type ClientMetadata struct {
	IP        string
	UserAgent string
}
