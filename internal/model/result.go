package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the final score record for a (student, exam) pair. A single row
// exists per pair; when a later attempt is graded it supersedes the earlier
// one (latest attempt wins).
type Result struct {
	StudentID int       `json:"student_id"`
	ExamID    uuid.UUID `json:"exam_id"`
	AttemptID uuid.UUID `json:"attempt_id"`
	Score     float64   `json:"score"`
	GradedAt  time.Time `json:"graded_at"`
}
