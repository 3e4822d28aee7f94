package model

import "github.com/google/uuid"

// Answer is a student's response to one question within one attempt.
// PointsAwarded and IsCorrect stay nil until the grading engine runs; for
// free-text questions they stay nil until manual grading, which is outside
// this service.
type Answer struct {
	AttemptID     uuid.UUID `json:"attempt_id"`
	QuestionID    uuid.UUID `json:"question_id"`
	Response      string    `json:"response"`
	PointsAwarded *float64  `json:"points_awarded,omitempty"`
	IsCorrect     *bool     `json:"is_correct,omitempty"`
}

// SubmitAttemptRequest is the payload for submitting an attempt. Keys are
// question UUIDs, values are opaque responses.
type SubmitAttemptRequest struct {
	Answers map[string]string `json:"answers" binding:"required"`
}
