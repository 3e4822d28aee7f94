package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeSingleChoice QuestionType = "SINGLE_CHOICE"
	QuestionTypeTrueFalse    QuestionType = "TRUE_FALSE"
	QuestionTypeFreeText     QuestionType = "FREE_TEXT"
)

// Question is one exam question with its answer key. CorrectAnswer is only
// meaningful for auto-gradable types and must never leave the server.
type Question struct {
	ID            uuid.UUID       `json:"id"`
	ExamID        uuid.UUID       `json:"exam_id"`
	QuestionText  string          `json:"question_text"`
	QuestionType  QuestionType    `json:"question_type"`
	Points        float64         `json:"points"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
	Options       json.RawMessage `json:"options,omitempty"`
	OrderNum      int             `json:"order_num"`
}

// AutoGradable reports whether the grading engine can score this question
// without human review.
func (q *Question) AutoGradable() bool {
	return q.QuestionType == QuestionTypeSingleChoice || q.QuestionType == QuestionTypeTrueFalse
}

// QuestionForStudent is a question with the answer key stripped, safe to send
// to an exam taker.
type QuestionForStudent struct {
	ID           uuid.UUID       `json:"id"`
	QuestionText string          `json:"question_text"`
	QuestionType QuestionType    `json:"question_type"`
	Points       float64         `json:"points"`
	Options      json.RawMessage `json:"options,omitempty"`
}

// ForStudent strips the answer key.
func (q *Question) ForStudent() QuestionForStudent {
	return QuestionForStudent{
		ID:           q.ID,
		QuestionText: q.QuestionText,
		QuestionType: q.QuestionType,
		Points:       q.Points,
		Options:      q.Options,
	}
}
