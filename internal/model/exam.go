package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam is the immutable definition the attempt engine reads from the catalog.
// The window, duration, attempt limit and manual-control flags are fixed for
// the lifetime of a sitting; editing them mid-exam is an admin concern that
// lives outside this service.
type Exam struct {
	ID               uuid.UUID  `json:"id"`
	Title            string     `json:"title"`
	WindowStart      time.Time  `json:"window_start"`
	WindowEnd        time.Time  `json:"window_end"`
	DurationMinutes  int        `json:"duration_minutes"`
	MaxAttempts      int        `json:"max_attempts"`
	ShuffleQuestions bool       `json:"shuffle_questions"`
	ManualControl    bool       `json:"manual_control"`
	IsLive           bool       `json:"is_live"`
	IsCompleted      bool       `json:"is_completed"`
	NegativeMark     float64    `json:"negative_mark"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Questions        []Question `json:"-"`
}

// Duration returns the per-attempt time budget.
func (e *Exam) Duration() time.Duration {
	return time.Duration(e.DurationMinutes) * time.Minute
}

// TotalPoints sums the point values of all questions.
func (e *Exam) TotalPoints() float64 {
	var total float64
	for i := range e.Questions {
		total += e.Questions[i].Points
	}
	return total
}

// ExamSummary is the catalog slice returned alongside a started or resumed
// attempt, enough for the client to render the sitting header.
type ExamSummary struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	DurationMinutes int       `json:"duration_minutes"`
	TotalPoints     float64   `json:"total_points"`
	WindowEnd       time.Time `json:"window_end"`
}

// Summary builds the client-facing exam header.
func (e *Exam) Summary() ExamSummary {
	return ExamSummary{
		ID:              e.ID,
		Title:           e.Title,
		DurationMinutes: e.DurationMinutes,
		TotalPoints:     e.TotalPoints(),
		WindowEnd:       e.WindowEnd,
	}
}
