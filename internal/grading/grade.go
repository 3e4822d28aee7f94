package grading

import (
	"github.com/google/uuid"
	"github.com/sekolahlab/examgate-backend/internal/model"
)

// Policy is the exam-level scoring configuration. NegativeMark is the number
// of points deducted for an incorrect auto-graded answer; zero disables
// negative marking. Unanswered questions are never penalized.
type Policy struct {
	NegativeMark float64
}

// QuestionScore is the graded outcome for one question. PointsAwarded and
// IsCorrect are nil for answered free-text questions, which await manual
// grading elsewhere.
type QuestionScore struct {
	QuestionID    uuid.UUID
	PointsAwarded *float64
	IsCorrect     *bool
}

// Outcome is the full grading result for one attempt. TotalScore sums only
// the non-nil per-question contributions.
type Outcome struct {
	PerQuestion []QuestionScore
	TotalScore  float64
}

// Grade scores a set of answers against an exam's questions. It is a pure
// function of its inputs: the same questions, answers and policy always
// produce the same outcome, so re-grading after a crash replay is safe.
//
// Rules:
//   - single-choice / true-false: correct iff response == answer key;
//     correct earns the question's points, incorrect earns -policy.NegativeMark.
//   - free-text: nil/nil when answered (manual grading pending), 0/false when
//     unanswered.
//   - missing or empty responses: 0 points, not correct, never an error.
func Grade(questions []model.Question, answers map[uuid.UUID]string, policy Policy) Outcome {
	out := Outcome{PerQuestion: make([]QuestionScore, 0, len(questions))}

	for i := range questions {
		q := &questions[i]
		response, answered := answers[q.ID]
		if response == "" {
			answered = false
		}

		qs := QuestionScore{QuestionID: q.ID}

		switch {
		case !answered:
			qs.PointsAwarded = float64Ptr(0)
			qs.IsCorrect = boolPtr(false)

		case q.AutoGradable():
			if response == q.CorrectAnswer {
				qs.PointsAwarded = float64Ptr(q.Points)
				qs.IsCorrect = boolPtr(true)
			} else {
				qs.PointsAwarded = float64Ptr(-policy.NegativeMark)
				qs.IsCorrect = boolPtr(false)
			}

		default:
			// Answered free-text: scoring deferred to manual review.
		}

		if qs.PointsAwarded != nil {
			out.TotalScore += *qs.PointsAwarded
		}
		out.PerQuestion = append(out.PerQuestion, qs)
	}

	return out
}

func float64Ptr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool          { return &b }
