package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sekolahlab/examgate-backend/internal/grading"
	"github.com/sekolahlab/examgate-backend/internal/model"
)

// AnswerRepository handles answer data access, keyed by (attempt, question).
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// UpsertBatch writes all responses for an attempt in one round trip,
// overwriting earlier responses to the same questions.
func (r *AnswerRepository) UpsertBatch(ctx context.Context, attemptID uuid.UUID, responses map[uuid.UUID]string) error {
	if len(responses) == 0 {
		return nil
	}

	questionIDs := make([]uuid.UUID, 0, len(responses))
	values := make([]string, 0, len(responses))
	for qid, resp := range responses {
		questionIDs = append(questionIDs, qid)
		values = append(values, resp)
	}

	query := `
		INSERT INTO answers (attempt_id, question_id, response)
		SELECT $1, u.question_id, u.response
		FROM UNNEST($2::uuid[], $3::text[]) AS u (question_id, response)
		ON CONFLICT (attempt_id, question_id)
		DO UPDATE SET response = EXCLUDED.response
	`

	if _, err := r.pool.Exec(ctx, query, attemptID, questionIDs, values); err != nil {
		return fmt.Errorf("upsert answers: %w", err)
	}
	return nil
}

// ListByAttempt retrieves all answers recorded for an attempt.
func (r *AnswerRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT attempt_id, question_id, response, points_awarded, is_correct
		 FROM answers
		 WHERE attempt_id = $1`, attemptID,
	)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.AttemptID, &a.QuestionID, &a.Response, &a.PointsAwarded, &a.IsCorrect); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ApplyScores persists the grading outcome onto the answer rows in one bulk
// UPDATE. Questions the student never answered have no row and need none:
// their zero contribution is implied by absence.
func (r *AnswerRepository) ApplyScores(ctx context.Context, attemptID uuid.UUID, scores []grading.QuestionScore) error {
	if len(scores) == 0 {
		return nil
	}

	n := len(scores)
	questionIDs := make([]uuid.UUID, 0, n)
	points := make([]*float64, 0, n)
	correct := make([]*bool, 0, n)

	for _, s := range scores {
		questionIDs = append(questionIDs, s.QuestionID)
		points = append(points, s.PointsAwarded)
		correct = append(correct, s.IsCorrect)
	}

	query := `
		UPDATE answers AS a
		SET points_awarded = t.points,
		    is_correct = t.correct
		FROM (
			SELECT u.question_id, u.points, u.correct
			FROM UNNEST(
				$2::uuid[],
				$3::float8[],
				$4::bool[]
			) AS u (question_id, points, correct)
		) AS t
		WHERE a.attempt_id = $1
		  AND a.question_id = t.question_id
	`

	if _, err := r.pool.Exec(ctx, query, attemptID, questionIDs, points, correct); err != nil {
		return fmt.Errorf("apply scores: %w", err)
	}
	return nil
}
