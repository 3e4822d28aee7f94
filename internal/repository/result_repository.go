package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sekolahlab/examgate-backend/internal/model"
	"github.com/sekolahlab/examgate-backend/internal/service"
)

// ResultRepository handles final-score data access. One row exists per
// (student, exam); grading a later attempt overwrites it (latest wins).
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Upsert writes or supersedes the result for a (student, exam) pair.
func (r *ResultRepository) Upsert(ctx context.Context, res *model.Result) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO results (student_id, exam_id, attempt_id, score, graded_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (student_id, exam_id)
		 DO UPDATE SET attempt_id = EXCLUDED.attempt_id,
		               score = EXCLUDED.score,
		               graded_at = EXCLUDED.graded_at`,
		res.StudentID, res.ExamID, res.AttemptID, res.Score, res.GradedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert result: %w", err)
	}
	return nil
}

// GetByStudentExam retrieves the current result for a (student, exam) pair.
func (r *ResultRepository) GetByStudentExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	res := &model.Result{}
	err := r.pool.QueryRow(ctx,
		`SELECT student_id, exam_id, attempt_id, score, graded_at
		 FROM results
		 WHERE student_id = $1 AND exam_id = $2`, studentID, examID,
	).Scan(&res.StudentID, &res.ExamID, &res.AttemptID, &res.Score, &res.GradedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrStoreNotFound
		}
		return nil, fmt.Errorf("get result: %w", err)
	}
	return res, nil
}
