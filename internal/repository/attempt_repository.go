package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sekolahlab/examgate-backend/internal/model"
	"github.com/sekolahlab/examgate-backend/internal/service"
)

// AttemptRepository handles attempt data access. The unique constraint on
// (exam_id, student_id, attempt_number) and the conditional status UPDATE
// provide the optimistic-concurrency semantics the lifecycle controller
// requires.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// FindByStudentExam retrieves all attempts for a student-exam pair, newest
// attempt first.
func (r *AttemptRepository) FindByStudentExam(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, student_id, attempt_number, status, started_at,
		        submitted_at, time_spent_ms, client_ip, user_agent
		 FROM attempts
		 WHERE student_id = $1 AND exam_id = $2
		 ORDER BY attempt_number DESC`, studentID, examID,
	)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

// GetByID retrieves one attempt.
func (r *AttemptRepository) GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, attempt_number, status, started_at,
		        submitted_at, time_spent_ms, client_ip, user_agent
		 FROM attempts
		 WHERE id = $1`, attemptID,
	).Scan(
		&a.ID, &a.ExamID, &a.StudentID, &a.AttemptNumber, &a.Status, &a.StartedAt,
		&a.SubmittedAt, &a.TimeSpentMs, &a.ClientIP, &a.UserAgent,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrStoreNotFound
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return a, nil
}

// CreateIfAbsent inserts a new attempt. If another request already created
// an attempt with the same (exam, student, attempt_number) key, the insert
// affects no rows and ErrStoreConflict is returned so the caller can re-read
// and recompute.
func (r *AttemptRepository) CreateIfAbsent(ctx context.Context, a *model.Attempt) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO attempts (id, exam_id, student_id, attempt_number, status, started_at, client_ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (exam_id, student_id, attempt_number) DO NOTHING
		 RETURNING id`,
		a.ID, a.ExamID, a.StudentID, a.AttemptNumber, a.Status, a.StartedAt, a.ClientIP, a.UserAgent,
	).Scan(&a.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.ErrStoreConflict
		}
		return fmt.Errorf("create attempt: %w", err)
	}
	return nil
}

// CompleteIf transitions an attempt to SUBMITTED only if its status still
// equals expected. A zero-row update means another request settled the
// attempt first; the caller re-reads and proceeds.
func (r *AttemptRepository) CompleteIf(ctx context.Context, attemptID uuid.UUID, expected model.AttemptStatus, submittedAt time.Time, timeSpentMs int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE attempts
		 SET status = $1, submitted_at = $2, time_spent_ms = $3
		 WHERE id = $4 AND status = $5`,
		model.AttemptStatusSubmitted, submittedAt, timeSpentMs, attemptID, expected,
	)
	if err != nil {
		return fmt.Errorf("complete attempt: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return service.ErrStoreConflict
	}
	return nil
}

// ListExpired retrieves IN_PROGRESS attempts whose time budget elapsed
// before now. Consumed by the expiry sweep worker.
func (r *AttemptRepository) ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT a.id, a.exam_id, a.student_id, a.attempt_number, a.status, a.started_at,
		        a.submitted_at, a.time_spent_ms, a.client_ip, a.user_agent
		 FROM attempts a
		 JOIN exams e ON e.id = a.exam_id
		 WHERE a.status = $1
		   AND a.started_at + make_interval(mins => e.duration_minutes) <= $2
		 ORDER BY a.started_at ASC
		 LIMIT $3`,
		model.AttemptStatusInProgress, now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list expired attempts: %w", err)
	}
	defer rows.Close()

	return scanAttempts(rows)
}

func scanAttempts(rows pgx.Rows) ([]model.Attempt, error) {
	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(
			&a.ID, &a.ExamID, &a.StudentID, &a.AttemptNumber, &a.Status, &a.StartedAt,
			&a.SubmittedAt, &a.TimeSpentMs, &a.ClientIP, &a.UserAgent,
		); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
