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

// ExamRepository is the read-only exam catalog. Exams and questions are
// authored by the admin backend; this service only reads them.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetExam retrieves an exam definition with its ordered question set.
func (r *ExamRepository) GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, window_start, window_end, duration_minutes, max_attempts,
		        shuffle_questions, manual_control, is_live, is_completed, negative_mark,
		        created_at, updated_at
		 FROM exams
		 WHERE id = $1`, examID,
	).Scan(
		&e.ID, &e.Title, &e.WindowStart, &e.WindowEnd, &e.DurationMinutes, &e.MaxAttempts,
		&e.ShuffleQuestions, &e.ManualControl, &e.IsLive, &e.IsCompleted, &e.NegativeMark,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrStoreNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	questions, err := r.listQuestions(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	e.Questions = questions

	return e, nil
}

func (r *ExamRepository) listQuestions(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, question_text, question_type, points, correct_answer, options, order_num
		 FROM questions
		 WHERE exam_id = $1
		 ORDER BY order_num ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.QuestionText, &q.QuestionType, &q.Points, &q.CorrectAnswer, &q.Options, &q.OrderNum); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
