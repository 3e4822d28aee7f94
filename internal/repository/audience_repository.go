package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AudienceRepository answers exam eligibility questions. Audience rules
// target either a whole class or an individual student; enrollment data is
// maintained by the school-administration backend.
type AudienceRepository struct {
	pool *pgxpool.Pool
}

// NewAudienceRepository creates a new AudienceRepository.
func NewAudienceRepository(pool *pgxpool.Pool) *AudienceRepository {
	return &AudienceRepository{pool: pool}
}

// IsStudentEligible reports whether any audience rule for the exam matches
// the student directly or via their class.
func (r *AudienceRepository) IsStudentEligible(ctx context.Context, studentID int, examID uuid.UUID) (bool, error) {
	var eligible bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		    SELECT 1
		    FROM exam_audiences ea
		    LEFT JOIN students s ON s.id = $2
		    WHERE ea.exam_id = $1
		      AND (ea.student_id = $2 OR ea.class_id = s.class_id)
		 )`, examID, studentID,
	).Scan(&eligible)
	if err != nil {
		return false, fmt.Errorf("check audience: %w", err)
	}
	return eligible, nil
}
