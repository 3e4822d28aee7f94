package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sekolahlab/examgate-backend/internal/grading"
	"github.com/sekolahlab/examgate-backend/internal/model"
)

// Store sentinels. Implementations translate their backend's errors into
// these so the controller can branch without knowing the backing store.
var (
	// ErrStoreNotFound signals an absent row.
	ErrStoreNotFound = errors.New("store: not found")
	// ErrStoreConflict signals a lost optimistic-concurrency race: a
	// create-if-absent hit an existing key, or a conditional update found the
	// row no longer in the expected status. Callers re-read and retry.
	ErrStoreConflict = errors.New("store: conflict")
)

// ExamCatalog is the read-only exam definition lookup. Authoring and
// publishing of exams live in a different service.
type ExamCatalog interface {
	// GetExam loads the full definition including its ordered question set.
	// Returns ErrStoreNotFound if the exam does not exist.
	GetExam(ctx context.Context, examID uuid.UUID) (*model.Exam, error)
}

// EligibilityChecker answers whether a student belongs to an exam's audience.
// Enrollment rules are owned elsewhere; the controller only consumes the
// verdict.
type EligibilityChecker interface {
	IsStudentEligible(ctx context.Context, studentID int, examID uuid.UUID) (bool, error)
}

// AttemptStore is durable attempt storage with the optimistic-concurrency
// primitives the lifecycle depends on.
type AttemptStore interface {
	// FindByStudentExam returns all attempts for the pair, newest first
	// (attempt_number descending).
	FindByStudentExam(ctx context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error)

	// GetByID returns one attempt or ErrStoreNotFound.
	GetByID(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error)

	// CreateIfAbsent inserts the attempt keyed by (exam, student,
	// attempt_number). Returns ErrStoreConflict if that key already exists;
	// exactly one of two racing creators wins.
	CreateIfAbsent(ctx context.Context, attempt *model.Attempt) error

	// CompleteIf flips the attempt to SUBMITTED only while its status still
	// equals expected. Returns ErrStoreConflict if another request settled it
	// first.
	CompleteIf(ctx context.Context, attemptID uuid.UUID, expected model.AttemptStatus, submittedAt time.Time, timeSpentMs int64) error

	// ListExpired returns IN_PROGRESS attempts whose time budget ran out
	// before now. Used only by the optional sweep collaborator.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]model.Attempt, error)
}

// AnswerStore is durable answer storage keyed by (attempt, question).
type AnswerStore interface {
	UpsertBatch(ctx context.Context, attemptID uuid.UUID, responses map[uuid.UUID]string) error
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Answer, error)
	// ApplyScores persists the grading engine's per-question outcome onto the
	// stored answer rows.
	ApplyScores(ctx context.Context, attemptID uuid.UUID, scores []grading.QuestionScore) error
}

// ResultSink holds one final score per (student, exam). A later graded
// attempt supersedes the earlier row.
type ResultSink interface {
	Upsert(ctx context.Context, result *model.Result) error
	// GetByStudentExam returns the current result or ErrStoreNotFound.
	GetByStudentExam(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error)
}
