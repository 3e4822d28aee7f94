package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sekolahlab/examgate-backend/internal/clock"
	"github.com/sekolahlab/examgate-backend/internal/grading"
	"github.com/sekolahlab/examgate-backend/internal/model"
)

// maxConflictRetries bounds how often a start request re-reads and retries
// after losing an attempt-creation race before giving up with ErrStoreBusy.
const maxConflictRetries = 3

// StartState tells the caller whether RequestStart opened a fresh attempt or
// handed back an in-flight one.
type StartState string

const (
	StartStateStarted StartState = "STARTED"
	StartStateResumed StartState = "RESUMED"
)

// StartResult is the successful outcome of RequestStart.
type StartResult struct {
	State           StartState                 `json:"state"`
	Attempt         *model.Attempt             `json:"attempt"`
	Exam            model.ExamSummary          `json:"exam"`
	Questions       []model.QuestionForStudent `json:"questions"`
	TimeRemainingMs int64                      `json:"time_remaining_ms"`
}

// SubmitResult is the successful outcome of Submit.
type SubmitResult struct {
	Score  float64       `json:"score"`
	Result *model.Result `json:"result"`
}

// AttemptService is the attempt lifecycle controller. It owns every
// start/resume/expire/submit transition, all deadline arithmetic, and the
// grading/result writes. Concurrency safety comes from the stores'
// conditional-write primitives, not from in-process locking: two racing
// requests are serialized by exactly one of them winning the conditional
// create or update.
type AttemptService struct {
	catalog     ExamCatalog
	eligibility EligibilityChecker
	attempts    AttemptStore
	answers     AnswerStore
	results     ResultSink
	clk         clock.Clock
	log         zerolog.Logger
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	catalog ExamCatalog,
	eligibility EligibilityChecker,
	attempts AttemptStore,
	answers AnswerStore,
	results ResultSink,
	clk clock.Clock,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		catalog:     catalog,
		eligibility: eligibility,
		attempts:    attempts,
		answers:     answers,
		results:     results,
		clk:         clk,
		log:         log.With().Str("component", "attempt_service").Logger(),
	}
}

// RequestStart decides whether the student gets a fresh attempt, resumes an
// in-flight one, or is rejected. Expiry is settled lazily here: touching a
// stale attempt auto-submits it first, and the caller is told via
// ExpiredAutoSubmittedError to start again.
func (s *AttemptService) RequestStart(ctx context.Context, studentID int, examID uuid.UUID, meta model.ClientMetadata) (*StartResult, error) {
	exam, err := s.catalog.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("load exam: %w", err)
	}

	eligible, err := s.eligibility.IsStudentEligible(ctx, studentID, examID)
	if err != nil {
		return nil, fmt.Errorf("check eligibility: %w", err)
	}
	if !eligible {
		return nil, ErrIneligible
	}

	for retry := 0; retry < maxConflictRetries; retry++ {
		attempts, err := s.attempts.FindByStudentExam(ctx, studentID, examID)
		if err != nil {
			return nil, fmt.Errorf("list attempts: %w", err)
		}

		// An in-progress attempt is always handed back while its clock runs,
		// even if the window closed or an override went offline meanwhile:
		// once legitimately created, a sitting may be finished.
		if len(attempts) > 0 && attempts[0].Status == model.AttemptStatusInProgress {
			latest := attempts[0]
			now := s.clk.Now()
			elapsed := now.Sub(latest.StartedAt)

			if elapsed >= exam.Duration() {
				result, err := s.settleExpired(ctx, exam, &latest)
				if err != nil {
					return nil, err
				}
				return nil, &ExpiredAutoSubmittedError{Result: result}
			}

			return s.buildStartResult(StartStateResumed, exam, &latest, (exam.Duration() - elapsed).Milliseconds()), nil
		}

		submitted := 0
		for i := range attempts {
			if attempts[i].Status == model.AttemptStatusSubmitted {
				submitted++
			}
		}
		if submitted >= exam.MaxAttempts {
			return nil, &AttemptLimitError{MaxAttempts: exam.MaxAttempts, Submitted: submitted}
		}

		now := s.clk.Now()
		if err := admitNewAttempt(exam, now); err != nil {
			return nil, err
		}

		next := 1
		if len(attempts) > 0 {
			next = attempts[0].AttemptNumber + 1
		}

		attempt := &model.Attempt{
			ID:            uuid.New(),
			ExamID:        examID,
			StudentID:     studentID,
			AttemptNumber: next,
			Status:        model.AttemptStatusInProgress,
			StartedAt:     now,
			ClientIP:      meta.IP,
			UserAgent:     meta.UserAgent,
		}

		if err := s.attempts.CreateIfAbsent(ctx, attempt); err != nil {
			if errors.Is(err, ErrStoreConflict) {
				// Lost the creation race: another request from this student
				// claimed this attempt number. Re-read and recompute.
				s.log.Debug().
					Int("student_id", studentID).
					Str("exam_id", examID.String()).
					Int("attempt_number", next).
					Msg("Attempt creation conflict, retrying")
				continue
			}
			return nil, fmt.Errorf("create attempt: %w", err)
		}

		return s.buildStartResult(StartStateStarted, exam, attempt, exam.Duration().Milliseconds()), nil
	}

	return nil, ErrStoreBusy
}

// Submit persists the supplied answers, settles the attempt and grades it.
// Duplicate submits are idempotent: the existing result is reported instead
// of an error. A submit arriving after the deadline still lands, but its
// time spent is capped at the exam duration.
func (s *AttemptService) Submit(ctx context.Context, attemptID uuid.UUID, responses map[uuid.UUID]string) (*SubmitResult, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}

	exam, err := s.catalog.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("load exam: %w", err)
	}

	if attempt.Status != model.AttemptStatusInProgress {
		result, err := s.fetchOrDeriveResult(ctx, exam, attempt)
		if err != nil {
			return nil, err
		}
		return nil, &AlreadySubmittedError{Result: result}
	}

	if len(responses) > 0 {
		if err := s.answers.UpsertBatch(ctx, attemptID, responses); err != nil {
			return nil, fmt.Errorf("persist answers: %w", err)
		}
	}

	now := s.clk.Now()
	spentMs := now.Sub(attempt.StartedAt).Milliseconds()
	if budgetMs := exam.Duration().Milliseconds(); spentMs > budgetMs {
		spentMs = budgetMs
	}

	if err := s.attempts.CompleteIf(ctx, attemptID, model.AttemptStatusInProgress, now, spentMs); err != nil {
		if errors.Is(err, ErrStoreConflict) {
			// A concurrent submit or the expiry sweep settled it first.
			result, derr := s.fetchOrDeriveResult(ctx, exam, attempt)
			if derr != nil {
				return nil, derr
			}
			return nil, &AlreadySubmittedError{Result: result}
		}
		return nil, fmt.Errorf("complete attempt: %w", err)
	}

	result, err := s.gradeAndRecord(ctx, exam, attempt)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Int("student_id", attempt.StudentID).
		Float64("score", result.Score).
		Msg("Attempt submitted and graded")

	return &SubmitResult{Score: result.Score, Result: result}, nil
}

// GetResult returns the student's current result for an exam.
func (s *AttemptService) GetResult(ctx context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	result, err := s.results.GetByStudentExam(ctx, studentID, examID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load result: %w", err)
	}
	return result, nil
}

// SettleExpired force-settles one expired attempt. Used by the optional
// sweep worker; the lazy path in RequestStart/Submit does the same thing on
// touch.
func (s *AttemptService) SettleExpired(ctx context.Context, attempt *model.Attempt) error {
	exam, err := s.catalog.GetExam(ctx, attempt.ExamID)
	if err != nil {
		return fmt.Errorf("load exam: %w", err)
	}
	_, err = s.settleExpired(ctx, exam, attempt)
	return err
}

// settleExpired flips a timed-out attempt to SUBMITTED with exactly the full
// time budget spent, then grades whatever answers were stored. If another
// request wins the flip, this one simply proceeds to the (idempotent)
// grading, which re-derives the same result.
func (s *AttemptService) settleExpired(ctx context.Context, exam *model.Exam, attempt *model.Attempt) (*model.Result, error) {
	now := s.clk.Now()
	budgetMs := exam.Duration().Milliseconds()

	err := s.attempts.CompleteIf(ctx, attempt.ID, model.AttemptStatusInProgress, now, budgetMs)
	if err != nil && !errors.Is(err, ErrStoreConflict) {
		return nil, fmt.Errorf("settle expired attempt: %w", err)
	}
	if err == nil {
		s.log.Info().
			Str("attempt_id", attempt.ID.String()).
			Int("student_id", attempt.StudentID).
			Str("exam_id", exam.ID.String()).
			Msg("Expired attempt auto-submitted")
	}

	return s.gradeAndRecord(ctx, exam, attempt)
}

// gradeAndRecord grades the attempt's persisted answers and writes the
// per-answer scores plus the aggregate result. Every step is idempotent, so
// a partial failure is repaired by the next call re-running it.
func (s *AttemptService) gradeAndRecord(ctx context.Context, exam *model.Exam, attempt *model.Attempt) (*model.Result, error) {
	stored, err := s.answers.ListByAttempt(ctx, attempt.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list answers: %v", ErrGradingUnavailable, err)
	}

	responses := make(map[uuid.UUID]string, len(stored))
	for i := range stored {
		responses[stored[i].QuestionID] = stored[i].Response
	}

	outcome := grading.Grade(exam.Questions, responses, grading.Policy{NegativeMark: exam.NegativeMark})

	if err := s.answers.ApplyScores(ctx, attempt.ID, outcome.PerQuestion); err != nil {
		return nil, fmt.Errorf("%w: apply scores: %v", ErrGradingUnavailable, err)
	}

	result := &model.Result{
		StudentID: attempt.StudentID,
		ExamID:    exam.ID,
		AttemptID: attempt.ID,
		Score:     outcome.TotalScore,
		GradedAt:  s.clk.Now(),
	}
	if err := s.results.Upsert(ctx, result); err != nil {
		return nil, fmt.Errorf("%w: write result: %v", ErrGradingUnavailable, err)
	}

	return result, nil
}

// fetchOrDeriveResult returns the stored result for an already-settled
// attempt, re-deriving it from persisted answers if a partial failure left
// no result row behind.
func (s *AttemptService) fetchOrDeriveResult(ctx context.Context, exam *model.Exam, attempt *model.Attempt) (*model.Result, error) {
	result, err := s.results.GetByStudentExam(ctx, attempt.StudentID, exam.ID)
	if err == nil {
		return result, nil
	}
	if !errors.Is(err, ErrStoreNotFound) {
		return nil, fmt.Errorf("load result: %w", err)
	}
	return s.gradeAndRecord(ctx, exam, attempt)
}

// admitNewAttempt applies the gate for fresh attempts. Manual control, when
// enabled, supersedes the scheduled window entirely: an exam can be live
// outside its window or kept offline inside it.
func admitNewAttempt(exam *model.Exam, now time.Time) error {
	if exam.ManualControl {
		if exam.IsCompleted {
			return &ClosedError{ClosedAt: exam.WindowEnd}
		}
		if !exam.IsLive {
			return &NotYetOpenError{OpensAt: exam.WindowStart}
		}
		return nil
	}

	if now.Before(exam.WindowStart) {
		return &NotYetOpenError{OpensAt: exam.WindowStart}
	}
	if !now.Before(exam.WindowEnd) {
		return &ClosedError{ClosedAt: exam.WindowEnd}
	}
	return nil
}

func (s *AttemptService) buildStartResult(state StartState, exam *model.Exam, attempt *model.Attempt, remainingMs int64) *StartResult {
	return &StartResult{
		State:           state,
		Attempt:         attempt,
		Exam:            exam.Summary(),
		Questions:       materializeQuestions(exam, attempt),
		TimeRemainingMs: remainingMs,
	}
}

// materializeQuestions produces the client-facing question list with answer
// keys stripped. When shuffling is on, the order is derived from the attempt
// ID, so the same attempt always sees the same order without storing it.
func materializeQuestions(exam *model.Exam, attempt *model.Attempt) []model.QuestionForStudent {
	out := make([]model.QuestionForStudent, len(exam.Questions))
	for i := range exam.Questions {
		out[i] = exam.Questions[i].ForStudent()
	}

	if exam.ShuffleQuestions {
		rng := rand.New(rand.NewSource(shuffleSeed(attempt.ID)))
		rng.Shuffle(len(out), func(i, j int) {
			out[i], out[j] = out[j], out[i]
		})
	}

	return out
}

func shuffleSeed(attemptID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(attemptID[:])
	return int64(h.Sum64())
}
