package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sekolahlab/examgate-backend/internal/clock"
	"github.com/sekolahlab/examgate-backend/internal/config"
	"github.com/sekolahlab/examgate-backend/internal/model"
)

// AttemptState is the reconnect payload: enough for a client that reloaded
// mid-sitting to restore its countdown.
type AttemptState struct {
	AttemptID       uuid.UUID           `json:"attempt_id"`
	ExamID          uuid.UUID           `json:"exam_id"`
	Status          model.AttemptStatus `json:"status"`
	TimeRemainingMs int64               `json:"time_remaining_ms"`
}

// AttemptStateService serves the hot remaining-time read path. Start times
// and durations are cached in Redis; PostgreSQL stays the source of truth
// and cache misses fall back to it with a self-heal write.
type AttemptStateService struct {
	attempts AttemptStore
	catalog  ExamCatalog
	rdb      *redis.Client
	clk      clock.Clock
	log      zerolog.Logger
}

// NewAttemptStateService creates a new AttemptStateService.
func NewAttemptStateService(
	attempts AttemptStore,
	catalog ExamCatalog,
	rdb *redis.Client,
	clk clock.Clock,
	log zerolog.Logger,
) *AttemptStateService {
	return &AttemptStateService{
		attempts: attempts,
		catalog:  catalog,
		rdb:      rdb,
		clk:      clk,
		log:      log.With().Str("component", "attempt_state_service").Logger(),
	}
}

// CacheStart primes Redis with an attempt's start time and its exam's
// duration after a successful start. Failures are logged, never surfaced —
// the fallback path covers them.
func (s *AttemptStateService) CacheStart(ctx context.Context, attempt *model.Attempt, durationMinutes int) {
	pipe := s.rdb.Pipeline()
	pipe.Set(ctx, config.CacheKey.AttemptStartKey(attempt.ID.String()), attempt.StartedAt.Unix(), 0)
	pipe.Set(ctx, config.CacheKey.ExamDurationKey(attempt.ExamID.String()), durationMinutes, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("Failed to cache attempt start")
	}
}

// GetState computes the remaining time for a student's attempt.
func (s *AttemptStateService) GetState(ctx context.Context, attemptID uuid.UUID, studentID int) (*AttemptState, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, ErrAttemptNotFound
		}
		return nil, fmt.Errorf("load attempt: %w", err)
	}
	// Attempt rows are owned by the student who created them.
	if attempt.StudentID != studentID {
		return nil, ErrAttemptNotFound
	}

	state := &AttemptState{
		AttemptID: attempt.ID,
		ExamID:    attempt.ExamID,
		Status:    attempt.Status,
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return state, nil
	}

	startedAt, err := s.startedAt(ctx, attempt)
	if err != nil {
		return nil, err
	}
	durationMinutes, err := s.durationMinutes(ctx, attempt.ExamID)
	if err != nil {
		return nil, err
	}

	deadline := startedAt.Add(time.Duration(durationMinutes) * time.Minute)
	remaining := deadline.Sub(s.clk.Now())
	if remaining < 0 {
		remaining = 0
	}
	state.TimeRemainingMs = remaining.Milliseconds()

	return state, nil
}

// startedAt reads the attempt start time from cache, falling back to the
// already-loaded row and self-healing the cache.
func (s *AttemptStateService) startedAt(ctx context.Context, attempt *model.Attempt) (time.Time, error) {
	key := config.CacheKey.AttemptStartKey(attempt.ID.String())

	val, err := s.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		_ = s.rdb.Set(ctx, key, attempt.StartedAt.Unix(), 0)
		return attempt.StartedAt, nil
	}
	if err != nil {
		// Real Redis error (connection died, etc). The row is authoritative.
		s.log.Warn().Err(err).Msg("Redis error reading start time, using database value")
		return attempt.StartedAt, nil
	}

	unix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid start time format in cache: %w", err)
	}
	return time.Unix(unix, 0), nil
}

// durationMinutes reads the exam duration from cache with a catalog fallback
// and self-heal.
func (s *AttemptStateService) durationMinutes(ctx context.Context, examID uuid.UUID) (int, error) {
	key := config.CacheKey.ExamDurationKey(examID.String())

	val, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		minutes, perr := strconv.Atoi(val)
		if perr != nil {
			return 0, fmt.Errorf("invalid duration format in cache: %w", perr)
		}
		return minutes, nil
	}
	if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Msg("Redis error reading duration, falling back to catalog")
	}

	exam, cerr := s.catalog.GetExam(ctx, examID)
	if cerr != nil {
		return 0, fmt.Errorf("load exam for duration: %w", cerr)
	}
	_ = s.rdb.Set(ctx, key, exam.DurationMinutes, 0)
	return exam.DurationMinutes, nil
}
