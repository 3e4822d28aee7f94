package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sekolahlab/examgate-backend/internal/middleware"
	"github.com/sekolahlab/examgate-backend/internal/model"
	"github.com/sekolahlab/examgate-backend/internal/response"
	"github.com/sekolahlab/examgate-backend/internal/service"
	"github.com/sekolahlab/examgate-backend/internal/validator"
)

// AttemptHandler exposes the attempt lifecycle to exam takers.
type AttemptHandler struct {
	attemptService *service.AttemptService
	stateService   *service.AttemptStateService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(
	attemptService *service.AttemptService,
	stateService *service.AttemptStateService,
) *AttemptHandler {
	return &AttemptHandler{
		attemptService: attemptService,
		stateService:   stateService,
	}
}

// StartExam godoc
// POST /api/v1/student/exams/:exam_id/start
// Starts a fresh attempt or resumes the student's in-progress one.
func (h *AttemptHandler) StartExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	meta := model.ClientMetadata{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}

	result, err := h.attemptService.RequestStart(c.Request.Context(), claims.UserID, examID, meta)
	if err != nil {
		h.failStart(c, err)
		return
	}

	// Best-effort cache prime for the remaining-time read path.
	h.stateService.CacheStart(c.Request.Context(), result.Attempt, result.Exam.DurationMinutes)

	response.Success(c, http.StatusOK, result)
}

// SubmitAttempt godoc
// POST /api/v1/student/attempts/:attempt_id/submit
// Persists answers, settles the attempt and returns the graded score.
// Duplicate submits return the existing result instead of failing.
func (h *AttemptHandler) SubmitAttempt(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAttemptRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	responses := make(map[uuid.UUID]string, len(req.Answers))
	for k, v := range req.Answers {
		qid, perr := uuid.Parse(k)
		if perr != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidPayload)
			return
		}
		responses[qid] = v
	}

	result, err := h.attemptService.Submit(c.Request.Context(), attemptID, responses)
	if err != nil {
		var already *service.AlreadySubmittedError
		if errors.As(err, &already) {
			// Idempotent: flaky clients re-submit, they get the same answer.
			response.Success(c, http.StatusOK, service.SubmitResult{
				Score:  already.Result.Score,
				Result: already.Result,
			})
			return
		}
		h.failSubmit(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// GetAttemptState godoc
// GET /api/v1/student/attempts/:attempt_id/state
// Returns the remaining time so a reloaded client can restore its countdown.
func (h *AttemptHandler) GetAttemptState(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attemptID, err := uuid.Parse(c.Param("attempt_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	state, err := h.stateService.GetState(c.Request.Context(), attemptID, claims.UserID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, state)
}

// GetResult godoc
// GET /api/v1/student/exams/:exam_id/result
// Returns the student's current final score for the exam.
func (h *AttemptHandler) GetResult(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.attemptService.GetResult(c.Request.Context(), claims.UserID, examID)
	if err != nil {
		if errors.Is(err, service.ErrAttemptNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// failStart maps lifecycle rejections to API error codes, attaching the
// boundary context the client needs for a useful message.
func (h *AttemptHandler) failStart(c *gin.Context, err error) {
	var (
		notYetOpen *service.NotYetOpenError
		closed     *service.ClosedError
		limit      *service.AttemptLimitError
		expired    *service.ExpiredAutoSubmittedError
	)

	switch {
	case errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrIneligible):
		response.Fail(c, http.StatusForbidden, response.ErrIneligible)
	case errors.As(err, &notYetOpen):
		response.FailWithDetail(c, http.StatusConflict, response.ErrNotYetOpen, map[string]interface{}{
			"opens_at": notYetOpen.OpensAt,
		})
	case errors.As(err, &closed):
		response.FailWithDetail(c, http.StatusConflict, response.ErrClosed, map[string]interface{}{
			"closed_at": closed.ClosedAt,
		})
	case errors.As(err, &limit):
		response.FailWithDetail(c, http.StatusConflict, response.ErrAttemptLimitReached, map[string]interface{}{
			"max_attempts": limit.MaxAttempts,
			"submitted":    limit.Submitted,
		})
	case errors.As(err, &expired):
		// The server settled the stale attempt; the client should request a
		// fresh start (subject to the attempt limit).
		response.FailWithDetail(c, http.StatusConflict, response.ErrExpiredAutoSubmitted, map[string]interface{}{
			"score":     expired.Result.Score,
			"graded_at": expired.Result.GradedAt,
		})
	case errors.Is(err, service.ErrStoreBusy):
		response.Fail(c, http.StatusConflict, response.ErrStoreConflict)
	case errors.Is(err, service.ErrGradingUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrGradingUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

func (h *AttemptHandler) failSubmit(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrAttemptNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrStoreBusy):
		response.Fail(c, http.StatusConflict, response.ErrStoreConflict)
	case errors.Is(err, service.ErrGradingUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrGradingUnavailable)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
