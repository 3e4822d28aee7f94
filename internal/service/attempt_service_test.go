package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sekolahlab/examgate-backend/internal/grading"
	"github.com/sekolahlab/examgate-backend/internal/model"
)

// ─── Fakes ─────────────────────────────────────────────────────────────

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type memCatalog struct {
	exams map[uuid.UUID]*model.Exam
}

func (m *memCatalog) GetExam(_ context.Context, examID uuid.UUID) (*model.Exam, error) {
	e, ok := m.exams[examID]
	if !ok {
		return nil, ErrStoreNotFound
	}
	return e, nil
}

type memEligibility struct {
	eligible bool
}

func (m *memEligibility) IsStudentEligible(context.Context, int, uuid.UUID) (bool, error) {
	return m.eligible, nil
}

type attemptKey struct {
	examID    uuid.UUID
	studentID int
	number    int
}

type memAttemptStore struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*model.Attempt
	byKey  map[attemptKey]uuid.UUID
	exams  map[uuid.UUID]*model.Exam
	// forceConflicts makes the next N creates fail as if another request
	// claimed the attempt number first.
	forceConflicts int
}

func newMemAttemptStore(exams map[uuid.UUID]*model.Exam) *memAttemptStore {
	return &memAttemptStore{
		byID:  make(map[uuid.UUID]*model.Attempt),
		byKey: make(map[attemptKey]uuid.UUID),
		exams: exams,
	}
}

func (m *memAttemptStore) FindByStudentExam(_ context.Context, studentID int, examID uuid.UUID) ([]model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Attempt
	for _, a := range m.byID {
		if a.StudentID == studentID && a.ExamID == examID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].AttemptNumber > out[j].AttemptNumber
	})
	return out, nil
}

func (m *memAttemptStore) GetByID(_ context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[attemptID]
	if !ok {
		return nil, ErrStoreNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memAttemptStore) CreateIfAbsent(_ context.Context, a *model.Attempt) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.forceConflicts > 0 {
		m.forceConflicts--
		return ErrStoreConflict
	}
	key := attemptKey{a.ExamID, a.StudentID, a.AttemptNumber}
	if _, exists := m.byKey[key]; exists {
		return ErrStoreConflict
	}
	cp := *a
	m.byID[a.ID] = &cp
	m.byKey[key] = a.ID
	return nil
}

func (m *memAttemptStore) CompleteIf(_ context.Context, attemptID uuid.UUID, expected model.AttemptStatus, submittedAt time.Time, timeSpentMs int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[attemptID]
	if !ok || a.Status != expected {
		return ErrStoreConflict
	}
	a.Status = model.AttemptStatusSubmitted
	a.SubmittedAt = &submittedAt
	a.TimeSpentMs = &timeSpentMs
	return nil
}

func (m *memAttemptStore) ListExpired(_ context.Context, now time.Time, limit int) ([]model.Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Attempt
	for _, a := range m.byID {
		if a.Status != model.AttemptStatusInProgress {
			continue
		}
		exam, ok := m.exams[a.ExamID]
		if !ok {
			continue
		}
		if !a.StartedAt.Add(exam.Duration()).After(now) {
			out = append(out, *a)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

type answerKey struct {
	attemptID  uuid.UUID
	questionID uuid.UUID
}

type memAnswerStore struct {
	mu      sync.Mutex
	answers map[answerKey]*model.Answer
}

func newMemAnswerStore() *memAnswerStore {
	return &memAnswerStore{answers: make(map[answerKey]*model.Answer)}
}

func (m *memAnswerStore) UpsertBatch(_ context.Context, attemptID uuid.UUID, responses map[uuid.UUID]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for qid, resp := range responses {
		key := answerKey{attemptID, qid}
		if a, ok := m.answers[key]; ok {
			a.Response = resp
			continue
		}
		m.answers[key] = &model.Answer{AttemptID: attemptID, QuestionID: qid, Response: resp}
	}
	return nil
}

func (m *memAnswerStore) ListByAttempt(_ context.Context, attemptID uuid.UUID) ([]model.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Answer
	for key, a := range m.answers {
		if key.attemptID == attemptID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *memAnswerStore) ApplyScores(_ context.Context, attemptID uuid.UUID, scores []grading.QuestionScore) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range scores {
		if a, ok := m.answers[answerKey{attemptID, s.QuestionID}]; ok {
			a.PointsAwarded = s.PointsAwarded
			a.IsCorrect = s.IsCorrect
		}
	}
	return nil
}

type resultKey struct {
	studentID int
	examID    uuid.UUID
}

type memResultSink struct {
	mu      sync.Mutex
	results map[resultKey]*model.Result
	upserts int
}

func newMemResultSink() *memResultSink {
	return &memResultSink{results: make(map[resultKey]*model.Result)}
}

func (m *memResultSink) Upsert(_ context.Context, r *model.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.results[resultKey{r.StudentID, r.ExamID}] = &cp
	m.upserts++
	return nil
}

func (m *memResultSink) GetByStudentExam(_ context.Context, studentID int, examID uuid.UUID) (*model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[resultKey{studentID, examID}]
	if !ok {
		return nil, ErrStoreNotFound
	}
	cp := *r
	return &cp, nil
}

// ─── Fixture ───────────────────────────────────────────────────────────

type fixture struct {
	svc      *AttemptService
	clk      *fakeClock
	exam     *model.Exam
	attempts *memAttemptStore
	answers  *memAnswerStore
	results  *memResultSink
	elig     *memEligibility
}

const testStudentID = 7

func newFixture(t *testing.T, mutate func(*model.Exam)) *fixture {
	t.Helper()

	base := time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)
	examID := uuid.New()
	q1 := uuid.New()
	q2 := uuid.New()
	q3 := uuid.New()

	exam := &model.Exam{
		ID:              examID,
		Title:           "Ujian Matematika",
		WindowStart:     base,
		WindowEnd:       base.Add(8 * time.Hour),
		DurationMinutes: 60,
		MaxAttempts:     2,
		Questions: []model.Question{
			{ID: q1, ExamID: examID, QuestionText: "2+2?", QuestionType: model.QuestionTypeSingleChoice, Points: 10, CorrectAnswer: "b", OrderNum: 1},
			{ID: q2, ExamID: examID, QuestionText: "Bumi itu bulat.", QuestionType: model.QuestionTypeTrueFalse, Points: 5, CorrectAnswer: "true", OrderNum: 2},
			{ID: q3, ExamID: examID, QuestionText: "Jelaskan.", QuestionType: model.QuestionTypeFreeText, Points: 20, OrderNum: 3},
		},
	}
	if mutate != nil {
		mutate(exam)
	}

	exams := map[uuid.UUID]*model.Exam{examID: exam}
	clk := &fakeClock{now: base.Add(time.Hour)} // inside the window
	attempts := newMemAttemptStore(exams)
	answers := newMemAnswerStore()
	results := newMemResultSink()
	elig := &memEligibility{eligible: true}

	svc := NewAttemptService(&memCatalog{exams: exams}, elig, attempts, answers, results, clk, zerolog.Nop())

	return &fixture{
		svc:      svc,
		clk:      clk,
		exam:     exam,
		attempts: attempts,
		answers:  answers,
		results:  results,
		elig:     elig,
	}
}

func (f *fixture) mustStart(t *testing.T) *StartResult {
	t.Helper()
	res, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{IP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("RequestStart: %v", err)
	}
	return res
}

// ─── RequestStart ──────────────────────────────────────────────────────

func TestRequestStart_FreshAttempt(t *testing.T) {
	f := newFixture(t, nil)

	res := f.mustStart(t)

	if res.State != StartStateStarted {
		t.Fatalf("state = %s, want STARTED", res.State)
	}
	if res.Attempt.AttemptNumber != 1 {
		t.Errorf("attempt number = %d, want 1", res.Attempt.AttemptNumber)
	}
	if res.Attempt.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s, want IN_PROGRESS", res.Attempt.Status)
	}
	if want := int64(60 * 60 * 1000); res.TimeRemainingMs != want {
		t.Errorf("time remaining = %d, want %d", res.TimeRemainingMs, want)
	}
	if len(res.Questions) != 3 {
		t.Fatalf("questions = %d, want 3", len(res.Questions))
	}
	if res.Exam.TotalPoints != 35 {
		t.Errorf("total points = %v, want 35", res.Exam.TotalPoints)
	}
}

func TestRequestStart_ResumeKeepsOriginalDeadline(t *testing.T) {
	f := newFixture(t, nil)

	first := f.mustStart(t)
	f.clk.Advance(40 * time.Minute)

	second := f.mustStart(t)

	if second.State != StartStateResumed {
		t.Fatalf("state = %s, want RESUMED", second.State)
	}
	if second.Attempt.ID != first.Attempt.ID {
		t.Errorf("resumed a different attempt")
	}
	if want := int64(20 * 60 * 1000); second.TimeRemainingMs != want {
		t.Errorf("time remaining = %d, want %d", second.TimeRemainingMs, want)
	}
}

func TestRequestStart_ResumeAfterWindowClosed(t *testing.T) {
	// An attempt legitimately started before the window closed may still be
	// finished; only fresh attempts are gated by the window.
	f := newFixture(t, func(e *model.Exam) {
		e.WindowEnd = e.WindowStart.Add(90 * time.Minute)
	})

	f.clk.now = f.exam.WindowStart.Add(80 * time.Minute)
	first := f.mustStart(t)

	f.clk.Advance(15 * time.Minute) // window closed, clock still running

	second := f.mustStart(t)
	if second.State != StartStateResumed {
		t.Fatalf("state = %s, want RESUMED", second.State)
	}
	if second.Attempt.ID != first.Attempt.ID {
		t.Errorf("resumed a different attempt")
	}
}

func TestRequestStart_ExpiredAttemptIsAutoSubmitted(t *testing.T) {
	f := newFixture(t, nil)

	first := f.mustStart(t)
	f.clk.Advance(71 * time.Minute) // budget is 60

	_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})

	var expired *ExpiredAutoSubmittedError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want ExpiredAutoSubmittedError", err)
	}

	stored, _ := f.attempts.GetByID(context.Background(), first.Attempt.ID)
	if stored.Status != model.AttemptStatusSubmitted {
		t.Errorf("status = %s, want SUBMITTED", stored.Status)
	}
	if stored.TimeSpentMs == nil || *stored.TimeSpentMs != int64(60*60*1000) {
		t.Errorf("time spent = %v, want full 60-minute budget", stored.TimeSpentMs)
	}
	if expired.Result == nil || expired.Result.Score != 0 {
		t.Errorf("unanswered expired attempt should grade to 0, got %+v", expired.Result)
	}
}

func TestRequestStart_ExpiryThenFreshAttempt(t *testing.T) {
	f := newFixture(t, nil)

	f.mustStart(t)
	f.clk.Advance(61 * time.Minute)

	_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})
	var expired *ExpiredAutoSubmittedError
	if !errors.As(err, &expired) {
		t.Fatalf("err = %v, want ExpiredAutoSubmittedError", err)
	}

	// MaxAttempts is 2, so the follow-up start opens attempt #2.
	res := f.mustStart(t)
	if res.State != StartStateStarted {
		t.Fatalf("state = %s, want STARTED", res.State)
	}
	if res.Attempt.AttemptNumber != 2 {
		t.Errorf("attempt number = %d, want 2", res.Attempt.AttemptNumber)
	}
}

func TestRequestStart_AttemptLimitReached(t *testing.T) {
	f := newFixture(t, func(e *model.Exam) { e.MaxAttempts = 1 })

	res := f.mustStart(t)
	if _, err := f.svc.Submit(context.Background(), res.Attempt.ID, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})

	var limit *AttemptLimitError
	if !errors.As(err, &limit) {
		t.Fatalf("err = %v, want AttemptLimitError", err)
	}
	if limit.MaxAttempts != 1 || limit.Submitted != 1 {
		t.Errorf("limit = %+v, want 1/1", limit)
	}
}

func TestRequestStart_BeforeWindow(t *testing.T) {
	f := newFixture(t, nil)
	f.clk.now = f.exam.WindowStart.Add(-time.Minute)

	_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})

	var notYet *NotYetOpenError
	if !errors.As(err, &notYet) {
		t.Fatalf("err = %v, want NotYetOpenError", err)
	}
	if !notYet.OpensAt.Equal(f.exam.WindowStart) {
		t.Errorf("opens at = %v, want %v", notYet.OpensAt, f.exam.WindowStart)
	}
}

func TestRequestStart_AfterWindow(t *testing.T) {
	f := newFixture(t, nil)
	f.clk.now = f.exam.WindowEnd // boundary is exclusive

	_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})

	var closed *ClosedError
	if !errors.As(err, &closed) {
		t.Fatalf("err = %v, want ClosedError", err)
	}
}

func TestRequestStart_ManualControl(t *testing.T) {
	tests := []struct {
		name      string
		isLive    bool
		completed bool
		wantErr   interface{}
	}{
		{"offline inside window", false, false, &NotYetOpenError{}},
		{"completed", true, true, &ClosedError{}},
		{"live", true, false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, func(e *model.Exam) {
				e.ManualControl = true
				e.IsLive = tt.isLive
				e.IsCompleted = tt.completed
			})

			_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})

			switch want := tt.wantErr.(type) {
			case nil:
				if err != nil {
					t.Fatalf("RequestStart: %v", err)
				}
			case *NotYetOpenError:
				if !errors.As(err, &want) {
					t.Fatalf("err = %v, want NotYetOpenError", err)
				}
			case *ClosedError:
				if !errors.As(err, &want) {
					t.Fatalf("err = %v, want ClosedError", err)
				}
			}
		})
	}
}

func TestRequestStart_ManualLiveOutsideWindow(t *testing.T) {
	// A manual override admits attempts even outside the scheduled window.
	f := newFixture(t, func(e *model.Exam) {
		e.ManualControl = true
		e.IsLive = true
	})
	f.clk.now = f.exam.WindowEnd.Add(time.Hour)

	res := f.mustStart(t)
	if res.State != StartStateStarted {
		t.Fatalf("state = %s, want STARTED", res.State)
	}
}

func TestRequestStart_Ineligible(t *testing.T) {
	f := newFixture(t, nil)
	f.elig.eligible = false

	_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})
	if !errors.Is(err, ErrIneligible) {
		t.Fatalf("err = %v, want ErrIneligible", err)
	}
}

func TestRequestStart_ExamNotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.RequestStart(context.Background(), testStudentID, uuid.New(), model.ClientMetadata{})
	if !errors.Is(err, ErrExamNotFound) {
		t.Fatalf("err = %v, want ErrExamNotFound", err)
	}
}

func TestRequestStart_ConflictRetriesExhausted(t *testing.T) {
	f := newFixture(t, nil)
	f.attempts.forceConflicts = maxConflictRetries

	_, err := f.svc.RequestStart(context.Background(), testStudentID, f.exam.ID, model.ClientMetadata{})
	if !errors.Is(err, ErrStoreBusy) {
		t.Fatalf("err = %v, want ErrStoreBusy", err)
	}
}

func TestRequestStart_ConflictThenRetrySucceeds(t *testing.T) {
	f := newFixture(t, nil)
	f.attempts.forceConflicts = 1

	res := f.mustStart(t)
	if res.State != StartStateStarted {
		t.Fatalf("state = %s, want STARTED", res.State)
	}
}

func TestRequestStart_ShuffleIsStablePerAttempt(t *testing.T) {
	f := newFixture(t, func(e *model.Exam) { e.ShuffleQuestions = true })

	first := f.mustStart(t)
	f.clk.Advance(10 * time.Minute)
	second := f.mustStart(t)

	if second.State != StartStateResumed {
		t.Fatalf("state = %s, want RESUMED", second.State)
	}
	if len(first.Questions) != len(second.Questions) {
		t.Fatalf("question count changed across resume")
	}
	for i := range first.Questions {
		if first.Questions[i].ID != second.Questions[i].ID {
			t.Fatalf("question order changed across resume at index %d", i)
		}
	}
}

func TestRequestStart_QuestionsOmitAnswerKey(t *testing.T) {
	f := newFixture(t, nil)

	res := f.mustStart(t)
	for _, q := range res.Questions {
		if q.QuestionText == "" {
			t.Errorf("question %s missing text", q.ID)
		}
	}
	// QuestionForStudent has no CorrectAnswer field at all; the compile-time
	// shape is the guarantee. Spot-check the points survive the mapping.
	if res.Questions[0].Points == 0 {
		t.Errorf("points lost in student mapping")
	}
}

// ─── Submit ────────────────────────────────────────────────────────────

func TestSubmit_GradesAndRecordsResult(t *testing.T) {
	f := newFixture(t, nil)

	res := f.mustStart(t)
	f.clk.Advance(25 * time.Minute)

	q := f.exam.Questions
	answers := map[uuid.UUID]string{
		q[0].ID: "b",    // correct, 10
		q[1].ID: "false", // wrong
		q[2].ID: "Karena begitu.", // free text, deferred
	}

	out, err := f.svc.Submit(context.Background(), res.Attempt.ID, answers)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Score != 10 {
		t.Errorf("score = %v, want 10", out.Score)
	}

	stored, _ := f.attempts.GetByID(context.Background(), res.Attempt.ID)
	if stored.Status != model.AttemptStatusSubmitted {
		t.Errorf("status = %s, want SUBMITTED", stored.Status)
	}
	if stored.TimeSpentMs == nil || *stored.TimeSpentMs != int64(25*60*1000) {
		t.Errorf("time spent = %v, want 25 minutes", stored.TimeSpentMs)
	}

	result, err := f.results.GetByStudentExam(context.Background(), testStudentID, f.exam.ID)
	if err != nil {
		t.Fatalf("result not recorded: %v", err)
	}
	if result.AttemptID != res.Attempt.ID || result.Score != 10 {
		t.Errorf("result = %+v", result)
	}
}

func TestSubmit_LateSubmitCapsTimeSpent(t *testing.T) {
	f := newFixture(t, nil)

	res := f.mustStart(t)
	f.clk.Advance(90 * time.Minute) // 30 past the budget

	out, err := f.svc.Submit(context.Background(), res.Attempt.ID, map[uuid.UUID]string{
		f.exam.Questions[0].ID: "b",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if out.Score != 10 {
		t.Errorf("score = %v, want 10", out.Score)
	}

	stored, _ := f.attempts.GetByID(context.Background(), res.Attempt.ID)
	if stored.TimeSpentMs == nil || *stored.TimeSpentMs != int64(60*60*1000) {
		t.Errorf("time spent = %v, want capped at 60 minutes", stored.TimeSpentMs)
	}
}

func TestSubmit_DuplicateIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)

	res := f.mustStart(t)
	answers := map[uuid.UUID]string{f.exam.Questions[0].ID: "b"}

	first, err := f.svc.Submit(context.Background(), res.Attempt.ID, answers)
	if err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	_, err = f.svc.Submit(context.Background(), res.Attempt.ID, answers)
	var already *AlreadySubmittedError
	if !errors.As(err, &already) {
		t.Fatalf("err = %v, want AlreadySubmittedError", err)
	}
	if already.Result.Score != first.Score {
		t.Errorf("duplicate reported score %v, first was %v", already.Result.Score, first.Score)
	}
}

func TestSubmit_UnknownAttempt(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), uuid.New(), nil)
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

func TestSubmit_SecondAttemptSupersedesResult(t *testing.T) {
	f := newFixture(t, nil)
	q0 := f.exam.Questions[0].ID

	first := f.mustStart(t)
	if _, err := f.svc.Submit(context.Background(), first.Attempt.ID, map[uuid.UUID]string{q0: "a"}); err != nil {
		t.Fatalf("first Submit: %v", err)
	}

	second := f.mustStart(t)
	if second.Attempt.AttemptNumber != 2 {
		t.Fatalf("attempt number = %d, want 2", second.Attempt.AttemptNumber)
	}
	if _, err := f.svc.Submit(context.Background(), second.Attempt.ID, map[uuid.UUID]string{q0: "b"}); err != nil {
		t.Fatalf("second Submit: %v", err)
	}

	result, err := f.svc.GetResult(context.Background(), testStudentID, f.exam.ID)
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if result.AttemptID != second.Attempt.ID {
		t.Errorf("result points at attempt %s, want the later one", result.AttemptID)
	}
	if result.Score != 10 {
		t.Errorf("score = %v, want 10", result.Score)
	}
}

func TestGetResult_NoneRecorded(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.GetResult(context.Background(), testStudentID, f.exam.ID)
	if !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("err = %v, want ErrAttemptNotFound", err)
	}
}

// ─── Expiry settlement ─────────────────────────────────────────────────

func TestSettleExpired_GradesStoredAnswers(t *testing.T) {
	f := newFixture(t, nil)

	res := f.mustStart(t)
	// Simulate answers saved during the sitting, then the student vanishing.
	if err := f.answers.UpsertBatch(context.Background(), res.Attempt.ID, map[uuid.UUID]string{
		f.exam.Questions[0].ID: "b",
		f.exam.Questions[1].ID: "true",
	}); err != nil {
		t.Fatal(err)
	}
	f.clk.Advance(2 * time.Hour)

	if err := f.svc.SettleExpired(context.Background(), res.Attempt); err != nil {
		t.Fatalf("SettleExpired: %v", err)
	}

	result, err := f.results.GetByStudentExam(context.Background(), testStudentID, f.exam.ID)
	if err != nil {
		t.Fatalf("result not recorded: %v", err)
	}
	if result.Score != 15 {
		t.Errorf("score = %v, want 15", result.Score)
	}
}

func TestSettleExpired_ToleratesLostRace(t *testing.T) {
	f := newFixture(t, nil)

	res := f.mustStart(t)
	f.clk.Advance(2 * time.Hour)

	// Another request settles it first.
	if err := f.svc.SettleExpired(context.Background(), res.Attempt); err != nil {
		t.Fatalf("first SettleExpired: %v", err)
	}
	upsertsAfterFirst := f.results.upserts

	// The loser proceeds to idempotent grading instead of failing.
	if err := f.svc.SettleExpired(context.Background(), res.Attempt); err != nil {
		t.Fatalf("second SettleExpired: %v", err)
	}
	if f.results.upserts != upsertsAfterFirst+1 {
		t.Errorf("expected the losing settle to re-run the idempotent grade")
	}
}
