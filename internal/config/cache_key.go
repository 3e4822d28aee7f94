package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptStartKey returns the cache key for an attempt's start timestamp.
// The attempt row in PostgreSQL stays the source of truth; this key only
// speeds up the remaining-time read path.
func (r *CacheKeyStruct) AttemptStartKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:started_at", attemptID)
}

// ExamDurationKey returns the cache key for an exam's duration in minutes.
func (r *CacheKeyStruct) ExamDurationKey(examID string) string {
	return fmt.Sprintf("exam:%s:duration", examID)
}

// StudentActiveAttemptKey returns the cache key mapping a student's open
// attempt for an exam.
func (r *CacheKeyStruct) StudentActiveAttemptKey(examID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:active_attempt", studentID, examID)
}

var CacheKey = NewCacheKeyStruct()
