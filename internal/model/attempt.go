package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptStatus enumerates attempt states. timed_out is produced only by the
// window sweep worker; submitted exists for schema compatibility and is never
// produced by the engine.
type AttemptStatus string

const (
	AttemptStatusInProgress AttemptStatus = "in_progress"
	AttemptStatusCompleted  AttemptStatus = "completed"
	AttemptStatusTimedOut   AttemptStatus = "timed_out"
	AttemptStatusSubmitted  AttemptStatus = "submitted"
)

// Attempt is one timed pass by a student through their assigned questions.
// MaxScore is frozen at creation from the assignment's question set and is
// never recomputed from a later exam edit.
type Attempt struct {
	ID            uuid.UUID     `json:"id"`
	AssignmentID  uuid.UUID     `json:"assignment_id"`
	StudentID     int           `json:"student_id"`
	ExamID        uuid.UUID     `json:"exam_id"`
	StartedAt     time.Time     `json:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty"`
	Score         *float64      `json:"score,omitempty"`
	MaxScore      float64       `json:"max_score"`
	Percentage    *float64      `json:"percentage,omitempty"`
	Passed        *bool         `json:"passed,omitempty"`
	Status        AttemptStatus `json:"status"`
	OriginAddress string        `json:"origin_address,omitempty"`
	UserAgent     string        `json:"user_agent,omitempty"`
}

// AttemptMetadata captures client metadata recorded when an attempt opens.
type AttemptMetadata struct {
	OriginAddress string
	UserAgent     string
}

// CompleteAttemptResult is the exact set of fields persisted when an attempt
// is finalized. Nothing outside this payload may be written.
type CompleteAttemptResult struct {
	Score       float64
	Percentage  float64
	Passed      bool
	CompletedAt time.Time
	Status      AttemptStatus
}

// AttemptState is the live view of an in-progress attempt: remaining seconds
// against the effective duration plus the already-answered question ids.
type AttemptState struct {
	AttemptID           uuid.UUID     `json:"attempt_id"`
	Status              AttemptStatus `json:"status"`
	RemainingSeconds    float64       `json:"remaining_seconds"`
	AnsweredQuestionIDs []uuid.UUID   `json:"answered_question_ids"`
}
