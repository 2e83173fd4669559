package model

import (
	"time"

	"github.com/google/uuid"
)

// Response is a student's graded answer to one question within one attempt.
// Unique per (attempt, question): resubmission overwrites the prior grade.
// MaxScore snapshots the effective points at grading time. The grader fields
// are set only by a manual override.
type Response struct {
	ID             uuid.UUID  `json:"id"`
	AttemptID      uuid.UUID  `json:"attempt_id"`
	QuestionID     uuid.UUID  `json:"question_id"`
	ChosenAnswerID *uuid.UUID `json:"chosen_answer_id,omitempty"`
	TextResponse   *string    `json:"text_response,omitempty"`
	IsCorrect      bool       `json:"is_correct"`
	ScoreAwarded   float64    `json:"score_awarded"`
	MaxScore       float64    `json:"max_score"`
	GradedByID     *int       `json:"graded_by_id,omitempty"`
	GradedAt       *time.Time `json:"graded_at,omitempty"`
	GraderNotes    *string    `json:"grader_notes,omitempty"`
	RespondedAt    time.Time  `json:"responded_at"`
}

// SubmitResponseRequest is the payload for answering one question.
type SubmitResponseRequest struct {
	QuestionID     uuid.UUID  `json:"question_id" binding:"required"`
	ChosenAnswerID *uuid.UUID `json:"chosen_answer_id" binding:"omitempty"`
	TextResponse   *string    `json:"text_response" binding:"omitempty,max=10000"`
}

// RegradeResponseRequest is the payload for a manual grade override.
type RegradeResponseRequest struct {
	IsCorrect    bool    `json:"is_correct"`
	ScoreAwarded float64 `json:"score_awarded" binding:"min=0"`
	Notes        string  `json:"notes" binding:"omitempty,max=2000"`
}
