package model

import (
	"time"

	"github.com/google/uuid"
)

// Exam represents an exam definition from the course-authoring subsystem.
// The engine treats it as read-only catalog data: edits after attempts exist
// must never change an already-frozen attempt score.
type Exam struct {
	ID                uuid.UUID  `json:"id"`
	Title             string     `json:"title"`
	CourseID          uuid.UUID  `json:"course_id"`
	TeacherID         int        `json:"teacher_id"`
	StartAt           *time.Time `json:"start_at,omitempty"`
	EndAt             *time.Time `json:"end_at,omitempty"`
	DurationMinutes   int        `json:"duration_minutes"`
	PassingPercentage float64    `json:"passing_percentage"`
	TotalPoints       int        `json:"total_points"`
	Published         bool       `json:"published"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// EffectiveWindow resolves the start/end window for an assignment against
// this exam, preferring the assignment's custom overrides.
func (e *Exam) EffectiveWindow(a *Assignment) (start, end *time.Time) {
	start, end = e.StartAt, e.EndAt
	if a.CustomStartAt != nil {
		start = a.CustomStartAt
	}
	if a.CustomEndAt != nil {
		end = a.CustomEndAt
	}
	return start, end
}

// EffectiveDuration resolves the attempt duration for an assignment,
// preferring the assignment's custom duration.
func (e *Exam) EffectiveDuration(a *Assignment) time.Duration {
	minutes := e.DurationMinutes
	if a.CustomDurationMinutes != nil {
		minutes = *a.CustomDurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}
