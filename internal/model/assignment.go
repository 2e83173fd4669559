package model

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus enumerates the monotonic assignment lifecycle.
// assigned → started → completed, with missed as the parallel outcome for
// windows that elapse before any attempt starts.
type AssignmentStatus string

const (
	AssignmentStatusAssigned  AssignmentStatus = "assigned"
	AssignmentStatusStarted   AssignmentStatus = "started"
	AssignmentStatusCompleted AssignmentStatus = "completed"
	AssignmentStatusMissed    AssignmentStatus = "missed"
)

// Assignment binds one exam to one student. At most one assignment may exist
// per (exam, student) pair.
type Assignment struct {
	ID                    uuid.UUID        `json:"id"`
	ExamID                uuid.UUID        `json:"exam_id"`
	StudentID             int              `json:"student_id"`
	AssignedByID          int              `json:"assigned_by_id"`
	CustomStartAt         *time.Time       `json:"custom_start_at,omitempty"`
	CustomEndAt           *time.Time       `json:"custom_end_at,omitempty"`
	CustomDurationMinutes *int             `json:"custom_duration_minutes,omitempty"`
	Status                AssignmentStatus `json:"status"`
	CreatedAt             time.Time        `json:"created_at"`
}

// QuestionAssignment joins an assignment to a question, defining the
// student's effective question set: ordering plus an optional per-student
// point override. Rows are created atomically with the assignment and never
// mutated afterwards.
type QuestionAssignment struct {
	ID           uuid.UUID `json:"id"`
	AssignmentID uuid.UUID `json:"assignment_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	OrderNum     int       `json:"order_num"`
	CustomPoints *int      `json:"custom_points,omitempty"`
}

// EffectivePoints returns the per-student point value for the question:
// the custom override if set, else the question's base points.
func (qa *QuestionAssignment) EffectivePoints(base int) int {
	if qa.CustomPoints != nil {
		return *qa.CustomPoints
	}
	return base
}

// AssignExamRequest is the payload for distributing an exam to students.
type AssignExamRequest struct {
	StudentIDs            []int                     `json:"student_ids" binding:"required,min=1,dive,min=1"`
	CustomStartAt         *time.Time                `json:"custom_start_at" binding:"omitempty"`
	CustomEndAt           *time.Time                `json:"custom_end_at" binding:"omitempty,gtfield=CustomStartAt"`
	CustomDurationMinutes *int                      `json:"custom_duration_minutes" binding:"omitempty,min=1,max=480"`
	StudentQuestions      map[int][]uuid.UUID       `json:"student_questions" binding:"omitempty"`
	CustomPoints          map[int]map[uuid.UUID]int `json:"custom_points" binding:"omitempty"`
}

// AssignmentListFilter selects which assignments to list for a student.
// It is either one of the window filters (upcoming, current, past) or a
// literal AssignmentStatus value.
type AssignmentListFilter string

const (
	AssignmentFilterUpcoming AssignmentListFilter = "upcoming"
	AssignmentFilterCurrent  AssignmentListFilter = "current"
	AssignmentFilterPast     AssignmentListFilter = "past"
)

// AssignedExam is an assignment joined with its exam summary, as listed in
// the student portal.
type AssignedExam struct {
	Assignment
	ExamTitle         string     `json:"exam_title"`
	EffectiveStartAt  *time.Time `json:"effective_start_at,omitempty"`
	EffectiveEndAt    *time.Time `json:"effective_end_at,omitempty"`
	DurationMinutes   int        `json:"duration_minutes"`
	PassingPercentage float64    `json:"passing_percentage"`
}
