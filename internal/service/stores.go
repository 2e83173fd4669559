package service

import (
	"context"
	"time"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/edukita/examly-backend/internal/repository"
	"github.com/google/uuid"
)

// Per-entity store interfaces consumed by the engine services. The pgx
// repositories satisfy them in production; tests substitute in-memory fakes.
// Not-found is signalled with pgx.ErrNoRows (see repository.IsNoRows).

// ExamStore reads the exam catalog.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// QuestionStore reads and creates questions with their answer options.
type QuestionStore interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	Create(ctx context.Context, q *model.Question) error
}

// AssignmentStore persists assignments and their question sets.
type AssignmentStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error)
	GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Assignment, error)
	CreateBatch(ctx context.Context, items []repository.AssignmentWithQuestions) error
	ListQuestionAssignments(ctx context.Context, assignmentID uuid.UUID) ([]model.QuestionAssignment, error)
	MarkStarted(ctx context.Context, id uuid.UUID) error
	ListAssignedExams(ctx context.Context, studentID int, filter model.AssignmentListFilter, now time.Time) ([]model.AssignedExam, error)
}

// AttemptStore persists attempts.
type AttemptStore interface {
	Create(ctx context.Context, a *model.Attempt) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetInProgress(ctx context.Context, assignmentID uuid.UUID, studentID int) (*model.Attempt, error)
	Finalize(ctx context.Context, attemptID, assignmentID uuid.UUID, result model.CompleteAttemptResult) error
	UpdateScore(ctx context.Context, attemptID uuid.UUID, score, percentage float64, passed bool) error
}

// ResponseStore persists graded responses.
type ResponseStore interface {
	Upsert(ctx context.Context, resp *model.Response) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Response, error)
	ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error)
	UpdateGrade(ctx context.Context, id uuid.UUID, isCorrect bool, scoreAwarded float64, gradedByID int, notes string, gradedAt time.Time) error
}
