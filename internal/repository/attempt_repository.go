package repository

import (
	"context"
	"fmt"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

// Create inserts a new in-progress attempt. The partial unique index on
// (assignment_id, student_id) WHERE status = 'in_progress' makes concurrent
// opens race-safe: the loser gets pgx.ErrNoRows and should refetch the
// existing attempt.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO attempts (assignment_id, student_id, exam_id, max_score,
		                       status, origin_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (assignment_id, student_id) WHERE status = 'in_progress'
		 DO NOTHING
		 RETURNING id, started_at`,
		a.AssignmentID, a.StudentID, a.ExamID, a.MaxScore,
		model.AttemptStatusInProgress, a.OriginAddress, a.UserAgent,
	).Scan(&a.ID, &a.StartedAt)
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assignment_id, student_id, exam_id, started_at, completed_at,
		        score, max_score, percentage, passed, status,
		        origin_address, user_agent
		 FROM attempts WHERE id = $1`, id,
	).Scan(&a.ID, &a.AssignmentID, &a.StudentID, &a.ExamID, &a.StartedAt, &a.CompletedAt,
		&a.Score, &a.MaxScore, &a.Percentage, &a.Passed, &a.Status,
		&a.OriginAddress, &a.UserAgent)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetInProgress retrieves the open attempt for an (assignment, student) pair.
func (r *AttemptRepository) GetInProgress(ctx context.Context, assignmentID uuid.UUID, studentID int) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, assignment_id, student_id, exam_id, started_at, completed_at,
		        score, max_score, percentage, passed, status,
		        origin_address, user_agent
		 FROM attempts
		 WHERE assignment_id = $1 AND student_id = $2 AND status = $3`,
		assignmentID, studentID, model.AttemptStatusInProgress,
	).Scan(&a.ID, &a.AssignmentID, &a.StudentID, &a.ExamID, &a.StartedAt, &a.CompletedAt,
		&a.Score, &a.MaxScore, &a.Percentage, &a.Passed, &a.Status,
		&a.OriginAddress, &a.UserAgent)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Finalize persists the attempt result and flips the parent assignment in
// one transaction, so no partial completion is ever visible. Only an
// in-progress attempt can be finalized; pgx.ErrNoRows signals it was not.
func (r *AttemptRepository) Finalize(ctx context.Context, attemptID, assignmentID uuid.UUID, result model.CompleteAttemptResult) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE attempts
			 SET score = $1, percentage = $2, passed = $3, completed_at = $4, status = $5
			 WHERE id = $6 AND status = $7`,
			result.Score, result.Percentage, result.Passed, result.CompletedAt, result.Status,
			attemptID, model.AttemptStatusInProgress)
		if err != nil {
			return fmt.Errorf("finalize attempt: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}

		_, err = tx.Exec(ctx,
			`UPDATE assignments SET status = $1 WHERE id = $2`,
			model.AssignmentStatusCompleted, assignmentID)
		if err != nil {
			return fmt.Errorf("flip assignment status: %w", err)
		}
		return nil
	})
}

// UpdateScore rewrites the aggregate fields of an already-finalized attempt.
// Used only by manual regrades; status and completed_at stay untouched.
func (r *AttemptRepository) UpdateScore(ctx context.Context, attemptID uuid.UUID, score, percentage float64, passed bool) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE attempts SET score = $1, percentage = $2, passed = $3 WHERE id = $4`,
		score, percentage, passed, attemptID)
	return err
}
