package repository

import (
	"context"
	"time"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResponseRepository handles response data access.
type ResponseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository creates a new ResponseRepository.
func NewResponseRepository(pool *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{pool: pool}
}

// Upsert writes a response keyed by (attempt_id, question_id). A resubmission
// replaces the prior grade entirely, including any manual override.
func (r *ResponseRepository) Upsert(ctx context.Context, resp *model.Response) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO responses (attempt_id, question_id, chosen_answer_id, text_response,
		                        is_correct, score_awarded, max_score, responded_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (attempt_id, question_id) DO UPDATE
		 SET chosen_answer_id = EXCLUDED.chosen_answer_id,
		     text_response    = EXCLUDED.text_response,
		     is_correct       = EXCLUDED.is_correct,
		     score_awarded    = EXCLUDED.score_awarded,
		     max_score        = EXCLUDED.max_score,
		     responded_at     = EXCLUDED.responded_at,
		     graded_by_id     = NULL,
		     graded_at        = NULL,
		     grader_notes     = NULL
		 RETURNING id`,
		resp.AttemptID, resp.QuestionID, resp.ChosenAnswerID, resp.TextResponse,
		resp.IsCorrect, resp.ScoreAwarded, resp.MaxScore, resp.RespondedAt,
	).Scan(&resp.ID)
}

// GetByID retrieves a response by its UUID.
func (r *ResponseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Response, error) {
	resp := &model.Response{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, attempt_id, question_id, chosen_answer_id, text_response,
		        is_correct, score_awarded, max_score,
		        graded_by_id, graded_at, grader_notes, responded_at
		 FROM responses WHERE id = $1`, id,
	).Scan(&resp.ID, &resp.AttemptID, &resp.QuestionID, &resp.ChosenAnswerID, &resp.TextResponse,
		&resp.IsCorrect, &resp.ScoreAwarded, &resp.MaxScore,
		&resp.GradedByID, &resp.GradedAt, &resp.GraderNotes, &resp.RespondedAt)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ListByAttempt retrieves every response of an attempt.
func (r *ResponseRepository) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, attempt_id, question_id, chosen_answer_id, text_response,
		        is_correct, score_awarded, max_score,
		        graded_by_id, graded_at, grader_notes, responded_at
		 FROM responses WHERE attempt_id = $1
		 ORDER BY responded_at`, attemptID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []model.Response
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(&resp.ID, &resp.AttemptID, &resp.QuestionID, &resp.ChosenAnswerID, &resp.TextResponse,
			&resp.IsCorrect, &resp.ScoreAwarded, &resp.MaxScore,
			&resp.GradedByID, &resp.GradedAt, &resp.GraderNotes, &resp.RespondedAt); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// UpdateGrade applies a manual grade override to a response. Absent notes are
// stored as NULL, never as an empty string.
func (r *ResponseRepository) UpdateGrade(ctx context.Context, id uuid.UUID, isCorrect bool, scoreAwarded float64, gradedByID int, notes string, gradedAt time.Time) error {
	var graderNotes *string
	if notes != "" {
		graderNotes = &notes
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE responses
		 SET is_correct = $1, score_awarded = $2,
		     graded_by_id = $3, graded_at = $4, grader_notes = $5
		 WHERE id = $6`,
		isCorrect, scoreAwarded, gradedByID, gradedAt, graderNotes, id)
	return err
}
