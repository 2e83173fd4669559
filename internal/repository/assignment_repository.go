package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AssignmentWithQuestions bundles an assignment with its question set for
// atomic batch creation.
type AssignmentWithQuestions struct {
	Assignment *model.Assignment
	Questions  []model.QuestionAssignment
}

// AssignmentRepository handles assignment and question-assignment data access.
type AssignmentRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRepository creates a new AssignmentRepository.
func NewAssignmentRepository(pool *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{pool: pool}
}

// GetByID retrieves an assignment by its UUID.
func (r *AssignmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, assigned_by_id,
		        custom_start_at, custom_end_at, custom_duration_minutes,
		        status, created_at
		 FROM assignments WHERE id = $1`, id,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.AssignedByID,
		&a.CustomStartAt, &a.CustomEndAt, &a.CustomDurationMinutes,
		&a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// GetByExamAndStudent retrieves the assignment for an (exam, student) pair.
func (r *AssignmentRepository) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Assignment, error) {
	a := &model.Assignment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, assigned_by_id,
		        custom_start_at, custom_end_at, custom_duration_minutes,
		        status, created_at
		 FROM assignments WHERE exam_id = $1 AND student_id = $2`, examID, studentID,
	).Scan(&a.ID, &a.ExamID, &a.StudentID, &a.AssignedByID,
		&a.CustomStartAt, &a.CustomEndAt, &a.CustomDurationMinutes,
		&a.Status, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// CreateBatch inserts every assignment and its question-assignments in one
// transaction. Any failure rolls the whole batch back so a partial
// distribution is never observable.
func (r *AssignmentRepository) CreateBatch(ctx context.Context, items []AssignmentWithQuestions) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, item := range items {
			a := item.Assignment
			err := tx.QueryRow(ctx,
				`INSERT INTO assignments (exam_id, student_id, assigned_by_id,
				                          custom_start_at, custom_end_at,
				                          custom_duration_minutes, status)
				 VALUES ($1, $2, $3, $4, $5, $6, $7)
				 RETURNING id, created_at`,
				a.ExamID, a.StudentID, a.AssignedByID,
				a.CustomStartAt, a.CustomEndAt, a.CustomDurationMinutes, a.Status,
			).Scan(&a.ID, &a.CreatedAt)
			if err != nil {
				return fmt.Errorf("insert assignment for student %d: %w", a.StudentID, err)
			}

			for i := range item.Questions {
				qa := &item.Questions[i]
				qa.AssignmentID = a.ID
				err := tx.QueryRow(ctx,
					`INSERT INTO question_assignments (assignment_id, question_id, order_num, custom_points)
					 VALUES ($1, $2, $3, $4)
					 RETURNING id`,
					qa.AssignmentID, qa.QuestionID, qa.OrderNum, qa.CustomPoints,
				).Scan(&qa.ID)
				if err != nil {
					return fmt.Errorf("insert question assignment: %w", err)
				}
			}
		}
		return nil
	})
}

// ListQuestionAssignments retrieves an assignment's question set in order.
func (r *AssignmentRepository) ListQuestionAssignments(ctx context.Context, assignmentID uuid.UUID) ([]model.QuestionAssignment, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, assignment_id, question_id, order_num, custom_points
		 FROM question_assignments
		 WHERE assignment_id = $1
		 ORDER BY order_num`, assignmentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var qas []model.QuestionAssignment
	for rows.Next() {
		var qa model.QuestionAssignment
		if err := rows.Scan(&qa.ID, &qa.AssignmentID, &qa.QuestionID, &qa.OrderNum, &qa.CustomPoints); err != nil {
			return nil, err
		}
		qas = append(qas, qa)
	}
	return qas, rows.Err()
}

// MarkStarted moves an assignment from assigned to started. The status guard
// keeps the lifecycle monotonic: an assignment that already reached completed
// or missed is left untouched.
func (r *AssignmentRepository) MarkStarted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE assignments SET status = $1 WHERE id = $2 AND status = $3`,
		model.AssignmentStatusStarted, id, model.AssignmentStatusAssigned)
	return err
}

// ListAssignedExams retrieves a student's assignments joined with their exam
// summary, filtered by effective window position or literal status.
func (r *AssignmentRepository) ListAssignedExams(ctx context.Context, studentID int, filter model.AssignmentListFilter, now time.Time) ([]model.AssignedExam, error) {
	query := `
		SELECT a.id, a.exam_id, a.student_id, a.assigned_by_id,
		       a.custom_start_at, a.custom_end_at, a.custom_duration_minutes,
		       a.status, a.created_at,
		       e.title,
		       COALESCE(a.custom_start_at, e.start_at) AS effective_start,
		       COALESCE(a.custom_end_at, e.end_at) AS effective_end,
		       COALESCE(a.custom_duration_minutes, e.duration_minutes) AS duration,
		       e.passing_percentage
		FROM assignments a
		JOIN exams e ON a.exam_id = e.id
		WHERE a.student_id = $1
	`
	args := []any{studentID}

	switch filter {
	case "":
		// No filter: everything.
	case model.AssignmentFilterUpcoming:
		args = append(args, now)
		query += fmt.Sprintf(" AND COALESCE(a.custom_start_at, e.start_at) > $%d", len(args))
	case model.AssignmentFilterCurrent:
		args = append(args, now)
		query += fmt.Sprintf(
			" AND COALESCE(a.custom_start_at, e.start_at) <= $%d AND COALESCE(a.custom_end_at, e.end_at) >= $%d",
			len(args), len(args))
	case model.AssignmentFilterPast:
		args = append(args, now)
		query += fmt.Sprintf(" AND COALESCE(a.custom_end_at, e.end_at) < $%d", len(args))
	default:
		args = append(args, string(filter))
		query += fmt.Sprintf(" AND a.status = $%d", len(args))
	}

	query += " ORDER BY COALESCE(a.custom_start_at, e.start_at) NULLS LAST, a.created_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AssignedExam
	for rows.Next() {
		var ae model.AssignedExam
		if err := rows.Scan(&ae.ID, &ae.ExamID, &ae.StudentID, &ae.AssignedByID,
			&ae.CustomStartAt, &ae.CustomEndAt, &ae.CustomDurationMinutes,
			&ae.Status, &ae.CreatedAt,
			&ae.ExamTitle, &ae.EffectiveStartAt, &ae.EffectiveEndAt,
			&ae.DurationMinutes, &ae.PassingPercentage); err != nil {
			return nil, err
		}
		out = append(out, ae)
	}
	return out, rows.Err()
}
