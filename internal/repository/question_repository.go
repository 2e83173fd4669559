package repository

import (
	"context"
	"fmt"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// QuestionRepository handles question and answer-option data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// ListByExam retrieves all questions for an exam in their defined order,
// with answer options attached.
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, exam_id, text, type, points, order_num,
		        correct_answer, case_sensitive, allow_partial_match
		 FROM questions WHERE exam_id = $1
		 ORDER BY order_num`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.Question
	byID := make(map[uuid.UUID]int)
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.ExamID, &q.Text, &q.Type, &q.Points, &q.OrderNum,
			&q.CorrectAnswer, &q.CaseSensitive, &q.AllowPartialMatch); err != nil {
			return nil, err
		}
		byID[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, nil
	}

	answerRows, err := r.pool.Query(ctx,
		`SELECT a.id, a.question_id, a.text, a.is_correct
		 FROM question_answers a
		 JOIN questions q ON a.question_id = q.id
		 WHERE q.exam_id = $1
		 ORDER BY a.created_at`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var a model.Answer
		if err := answerRows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, err
		}
		if i, ok := byID[a.QuestionID]; ok {
			questions[i].Answers = append(questions[i].Answers, a)
		}
	}
	return questions, answerRows.Err()
}

// GetByID retrieves a single question with its answer options.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, text, type, points, order_num,
		        correct_answer, case_sensitive, allow_partial_match
		 FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.ExamID, &q.Text, &q.Type, &q.Points, &q.OrderNum,
		&q.CorrectAnswer, &q.CaseSensitive, &q.AllowPartialMatch)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, text, is_correct
		 FROM question_answers WHERE question_id = $1
		 ORDER BY created_at`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.Text, &a.IsCorrect); err != nil {
			return nil, err
		}
		q.Answers = append(q.Answers, a)
	}
	return q, rows.Err()
}

// Create inserts a question with its answer options and bumps the exam's
// total points, all in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO questions (exam_id, text, type, points, order_num,
			                        correct_answer, case_sensitive, allow_partial_match)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			q.ExamID, q.Text, q.Type, q.Points, q.OrderNum,
			q.CorrectAnswer, q.CaseSensitive, q.AllowPartialMatch,
		).Scan(&q.ID)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}

		for i := range q.Answers {
			q.Answers[i].QuestionID = q.ID
			err := tx.QueryRow(ctx,
				`INSERT INTO question_answers (question_id, text, is_correct)
				 VALUES ($1, $2, $3)
				 RETURNING id`,
				q.ID, q.Answers[i].Text, q.Answers[i].IsCorrect,
			).Scan(&q.Answers[i].ID)
			if err != nil {
				return fmt.Errorf("insert answer: %w", err)
			}
		}

		_, err = tx.Exec(ctx,
			`UPDATE exams SET total_points = total_points + $1, updated_at = NOW()
			 WHERE id = $2`,
			q.Points, q.ExamID)
		if err != nil {
			return fmt.Errorf("bump exam total points: %w", err)
		}
		return nil
	})
}
