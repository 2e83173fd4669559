package service

import (
	"context"
	"fmt"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/edukita/examly-backend/internal/repository"
	"github.com/google/uuid"
)

// QuestionService handles the authoring-adjacent question operations.
type QuestionService struct {
	examStore     ExamStore
	questionStore QuestionStore
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(examStore ExamStore, questionStore QuestionStore) *QuestionService {
	return &QuestionService{examStore: examStore, questionStore: questionStore}
}

// AddQuestion adds a question to an exam. Existing attempts are unaffected:
// their question sets and max scores were frozen at creation.
func (s *QuestionService) AddQuestion(ctx context.Context, examID uuid.UUID, req *model.AddQuestionRequest) (*model.Question, error) {
	if _, err := s.examStore.GetByID(ctx, examID); err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("exam %s not found", examID)
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	qType := model.QuestionType(req.Type)
	switch qType {
	case model.QuestionTypeMultipleChoice:
		if len(req.Answers) == 0 {
			return nil, ValidationError("multiple choice question needs at least one answer option")
		}
		hasCorrect := false
		for i := range req.Answers {
			if req.Answers[i].IsCorrect {
				hasCorrect = true
				break
			}
		}
		if !hasCorrect {
			return nil, ValidationError("multiple choice question needs at least one correct option")
		}
		if req.CorrectAnswer != "" {
			return nil, ValidationError("multiple choice question does not take a correct answer text")
		}
	case model.QuestionTypeShortAnswer, model.QuestionTypeFillInBlank:
		if req.CorrectAnswer == "" {
			return nil, ValidationError("%s question needs a correct answer", qType)
		}
		if len(req.Answers) > 0 {
			return nil, ValidationError("%s question does not take answer options", qType)
		}
	default:
		return nil, ValidationError("unknown question type %q", req.Type)
	}

	q := &model.Question{
		ExamID:            examID,
		Text:              req.Text,
		Type:              qType,
		Points:            req.Points,
		OrderNum:          req.OrderNum,
		CorrectAnswer:     req.CorrectAnswer,
		CaseSensitive:     req.CaseSensitive,
		AllowPartialMatch: req.AllowPartialMatch,
	}
	for i := range req.Answers {
		q.Answers = append(q.Answers, model.Answer{
			Text:      req.Answers[i].Text,
			IsCorrect: req.Answers[i].IsCorrect,
		})
	}

	if err := s.questionStore.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}
