package model

import (
	"github.com/google/uuid"
)

// QuestionType enumerates the supported question kinds.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeFillInBlank    QuestionType = "fill_in_blank"
)

// Question belongs to an exam. For multiple_choice the Answers slice carries
// the options; for the text types CorrectAnswer plus the matching flags apply.
type Question struct {
	ID                uuid.UUID    `json:"id"`
	ExamID            uuid.UUID    `json:"exam_id"`
	Text              string       `json:"text"`
	Type              QuestionType `json:"type"`
	Points            int          `json:"points"`
	OrderNum          int          `json:"order_num"`
	CorrectAnswer     string       `json:"correct_answer,omitempty"`
	CaseSensitive     bool         `json:"case_sensitive"`
	AllowPartialMatch bool         `json:"allow_partial_match"`
	Answers           []Answer     `json:"answers,omitempty"`
}

// Answer is one selectable option of a multiple_choice question.
type Answer struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Text       string    `json:"text"`
	IsCorrect  bool      `json:"is_correct"`
}

// AddQuestionRequest is the payload for adding a question to an exam.
type AddQuestionRequest struct {
	Text              string             `json:"text" binding:"required,min=1,max=2000"`
	Type              string             `json:"type" binding:"required,oneof=multiple_choice short_answer fill_in_blank"`
	Points            int                `json:"points" binding:"required,min=1"`
	OrderNum          int                `json:"order_num" binding:"min=0"`
	CorrectAnswer     string             `json:"correct_answer" binding:"omitempty,max=2000"`
	CaseSensitive     bool               `json:"case_sensitive"`
	AllowPartialMatch bool               `json:"allow_partial_match"`
	Answers           []AddAnswerRequest `json:"answers" binding:"omitempty,dive"`
}

// AddAnswerRequest is one option of a multiple_choice AddQuestionRequest.
type AddAnswerRequest struct {
	Text      string `json:"text" binding:"required,min=1,max=2000"`
	IsCorrect bool   `json:"is_correct"`
}
