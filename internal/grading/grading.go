// Package grading implements the pure evaluation core: grading a single
// submitted response against a question definition, and aggregating awarded
// scores into a final verdict. No side effects, no persistence access.
package grading

import (
	"strings"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/google/uuid"
)

// Input carries the submitted response data for one question.
type Input struct {
	ChosenAnswerID *uuid.UUID
	TextResponse   *string
}

// Verdict is the grading outcome for one question. Scoring is full-or-zero
// for every question type.
type Verdict struct {
	IsCorrect    bool
	ScoreAwarded float64
}

// Grade evaluates a submitted response against a question definition and the
// effective max points for this student. Missing response data is graded
// incorrect, never left ungraded.
func Grade(q *model.Question, effectiveMax float64, in Input) Verdict {
	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		return gradeMultipleChoice(q, effectiveMax, in.ChosenAnswerID)
	case model.QuestionTypeShortAnswer, model.QuestionTypeFillInBlank:
		return gradeText(q, effectiveMax, in.TextResponse)
	default:
		return Verdict{}
	}
}

func gradeMultipleChoice(q *model.Question, effectiveMax float64, chosenID *uuid.UUID) Verdict {
	if chosenID == nil {
		return Verdict{}
	}
	for i := range q.Answers {
		if q.Answers[i].ID == *chosenID {
			if q.Answers[i].IsCorrect {
				return Verdict{IsCorrect: true, ScoreAwarded: effectiveMax}
			}
			return Verdict{}
		}
	}
	// Chosen id does not name any option of this question.
	return Verdict{}
}

func gradeText(q *model.Question, effectiveMax float64, text *string) Verdict {
	if text == nil {
		return Verdict{}
	}

	submitted := strings.TrimSpace(*text)
	correct := strings.TrimSpace(q.CorrectAnswer)
	if submitted == "" || correct == "" {
		// An empty submission must never substring-match anything.
		return Verdict{}
	}

	if !q.CaseSensitive {
		submitted = strings.ToLower(submitted)
		correct = strings.ToLower(correct)
	}

	var match bool
	if q.AllowPartialMatch {
		// Bidirectional containment. This loosens the match test only;
		// the award stays full-or-zero.
		match = strings.Contains(submitted, correct) || strings.Contains(correct, submitted)
	} else {
		match = submitted == correct
	}

	if match {
		return Verdict{IsCorrect: true, ScoreAwarded: effectiveMax}
	}
	return Verdict{}
}
