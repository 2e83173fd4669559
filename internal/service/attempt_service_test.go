package service

import (
	"context"
	"testing"
	"time"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type testEngine struct {
	store       *fakeStore
	assignments *AssignmentService
	attempts    *AttemptService
	questions   *QuestionService
}

func newTestEngine() *testEngine {
	f := newFakeStore()
	log := zerolog.Nop()
	return &testEngine{
		store:       f,
		assignments: NewAssignmentService(f, fakeQuestionStore{f}, fakeAssignmentStore{f}, log),
		attempts:    NewAttemptService(f, fakeQuestionStore{f}, fakeAssignmentStore{f}, fakeAttemptStore{f}, fakeResponseStore{f}, nil, log),
		questions:   NewQuestionService(f, fakeQuestionStore{f}),
	}
}

// seedGeographyExam seeds a published exam with an open window, a 50-point
// multiple choice question and a 50-point case-insensitive short answer.
func (e *testEngine) seedGeographyExam() (*model.Exam, *model.Question, *model.Question) {
	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	exam := e.store.seedExam(&model.Exam{
		Title:             "Geography Final",
		CourseID:          uuid.New(),
		TeacherID:         3,
		StartAt:           &start,
		EndAt:             &end,
		DurationMinutes:   60,
		PassingPercentage: 60,
		TotalPoints:       100,
		Published:         true,
	})
	q1 := e.store.seedQuestion(&model.Question{
		ExamID:   exam.ID,
		Text:     "What is the capital of France?",
		Type:     model.QuestionTypeMultipleChoice,
		Points:   50,
		OrderNum: 1,
		Answers: []model.Answer{
			{Text: "Paris", IsCorrect: true},
			{Text: "London"},
			{Text: "Berlin"},
		},
	})
	q2 := e.store.seedQuestion(&model.Question{
		ExamID:        exam.ID,
		Text:          "Which city hosts the Louvre?",
		Type:          model.QuestionTypeShortAnswer,
		Points:        50,
		OrderNum:      2,
		CorrectAnswer: "Paris",
		CaseSensitive: false,
	})
	return exam, q1, q2
}

func (e *testEngine) assign(t *testing.T, examID uuid.UUID, studentID int, req *model.AssignExamRequest) *model.Assignment {
	t.Helper()
	if req == nil {
		req = &model.AssignExamRequest{StudentIDs: []int{studentID}}
	}
	items, err := e.assignments.AssignExam(context.Background(), examID, 3, req)
	if err != nil {
		t.Fatalf("AssignExam: %v", err)
	}
	for _, item := range items {
		if item.Assignment.StudentID == studentID {
			return item.Assignment
		}
	}
	t.Fatalf("no assignment created for student %d", studentID)
	return nil
}

func correctAnswerID(t *testing.T, q *model.Question) uuid.UUID {
	t.Helper()
	for i := range q.Answers {
		if q.Answers[i].IsCorrect {
			return q.Answers[i].ID
		}
	}
	t.Fatalf("question %s has no correct answer option", q.ID)
	return uuid.UUID{}
}

func wrongAnswerID(t *testing.T, q *model.Question) uuid.UUID {
	t.Helper()
	for i := range q.Answers {
		if !q.Answers[i].IsCorrect {
			return q.Answers[i].ID
		}
	}
	t.Fatalf("question %s has no wrong answer option", q.ID)
	return uuid.UUID{}
}

func strPtr(s string) *string { return &s }

func TestStartAttempt_Idempotent(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	first, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("first start: %v", err)
	}
	second, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("second start: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("second start returned a different attempt: %s vs %s", first.ID, second.ID)
	}
	if !first.StartedAt.Equal(second.StartedAt) {
		t.Errorf("second start changed started_at: %v vs %v", first.StartedAt, second.StartedAt)
	}
	if got := len(e.store.attempts); got != 1 {
		t.Errorf("expected exactly one attempt in store, got %d", got)
	}
	if first.MaxScore != 100 {
		t.Errorf("max score = %v, want 100", first.MaxScore)
	}
	if first.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s, want in_progress", first.Status)
	}

	if got := e.store.assignments[assignment.ID].Status; got != model.AssignmentStatusStarted {
		t.Errorf("assignment status = %s, want started", got)
	}
}

func TestStartAttempt_WindowEnforcement(t *testing.T) {
	tests := []struct {
		name    string
		at      func(exam *model.Exam) time.Time
		wantErr bool
	}{
		{"before window opens", func(e *model.Exam) time.Time { return e.StartAt.Add(-time.Minute) }, true},
		{"exactly at open", func(e *model.Exam) time.Time { return *e.StartAt }, false},
		{"inside window", func(e *model.Exam) time.Time { return e.StartAt.Add(time.Minute) }, false},
		{"exactly at close", func(e *model.Exam) time.Time { return *e.EndAt }, false},
		{"after window closes", func(e *model.Exam) time.Time { return e.EndAt.Add(time.Minute) }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine()
			exam, _, _ := e.seedGeographyExam()
			assignment := e.assign(t, exam.ID, 7, nil)
			e.attempts.now = func() time.Time { return tt.at(exam) }

			_, err := e.attempts.StartAttempt(context.Background(), assignment.ID, 7, model.AttemptMetadata{})
			if tt.wantErr {
				if !IsKind(err, KindInvalidState) {
					t.Fatalf("expected invalid-state error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("StartAttempt: %v", err)
			}
		})
	}
}

func TestStartAttempt_CustomWindowOverridesExam(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	ctx := context.Background()

	// Extend this student's window past the exam-level close.
	customEnd := exam.EndAt.Add(2 * time.Hour)
	assignment := e.assign(t, exam.ID, 7, &model.AssignExamRequest{
		StudentIDs:  []int{7},
		CustomEndAt: &customEnd,
	})

	e.attempts.now = func() time.Time { return exam.EndAt.Add(time.Hour) }
	if _, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{}); err != nil {
		t.Fatalf("start within extended window: %v", err)
	}
}

func TestStartAttempt_WrongStudent(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)

	_, err := e.attempts.StartAttempt(context.Background(), assignment.ID, 99, model.AttemptMetadata{})
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not-found error for foreign student, got %v", err)
	}
}

func TestStartAttempt_UnknownAssignment(t *testing.T) {
	e := newTestEngine()
	e.seedGeographyExam()

	_, err := e.attempts.StartAttempt(context.Background(), uuid.New(), 7, model.AttemptMetadata{})
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

// A completed assignment is terminal: starting again must not open a fresh
// attempt or drag the assignment back to started.
func TestStartAttempt_AfterCompletionRejected(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if _, err := e.attempts.CompleteAttempt(ctx, attempt.ID); err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}

	_, err = e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if !IsKind(err, KindInvalidState) {
		t.Fatalf("expected invalid-state error on restart, got %v", err)
	}
	if got := len(e.store.attempts); got != 1 {
		t.Errorf("restart created a new attempt, store has %d", got)
	}
	if got := e.store.assignments[assignment.ID].Status; got != model.AssignmentStatusCompleted {
		t.Errorf("assignment status = %s, want completed", got)
	}
}

func TestStartAttempt_MissedAssignmentRejected(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	e.store.assignments[assignment.ID].Status = model.AssignmentStatusMissed

	_, err := e.attempts.StartAttempt(context.Background(), assignment.ID, 7, model.AttemptMetadata{})
	if !IsKind(err, KindInvalidState) {
		t.Fatalf("expected invalid-state error for a missed assignment, got %v", err)
	}
}

// A full pass: correct choice plus a case-insensitive text answer with
// surrounding whitespace scores 100/100 and passes.
func TestAttemptLifecycle_FullMarks(t *testing.T) {
	e := newTestEngine()
	exam, q1, q2 := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	chosen := correctAnswerID(t, q1)
	r1, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if !r1.IsCorrect || r1.ScoreAwarded != 50 {
		t.Errorf("q1 verdict = (%v, %v), want (true, 50)", r1.IsCorrect, r1.ScoreAwarded)
	}

	r2, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:   q2.ID,
		TextResponse: strPtr("  PARIS "),
	})
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if !r2.IsCorrect || r2.ScoreAwarded != 50 {
		t.Errorf("q2 verdict = (%v, %v), want (true, 50)", r2.IsCorrect, r2.ScoreAwarded)
	}

	done, err := e.attempts.CompleteAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if *done.Score != 100 || *done.Percentage != 100 {
		t.Errorf("final = %v/%v%%, want 100/100%%", *done.Score, *done.Percentage)
	}
	if !*done.Passed {
		t.Error("expected attempt to pass")
	}
	if done.Status != model.AttemptStatusCompleted {
		t.Errorf("status = %s, want completed", done.Status)
	}
	if e.store.assignments[assignment.ID].Status != model.AssignmentStatusCompleted {
		t.Errorf("assignment status = %s, want completed", e.store.assignments[assignment.ID].Status)
	}
}

// A wrong choice and an unanswered question aggregate to zero and fail.
func TestAttemptLifecycle_WrongAndUnanswered(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	chosen := wrongAnswerID(t, q1)
	r1, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if r1.IsCorrect || r1.ScoreAwarded != 0 {
		t.Errorf("q1 verdict = (%v, %v), want (false, 0)", r1.IsCorrect, r1.ScoreAwarded)
	}

	done, err := e.attempts.CompleteAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if *done.Score != 0 || *done.Percentage != 0 {
		t.Errorf("final = %v/%v%%, want 0/0%%", *done.Score, *done.Percentage)
	}
	if *done.Passed {
		t.Error("expected attempt to fail")
	}
	if done.MaxScore != 100 {
		t.Errorf("max score = %v, want 100", done.MaxScore)
	}
}

// A custom question subset freezes a smaller max score, and questions outside
// the subset are not answerable.
func TestAttemptLifecycle_CustomSubset(t *testing.T) {
	e := newTestEngine()
	exam, q1, q2 := e.seedGeographyExam()
	ctx := context.Background()

	assignment := e.assign(t, exam.ID, 7, &model.AssignExamRequest{
		StudentIDs:       []int{7},
		StudentQuestions: map[int][]uuid.UUID{7: {q1.ID}},
	})

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if attempt.MaxScore != 50 {
		t.Errorf("max score = %v, want 50", attempt.MaxScore)
	}

	_, err = e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:   q2.ID,
		TextResponse: strPtr("Paris"),
	})
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not-found for question outside the subset, got %v", err)
	}

	chosen := correctAnswerID(t, q1)
	if _, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	}); err != nil {
		t.Fatalf("submit q1: %v", err)
	}

	done, err := e.attempts.CompleteAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if *done.Score != 50 || *done.Percentage != 100 {
		t.Errorf("final = %v/%v%%, want 50/100%%", *done.Score, *done.Percentage)
	}
	if !*done.Passed {
		t.Error("expected attempt to pass")
	}
}

func TestCompleteAttempt_BoundaryPercentagePasses(t *testing.T) {
	e := newTestEngine()
	exam, q1, q2 := e.seedGeographyExam()
	ctx := context.Background()

	// Point overrides put a lone correct answer exactly on the passing line.
	assignment := e.assign(t, exam.ID, 7, &model.AssignExamRequest{
		StudentIDs:   []int{7},
		CustomPoints: map[int]map[uuid.UUID]int{7: {q1.ID: 60, q2.ID: 40}},
	})

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if attempt.MaxScore != 100 {
		t.Fatalf("max score = %v, want 100", attempt.MaxScore)
	}

	chosen := correctAnswerID(t, q1)
	r1, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	if r1.ScoreAwarded != 60 {
		t.Errorf("overridden award = %v, want 60", r1.ScoreAwarded)
	}

	done, err := e.attempts.CompleteAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if *done.Percentage != 60 {
		t.Errorf("percentage = %v, want 60", *done.Percentage)
	}
	if !*done.Passed {
		t.Error("exactly the passing percentage must pass")
	}
}

func TestSubmitResponse_ResubmissionOverwrites(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	wrong := wrongAnswerID(t, q1)
	first, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &wrong,
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	right := correctAnswerID(t, q1)
	second, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &right,
	})
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("resubmission created a new response: %s vs %s", first.ID, second.ID)
	}
	if got := len(e.store.responses); got != 1 {
		t.Errorf("expected one response row, got %d", got)
	}

	done, err := e.attempts.CompleteAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if *done.Score != 50 {
		t.Errorf("final score counted a stale response: %v, want 50", *done.Score)
	}
}

func TestSubmitResponse_ShapeMismatch(t *testing.T) {
	e := newTestEngine()
	exam, q1, q2 := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	_, err = e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:   q1.ID,
		TextResponse: strPtr("Paris"),
	})
	if !IsKind(err, KindValidation) {
		t.Errorf("text on a multiple choice question: got %v, want validation error", err)
	}

	chosen := correctAnswerID(t, q1)
	_, err = e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q2.ID,
		ChosenAnswerID: &chosen,
	})
	if !IsKind(err, KindValidation) {
		t.Errorf("choice on a short answer question: got %v, want validation error", err)
	}
}

func TestSubmitResponse_AfterCompletion(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if _, err := e.attempts.CompleteAttempt(ctx, attempt.ID); err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}

	chosen := correctAnswerID(t, q1)
	_, err = e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if !IsKind(err, KindInvalidState) {
		t.Fatalf("expected invalid-state error after completion, got %v", err)
	}
}

// An in-progress attempt that the sweep has not reached yet still rejects
// submissions once the window has closed.
func TestSubmitResponse_AfterWindowCloses(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	e.attempts.now = func() time.Time { return exam.EndAt.Add(2 * time.Hour) }

	chosen := correctAnswerID(t, q1)
	_, err = e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if !IsKind(err, KindInvalidState) {
		t.Fatalf("expected invalid-state error past the window close, got %v", err)
	}
	if got := len(e.store.responses); got != 0 {
		t.Errorf("late submission was stored, %d responses in store", got)
	}
}

func TestSubmitResponse_AfterDurationExpires(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	ctx := context.Background()

	// A window well past the 60-minute duration, so only the per-attempt
	// deadline can reject.
	customEnd := exam.EndAt.Add(3 * time.Hour)
	assignment := e.assign(t, exam.ID, 7, &model.AssignExamRequest{
		StudentIDs:  []int{7},
		CustomEndAt: &customEnd,
	})

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	e.attempts.now = func() time.Time { return attempt.StartedAt.Add(90 * time.Minute) }

	chosen := correctAnswerID(t, q1)
	_, err = e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if !IsKind(err, KindInvalidState) {
		t.Fatalf("expected invalid-state error past the attempt deadline, got %v", err)
	}
}

func TestCompleteAttempt_Twice(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	if _, err := e.attempts.CompleteAttempt(ctx, attempt.ID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	_, err = e.attempts.CompleteAttempt(ctx, attempt.ID)
	if !IsKind(err, KindInvalidState) {
		t.Fatalf("expected invalid-state error on double completion, got %v", err)
	}
}

// Questions added to the exam after an attempt opened do not change its
// frozen max score and are not part of its question set.
func TestAttempt_MaxScoreFrozenAgainstExamEdits(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	added, err := e.questions.AddQuestion(ctx, exam.ID, &model.AddQuestionRequest{
		Text:          "Name any French department.",
		Type:          string(model.QuestionTypeShortAnswer),
		Points:        25,
		OrderNum:      3,
		CorrectAnswer: "Var",
	})
	if err != nil {
		t.Fatalf("AddQuestion: %v", err)
	}

	got, err := e.store.GetByID(ctx, exam.ID)
	if err != nil {
		t.Fatalf("get exam: %v", err)
	}
	if got.TotalPoints != 125 {
		t.Errorf("exam total points = %d, want 125", got.TotalPoints)
	}

	fresh, err := fakeAttemptStore{e.store}.GetByID(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if fresh.MaxScore != 100 {
		t.Errorf("frozen max score moved to %v after exam edit", fresh.MaxScore)
	}

	_, err = e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:   added.ID,
		TextResponse: strPtr("Var"),
	})
	if !IsKind(err, KindNotFound) {
		t.Fatalf("expected not-found for a question added after assignment, got %v", err)
	}
}

func TestGetAttemptState(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	chosen := correctAnswerID(t, q1)
	if _, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	}); err != nil {
		t.Fatalf("submit q1: %v", err)
	}

	// Half the 60-minute duration has elapsed.
	e.attempts.now = func() time.Time { return attempt.StartedAt.Add(30 * time.Minute) }

	state, err := e.attempts.GetAttemptState(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetAttemptState: %v", err)
	}
	if state.Status != model.AttemptStatusInProgress {
		t.Errorf("status = %s, want in_progress", state.Status)
	}
	if state.RemainingSeconds != (30 * time.Minute).Seconds() {
		t.Errorf("remaining = %v, want 1800", state.RemainingSeconds)
	}
	if len(state.AnsweredQuestionIDs) != 1 || state.AnsweredQuestionIDs[0] != q1.ID {
		t.Errorf("answered = %v, want [%s]", state.AnsweredQuestionIDs, q1.ID)
	}
}

func TestGetAttemptState_PastDeadlineClampsToZero(t *testing.T) {
	e := newTestEngine()
	exam, _, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	e.attempts.now = func() time.Time { return attempt.StartedAt.Add(2 * time.Hour) }

	state, err := e.attempts.GetAttemptState(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetAttemptState: %v", err)
	}
	if state.RemainingSeconds != 0 {
		t.Errorf("remaining = %v, want 0 past the deadline", state.RemainingSeconds)
	}
}

func TestRegradeResponse_ReaggregatesCompletedAttempt(t *testing.T) {
	e := newTestEngine()
	exam, q1, q2 := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}

	chosen := correctAnswerID(t, q1)
	if _, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	}); err != nil {
		t.Fatalf("submit q1: %v", err)
	}
	// Graded wrong automatically; a teacher will accept it manually below.
	r2, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:   q2.ID,
		TextResponse: strPtr("the city of light"),
	})
	if err != nil {
		t.Fatalf("submit q2: %v", err)
	}
	if r2.IsCorrect {
		t.Fatal("expected q2 to auto-grade wrong")
	}

	done, err := e.attempts.CompleteAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("CompleteAttempt: %v", err)
	}
	if *done.Passed {
		t.Fatal("expected 50% to fail a 60% threshold")
	}

	regraded, err := e.attempts.RegradeResponse(ctx, r2.ID, 3, &model.RegradeResponseRequest{
		IsCorrect:    true,
		ScoreAwarded: 50,
		Notes:        "accepted a descriptive answer",
	})
	if err != nil {
		t.Fatalf("RegradeResponse: %v", err)
	}
	if !regraded.IsCorrect || regraded.ScoreAwarded != 50 {
		t.Errorf("regraded = (%v, %v), want (true, 50)", regraded.IsCorrect, regraded.ScoreAwarded)
	}
	if regraded.GradedByID == nil || *regraded.GradedByID != 3 {
		t.Error("regrade did not record the grader")
	}

	fresh, err := fakeAttemptStore{e.store}.GetByID(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if *fresh.Score != 100 || *fresh.Percentage != 100 {
		t.Errorf("re-aggregated = %v/%v%%, want 100/100%%", *fresh.Score, *fresh.Percentage)
	}
	if !*fresh.Passed {
		t.Error("expected the regrade to flip the attempt to passed")
	}
}

func TestRegradeResponse_ScoreAboveMaxRejected(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	chosen := wrongAnswerID(t, q1)
	resp, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}

	_, err = e.attempts.RegradeResponse(ctx, resp.ID, 3, &model.RegradeResponseRequest{
		IsCorrect:    true,
		ScoreAwarded: 80,
	})
	if !IsKind(err, KindValidation) {
		t.Fatalf("expected validation error for score above the question max, got %v", err)
	}
}

// A regrade without notes leaves grader_notes unset, including clearing the
// notes of an earlier regrade.
func TestRegradeResponse_EmptyNotesStaysAbsent(t *testing.T) {
	e := newTestEngine()
	exam, q1, _ := e.seedGeographyExam()
	assignment := e.assign(t, exam.ID, 7, nil)
	ctx := context.Background()

	attempt, err := e.attempts.StartAttempt(ctx, assignment.ID, 7, model.AttemptMetadata{})
	if err != nil {
		t.Fatalf("StartAttempt: %v", err)
	}
	chosen := wrongAnswerID(t, q1)
	resp, err := e.attempts.SubmitResponse(ctx, attempt.ID, &model.SubmitResponseRequest{
		QuestionID:     q1.ID,
		ChosenAnswerID: &chosen,
	})
	if err != nil {
		t.Fatalf("submit q1: %v", err)
	}

	first, err := e.attempts.RegradeResponse(ctx, resp.ID, 3, &model.RegradeResponseRequest{
		IsCorrect:    true,
		ScoreAwarded: 25,
		Notes:        "partial credit for working",
	})
	if err != nil {
		t.Fatalf("first regrade: %v", err)
	}
	if first.GraderNotes == nil {
		t.Fatal("expected notes to be recorded on the first regrade")
	}

	second, err := e.attempts.RegradeResponse(ctx, resp.ID, 3, &model.RegradeResponseRequest{
		IsCorrect:    false,
		ScoreAwarded: 0,
	})
	if err != nil {
		t.Fatalf("second regrade: %v", err)
	}
	if second.GraderNotes != nil {
		t.Errorf("notes survived a regrade without notes: %q", *second.GraderNotes)
	}
	if stored := e.store.responses[resp.ID]; stored.GraderNotes != nil {
		t.Errorf("stored notes = %q, want absent", *stored.GraderNotes)
	}
}
