package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/edukita/examly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// fakeStore is an in-memory implementation of every store interface,
// mirroring the storage-level guarantees the pgx repositories rely on:
// pgx.ErrNoRows for misses, unique (exam, student) assignments, and the
// partial-unique in-progress attempt constraint.
type fakeStore struct {
	mu                  sync.Mutex
	exams               map[uuid.UUID]*model.Exam
	questions           map[uuid.UUID]*model.Question
	assignments         map[uuid.UUID]*model.Assignment
	questionAssignments map[uuid.UUID][]model.QuestionAssignment
	attempts            map[uuid.UUID]*model.Attempt
	responses           map[uuid.UUID]*model.Response
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		exams:               make(map[uuid.UUID]*model.Exam),
		questions:           make(map[uuid.UUID]*model.Question),
		assignments:         make(map[uuid.UUID]*model.Assignment),
		questionAssignments: make(map[uuid.UUID][]model.QuestionAssignment),
		attempts:            make(map[uuid.UUID]*model.Attempt),
		responses:           make(map[uuid.UUID]*model.Response),
	}
}

// ─── ExamStore ──────────────────────────────────────────────────────────────

func (f *fakeStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

// ─── QuestionStore ──────────────────────────────────────────────────────────

type fakeQuestionStore struct{ *fakeStore }

func (f fakeQuestionStore) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Question
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderNum < out[j].OrderNum })
	return out, nil
}

func (f fakeQuestionStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (f fakeQuestionStore) Create(ctx context.Context, q *model.Question) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = uuid.New()
	for i := range q.Answers {
		q.Answers[i].ID = uuid.New()
		q.Answers[i].QuestionID = q.ID
	}
	cp := *q
	f.questions[q.ID] = &cp
	if e, ok := f.exams[q.ExamID]; ok {
		e.TotalPoints += q.Points
	}
	return nil
}

// ─── AssignmentStore ────────────────────────────────────────────────────────

type fakeAssignmentStore struct{ *fakeStore }

func (f fakeAssignmentStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f fakeAssignmentStore) GetByExamAndStudent(ctx context.Context, examID uuid.UUID, studentID int) (*model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.assignments {
		if a.ExamID == examID && a.StudentID == studentID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f fakeAssignmentStore) CreateBatch(ctx context.Context, items []repository.AssignmentWithQuestions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range items {
		a := item.Assignment
		a.ID = uuid.New()
		a.CreatedAt = time.Now()
		cp := *a
		f.assignments[a.ID] = &cp
		qas := make([]model.QuestionAssignment, len(item.Questions))
		for i := range item.Questions {
			item.Questions[i].ID = uuid.New()
			item.Questions[i].AssignmentID = a.ID
			qas[i] = item.Questions[i]
		}
		f.questionAssignments[a.ID] = qas
	}
	return nil
}

func (f fakeAssignmentStore) ListQuestionAssignments(ctx context.Context, assignmentID uuid.UUID) ([]model.QuestionAssignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.QuestionAssignment, len(f.questionAssignments[assignmentID]))
	copy(out, f.questionAssignments[assignmentID])
	return out, nil
}

func (f fakeAssignmentStore) MarkStarted(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.assignments[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if a.Status == model.AssignmentStatusAssigned {
		a.Status = model.AssignmentStatusStarted
	}
	return nil
}

func (f fakeAssignmentStore) ListAssignedExams(ctx context.Context, studentID int, filter model.AssignmentListFilter, now time.Time) ([]model.AssignedExam, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AssignedExam
	for _, a := range f.assignments {
		if a.StudentID != studentID {
			continue
		}
		e := f.exams[a.ExamID]
		start, end := e.EffectiveWindow(a)
		switch filter {
		case "":
		case model.AssignmentFilterUpcoming:
			if start == nil || !start.After(now) {
				continue
			}
		case model.AssignmentFilterCurrent:
			if start == nil || end == nil || start.After(now) || end.Before(now) {
				continue
			}
		case model.AssignmentFilterPast:
			if end == nil || !end.Before(now) {
				continue
			}
		default:
			if a.Status != model.AssignmentStatus(filter) {
				continue
			}
		}
		duration := e.DurationMinutes
		if a.CustomDurationMinutes != nil {
			duration = *a.CustomDurationMinutes
		}
		out = append(out, model.AssignedExam{
			Assignment:        *a,
			ExamTitle:         e.Title,
			EffectiveStartAt:  start,
			EffectiveEndAt:    end,
			DurationMinutes:   duration,
			PassingPercentage: e.PassingPercentage,
		})
	}
	return out, nil
}

// ─── AttemptStore ───────────────────────────────────────────────────────────

type fakeAttemptStore struct{ *fakeStore }

func (f fakeAttemptStore) Create(ctx context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.AssignmentID == a.AssignmentID &&
			existing.StudentID == a.StudentID &&
			existing.Status == model.AttemptStatusInProgress {
			return pgx.ErrNoRows
		}
	}
	a.ID = uuid.New()
	a.StartedAt = time.Now()
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f fakeAttemptStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f fakeAttemptStore) GetInProgress(ctx context.Context, assignmentID uuid.UUID, studentID int) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.AssignmentID == assignmentID && a.StudentID == studentID && a.Status == model.AttemptStatusInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f fakeAttemptStore) Finalize(ctx context.Context, attemptID, assignmentID uuid.UUID, result model.CompleteAttemptResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok || a.Status != model.AttemptStatusInProgress {
		return pgx.ErrNoRows
	}
	a.Score = &result.Score
	a.Percentage = &result.Percentage
	a.Passed = &result.Passed
	completedAt := result.CompletedAt
	a.CompletedAt = &completedAt
	a.Status = result.Status
	if parent, ok := f.assignments[assignmentID]; ok {
		parent.Status = model.AssignmentStatusCompleted
	}
	return nil
}

func (f fakeAttemptStore) UpdateScore(ctx context.Context, attemptID uuid.UUID, score, percentage float64, passed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[attemptID]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Score = &score
	a.Percentage = &percentage
	a.Passed = &passed
	return nil
}

// ─── ResponseStore ──────────────────────────────────────────────────────────

type fakeResponseStore struct{ *fakeStore }

func (f fakeResponseStore) Upsert(ctx context.Context, resp *model.Response) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.responses {
		if existing.AttemptID == resp.AttemptID && existing.QuestionID == resp.QuestionID {
			resp.ID = existing.ID
			cp := *resp
			f.responses[existing.ID] = &cp
			return nil
		}
	}
	resp.ID = uuid.New()
	cp := *resp
	f.responses[resp.ID] = &cp
	return nil
}

func (f fakeResponseStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *r
	return &cp, nil
}

func (f fakeResponseStore) ListByAttempt(ctx context.Context, attemptID uuid.UUID) ([]model.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Response
	for _, r := range f.responses {
		if r.AttemptID == attemptID {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RespondedAt.Before(out[j].RespondedAt) })
	return out, nil
}

func (f fakeResponseStore) UpdateGrade(ctx context.Context, id uuid.UUID, isCorrect bool, scoreAwarded float64, gradedByID int, notes string, gradedAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.responses[id]
	if !ok {
		return pgx.ErrNoRows
	}
	r.IsCorrect = isCorrect
	r.ScoreAwarded = scoreAwarded
	r.GradedByID = &gradedByID
	r.GradedAt = &gradedAt
	r.GraderNotes = nil
	if notes != "" {
		r.GraderNotes = &notes
	}
	return nil
}

// seedExam inserts a published exam into the fake store.
func (f *fakeStore) seedExam(e *model.Exam) *model.Exam {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e.ID == (uuid.UUID{}) {
		e.ID = uuid.New()
	}
	f.exams[e.ID] = e
	return e
}

// seedQuestion inserts a question into the fake store.
func (f *fakeStore) seedQuestion(q *model.Question) *model.Question {
	f.mu.Lock()
	defer f.mu.Unlock()
	if q.ID == (uuid.UUID{}) {
		q.ID = uuid.New()
	}
	for i := range q.Answers {
		if q.Answers[i].ID == (uuid.UUID{}) {
			q.Answers[i].ID = uuid.New()
		}
		q.Answers[i].QuestionID = q.ID
	}
	f.questions[q.ID] = q
	return q
}
