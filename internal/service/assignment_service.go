package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edukita/examly-backend/internal/model"
	"github.com/edukita/examly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AssignmentService is the distributor: it materializes one assignment per
// (exam, student) pair plus the student's effective question set.
type AssignmentService struct {
	examStore       ExamStore
	questionStore   QuestionStore
	assignmentStore AssignmentStore
	log             zerolog.Logger
	now             func() time.Time
}

// NewAssignmentService creates a new AssignmentService.
func NewAssignmentService(
	examStore ExamStore,
	questionStore QuestionStore,
	assignmentStore AssignmentStore,
	log zerolog.Logger,
) *AssignmentService {
	return &AssignmentService{
		examStore:       examStore,
		questionStore:   questionStore,
		assignmentStore: assignmentStore,
		log:             log.With().Str("component", "assignment_service").Logger(),
		now:             time.Now,
	}
}

// AssignExam distributes a published exam to a batch of students. The whole
// batch is one transaction: a single failure (unknown question id, duplicate
// student) rolls everything back.
func (s *AssignmentService) AssignExam(ctx context.Context, examID uuid.UUID, assignedByID int, req *model.AssignExamRequest) ([]repository.AssignmentWithQuestions, error) {
	exam, err := s.examStore.GetByID(ctx, examID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("exam %s not found", examID)
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if !exam.Published {
		return nil, InvalidStateError("exam %s is not published", examID)
	}

	questions, err := s.questionStore.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, ValidationError("exam %s has no questions", examID)
	}

	questionByID := make(map[uuid.UUID]*model.Question, len(questions))
	for i := range questions {
		questionByID[questions[i].ID] = &questions[i]
	}

	items := make([]repository.AssignmentWithQuestions, 0, len(req.StudentIDs))
	seen := make(map[int]bool, len(req.StudentIDs))

	for _, studentID := range req.StudentIDs {
		if seen[studentID] {
			return nil, ValidationError("student %d listed more than once", studentID)
		}
		seen[studentID] = true

		existing, err := s.assignmentStore.GetByExamAndStudent(ctx, examID, studentID)
		if err != nil && !repository.IsNoRows(err) {
			return nil, fmt.Errorf("check existing assignment: %w", err)
		}
		if existing != nil {
			return nil, ConflictError("student %d is already assigned to exam %s", studentID, examID)
		}

		qas, err := s.buildQuestionSet(studentID, questions, questionByID, req)
		if err != nil {
			return nil, err
		}

		items = append(items, repository.AssignmentWithQuestions{
			Assignment: &model.Assignment{
				ExamID:                examID,
				StudentID:             studentID,
				AssignedByID:          assignedByID,
				CustomStartAt:         req.CustomStartAt,
				CustomEndAt:           req.CustomEndAt,
				CustomDurationMinutes: req.CustomDurationMinutes,
				Status:                model.AssignmentStatusAssigned,
			},
			Questions: qas,
		})
	}

	if err := s.assignmentStore.CreateBatch(ctx, items); err != nil {
		if repository.IsUniqueViolation(err) {
			// Lost a race with a concurrent distribution of the same exam.
			return nil, ConflictError("assignment already exists for one of the students")
		}
		return nil, fmt.Errorf("create assignments: %w", err)
	}

	s.log.Info().
		Str("exam_id", examID.String()).
		Int("students", len(items)).
		Int("assigned_by", assignedByID).
		Msg("Exam assigned")

	return items, nil
}

// buildQuestionSet resolves the effective question set for one student: the
// custom subset in its listed order when supplied, else the exam's full
// question list in defined order. Point overrides apply per student only.
func (s *AssignmentService) buildQuestionSet(studentID int, questions []model.Question, questionByID map[uuid.UUID]*model.Question, req *model.AssignExamRequest) ([]model.QuestionAssignment, error) {
	overrides := req.CustomPoints[studentID]

	customList, hasCustom := req.StudentQuestions[studentID]
	if hasCustom {
		if len(customList) == 0 {
			return nil, ValidationError("custom question set for student %d is empty", studentID)
		}
		qas := make([]model.QuestionAssignment, 0, len(customList))
		dup := make(map[uuid.UUID]bool, len(customList))
		for i, qid := range customList {
			if _, ok := questionByID[qid]; !ok {
				return nil, ValidationError("question %s does not belong to this exam (student %d)", qid, studentID)
			}
			if dup[qid] {
				return nil, ValidationError("question %s listed more than once for student %d", qid, studentID)
			}
			dup[qid] = true
			qas = append(qas, model.QuestionAssignment{
				QuestionID:   qid,
				OrderNum:     i + 1,
				CustomPoints: pointOverride(overrides, qid),
			})
		}
		return qas, nil
	}

	qas := make([]model.QuestionAssignment, 0, len(questions))
	for i := range questions {
		qas = append(qas, model.QuestionAssignment{
			QuestionID:   questions[i].ID,
			OrderNum:     i + 1,
			CustomPoints: pointOverride(overrides, questions[i].ID),
		})
	}
	return qas, nil
}

func pointOverride(overrides map[uuid.UUID]int, qid uuid.UUID) *int {
	if overrides == nil {
		return nil
	}
	if points, ok := overrides[qid]; ok {
		return &points
	}
	return nil
}

// GetAssignment retrieves an assignment together with its question set.
func (s *AssignmentService) GetAssignment(ctx context.Context, id uuid.UUID) (*repository.AssignmentWithQuestions, error) {
	a, err := s.assignmentStore.GetByID(ctx, id)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("assignment %s not found", id)
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	qas, err := s.assignmentStore.ListQuestionAssignments(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list question assignments: %w", err)
	}
	return &repository.AssignmentWithQuestions{Assignment: a, Questions: qas}, nil
}

// ListStudentAssignments retrieves a student's assigned exams. filter is
// empty, one of upcoming|current|past (computed over the effective window),
// or a literal assignment status.
func (s *AssignmentService) ListStudentAssignments(ctx context.Context, studentID int, filter model.AssignmentListFilter) ([]model.AssignedExam, error) {
	switch filter {
	case "", model.AssignmentFilterUpcoming, model.AssignmentFilterCurrent, model.AssignmentFilterPast:
	case model.AssignmentListFilter(model.AssignmentStatusAssigned),
		model.AssignmentListFilter(model.AssignmentStatusStarted),
		model.AssignmentListFilter(model.AssignmentStatusCompleted),
		model.AssignmentListFilter(model.AssignmentStatusMissed):
	default:
		return nil, ValidationError("unknown filter %q", filter)
	}

	assigned, err := s.assignmentStore.ListAssignedExams(ctx, studentID, filter, s.now())
	if err != nil {
		return nil, fmt.Errorf("list assigned exams: %w", err)
	}
	if assigned == nil {
		assigned = []model.AssignedExam{}
	}
	return assigned, nil
}
