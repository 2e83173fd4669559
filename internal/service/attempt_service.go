package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/edukita/examly-backend/internal/config"
	"github.com/edukita/examly-backend/internal/grading"
	"github.com/edukita/examly-backend/internal/model"
	"github.com/edukita/examly-backend/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// AttemptService is the attempt manager: the state machine governing a
// student's timed pass through their assigned questions.
type AttemptService struct {
	examStore       ExamStore
	questionStore   QuestionStore
	assignmentStore AssignmentStore
	attemptStore    AttemptStore
	responseStore   ResponseStore
	rdb             *redis.Client
	log             zerolog.Logger
	now             func() time.Time
}

// NewAttemptService creates a new AttemptService. rdb may be nil in tests;
// the deadline cache is then skipped and state reads fall back to the store.
func NewAttemptService(
	examStore ExamStore,
	questionStore QuestionStore,
	assignmentStore AssignmentStore,
	attemptStore AttemptStore,
	responseStore ResponseStore,
	rdb *redis.Client,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		examStore:       examStore,
		questionStore:   questionStore,
		assignmentStore: assignmentStore,
		attemptStore:    attemptStore,
		responseStore:   responseStore,
		rdb:             rdb,
		log:             log.With().Str("component", "attempt_service").Logger(),
		now:             time.Now,
	}
}

// StartAttempt opens a timed attempt against an assignment. Starting is
// idempotent: if an in-progress attempt already exists for this
// (assignment, student) it is returned unchanged, including under a
// concurrent double-start. MaxScore is frozen here and never recomputed.
func (s *AttemptService) StartAttempt(ctx context.Context, assignmentID uuid.UUID, studentID int, meta model.AttemptMetadata) (*model.Attempt, error) {
	assignment, err := s.assignmentStore.GetByID(ctx, assignmentID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("assignment %s not found", assignmentID)
		}
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if assignment.StudentID != studentID {
		return nil, NotFoundError("assignment %s not found for student %d", assignmentID, studentID)
	}
	if assignment.Status == model.AssignmentStatusCompleted || assignment.Status == model.AssignmentStatusMissed {
		return nil, InvalidStateError("assignment is already %s", assignment.Status)
	}

	exam, err := s.examStore.GetByID(ctx, assignment.ExamID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("exam %s not found", assignment.ExamID)
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	now := s.now()
	start, end := exam.EffectiveWindow(assignment)
	if start != nil && now.Before(*start) {
		return nil, InvalidStateError("exam window has not opened yet")
	}
	if end != nil && now.After(*end) {
		return nil, InvalidStateError("exam window has already closed")
	}

	existing, err := s.attemptStore.GetInProgress(ctx, assignmentID, studentID)
	if err != nil && !repository.IsNoRows(err) {
		return nil, fmt.Errorf("check open attempt: %w", err)
	}
	if existing != nil {
		s.cacheDeadline(ctx, existing, exam, assignment)
		return existing, nil
	}

	maxScore, err := s.frozenMaxScore(ctx, assignment)
	if err != nil {
		return nil, err
	}

	attempt := &model.Attempt{
		AssignmentID:  assignmentID,
		StudentID:     studentID,
		ExamID:        assignment.ExamID,
		MaxScore:      maxScore,
		Status:        model.AttemptStatusInProgress,
		OriginAddress: meta.OriginAddress,
		UserAgent:     meta.UserAgent,
	}
	if err := s.attemptStore.Create(ctx, attempt); err != nil {
		if repository.IsNoRows(err) {
			// Concurrent start won the insert; return its attempt.
			existing, fetchErr := s.attemptStore.GetInProgress(ctx, assignmentID, studentID)
			if fetchErr != nil {
				return nil, fmt.Errorf("concurrent start detected, but fetch failed: %w", fetchErr)
			}
			return existing, nil
		}
		return nil, fmt.Errorf("create attempt: %w", err)
	}

	if err := s.assignmentStore.MarkStarted(ctx, assignmentID); err != nil {
		return nil, fmt.Errorf("flip assignment to started: %w", err)
	}

	s.cacheDeadline(ctx, attempt, exam, assignment)

	s.log.Info().
		Str("attempt_id", attempt.ID.String()).
		Str("assignment_id", assignmentID.String()).
		Int("student_id", studentID).
		Float64("max_score", maxScore).
		Msg("Attempt started")

	return attempt, nil
}

// frozenMaxScore sums the effective points over the assignment's question
// set. Computed exactly once, at attempt creation.
func (s *AttemptService) frozenMaxScore(ctx context.Context, assignment *model.Assignment) (float64, error) {
	qas, err := s.assignmentStore.ListQuestionAssignments(ctx, assignment.ID)
	if err != nil {
		return 0, fmt.Errorf("list question assignments: %w", err)
	}

	questions, err := s.questionStore.ListByExam(ctx, assignment.ExamID)
	if err != nil {
		return 0, fmt.Errorf("list questions: %w", err)
	}
	pointsByID := make(map[uuid.UUID]int, len(questions))
	for i := range questions {
		pointsByID[questions[i].ID] = questions[i].Points
	}

	total := 0
	for i := range qas {
		total += qas[i].EffectivePoints(pointsByID[qas[i].QuestionID])
	}
	return float64(total), nil
}

// GetAttempt retrieves an attempt by id.
func (s *AttemptService) GetAttempt(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attemptStore.GetByID(ctx, id)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("attempt %s not found", id)
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	return attempt, nil
}

// SubmitResponse grades and upserts one answer. Keyed by (attempt, question):
// a second submission for the same question replaces the prior grade.
func (s *AttemptService) SubmitResponse(ctx context.Context, attemptID uuid.UUID, req *model.SubmitResponseRequest) (*model.Response, error) {
	attempt, err := s.attemptStore.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("attempt %s not found", attemptID)
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, InvalidStateError("attempt is %s, not in progress", attempt.Status)
	}

	assignment, err := s.assignmentStore.GetByID(ctx, attempt.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	exam, err := s.examStore.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	// The sweep worker will flip this attempt to timed_out eventually, but a
	// submission racing it must not slip a graded answer in past the clock.
	now := s.now()
	if _, end := exam.EffectiveWindow(assignment); end != nil && now.After(*end) {
		return nil, InvalidStateError("exam window has already closed")
	}
	if now.After(attempt.StartedAt.Add(exam.EffectiveDuration(assignment))) {
		return nil, InvalidStateError("attempt time has expired")
	}

	qas, err := s.assignmentStore.ListQuestionAssignments(ctx, attempt.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("list question assignments: %w", err)
	}
	var qa *model.QuestionAssignment
	for i := range qas {
		if qas[i].QuestionID == req.QuestionID {
			qa = &qas[i]
			break
		}
	}
	if qa == nil {
		return nil, NotFoundError("question %s is not part of this attempt's assignment", req.QuestionID)
	}

	question, err := s.questionStore.GetByID(ctx, req.QuestionID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("question %s not found", req.QuestionID)
		}
		return nil, fmt.Errorf("get question: %w", err)
	}

	if err := validateResponseShape(question, req); err != nil {
		return nil, err
	}

	effectiveMax := float64(qa.EffectivePoints(question.Points))
	verdict := grading.Grade(question, effectiveMax, grading.Input{
		ChosenAnswerID: req.ChosenAnswerID,
		TextResponse:   req.TextResponse,
	})

	resp := &model.Response{
		AttemptID:      attemptID,
		QuestionID:     req.QuestionID,
		ChosenAnswerID: req.ChosenAnswerID,
		TextResponse:   req.TextResponse,
		IsCorrect:      verdict.IsCorrect,
		ScoreAwarded:   verdict.ScoreAwarded,
		MaxScore:       effectiveMax,
		RespondedAt:    now,
	}
	if err := s.responseStore.Upsert(ctx, resp); err != nil {
		return nil, fmt.Errorf("upsert response: %w", err)
	}

	return resp, nil
}

// validateResponseShape rejects response data that does not match the
// question type. Missing data is not an error: it grades to zero.
func validateResponseShape(q *model.Question, req *model.SubmitResponseRequest) error {
	switch q.Type {
	case model.QuestionTypeMultipleChoice:
		if req.TextResponse != nil {
			return ValidationError("question %s is multiple choice, text response not accepted", q.ID)
		}
	case model.QuestionTypeShortAnswer, model.QuestionTypeFillInBlank:
		if req.ChosenAnswerID != nil {
			return ValidationError("question %s expects a text response, not an answer choice", q.ID)
		}
	}
	return nil
}

// CompleteAttempt finalizes an attempt: aggregates the awarded scores
// against the frozen maximum, persists the result and flips the parent
// assignment, all in one transaction. Questions never answered contribute
// zero. This is the single point at which a score becomes final.
func (s *AttemptService) CompleteAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	attempt, err := s.attemptStore.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("attempt %s not found", attemptID)
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return nil, InvalidStateError("attempt is %s, not in progress", attempt.Status)
	}

	exam, err := s.examStore.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	responses, err := s.responseStore.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	total := 0.0
	for i := range responses {
		total += responses[i].ScoreAwarded
	}

	summary := grading.Summarize(total, attempt.MaxScore, exam.PassingPercentage)
	result := model.CompleteAttemptResult{
		Score:       summary.Score,
		Percentage:  summary.Percentage,
		Passed:      summary.Passed,
		CompletedAt: s.now(),
		Status:      model.AttemptStatusCompleted,
	}

	if err := s.attemptStore.Finalize(ctx, attemptID, attempt.AssignmentID, result); err != nil {
		if repository.IsNoRows(err) {
			// Raced with another completion or the sweep.
			return nil, InvalidStateError("attempt is no longer in progress")
		}
		return nil, fmt.Errorf("finalize attempt: %w", err)
	}

	if s.rdb != nil {
		_ = s.rdb.Del(ctx, config.CacheKey.AttemptDeadlineKey(attemptID.String())).Err()
	}

	attempt.Score = &result.Score
	attempt.Percentage = &result.Percentage
	attempt.Passed = &result.Passed
	attempt.CompletedAt = &result.CompletedAt
	attempt.Status = result.Status

	s.log.Info().
		Str("attempt_id", attemptID.String()).
		Float64("score", summary.Score).
		Float64("percentage", summary.Percentage).
		Bool("passed", summary.Passed).
		Msg("Attempt completed")

	return attempt, nil
}

// GetAttemptState reports the live state of an attempt: remaining seconds
// against the effective duration plus the already-answered question ids. The
// deadline comes from the cache when warm, with store failover and self-heal.
func (s *AttemptService) GetAttemptState(ctx context.Context, attemptID uuid.UUID) (*model.AttemptState, error) {
	attempt, err := s.attemptStore.GetByID(ctx, attemptID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("attempt %s not found", attemptID)
		}
		return nil, fmt.Errorf("get attempt: %w", err)
	}

	responses, err := s.responseStore.ListByAttempt(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	answered := make([]uuid.UUID, 0, len(responses))
	for i := range responses {
		answered = append(answered, responses[i].QuestionID)
	}

	state := &model.AttemptState{
		AttemptID:           attemptID,
		Status:              attempt.Status,
		AnsweredQuestionIDs: answered,
	}
	if attempt.Status != model.AttemptStatusInProgress {
		return state, nil
	}

	deadline, err := s.attemptDeadline(ctx, attempt)
	if err != nil {
		return nil, err
	}
	remaining := deadline.Sub(s.now())
	if remaining < 0 {
		remaining = 0
	}
	state.RemainingSeconds = remaining.Seconds()
	return state, nil
}

// attemptDeadline resolves the attempt's wall-clock deadline, preferring the
// cache and falling back to the store.
func (s *AttemptService) attemptDeadline(ctx context.Context, attempt *model.Attempt) (time.Time, error) {
	if s.rdb != nil {
		key := config.CacheKey.AttemptDeadlineKey(attempt.ID.String())
		val, err := s.rdb.Get(ctx, key).Result()
		if err == nil {
			unix, parseErr := strconv.ParseInt(val, 10, 64)
			if parseErr == nil {
				return time.Unix(unix, 0), nil
			}
		} else if err != redis.Nil {
			s.log.Warn().Err(err).Msg("deadline cache read failed, falling back to store")
		}
	}

	assignment, err := s.assignmentStore.GetByID(ctx, attempt.AssignmentID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get assignment: %w", err)
	}
	exam, err := s.examStore.GetByID(ctx, attempt.ExamID)
	if err != nil {
		return time.Time{}, fmt.Errorf("get exam: %w", err)
	}

	deadline := attempt.StartedAt.Add(exam.EffectiveDuration(assignment))

	// Self-heal the cache so the next read is fast.
	if s.rdb != nil {
		key := config.CacheKey.AttemptDeadlineKey(attempt.ID.String())
		_ = s.rdb.Set(ctx, key, deadline.Unix(), 0).Err()
	}
	return deadline, nil
}

func (s *AttemptService) cacheDeadline(ctx context.Context, attempt *model.Attempt, exam *model.Exam, assignment *model.Assignment) {
	if s.rdb == nil {
		return
	}
	deadline := attempt.StartedAt.Add(exam.EffectiveDuration(assignment))
	key := config.CacheKey.AttemptDeadlineKey(attempt.ID.String())
	if err := s.rdb.Set(ctx, key, deadline.Unix(), 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", attempt.ID.String()).Msg("failed to cache attempt deadline")
	}
}

// RegradeResponse applies a manual grade override to a response. When the
// attempt is already finalized, its totals are re-aggregated against the
// frozen max score.
func (s *AttemptService) RegradeResponse(ctx context.Context, responseID uuid.UUID, graderID int, req *model.RegradeResponseRequest) (*model.Response, error) {
	resp, err := s.responseStore.GetByID(ctx, responseID)
	if err != nil {
		if repository.IsNoRows(err) {
			return nil, NotFoundError("response %s not found", responseID)
		}
		return nil, fmt.Errorf("get response: %w", err)
	}
	if req.ScoreAwarded > resp.MaxScore {
		return nil, ValidationError("score %.2f exceeds the question's max of %.2f", req.ScoreAwarded, resp.MaxScore)
	}

	gradedAt := s.now()
	if err := s.responseStore.UpdateGrade(ctx, responseID, req.IsCorrect, req.ScoreAwarded, graderID, req.Notes, gradedAt); err != nil {
		return nil, fmt.Errorf("update grade: %w", err)
	}

	attempt, err := s.attemptStore.GetByID(ctx, resp.AttemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if attempt.Status == model.AttemptStatusCompleted || attempt.Status == model.AttemptStatusTimedOut {
		responses, err := s.responseStore.ListByAttempt(ctx, attempt.ID)
		if err != nil {
			return nil, fmt.Errorf("list responses: %w", err)
		}
		total := 0.0
		for i := range responses {
			total += responses[i].ScoreAwarded
		}
		exam, err := s.examStore.GetByID(ctx, attempt.ExamID)
		if err != nil {
			return nil, fmt.Errorf("get exam: %w", err)
		}
		summary := grading.Summarize(total, attempt.MaxScore, exam.PassingPercentage)
		if err := s.attemptStore.UpdateScore(ctx, attempt.ID, summary.Score, summary.Percentage, summary.Passed); err != nil {
			return nil, fmt.Errorf("update attempt score: %w", err)
		}
	}

	resp.IsCorrect = req.IsCorrect
	resp.ScoreAwarded = req.ScoreAwarded
	resp.GradedByID = &graderID
	resp.GradedAt = &gradedAt
	resp.GraderNotes = nil
	if req.Notes != "" {
		resp.GraderNotes = &req.Notes
	}

	s.log.Info().
		Str("response_id", responseID.String()).
		Int("graded_by", graderID).
		Float64("score", req.ScoreAwarded).
		Msg("Response regraded")

	return resp, nil
}
