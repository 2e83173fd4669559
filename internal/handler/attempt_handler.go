package handler

import (
	"net/http"

	"github.com/edukita/examly-backend/internal/middleware"
	"github.com/edukita/examly-backend/internal/model"
	"github.com/edukita/examly-backend/internal/response"
	"github.com/edukita/examly-backend/internal/service"
	"github.com/edukita/examly-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AttemptHandler handles the student attempt lifecycle endpoints.
type AttemptHandler struct {
	attemptService *service.AttemptService
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attemptService *service.AttemptService) *AttemptHandler {
	return &AttemptHandler{attemptService: attemptService}
}

// StartAttempt godoc
// POST /api/v1/student/assignments/:id/attempts
// Opens a timed attempt. Idempotent: an already-open attempt is returned.
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	assignmentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	attempt, err := h.attemptService.StartAttempt(c.Request.Context(), assignmentID, claims.UserID, model.AttemptMetadata{
		OriginAddress: c.ClientIP(),
		UserAgent:     c.Request.UserAgent(),
	})
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"attempt": attempt})
}

// GetAttemptState godoc
// GET /api/v1/student/attempts/:id/state
// Reports remaining time and the answered question ids.
func (h *AttemptHandler) GetAttemptState(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.requireOwnership(c, attemptID, claims.UserID); err != nil {
		return
	}

	state, err := h.attemptService.GetAttemptState(c.Request.Context(), attemptID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"state": state})
}

// SubmitResponse godoc
// POST /api/v1/student/attempts/:id/responses
// Grades and stores one answer; resubmission overwrites the prior one.
func (h *AttemptHandler) SubmitResponse(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitResponseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.requireOwnership(c, attemptID, claims.UserID); err != nil {
		return
	}

	resp, err := h.attemptService.SubmitResponse(c.Request.Context(), attemptID, &req)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"response": resp})
}

// CompleteAttempt godoc
// POST /api/v1/student/attempts/:id/complete
// Finalizes the attempt and returns the aggregated result.
func (h *AttemptHandler) CompleteAttempt(c *gin.Context) {
	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	claims := middleware.GetClaims(c)
	if err := h.requireOwnership(c, attemptID, claims.UserID); err != nil {
		return
	}

	attempt, err := h.attemptService.CompleteAttempt(c.Request.Context(), attemptID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// RegradeResponse godoc
// POST /api/v1/teacher/responses/:id/regrade
// Applies a manual grade override and re-aggregates a finalized attempt.
func (h *AttemptHandler) RegradeResponse(c *gin.Context) {
	responseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.RegradeResponseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	resp, err := h.attemptService.RegradeResponse(c.Request.Context(), responseID, claims.UserID, &req)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"response": resp})
}

// requireOwnership rejects access to an attempt that does not belong to the
// caller. A foreign attempt reads as not found, not as forbidden.
func (h *AttemptHandler) requireOwnership(c *gin.Context, attemptID uuid.UUID, studentID int) error {
	attempt, err := h.attemptService.GetAttempt(c.Request.Context(), attemptID)
	if err != nil {
		failDomain(c, err)
		return err
	}
	if attempt.StudentID != studentID {
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		return errNotOwner
	}
	return nil
}

var errNotOwner = service.NotFoundError("attempt not found")
