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

// AssignmentHandler handles exam distribution endpoints.
type AssignmentHandler struct {
	assignmentService *service.AssignmentService
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService *service.AssignmentService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService}
}

// AssignExam godoc
// POST /api/v1/teacher/exams/:exam_id/assignments
// Distributes an exam to a batch of students.
func (h *AssignmentHandler) AssignExam(c *gin.Context) {
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AssignExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	claims := middleware.GetClaims(c)
	items, err := h.assignmentService.AssignExam(c.Request.Context(), examID, claims.UserID, &req)
	if err != nil {
		failDomain(c, err)
		return
	}

	assignments := make([]*model.Assignment, 0, len(items))
	for _, item := range items {
		assignments = append(assignments, item.Assignment)
	}
	response.Success(c, http.StatusCreated, gin.H{"assignments": assignments})
}

// GetAssignment godoc
// GET /api/v1/teacher/assignments/:id
// Retrieves an assignment together with its question set.
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	item, err := h.assignmentService.GetAssignment(c.Request.Context(), id)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"assignment": item.Assignment,
		"questions":  item.Questions,
	})
}

// ListMyAssignments godoc
// GET /api/v1/student/assignments?filter=upcoming|current|past|<status>
// Lists the calling student's assigned exams.
func (h *AssignmentHandler) ListMyAssignments(c *gin.Context) {
	claims := middleware.GetClaims(c)
	filter := model.AssignmentListFilter(c.Query("filter"))

	assigned, err := h.assignmentService.ListStudentAssignments(c.Request.Context(), claims.UserID, filter)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"assignments": assigned})
}
