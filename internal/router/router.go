package router

import (
	"net/http"
	"time"

	"github.com/edukita/examly-backend/internal/config"
	"github.com/edukita/examly-backend/internal/handler"
	"github.com/edukita/examly-backend/internal/middleware"
	"github.com/edukita/examly-backend/internal/response"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Assignment *handler.AssignmentHandler
	Attempt    *handler.AttemptHandler
	Question   *handler.QuestionHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(identity *middleware.Identity, handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the write-heavy student endpoints (120 per minute per IP
	// covers a student answering quickly without throttling normal use).
	studentLimiter := middleware.NewRateLimiter(120, time.Minute)

	// ─── 1. Student Group ──────────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(identity.RequireStudent(), studentLimiter.Middleware())
	{
		studentAPI.GET("/assignments", handlers.Assignment.ListMyAssignments)
		studentAPI.POST("/assignments/:id/attempts", handlers.Attempt.StartAttempt)
		studentAPI.GET("/attempts/:id/state", handlers.Attempt.GetAttemptState)
		studentAPI.POST("/attempts/:id/responses", handlers.Attempt.SubmitResponse)
		studentAPI.POST("/attempts/:id/complete", handlers.Attempt.CompleteAttempt)
	}

	// ─── 2. Teacher Group ──────────────────────────────────────────────
	teacherAPI := router.Group("/api/v1/teacher")
	teacherAPI.Use(identity.RequireTeacher())
	{
		teacherAPI.POST("/exams/:exam_id/questions", handlers.Question.AddQuestion)
		teacherAPI.POST("/exams/:exam_id/assignments", handlers.Assignment.AssignExam)
		teacherAPI.GET("/assignments/:id", handlers.Assignment.GetAssignment)
		teacherAPI.POST("/responses/:id/regrade", handlers.Attempt.RegradeResponse)
	}

	return router
}
