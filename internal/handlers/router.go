package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/classware/assessment-engine/internal/config"
	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
	"github.com/classware/assessment-engine/internal/services"
	"github.com/classware/assessment-engine/internal/utils"
)

type HandlerManager struct {
	assessmentHandler *AssessmentHandler
	submissionHandler *SubmissionHandler
	gradingHandler    *GradingHandler
	authMiddleware    *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	return &HandlerManager{
		assessmentHandler: NewAssessmentHandler(serviceManager.Assessment(), serviceManager.Export(), logger),
		submissionHandler: NewSubmissionHandler(serviceManager.Submission(), logger),
		gradingHandler:    NewGradingHandler(serviceManager.GradeOverride(), logger),
		authMiddleware:    NewCasdoorAuthMiddleware(casdoorConfig, userRepo),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	staffOnly := hm.authMiddleware.RequireRoleMiddleware(models.RoleTeacher, models.RoleAdmin)

	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		assessments := v1.Group("/assessments")
		{
			// Authoring - Teachers and Admins only
			assessments.POST("", staffOnly, hm.assessmentHandler.CreateAssessment)
			assessments.PUT("/:id", staffOnly, hm.assessmentHandler.UpdateAssessment)
			assessments.DELETE("/:id", staffOnly, hm.assessmentHandler.DeleteAssessment)
			assessments.POST("/:id/publish", staffOnly, hm.assessmentHandler.PublishAssessment)

			// Viewing - All authenticated users (students get sanitized copies)
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)

			// Stats, roster export and submission review - Teachers and Admins only
			assessments.GET("/:id/stats", staffOnly, hm.assessmentHandler.GetAssessmentStats)
			assessments.GET("/:id/export", staffOnly, hm.assessmentHandler.ExportGradeRoster)
			assessments.GET("/:id/submissions", staffOnly, hm.submissionHandler.ListByAssessment)

			// Structured attempt submission
			assessments.POST("/:id/submissions", hm.submissionHandler.Submit)

			// Manual grade override - Teachers and Admins only
			assessments.PUT("/:id/students/:student_id/grade", staffOnly, hm.gradingHandler.OverrideGrade)
		}

		// File-upload activities are addressed through their class
		classes := v1.Group("/classes/:class_id/activities/:activity_id")
		{
			classes.POST("/submit", hm.submissionHandler.SubmitFiles)
			classes.DELETE("/files", hm.submissionHandler.RemoveFile)
		}

		submissions := v1.Group("/submissions")
		{
			submissions.GET("/me", hm.submissionHandler.ListMySubmissions)
			submissions.GET("/:id", hm.submissionHandler.GetSubmission)
			submissions.GET("/student/:student_id", staffOnly, hm.submissionHandler.ListByStudent)
		}
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "assessment-engine",
		})
	})
}
