package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/classware/assessment-engine/internal/services"
	"github.com/classware/assessment-engine/internal/utils"
	"github.com/classware/assessment-engine/internal/validator"
)

type GradingHandler struct {
	BaseHandler
	gradeOverrideService services.GradeOverrideService
}

func NewGradingHandler(
	gradeOverrideService services.GradeOverrideService,
	logger utils.Logger,
) *GradingHandler {
	return &GradingHandler{
		BaseHandler:          NewBaseHandler(logger),
		gradeOverrideService: gradeOverrideService,
	}
}

// OverrideGrade records a manual grade for a student's latest attempt,
// creating a submission when the student never submitted.
func (h *GradingHandler) OverrideGrade(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}

	studentID := c.Param("student_id")
	if studentID == "" {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid student_id", nil)
		return
	}

	var req validator.GradeOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	grader := h.currentUser(c)
	if grader == nil {
		return
	}

	h.LogRequest(c, "Overriding grade",
		"assessment_id", assessmentID, "student_id", studentID, "grader_id", grader.ID)

	submission, err := h.gradeOverrideService.Override(c.Request.Context(), assessmentID, studentID, &req, grader)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}
