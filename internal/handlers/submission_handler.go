package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
	"github.com/classware/assessment-engine/internal/services"
	"github.com/classware/assessment-engine/internal/utils"
	"github.com/classware/assessment-engine/internal/validator"
)

type SubmissionHandler struct {
	BaseHandler
	submissionService services.SubmissionService
}

func NewSubmissionHandler(
	submissionService services.SubmissionService,
	logger utils.Logger,
) *SubmissionHandler {
	return &SubmissionHandler{
		BaseHandler:       NewBaseHandler(logger),
		submissionService: submissionService,
	}
}

// Submit records a graded attempt for a structured assessment.
func (h *SubmissionHandler) Submit(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}

	var req validator.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Submitting assessment", "assessment_id", assessmentID, "student_id", user.ID)

	receipt, err := h.submissionService.Submit(c.Request.Context(), assessmentID, user.ID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, receipt)
}

// SubmitFiles creates or replaces the caller's file-upload submission for an
// activity. An empty file list withdraws the submission.
func (h *SubmissionHandler) SubmitFiles(c *gin.Context) {
	activityID := h.parseIDParam(c, "activity_id")
	if activityID == 0 {
		return
	}

	var req validator.FileSubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Submitting activity files",
		"activity_id", activityID, "student_id", user.ID, "file_count", len(req.Files))

	submission, err := h.submissionService.SubmitFiles(c.Request.Context(), activityID, user.ID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if submission == nil {
		c.JSON(http.StatusOK, SuccessResponse{
			Message: "Submission withdrawn",
		})
		return
	}

	c.JSON(http.StatusOK, submission)
}

// RemoveFile detaches one uploaded file from the caller's submission.
// Removing the last file deletes the submission.
func (h *SubmissionHandler) RemoveFile(c *gin.Context) {
	activityID := h.parseIDParam(c, "activity_id")
	if activityID == 0 {
		return
	}

	fileURL := c.Query("url")
	if fileURL == "" {
		h.RespondWithError(c, http.StatusBadRequest, "Query parameter 'url' is required", nil)
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Removing submission file", "activity_id", activityID, "student_id", user.ID)

	submission, err := h.submissionService.RemoveFile(c.Request.Context(), activityID, user.ID, fileURL)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if submission == nil {
		c.JSON(http.StatusOK, SuccessResponse{
			Message: "Submission withdrawn",
		})
		return
	}

	c.JSON(http.StatusOK, submission)
}

// GetSubmission retrieves one submission. Students may only read their own.
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	submission, err := h.submissionService.GetByID(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, submission)
}

// ListByAssessment lists submissions for an assessment the caller owns.
func (h *SubmissionHandler) ListByAssessment(c *gin.Context) {
	assessmentID := h.parseIDParam(c, "id")
	if assessmentID == 0 {
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	filters := h.parseSubmissionFilters(c)
	result, err := h.submissionService.ListByAssessment(c.Request.Context(), assessmentID, filters, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListMySubmissions lists the caller's own submissions.
func (h *SubmissionHandler) ListMySubmissions(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	filters := h.parseSubmissionFilters(c)
	result, err := h.submissionService.ListByStudent(c.Request.Context(), user.ID, filters, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ListByStudent lists a named student's submissions. Staff only via routing.
func (h *SubmissionHandler) ListByStudent(c *gin.Context) {
	studentID := c.Param("student_id")
	if studentID == "" {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid student_id", nil)
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	filters := h.parseSubmissionFilters(c)
	result, err := h.submissionService.ListByStudent(c.Request.Context(), studentID, filters, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *SubmissionHandler) parseSubmissionFilters(c *gin.Context) repositories.SubmissionFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.SubmissionFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if status := c.Query("status"); status != "" {
		v := models.SubmissionStatus(status)
		filters.Status = &v
	}
	if dateFrom := c.Query("date_from"); dateFrom != "" {
		if t, err := time.Parse(time.RFC3339, dateFrom); err == nil {
			filters.DateFrom = &t
		}
	}
	if dateTo := c.Query("date_to"); dateTo != "" {
		if t, err := time.Parse(time.RFC3339, dateTo); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}
