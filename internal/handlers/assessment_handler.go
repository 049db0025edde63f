package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/repositories"
	"github.com/classware/assessment-engine/internal/services"
	"github.com/classware/assessment-engine/internal/utils"
	"github.com/classware/assessment-engine/internal/validator"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	exportService     services.ExportService
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	exportService services.ExportService,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		exportService:     exportService,
	}
}

// CreateAssessment creates a new assessment owned by the caller.
func (h *AssessmentHandler) CreateAssessment(c *gin.Context) {
	var req validator.AssessmentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Creating assessment", "title", req.Title, "class_id", req.ClassID)

	assessment, err := h.assessmentService.Create(c.Request.Context(), &req, user.ID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assessment)
}

// GetAssessment retrieves an assessment. Students get a sanitized copy with
// the answer key stripped.
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// ListAssessments lists assessments visible to the caller.
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	user := h.currentUser(c)
	if user == nil {
		return
	}

	filters := h.parseAssessmentFilters(c)
	result, err := h.assessmentService.List(c.Request.Context(), filters, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// UpdateAssessment applies a partial update to an owned assessment.
func (h *AssessmentHandler) UpdateAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	var req validator.AssessmentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Updating assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Update(c.Request.Context(), id, &req, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// DeleteAssessment soft-deletes an assessment with no submissions.
func (h *AssessmentHandler) DeleteAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Deleting assessment", "assessment_id", id)

	if err := h.assessmentService.Delete(c.Request.Context(), id, user); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// PublishAssessment publishes and locks an assessment.
func (h *AssessmentHandler) PublishAssessment(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Publishing assessment", "assessment_id", id)

	assessment, err := h.assessmentService.Publish(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetAssessmentStats returns submission aggregates for an owned assessment.
func (h *AssessmentHandler) GetAssessmentStats(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	stats, err := h.assessmentService.GetStats(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportGradeRoster downloads the grade roster as an xlsx workbook.
func (h *AssessmentHandler) ExportGradeRoster(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}

	user := h.currentUser(c)
	if user == nil {
		return
	}

	h.LogRequest(c, "Exporting grade roster", "assessment_id", id)

	data, filename, err := h.exportService.ExportGradeRoster(c.Request.Context(), id, user)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *AssessmentHandler) parseAssessmentFilters(c *gin.Context) repositories.AssessmentFilters {
	page := h.parseIntQuery(c, "page", 1)
	size := h.parseIntQuery(c, "size", 10)

	filters := repositories.AssessmentFilters{
		Limit:     size,
		Offset:    (page - 1) * size,
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}

	if category := c.Query("category"); category != "" {
		v := models.AssessmentCategory(category)
		filters.Category = &v
	}
	if modality := c.Query("modality"); modality != "" {
		v := models.AssessmentModality(modality)
		filters.Modality = &v
	}
	if published := c.Query("published"); published != "" {
		if v, err := strconv.ParseBool(published); err == nil {
			filters.Published = &v
		}
	}
	if classIDStr := c.Query("class_id"); classIDStr != "" {
		if v, err := strconv.ParseUint(classIDStr, 10, 32); err == nil {
			classID := uint(v)
			filters.ClassID = &classID
		}
	}
	if search := c.Query("search"); search != "" {
		filters.Search = &search
	}

	return filters
}
