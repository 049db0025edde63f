package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/classware/assessment-engine/internal/models"
	"github.com/classware/assessment-engine/internal/services"
	"github.com/classware/assessment-engine/internal/utils"
	"github.com/classware/assessment-engine/internal/validator"
)

// ErrorResponse is the JSON body for every non-2xx response.
type ErrorResponse struct {
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// SuccessResponse wraps operations that return no entity body.
type SuccessResponse struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// BaseHandler carries the pieces every handler shares.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.LoggerFromContext(c, h.logger).Info(msg, args...)
}

func (h BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	utils.LoggerFromContext(c, h.logger).Error(msg, append(args, "error", err)...)
}

func (h BaseHandler) RespondWithError(c *gin.Context, status int, message string, err error) {
	resp := ErrorResponse{Message: message}
	if err != nil {
		resp.Details = err.Error()
	}
	c.JSON(status, resp)
}

// parseIDParam parses a numeric path parameter. A zero return means the
// response has already been written.
func (h BaseHandler) parseIDParam(c *gin.Context, param string) uint {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
		})
		return 0
	}
	return uint(id)
}

func (h BaseHandler) parseIntQuery(c *gin.Context, param string, defaultValue int) int {
	valueStr := c.Query(param)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// currentUser pulls the authenticated user out of the Gin context. A nil
// return means a 401 has already been written.
func (h BaseHandler) currentUser(c *gin.Context) *models.User {
	user, err := GetUserFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return nil
	}
	return user
}

// handleServiceError maps service-layer errors onto HTTP statuses. Every
// handler funnels failures through here so clients see one vocabulary.
func (h BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var businessRuleError *services.BusinessRuleError
	if errors.As(err, &businessRuleError) {
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: businessRuleError.Message,
			Details: map[string]any{"rule": businessRuleError.Rule},
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]any{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrAssessmentNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Assessment not found",
		})
	case errors.Is(err, services.ErrSubmissionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Submission not found",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Student not found",
		})
	// Attempt gate denials all carry 403 plus the reason, checked in the
	// same order the gate applies them.
	case errors.Is(err, services.ErrAssessmentNotPublished),
		errors.Is(err, services.ErrAssessmentNotYetAvailable),
		errors.Is(err, services.ErrAssessmentWindowClosed),
		errors.Is(err, services.ErrAttemptsExhausted):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Submission refused",
			Details: map[string]any{"reason": err.Error()},
		})
	case errors.Is(err, services.ErrAssessmentLocked):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Assessment is locked and its questions cannot change",
		})
	case errors.Is(err, services.ErrAssessmentHasSubmissions):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Assessment has submissions and cannot be deleted",
		})
	case errors.Is(err, services.ErrGradeOutOfRange):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Grade is outside the assessment's point range",
		})
	case errors.Is(err, services.ErrWrongModality):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "Operation does not match the assessment's modality",
		})
	case errors.Is(err, services.ErrNoFilesAttached):
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Message: "No files attached",
		})
	default:
		h.LogError(c, err, "Unexpected service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
