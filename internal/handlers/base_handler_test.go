package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/classware/assessment-engine/internal/services"
	"github.com/classware/assessment-engine/internal/utils"
	"github.com/classware/assessment-engine/internal/validator"
)

func testBaseHandler() BaseHandler {
	return NewBaseHandler(utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"validation failure", validator.ValidationErrors{{Field: "title", Message: "is required"}}, http.StatusBadRequest},
		{"business rule", &services.BusinessRuleError{Rule: "publish_empty", Message: "no questions"}, http.StatusUnprocessableEntity},
		{"permission denied", &services.PermissionError{UserID: "u1", Action: "update", Resource: "assessment 1"}, http.StatusForbidden},
		{"assessment missing", services.ErrAssessmentNotFound, http.StatusNotFound},
		{"submission missing", services.ErrSubmissionNotFound, http.StatusNotFound},
		{"student missing", services.ErrUserNotFound, http.StatusNotFound},
		{"not published", services.ErrAssessmentNotPublished, http.StatusForbidden},
		{"not yet available", services.ErrAssessmentNotYetAvailable, http.StatusForbidden},
		{"window closed", services.ErrAssessmentWindowClosed, http.StatusForbidden},
		{"attempts exhausted", services.ErrAttemptsExhausted, http.StatusForbidden},
		{"locked questions", services.ErrAssessmentLocked, http.StatusConflict},
		{"delete with submissions", services.ErrAssessmentHasSubmissions, http.StatusConflict},
		{"grade out of range", services.ErrGradeOutOfRange, http.StatusBadRequest},
		{"wrong modality", services.ErrWrongModality, http.StatusUnprocessableEntity},
		{"no files", services.ErrNoFilesAttached, http.StatusUnprocessableEntity},
		{"unknown error", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	h := testBaseHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			h.handleServiceError(c, tt.err)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var body ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not valid JSON: %v", err)
			}
			if body.Message == "" {
				t.Error("response has no message")
			}
		})
	}

	t.Run("attempt denials carry the reason", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

		h.handleServiceError(c, services.ErrAttemptsExhausted)

		var body struct {
			Details struct {
				Reason string `json:"reason"`
			} `json:"details"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Details.Reason != services.ErrAttemptsExhausted.Error() {
			t.Errorf("reason = %q, want %q", body.Details.Reason, services.ErrAttemptsExhausted)
		}
	})

	t.Run("wrapped errors still map", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

		wrapped := errors.Join(errors.New("loading assessment 9"), services.ErrAssessmentNotFound)
		h.handleServiceError(c, wrapped)

		if w.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", w.Code, http.StatusNotFound)
		}
	})
}

func TestParseIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := testBaseHandler()

	tests := []struct {
		name  string
		value string
		want  uint
	}{
		{"numeric id", "42", 42},
		{"zero id rejected", "0", 0},
		{"garbage rejected", "abc", 0},
		{"negative rejected", "-3", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Params = gin.Params{{Key: "id", Value: tt.value}}

			got := h.parseIDParam(c, "id")
			if got != tt.want {
				t.Errorf("parseIDParam() = %d, want %d", got, tt.want)
			}
			if tt.want == 0 && w.Code != http.StatusBadRequest {
				t.Errorf("bad id did not produce a 400, got %d", w.Code)
			}
		})
	}
}
