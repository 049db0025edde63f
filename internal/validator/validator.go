package validator

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/classware/assessment-engine/internal/models"
)

// Validator wraps go-playground validation with the engine's custom rules.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := &Validator{validate: validator.New()}
	v.registerRules()
	return v
}

// Validate runs struct validation and converts failures into ValidationErrors.
// Returns nil when the struct is valid.
func (v *Validator) Validate(s any) ValidationErrors {
	if err := v.validate.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

func (v *Validator) registerRules() {
	v.validate.RegisterValidation("assessment_category", func(fl validator.FieldLevel) bool {
		switch models.AssessmentCategory(fl.Field().String()) {
		case models.CategoryQuiz, models.CategoryExam, models.CategoryActivity:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("assessment_modality", func(fl validator.FieldLevel) bool {
		switch models.AssessmentModality(fl.Field().String()) {
		case models.ModalityStructured, models.ModalityFileUpload:
			return true
		}
		return false
	})

	v.validate.RegisterValidation("question_type", func(fl validator.FieldLevel) bool {
		return models.IsValidQuestionType(models.QuestionType(fl.Field().String()))
	})

	// Attempt limits between 1 and 10.
	v.validate.RegisterValidation("max_attempts", func(fl validator.FieldLevel) bool {
		n := fl.Field().Int()
		return n >= 1 && n <= 10
	})

	v.validate.RegisterValidation("assessment_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	v.validate.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true
		}

		var t time.Time
		if field.Kind() == reflect.Ptr {
			t = field.Elem().Interface().(time.Time)
		} else {
			t = field.Interface().(time.Time)
		}
		return t.After(time.Now())
	})
}
