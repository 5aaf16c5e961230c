package validator

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single field-level validation failure.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule,omitempty"`
}

type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	if len(ve) == 1 {
		return fmt.Sprintf("validation failed: %s %s", ve[0].Field, ve[0].Message)
	}
	return fmt.Sprintf("validation failed: %d field errors", len(ve))
}

// ToValidationErrors converts go-playground validator errors to our
// error type with user-friendly messages.
func ToValidationErrors(err error) ValidationErrors {
	var errors ValidationErrors

	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			errors = append(errors, ValidationError{
				Field:   fe.Field(),
				Message: errorMessage(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
	}

	return errors
}

func errorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s", err.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", err.Param())
	case "scan_type":
		return "must be one of MRI, CT, XRAY, MAMMOGRAM, OTHER"
	case "user_role":
		return "must be one of PATIENT, RADIOLOGIST, ADMIN"
	case "gender":
		return "must be one of MALE, FEMALE, OTHER"
	case "symptom_category":
		return "must be one of LUMP, NIPPLE_DISCHARGE, PAIN, OTHERS"
	case "lifestyle_category":
		return "must be one of SMOKING, ALCOHOL, SEDENTARY, ACTIVE, OTHERS"
	case "scan_title":
		return "must be between 1 and 200 characters"
	case "patient_age":
		return "must be between 0 and 130"
	default:
		return fmt.Sprintf("validation failed for rule '%s'", err.Tag())
	}
}
