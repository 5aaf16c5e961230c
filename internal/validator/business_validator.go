package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medscan/radiology-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateRegister validates registration requests including the
// role-specific profile rules.
func (bv *BusinessValidator) ValidateRegister(req *RegisterRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	errors = append(errors, bv.validateRoleProfileRules(req)...)

	return errors
}

// ValidateScanCreate validates scan upload requests.
func (bv *BusinessValidator) ValidateScanCreate(req *ScanCreateRequest, uploaderRole models.UserRole) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	// Staff uploads must name the patient; patient uploads must not.
	if uploaderRole != models.RolePatient && req.PatientID == nil {
		errors = append(errors, ValidationError{
			Field:   "patient_id",
			Message: "is required when uploading on a patient's behalf",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateScanUpdate validates scan metadata edits.
func (bv *BusinessValidator) ValidateScanUpdate(req *ScanUpdateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateReportCreate validates manual report creation.
func (bv *BusinessValidator) ValidateReportCreate(req *ReportCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if strings.TrimSpace(req.Content) == "" {
		errors = append(errors, ValidationError{
			Field:   "content",
			Message: "cannot be blank",
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateReportUpdate validates report edits against the stored report.
func (bv *BusinessValidator) ValidateReportUpdate(req *ReportUpdateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		errors = append(errors, ValidationError{
			Field:   "content",
			Message: "cannot be blank",
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		return models.UserRole(fl.Field().String()).Valid()
	})

	bv.validate.RegisterValidation("scan_type", func(fl validator.FieldLevel) bool {
		return models.ScanType(fl.Field().String()).Valid()
	})

	bv.validate.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		switch models.Gender(fl.Field().String()) {
		case models.GenderMale, models.GenderFemale, models.GenderOther:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("symptom_category", func(fl validator.FieldLevel) bool {
		switch models.SymptomCategory(fl.Field().String()) {
		case models.SymptomLump, models.SymptomNippleDischarge, models.SymptomPain, models.SymptomOthers:
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("lifestyle_category", func(fl validator.FieldLevel) bool {
		switch models.LifestyleCategory(fl.Field().String()) {
		case models.LifestyleSmoking, models.LifestyleAlcohol, models.LifestyleSedentary,
			models.LifestyleActive, models.LifestyleOthers:
			return true
		}
		return false
	})

	// Title validation (1-200 characters)
	bv.validate.RegisterValidation("scan_title", func(fl validator.FieldLevel) bool {
		title := strings.TrimSpace(fl.Field().String())
		return len(title) >= 1 && len(title) <= 200
	})

	bv.validate.RegisterValidation("patient_age", func(fl validator.FieldLevel) bool {
		age := fl.Field().Int()
		return age >= 0 && age <= 130
	})
}

// validateRoleProfileRules validates the role-specific profile fields
// of a registration request.
func (bv *BusinessValidator) validateRoleProfileRules(req *RegisterRequest) ValidationErrors {
	var errors ValidationErrors

	switch req.Role {
	case models.RoleRadiologist:
		if req.LicenseID == nil || strings.TrimSpace(*req.LicenseID) == "" {
			errors = append(errors, ValidationError{
				Field:   "license_id",
				Message: "is required for radiologists",
				Rule:    "business_logic",
			})
		}
	case models.RolePatient:
		if req.LicenseID != nil {
			errors = append(errors, ValidationError{
				Field:   "license_id",
				Message: "does not apply to patients",
				Value:   *req.LicenseID,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}
