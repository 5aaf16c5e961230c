package validator

import (
	"github.com/medscan/radiology-service/internal/models"
)

// RegisterRequest represents the request structure for registering a user.
// Profile fields beyond the shared ones only apply to the matching role.
type RegisterRequest struct {
	FullName string          `json:"full_name" validate:"required,min=1,max=256"`
	Email    string          `json:"email" validate:"required,email"`
	Role     models.UserRole `json:"role" validate:"required,user_role"`
	Gender   *models.Gender  `json:"gender" validate:"omitempty,gender"`
	Age      *int            `json:"age" validate:"omitempty,patient_age"`

	// Patient intake fields
	PreviousBreastDisease *string                   `json:"previous_breast_disease" validate:"omitempty,max=300"`
	FamilyBreastCancer    *string                   `json:"family_breast_cancer" validate:"omitempty,max=300"`
	HormonalTherapy       *string                   `json:"hormonal_therapy" validate:"omitempty,max=300"`
	Symptoms              *models.SymptomCategory   `json:"symptoms" validate:"omitempty,symptom_category"`
	Lifestyle             *models.LifestyleCategory `json:"lifestyle" validate:"omitempty,lifestyle_category"`

	// Radiologist credential fields
	LicenseID *string `json:"license_id" validate:"omitempty,max=150"`
	Hospital  *string `json:"hospital" validate:"omitempty,max=300"`
}

// ScanCreateRequest carries the metadata half of a multipart scan
// upload; the image itself arrives as the "image" form file.
type ScanCreateRequest struct {
	Title       string           `form:"title" validate:"omitempty,scan_title"`
	Description string           `form:"description" validate:"omitempty,max=2000"`
	ScanType    *models.ScanType `form:"scan_type" validate:"omitempty,scan_type"`
	// PatientID is required when a radiologist or admin uploads on a
	// patient's behalf; patients always upload for themselves.
	PatientID *uint `form:"patient_id"`
}

// ScanUpdateRequest represents the request structure for editing scan
// metadata. Nil fields are left untouched.
type ScanUpdateRequest struct {
	Title       *string          `json:"title" validate:"omitempty,scan_title"`
	Description *string          `json:"description" validate:"omitempty,max=2000"`
	ScanType    *models.ScanType `json:"scan_type" validate:"omitempty,scan_type"`
}

// ReportCreateRequest represents the request structure for a
// radiologist creating a report by hand.
type ReportCreateRequest struct {
	ScanID     uint   `json:"scan_id" validate:"required"`
	Content    string `json:"content" validate:"required,min=1"`
	Impression string `json:"impression" validate:"omitempty,max=2000"`
	IsFinal    bool   `json:"is_final"`
}

// ReportUpdateRequest represents the request structure for editing a
// report. Nil fields are left untouched.
type ReportUpdateRequest struct {
	Content    *string `json:"content" validate:"omitempty,min=1"`
	Impression *string `json:"impression" validate:"omitempty,max=2000"`
	IsFinal    *bool   `json:"is_final"`
}

// RunInferenceRequest optionally overrides the configured model for a
// single inference run.
type RunInferenceRequest struct {
	ModelName string `json:"model_name" validate:"omitempty,max=100"`
}
