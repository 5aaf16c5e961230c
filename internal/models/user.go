package models

import (
	"time"
)

type UserRole string

const (
	RolePatient     UserRole = "PATIENT"
	RoleRadiologist UserRole = "RADIOLOGIST"
	RoleAdmin       UserRole = "ADMIN"
)

// Valid reports whether the role is one of the closed set. Role
// behavior branches through exhaustive switches on UserRole, never
// raw string comparison.
func (r UserRole) Valid() bool {
	switch r {
	case RolePatient, RoleRadiologist, RoleAdmin:
		return true
	}
	return false
}

type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	FullName string   `json:"full_name" gorm:"not null;size:256"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Role     UserRole `json:"role" gorm:"not null;size:20;default:PATIENT"`
	Gender   Gender   `json:"gender" gorm:"size:50"`
	Age      *int     `json:"age"`

	// Status
	IsActive bool `json:"is_active" gorm:"default:false"`
	IsStaff  bool `json:"is_staff" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

type SymptomCategory string

const (
	SymptomLump            SymptomCategory = "LUMP"
	SymptomNippleDischarge SymptomCategory = "NIPPLE_DISCHARGE"
	SymptomPain            SymptomCategory = "PAIN"
	SymptomOthers          SymptomCategory = "OTHERS"
)

type LifestyleCategory string

const (
	LifestyleSmoking   LifestyleCategory = "SMOKING"
	LifestyleAlcohol   LifestyleCategory = "ALCOHOL"
	LifestyleSedentary LifestyleCategory = "SEDENTARY"
	LifestyleActive    LifestyleCategory = "ACTIVE"
	LifestyleOthers    LifestyleCategory = "OTHERS"
)

// Patient is the intake profile attached 1:1 to a PATIENT-role user.
type Patient struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null;size:255"`
	User   *User  `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	// Intake questionnaire
	PreviousBreastDisease string            `json:"previous_breast_disease" gorm:"size:300"`
	FamilyBreastCancer    string            `json:"family_breast_cancer" gorm:"size:300"`
	HormonalTherapy       string            `json:"hormonal_therapy" gorm:"size:300"`
	Symptoms              SymptomCategory   `json:"symptoms" gorm:"size:50;default:OTHERS"`
	Lifestyle             LifestyleCategory `json:"lifestyle" gorm:"size:50;default:OTHERS"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Patient) TableName() string {
	return "patients"
}

// Radiologist is the professional profile attached 1:1 to a
// RADIOLOGIST-role user. LicenseID is mandatory at creation.
type Radiologist struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID string `json:"user_id" gorm:"uniqueIndex;not null;size:255"`
	User   *User  `json:"user,omitempty" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`

	LicenseID string `json:"license_id" gorm:"uniqueIndex;not null;size:150"`
	Hospital  string `json:"hospital" gorm:"size:300"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Radiologist) TableName() string {
	return "radiologists"
}
