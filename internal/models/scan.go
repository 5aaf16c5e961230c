package models

import (
	"time"

	"gorm.io/datatypes"
)

type ScanType string

const (
	ScanTypeMRI       ScanType = "MRI"
	ScanTypeCT        ScanType = "CT"
	ScanTypeXRay      ScanType = "XRAY"
	ScanTypeMammogram ScanType = "MAMMOGRAM"
	ScanTypeOther     ScanType = "OTHER"
)

func (t ScanType) Valid() bool {
	switch t {
	case ScanTypeMRI, ScanTypeCT, ScanTypeXRay, ScanTypeMammogram, ScanTypeOther:
		return true
	}
	return false
}

// Scan is an uploaded medical image plus metadata and, once the
// inference service has answered, its AI annotation. The annotation
// columns are either all empty or all populated; they are written in
// a single update and never partially.
type Scan struct {
	ID        uint     `json:"id" gorm:"primaryKey"`
	PatientID uint     `json:"patient_id" gorm:"not null;index"`
	Patient   *Patient `json:"patient,omitempty" gorm:"foreignKey:PatientID;constraint:OnDelete:CASCADE"`

	ImagePath   string   `json:"image" gorm:"size:500"`
	ScanType    ScanType `json:"scan_type" gorm:"size:20;default:MAMMOGRAM"`
	Title       string   `json:"title" gorm:"size:200"`
	Description string   `json:"description" gorm:"type:text"`

	// AI annotation
	AIGenerated      bool           `json:"ai_generated" gorm:"default:false"`
	AIPredictedClass *string        `json:"ai_predicted_class" gorm:"size:50"`
	AIConfidence     *float64       `json:"ai_confidence"`
	AIBenignProb     *float64       `json:"ai_benign_prob"`
	AIMalignantProb  *float64       `json:"ai_malignant_prob"`
	AIRawResponse    datatypes.JSON `json:"-"`

	Report *Report `json:"report,omitempty" gorm:"foreignKey:ScanID"`

	CreatedAt time.Time `json:"created_at" gorm:"<-:create"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Scan) TableName() string {
	return "scans"
}

// Annotated reports whether the AI fields have been populated.
func (s *Scan) Annotated() bool {
	return s.AIGenerated && s.AIPredictedClass != nil
}
