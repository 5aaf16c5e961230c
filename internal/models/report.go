package models

import (
	"time"
)

// Report is the textual finding tied 1:1 to a scan. While IsFinal is
// false the report is the draft target for automated overwrites; once
// final it is immutable to the inference workflow. Deleting the
// authoring radiologist detaches authorship without deleting the
// report.
type Report struct {
	ID     uint  `json:"id" gorm:"primaryKey"`
	ScanID uint  `json:"scan_id" gorm:"uniqueIndex;not null"`
	Scan   *Scan `json:"-" gorm:"foreignKey:ScanID;constraint:OnDelete:CASCADE"`

	RadiologistID *uint        `json:"radiologist_id"`
	Radiologist   *Radiologist `json:"radiologist,omitempty" gorm:"foreignKey:RadiologistID;constraint:OnDelete:SET NULL"`

	Content    string `json:"content" gorm:"type:text"`
	Impression string `json:"impression" gorm:"type:text"`
	IsFinal    bool   `json:"is_final" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Report) TableName() string {
	return "reports"
}
