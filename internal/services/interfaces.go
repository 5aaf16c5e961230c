package services

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type RegisterRequest = validator.RegisterRequest
type CreateScanRequest = validator.ScanCreateRequest
type UpdateScanRequest = validator.ScanUpdateRequest
type CreateReportRequest = validator.ReportCreateRequest
type UpdateReportRequest = validator.ReportUpdateRequest

type UserResponse struct {
	*models.User
	Patient     *models.Patient     `json:"patient,omitempty"`
	Radiologist *models.Radiologist `json:"radiologist,omitempty"`
}

// ReportResponse is the viewer-dependent serialization of a report.
// Content is nil when the viewer is a patient; impression and metadata
// are always present.
type ReportResponse struct {
	ID              uint      `json:"id"`
	ScanID          uint      `json:"scan_id"`
	RadiologistID   *uint     `json:"radiologist_id,omitempty"`
	RadiologistName string    `json:"radiologist_name,omitempty"`
	Content         *string   `json:"content,omitempty"`
	Impression      string    `json:"impression"`
	IsFinal         bool      `json:"is_final"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type ScanResponse struct {
	*models.Scan
	PatientName string          `json:"patient_name,omitempty"`
	Report      *ReportResponse `json:"report,omitempty"`
	CanEdit     bool            `json:"can_edit"`
	CanDelete   bool            `json:"can_delete"`
}

type ScanListResponse struct {
	Scans []*ScanResponse `json:"scans"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Size  int             `json:"size"`
}

type ReportListResponse struct {
	Reports []*ReportResponse `json:"reports"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	Size    int               `json:"size"`
}

// ===== SERVICE INTERFACES =====

type UserService interface {
	// Register creates the user and, in the same transaction, the
	// profile matching the role.
	Register(ctx context.Context, userID string, req *RegisterRequest) (*UserResponse, error)
	GetProfile(ctx context.Context, userID string) (*UserResponse, error)
}

type ScanService interface {
	// Core CRUD operations
	Create(ctx context.Context, req *CreateScanRequest, image *multipart.FileHeader, userID string) (*ScanResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*ScanResponse, error)
	List(ctx context.Context, filters repositories.ScanFilters, userID string) (*ScanListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateScanRequest, userID string) (*ScanResponse, error)
	Delete(ctx context.Context, id uint, userID string) error

	// RerunInference re-triggers the annotation workflow for a scan
	// the user can read. Fails only when the scan has no image or the
	// user lacks access; inference problems themselves never surface.
	RerunInference(ctx context.Context, id uint, modelName string, userID string) (*ScanResponse, error)

	// Permission checks
	CanAccess(ctx context.Context, scanID uint, userID string) (bool, error)
}

type ReportService interface {
	Create(ctx context.Context, req *CreateReportRequest, userID string) (*ReportResponse, error)
	GetByID(ctx context.Context, id uint, userID string) (*ReportResponse, error)
	List(ctx context.Context, filters repositories.ReportFilters, userID string) (*ReportListResponse, error)
	Update(ctx context.Context, id uint, req *UpdateReportRequest, userID string) (*ReportResponse, error)
	Delete(ctx context.Context, id uint, userID string) error
}

type ExportService interface {
	// ExportScans renders all scans with their annotation state into
	// an xlsx workbook. Admin only.
	ExportScans(ctx context.Context, userID string) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	User() UserService
	Scan() ScanService
	Report() ReportService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
