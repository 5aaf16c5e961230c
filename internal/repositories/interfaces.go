package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/medscan/radiology-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ScanFilters struct {
	PatientID *uint           `json:"patient_id"`
	ScanType  *models.ScanType `json:"scan_type"`
	Search    string          `json:"search"` // matches title, description, patient name
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
	SortBy    string          `json:"sort_by"`    // "created_at"
	SortOrder string          `json:"sort_order"` // "asc", "desc"
}

type ReportFilters struct {
	PatientID     *uint `json:"patient_id"` // restrict to this patient's scans
	RadiologistID *uint `json:"radiologist_id"`
	IsFinal       *bool `json:"is_final"`
	Limit         int   `json:"limit"`
	Offset        int   `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type PatientRepository interface {
	Create(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, id uint) (*models.Patient, error)
	GetByUserID(ctx context.Context, userID string) (*models.Patient, error)
	// GetOrCreateByUserID is idempotent: every PATIENT-role user ends up
	// with exactly one profile no matter how often it is called.
	GetOrCreateByUserID(ctx context.Context, userID string) (*models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) error
	Delete(ctx context.Context, id uint) error
}

type RadiologistRepository interface {
	Create(ctx context.Context, radiologist *models.Radiologist) error
	GetByID(ctx context.Context, id uint) (*models.Radiologist, error)
	GetByUserID(ctx context.Context, userID string) (*models.Radiologist, error)
	Delete(ctx context.Context, id uint) error
}

type ScanRepository interface {
	Create(ctx context.Context, scan *models.Scan) error
	GetByID(ctx context.Context, id uint) (*models.Scan, error)
	List(ctx context.Context, filters ScanFilters) ([]*models.Scan, int64, error)
	// UpdateMetadata persists only the caller-editable columns.
	UpdateMetadata(ctx context.Context, scan *models.Scan) error
	// UpdateAIFields persists exactly the annotation columns in a
	// single statement so they can never be observed half-written.
	UpdateAIFields(ctx context.Context, scan *models.Scan) error
	Delete(ctx context.Context, id uint) error
}

type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id uint) (*models.Report, error)
	GetByScanID(ctx context.Context, scanID uint) (*models.Report, error)
	// GetByScanIDForUpdate takes a row lock; only meaningful inside
	// WithTransaction. It serializes report reconciliation against a
	// concurrent finalize.
	GetByScanIDForUpdate(ctx context.Context, scanID uint) (*models.Report, error)
	List(ctx context.Context, filters ReportFilters) ([]*models.Report, int64, error)
	Update(ctx context.Context, report *models.Report) error
	Delete(ctx context.Context, id uint) error
}

// Repository aggregates all entity repositories.
type Repository interface {
	User() UserRepository
	Patient() PatientRepository
	Radiologist() RadiologistRepository
	Scan() ScanRepository
	Report() ReportRepository

	// WithTransaction runs fn against a repository bound to one
	// database transaction.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryManager owns repository lifecycle.
type RepositoryManager interface {
	Initialize() error
	GetRepository() Repository
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// IsNotFoundError reports whether err means "no such record".
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
