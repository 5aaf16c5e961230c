package postgres

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/medscan/radiology-service/internal/cache"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
)

type ScanPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewScanPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ScanRepository {
	return &ScanPostgreSQL{db: db, cacheManager: cacheManager}
}

func (s *ScanPostgreSQL) Create(ctx context.Context, scan *models.Scan) error {
	if err := s.db.WithContext(ctx).Create(scan).Error; err != nil {
		return fmt.Errorf("failed to create scan: %w", err)
	}
	return nil
}

func (s *ScanPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Scan, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var scan models.Scan

	err := s.cacheManager.Scan.CacheOrExecute(ctx, cacheKey, &scan, cache.ScanCacheConfig.TTL, func() (interface{}, error) {
		var dbScan models.Scan
		err := s.db.WithContext(ctx).
			Preload("Patient").
			Preload("Patient.User").
			Preload("Report").
			First(&dbScan, id).Error
		if err != nil {
			return nil, err
		}
		return &dbScan, nil
	})
	if err != nil {
		return nil, err
	}

	return &scan, nil
}

func (s *ScanPostgreSQL) List(ctx context.Context, filters repositories.ScanFilters) ([]*models.Scan, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Scan{})
	query = s.applyFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count scans: %w", err)
	}

	query = s.applyOrdering(query, filters)

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var scans []*models.Scan
	err := query.
		Preload("Patient").
		Preload("Patient.User").
		Preload("Report").
		Find(&scans).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list scans: %w", err)
	}

	return scans, total, nil
}

func (s *ScanPostgreSQL) applyFilters(query *gorm.DB, filters repositories.ScanFilters) *gorm.DB {
	if filters.PatientID != nil {
		query = query.Where("scans.patient_id = ?", *filters.PatientID)
	}
	if filters.ScanType != nil {
		query = query.Where("scans.scan_type = ?", *filters.ScanType)
	}
	if search := strings.TrimSpace(filters.Search); search != "" {
		pattern := "%" + search + "%"
		query = query.
			Joins("JOIN patients ON patients.id = scans.patient_id").
			Joins("JOIN users ON users.id = patients.user_id").
			Where("scans.title ILIKE ? OR scans.description ILIKE ? OR users.full_name ILIKE ?",
				pattern, pattern, pattern)
	}
	return query
}

func (s *ScanPostgreSQL) applyOrdering(query *gorm.DB, filters repositories.ScanFilters) *gorm.DB {
	// Only created_at ordering is supported; everything else falls
	// back to newest first.
	if filters.SortBy == "created_at" && strings.EqualFold(filters.SortOrder, "asc") {
		return query.Order("scans.created_at ASC")
	}
	return query.Order("scans.created_at DESC")
}

// UpdateMetadata persists only the caller-editable columns so a
// concurrent inference run can never be clobbered by a metadata edit.
func (s *ScanPostgreSQL) UpdateMetadata(ctx context.Context, scan *models.Scan) error {
	err := s.db.WithContext(ctx).Model(&models.Scan{}).
		Where("id = ?", scan.ID).
		Updates(map[string]interface{}{
			"title":       scan.Title,
			"description": scan.Description,
			"scan_type":   scan.ScanType,
			"image_path":  scan.ImagePath,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update scan metadata: %w", err)
	}

	cache.SafeDelete(ctx, s.cacheManager.Scan, fmt.Sprintf("id:%d", scan.ID))
	return nil
}

// UpdateAIFields writes the full annotation set in one statement so
// readers observe either no annotation or a complete one.
func (s *ScanPostgreSQL) UpdateAIFields(ctx context.Context, scan *models.Scan) error {
	err := s.db.WithContext(ctx).Model(&models.Scan{}).
		Where("id = ?", scan.ID).
		Updates(map[string]interface{}{
			"ai_generated":       scan.AIGenerated,
			"ai_predicted_class": scan.AIPredictedClass,
			"ai_confidence":      scan.AIConfidence,
			"ai_benign_prob":     scan.AIBenignProb,
			"ai_malignant_prob":  scan.AIMalignantProb,
			"ai_raw_response":    scan.AIRawResponse,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update scan annotation: %w", err)
	}

	cache.SafeDelete(ctx, s.cacheManager.Scan, fmt.Sprintf("id:%d", scan.ID))
	return nil
}

func (s *ScanPostgreSQL) Delete(ctx context.Context, id uint) error {
	if err := s.db.WithContext(ctx).Delete(&models.Scan{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}

	cache.SafeDelete(ctx, s.cacheManager.Scan, fmt.Sprintf("id:%d", id))
	return nil
}
