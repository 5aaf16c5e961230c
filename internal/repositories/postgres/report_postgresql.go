package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/medscan/radiology-service/internal/cache"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
)

type ReportPostgreSQL struct {
	db           *gorm.DB
	cacheManager *cache.CacheManager
}

func NewReportPostgreSQL(db *gorm.DB, cacheManager *cache.CacheManager) repositories.ReportRepository {
	return &ReportPostgreSQL{db: db, cacheManager: cacheManager}
}

func (r *ReportPostgreSQL) Create(ctx context.Context, report *models.Report) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	cache.SafeDelete(ctx, r.cacheManager.Scan, fmt.Sprintf("id:%d", report.ScanID))
	return nil
}

func (r *ReportPostgreSQL) GetByID(ctx context.Context, id uint) (*models.Report, error) {
	cacheKey := fmt.Sprintf("id:%d", id)
	var report models.Report

	err := r.cacheManager.Report.CacheOrExecute(ctx, cacheKey, &report, cache.ReportCacheConfig.TTL, func() (interface{}, error) {
		var dbReport models.Report
		err := r.db.WithContext(ctx).
			Preload("Radiologist").
			Preload("Radiologist.User").
			First(&dbReport, id).Error
		if err != nil {
			return nil, err
		}
		return &dbReport, nil
	})
	if err != nil {
		return nil, err
	}

	return &report, nil
}

func (r *ReportPostgreSQL) GetByScanID(ctx context.Context, scanID uint) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Preload("Radiologist").
		Preload("Radiologist.User").
		First(&report, "scan_id = ?", scanID).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GetByScanIDForUpdate locks the report row for the duration of the
// surrounding transaction. Reconciliation after inference uses it so a
// concurrent finalize cannot interleave with the draft overwrite.
func (r *ReportPostgreSQL) GetByScanIDForUpdate(ctx context.Context, scanID uint) (*models.Report, error) {
	var report models.Report
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&report, "scan_id = ?", scanID).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *ReportPostgreSQL) List(ctx context.Context, filters repositories.ReportFilters) ([]*models.Report, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Report{})

	if filters.PatientID != nil {
		query = query.
			Joins("JOIN scans ON scans.id = reports.scan_id").
			Where("scans.patient_id = ?", *filters.PatientID)
	}
	if filters.RadiologistID != nil {
		query = query.Where("reports.radiologist_id = ?", *filters.RadiologistID)
	}
	if filters.IsFinal != nil {
		query = query.Where("reports.is_final = ?", *filters.IsFinal)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count reports: %w", err)
	}

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}

	var reports []*models.Report
	err := query.
		Order("reports.created_at DESC").
		Preload("Radiologist").
		Preload("Radiologist.User").
		Find(&reports).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, total, nil
}

func (r *ReportPostgreSQL) Update(ctx context.Context, report *models.Report) error {
	err := r.db.WithContext(ctx).Model(&models.Report{}).
		Where("id = ?", report.ID).
		Updates(map[string]interface{}{
			"radiologist_id": report.RadiologistID,
			"content":        report.Content,
			"impression":     report.Impression,
			"is_final":       report.IsFinal,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update report: %w", err)
	}

	r.invalidate(ctx, report.ID, report.ScanID)
	return nil
}

func (r *ReportPostgreSQL) Delete(ctx context.Context, id uint) error {
	var report models.Report
	if err := r.db.WithContext(ctx).First(&report, id).Error; err != nil {
		return err
	}

	if err := r.db.WithContext(ctx).Delete(&models.Report{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}

	r.invalidate(ctx, id, report.ScanID)
	return nil
}

func (r *ReportPostgreSQL) invalidate(ctx context.Context, reportID, scanID uint) {
	cache.SafeDelete(ctx, r.cacheManager.Report, fmt.Sprintf("id:%d", reportID))
	cache.SafeDelete(ctx, r.cacheManager.Scan, fmt.Sprintf("id:%d", scanID))
}
