package services

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/utils"
)

type exportService struct {
	repo   repositories.Repository
	logger utils.Logger
}

func NewExportService(repo repositories.Repository, logger utils.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var scanExportHeaders = []string{
	"ID", "Patient", "Scan Type", "Title", "Created At",
	"AI Generated", "Predicted Class", "Confidence", "Report Status", "Impression",
}

// ExportScans renders every scan into an xlsx workbook for offline
// review. Admin only.
func (s *exportService) ExportScans(ctx context.Context, userID string) ([]byte, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.Role != models.RoleAdmin {
		return nil, NewPermissionError(userID, 0, "scan", "export", "only admins may export")
	}

	scans, _, err := s.repo.Scan().List(ctx, repositories.ScanFilters{})
	if err != nil {
		return nil, fmt.Errorf("failed to list scans for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Scans"
	f.SetSheetName("Sheet1", sheet)

	for col, header := range scanExportHeaders {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, scan := range scans {
		values := s.exportRow(scan)
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write export workbook: %w", err)
	}

	s.logger.Info("scans exported", "user_id", userID, "count", len(scans))

	return buf.Bytes(), nil
}

func (s *exportService) exportRow(scan *models.Scan) []interface{} {
	patientName := ""
	if scan.Patient != nil && scan.Patient.User != nil {
		patientName = scan.Patient.User.FullName
	}

	predictedClass := ""
	if scan.AIPredictedClass != nil {
		predictedClass = *scan.AIPredictedClass
	}

	var confidence interface{}
	if scan.AIConfidence != nil {
		confidence = *scan.AIConfidence
	}

	reportStatus := "none"
	impression := ""
	if scan.Report != nil {
		impression = scan.Report.Impression
		if scan.Report.IsFinal {
			reportStatus = "final"
		} else {
			reportStatus = "draft"
		}
	}

	return []interface{}{
		scan.ID,
		patientName,
		string(scan.ScanType),
		scan.Title,
		scan.CreatedAt.Format("2006-01-02 15:04:05"),
		scan.AIGenerated,
		predictedClass,
		confidence,
		reportStatus,
		impression,
	}
}
