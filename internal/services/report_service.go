package services

import (
	"context"
	"fmt"

	"github.com/medscan/radiology-service/internal/events"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/utils"
	"github.com/medscan/radiology-service/internal/validator"
)

type reportService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *validator.Validator
	publisher events.EventPublisher
}

func NewReportService(
	repo repositories.Repository,
	logger utils.Logger,
	validator *validator.Validator,
	publisher events.EventPublisher,
) ReportService {
	return &reportService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		publisher: publisher,
	}
}

func (s *reportService) Create(ctx context.Context, req *CreateReportRequest, userID string) (*ReportResponse, error) {
	radiologist, err := s.requireRadiologist(ctx, userID, 0, "create")
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateReportCreate(req); len(errs) > 0 {
		return nil, errs
	}

	if _, err := s.repo.Scan().GetByID(ctx, req.ScanID); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	if _, err := s.repo.Report().GetByScanID(ctx, req.ScanID); err == nil {
		return nil, ErrReportAlreadyExists
	} else if !repositories.IsNotFoundError(err) {
		return nil, fmt.Errorf("failed to check existing report: %w", err)
	}

	report := &models.Report{
		ScanID:        req.ScanID,
		RadiologistID: &radiologist.ID,
		Content:       req.Content,
		Impression:    req.Impression,
		IsFinal:       req.IsFinal,
	}

	if err := s.repo.Report().Create(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	s.logger.Info("report created", "report_id", report.ID, "scan_id", req.ScanID, "radiologist_id", radiologist.ID)

	if report.IsFinal {
		s.publishFinalized(ctx, report)
	}

	return s.GetByID(ctx, report.ID, userID)
}

func (s *reportService) GetByID(ctx context.Context, id uint, userID string) (*ReportResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	report, err := s.repo.Report().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	allowed, err := s.canAccessReport(ctx, report, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewPermissionError(userID, id, "report", "read", "not a report on the patient's own scan")
	}

	return buildReportResponse(report, user.Role), nil
}

func (s *reportService) List(ctx context.Context, filters repositories.ReportFilters, userID string) (*ReportListResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	switch user.Role {
	case models.RolePatient:
		patient, err := s.repo.Patient().GetOrCreateByUserID(ctx, userID)
		if err != nil {
			return nil, err
		}
		filters.PatientID = &patient.ID
	case models.RoleRadiologist, models.RoleAdmin:
		// Unrestricted.
	default:
		return &ReportListResponse{Reports: []*ReportResponse{}}, nil
	}

	reports, total, err := s.repo.Report().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	responses := make([]*ReportResponse, 0, len(reports))
	for _, report := range reports {
		responses = append(responses, buildReportResponse(report, user.Role))
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)

	return &ReportListResponse{
		Reports: responses,
		Total:   total,
		Page:    page,
		Size:    size,
	}, nil
}

func (s *reportService) Update(ctx context.Context, id uint, req *UpdateReportRequest, userID string) (*ReportResponse, error) {
	radiologist, err := s.requireRadiologist(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateReportUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	report, err := s.repo.Report().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	wasFinal := report.IsFinal

	if req.Content != nil {
		report.Content = *req.Content
	}
	if req.Impression != nil {
		report.Impression = *req.Impression
	}
	if req.IsFinal != nil {
		report.IsFinal = *req.IsFinal
	}
	// The acting radiologist takes authorship of whatever they touch.
	report.RadiologistID = &radiologist.ID

	if err := s.repo.Report().Update(ctx, report); err != nil {
		return nil, fmt.Errorf("failed to update report: %w", err)
	}

	s.logger.Info("report updated", "report_id", id, "radiologist_id", radiologist.ID, "is_final", report.IsFinal)

	if !wasFinal && report.IsFinal {
		s.publishFinalized(ctx, report)
	}

	return s.GetByID(ctx, id, userID)
}

func (s *reportService) Delete(ctx context.Context, id uint, userID string) error {
	if _, err := s.requireRadiologist(ctx, userID, id, "delete"); err != nil {
		return err
	}

	if err := s.repo.Report().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrReportNotFound
		}
		return fmt.Errorf("failed to delete report: %w", err)
	}

	s.logger.Info("report deleted", "report_id", id, "user_id", userID)
	return nil
}

// ===== HELPERS =====

func (s *reportService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// requireRadiologist resolves the acting radiologist profile or fails
// with a permission error.
func (s *reportService) requireRadiologist(ctx context.Context, userID string, reportID uint, action string) (*models.Radiologist, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != models.RoleRadiologist {
		return nil, NewPermissionError(userID, reportID, "report", action, "only radiologists may write reports")
	}

	radiologist, err := s.repo.Radiologist().GetByUserID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrRadiologistNotFound
		}
		return nil, fmt.Errorf("failed to get radiologist profile: %w", err)
	}

	return radiologist, nil
}

func (s *reportService) canAccessReport(ctx context.Context, report *models.Report, user *models.User) (bool, error) {
	switch user.Role {
	case models.RoleRadiologist, models.RoleAdmin:
		return true, nil
	case models.RolePatient:
		scan, err := s.repo.Scan().GetByID(ctx, report.ScanID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return false, nil
			}
			return false, err
		}
		patient, err := s.repo.Patient().GetByUserID(ctx, user.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return false, nil
			}
			return false, err
		}
		return scan.PatientID == patient.ID, nil
	}
	return false, nil
}

func (s *reportService) publishFinalized(ctx context.Context, report *models.Report) {
	err := s.publisher.Publish(ctx, events.EventTypeReportFinalized, events.ReportFinalizedEvent{
		ReportID:      report.ID,
		ScanID:        report.ScanID,
		RadiologistID: report.RadiologistID,
		Impression:    report.Impression,
	})
	if err != nil {
		s.logger.Warn("failed to publish report.finalized event", "report_id", report.ID, "error", err)
	}
}
