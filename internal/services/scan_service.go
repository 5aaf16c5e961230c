package services

import (
	"context"
	"fmt"
	"mime/multipart"
	"strconv"

	"gorm.io/datatypes"

	"github.com/medscan/radiology-service/internal/ai"
	"github.com/medscan/radiology-service/internal/events"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/storage"
	"github.com/medscan/radiology-service/internal/utils"
	"github.com/medscan/radiology-service/internal/validator"
)

// Predictor is the slice of the inference client the scan workflow
// needs.
type Predictor interface {
	Predict(ctx context.Context, imagePath, modelName string) (*ai.Prediction, error)
}

type scanService struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *validator.Validator
	predictor Predictor
	store     *storage.ImageStore
	publisher events.EventPublisher
}

func NewScanService(
	repo repositories.Repository,
	logger utils.Logger,
	validator *validator.Validator,
	predictor Predictor,
	store *storage.ImageStore,
	publisher events.EventPublisher,
) ScanService {
	return &scanService{
		repo:      repo,
		logger:    logger,
		validator: validator,
		predictor: predictor,
		store:     store,
		publisher: publisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *scanService) Create(ctx context.Context, req *CreateScanRequest, image *multipart.FileHeader, userID string) (*ScanResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateScanCreate(req, user.Role); len(errs) > 0 {
		return nil, errs
	}

	patientID, err := s.resolveUploadPatient(ctx, user, req)
	if err != nil {
		return nil, err
	}

	scan := &models.Scan{
		PatientID:   patientID,
		Title:       req.Title,
		Description: req.Description,
		ScanType:    models.ScanTypeMammogram,
	}
	if req.ScanType != nil {
		scan.ScanType = *req.ScanType
	}

	if image != nil {
		relPath, err := s.store.Save(image)
		if err != nil {
			return nil, fmt.Errorf("failed to store scan image: %w", err)
		}
		scan.ImagePath = relPath
	}

	if err := s.repo.Scan().Create(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to create scan: %w", err)
	}

	s.logger.Info("scan created", "scan_id", scan.ID, "patient_id", patientID, "user_id", userID)

	// First annotation run happens inline; inference problems never
	// fail the upload.
	s.runInference(ctx, scan, "")

	return s.GetByID(ctx, scan.ID, userID)
}

func (s *scanService) GetByID(ctx context.Context, id uint, userID string) (*ScanResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	scan, err := s.repo.Scan().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	allowed, err := s.canAccessScan(ctx, scan, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewPermissionError(userID, id, "scan", "read", "not the owning patient")
	}

	return s.buildScanResponse(ctx, scan, user)
}

func (s *scanService) List(ctx context.Context, filters repositories.ScanFilters, userID string) (*ScanListResponse, error) {
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
		return &ScanListResponse{Scans: []*ScanResponse{}}, nil
	}

	scans, total, err := s.repo.Scan().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}

	responses := make([]*ScanResponse, 0, len(scans))
	for _, scan := range scans {
		resp, err := s.buildScanResponse(ctx, scan, user)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	page, size := pageFromFilters(filters.Limit, filters.Offset)

	return &ScanListResponse{
		Scans: responses,
		Total: total,
		Page:  page,
		Size:  size,
	}, nil
}

func (s *scanService) Update(ctx context.Context, id uint, req *UpdateScanRequest, userID string) (*ScanResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	if errs := s.validator.GetBusinessValidator().ValidateScanUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	scan, err := s.repo.Scan().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	allowed, err := s.canAccessScan(ctx, scan, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewPermissionError(userID, id, "scan", "update", "not the owning patient")
	}

	if req.Title != nil {
		scan.Title = *req.Title
	}
	if req.Description != nil {
		scan.Description = *req.Description
	}
	if req.ScanType != nil {
		scan.ScanType = *req.ScanType
	}

	if err := s.repo.Scan().UpdateMetadata(ctx, scan); err != nil {
		return nil, fmt.Errorf("failed to update scan: %w", err)
	}

	return s.GetByID(ctx, id, userID)
}

func (s *scanService) Delete(ctx context.Context, id uint, userID string) error {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return err
	}

	scan, err := s.repo.Scan().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrScanNotFound
		}
		return fmt.Errorf("failed to get scan: %w", err)
	}

	if !s.canDeleteScan(ctx, scan, user) {
		return NewPermissionError(userID, id, "scan", "delete", "only the owning patient or an admin may delete")
	}

	if err := s.repo.Scan().Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete scan: %w", err)
	}

	if scan.ImagePath != "" {
		if err := s.store.Remove(scan.ImagePath); err != nil {
			s.logger.Warn("failed to remove scan image", "scan_id", id, "error", err)
		}
	}

	s.logger.Info("scan deleted", "scan_id", id, "user_id", userID)
	return nil
}

// RerunInference re-triggers annotation. The only hard failures are
// access problems and a missing image; inference itself is best effort.
func (s *scanService) RerunInference(ctx context.Context, id uint, modelName string, userID string) (*ScanResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	scan, err := s.repo.Scan().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}

	allowed, err := s.canAccessScan(ctx, scan, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, NewPermissionError(userID, id, "scan", "rerun_inference", "not the owning patient")
	}

	if scan.ImagePath == "" {
		return nil, ErrScanHasNoImage
	}

	s.runInference(ctx, scan, modelName)

	return s.GetByID(ctx, id, userID)
}

func (s *scanService) CanAccess(ctx context.Context, scanID uint, userID string) (bool, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return false, err
	}

	scan, err := s.repo.Scan().GetByID(ctx, scanID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return false, nil
		}
		return false, err
	}

	return s.canAccessScan(ctx, scan, user)
}

// ===== ANNOTATION WORKFLOW =====

// runInference drives the whole annotation pipeline for one scan:
// classify, persist the annotation in a single update, reconcile the
// draft report under a row lock, publish the event. Every failure is
// logged and swallowed so triggering callers always succeed.
func (s *scanService) runInference(ctx context.Context, scan *models.Scan, modelName string) {
	if scan.ImagePath == "" {
		return
	}

	absPath := s.store.AbsolutePath(scan.ImagePath)
	if !s.store.Exists(scan.ImagePath) {
		s.logger.Warn("scan image missing on disk, skipping inference", "scan_id", scan.ID, "path", scan.ImagePath)
		return
	}

	prediction, err := s.predictor.Predict(ctx, absPath, modelName)
	if err != nil {
		s.logger.Warn("inference failed, keeping previous annotation", "scan_id", scan.ID, "error", err)
		return
	}

	scan.AIGenerated = true
	scan.AIPredictedClass = &prediction.PredictedClass
	scan.AIConfidence = &prediction.Confidence
	scan.AIBenignProb = &prediction.BenignProbability
	scan.AIMalignantProb = &prediction.MalignantProbability
	scan.AIRawResponse = datatypes.JSON(prediction.Raw)

	if err := s.repo.Scan().UpdateAIFields(ctx, scan); err != nil {
		s.logger.Error("failed to persist annotation", "scan_id", scan.ID, "error", err)
		return
	}

	if err := s.reconcileReport(ctx, scan, prediction); err != nil {
		s.logger.Error("failed to reconcile report", "scan_id", scan.ID, "error", err)
		return
	}

	if err := s.publisher.Publish(ctx, events.EventTypeScanAnnotated, events.ScanAnnotatedEvent{
		ScanID:         scan.ID,
		PatientID:      scan.PatientID,
		PredictedClass: prediction.PredictedClass,
		Confidence:     prediction.Confidence,
	}); err != nil {
		s.logger.Warn("failed to publish scan.annotated event", "scan_id", scan.ID, "error", err)
	}

	s.logger.Info("scan annotated", "scan_id", scan.ID, "predicted_class", prediction.PredictedClass)
}

// reconcileReport creates or overwrites the draft report for a scan.
// The report row stays locked for the whole transaction so a
// concurrent finalize cannot slip between the read and the write; a
// report that is already final is left untouched.
func (s *scanService) reconcileReport(ctx context.Context, scan *models.Scan, prediction *ai.Prediction) error {
	content := composeReportContent(prediction)
	impression := composeImpression(prediction)

	return s.repo.WithTransaction(ctx, func(txRepo repositories.Repository) error {
		report, err := txRepo.Report().GetByScanIDForUpdate(ctx, scan.ID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return txRepo.Report().Create(ctx, &models.Report{
					ScanID:     scan.ID,
					Content:    content,
					Impression: impression,
					IsFinal:    false,
				})
			}
			return err
		}

		if report.IsFinal {
			return nil
		}

		report.Content = content
		report.Impression = impression
		return txRepo.Report().Update(ctx, report)
	})
}

func composeReportContent(p *ai.Prediction) string {
	return fmt.Sprintf(
		"Automated AI Analysis:\n"+
			"- Predicted Diagnosis: %s\n"+
			"- Confidence Level: %s%%\n"+
			"- Malignancy Probability: %s%%\n"+
			"- Benign Probability: %s%%\n\n"+
			"This is a preliminary automated finding. Please review.",
		p.PredictedClass,
		formatPercent(p.Confidence),
		formatPercent(p.MalignantProbability),
		formatPercent(p.BenignProbability),
	)
}

func composeImpression(p *ai.Prediction) string {
	return fmt.Sprintf("AI Prediction: %s (%s%%)", p.PredictedClass, formatPercent(p.Confidence))
}

// formatPercent renders the shortest decimal representation, so 92.4
// stays "92.4" and 87 stays "87".
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ===== HELPERS =====

func (s *scanService) getUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repo.User().GetByID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (s *scanService) resolveUploadPatient(ctx context.Context, user *models.User, req *CreateScanRequest) (uint, error) {
	switch user.Role {
	case models.RolePatient:
		patient, err := s.repo.Patient().GetOrCreateByUserID(ctx, user.ID)
		if err != nil {
			return 0, err
		}
		return patient.ID, nil
	case models.RoleRadiologist, models.RoleAdmin:
		patient, err := s.repo.Patient().GetByID(ctx, *req.PatientID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return 0, ErrPatientNotFound
			}
			return 0, err
		}
		return patient.ID, nil
	}
	return 0, NewPermissionError(user.ID, 0, "scan", "create", "role cannot upload scans")
}

func (s *scanService) canAccessScan(ctx context.Context, scan *models.Scan, user *models.User) (bool, error) {
	switch user.Role {
	case models.RoleRadiologist, models.RoleAdmin:
		return true, nil
	case models.RolePatient:
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

func (s *scanService) canDeleteScan(ctx context.Context, scan *models.Scan, user *models.User) bool {
	switch user.Role {
	case models.RoleAdmin:
		return true
	case models.RolePatient:
		patient, err := s.repo.Patient().GetByUserID(ctx, user.ID)
		if err != nil {
			return false
		}
		return scan.PatientID == patient.ID
	}
	return false
}

func (s *scanService) buildScanResponse(ctx context.Context, scan *models.Scan, viewer *models.User) (*ScanResponse, error) {
	resp := &ScanResponse{
		Scan:      scan,
		CanEdit:   viewer.Role != models.RolePatient || s.canDeleteScan(ctx, scan, viewer),
		CanDelete: s.canDeleteScan(ctx, scan, viewer),
	}

	if scan.Patient != nil && scan.Patient.User != nil {
		resp.PatientName = scan.Patient.User.FullName
	}

	if scan.Report != nil {
		resp.Report = buildReportResponse(scan.Report, viewer.Role)
	}

	return resp, nil
}

// buildReportResponse serializes a report for a viewer. Patients never
// receive the long-form content, only the impression and metadata.
func buildReportResponse(report *models.Report, viewerRole models.UserRole) *ReportResponse {
	resp := &ReportResponse{
		ID:            report.ID,
		ScanID:        report.ScanID,
		RadiologistID: report.RadiologistID,
		Impression:    report.Impression,
		IsFinal:       report.IsFinal,
		CreatedAt:     report.CreatedAt,
		UpdatedAt:     report.UpdatedAt,
	}

	if report.Radiologist != nil && report.Radiologist.User != nil {
		resp.RadiologistName = report.Radiologist.User.FullName
	}

	switch viewerRole {
	case models.RoleRadiologist, models.RoleAdmin:
		content := report.Content
		resp.Content = &content
	}

	return resp
}

func pageFromFilters(limit, offset int) (page, size int) {
	size = limit
	if size <= 0 {
		size = 20
	}
	page = offset/size + 1
	return page, size
}
