package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
)

// fakeRepository is an in-memory repositories.Repository for service
// tests. Getters return copies so a service mutating a result cannot
// change stored state without calling Update.
type fakeRepository struct {
	mu sync.Mutex

	users        map[string]*models.User
	patients     map[uint]*models.Patient
	radiologists map[uint]*models.Radiologist
	scans        map[uint]*models.Scan
	reports      map[uint]*models.Report

	nextPatientID     uint
	nextRadiologistID uint
	nextScanID        uint
	nextReportID      uint

	aiUpdateCount int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:        make(map[string]*models.User),
		patients:     make(map[uint]*models.Patient),
		radiologists: make(map[uint]*models.Radiologist),
		scans:        make(map[uint]*models.Scan),
		reports:      make(map[uint]*models.Report),
	}
}

func (r *fakeRepository) User() repositories.UserRepository               { return &fakeUsers{r} }
func (r *fakeRepository) Patient() repositories.PatientRepository         { return &fakePatients{r} }
func (r *fakeRepository) Radiologist() repositories.RadiologistRepository { return &fakeRadiologists{r} }
func (r *fakeRepository) Scan() repositories.ScanRepository               { return &fakeScans{r} }
func (r *fakeRepository) Report() repositories.ReportRepository           { return &fakeReports{r} }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

// ===== users =====

type fakeUsers struct{ r *fakeRepository }

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c := *user
	f.r.users[user.ID] = &c
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	user, ok := f.r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *user
	return &c, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, user := range f.r.users {
		if user.Email == email {
			c := *user
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) Update(_ context.Context, user *models.User) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c := *user
	f.r.users[user.ID] = &c
	return nil
}

func (f *fakeUsers) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, user := range f.r.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// ===== patients =====

type fakePatients struct{ r *fakeRepository }

func (f *fakePatients) Create(_ context.Context, patient *models.Patient) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.nextPatientID++
	patient.ID = f.r.nextPatientID
	c := *patient
	f.r.patients[patient.ID] = &c
	return nil
}

func (f *fakePatients) GetByID(_ context.Context, id uint) (*models.Patient, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	patient, ok := f.r.patients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.r.patientCopy(patient), nil
}

func (f *fakePatients) GetByUserID(_ context.Context, userID string) (*models.Patient, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, patient := range f.r.patients {
		if patient.UserID == userID {
			return f.r.patientCopy(patient), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePatients) GetOrCreateByUserID(ctx context.Context, userID string) (*models.Patient, error) {
	if patient, err := f.GetByUserID(ctx, userID); err == nil {
		return patient, nil
	}
	patient := &models.Patient{
		UserID:    userID,
		Symptoms:  models.SymptomOthers,
		Lifestyle: models.LifestyleOthers,
	}
	if err := f.Create(ctx, patient); err != nil {
		return nil, err
	}
	return patient, nil
}

func (f *fakePatients) Update(_ context.Context, patient *models.Patient) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	c := *patient
	f.r.patients[patient.ID] = &c
	return nil
}

func (f *fakePatients) Delete(_ context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	delete(f.r.patients, id)
	return nil
}

// ===== radiologists =====

type fakeRadiologists struct{ r *fakeRepository }

func (f *fakeRadiologists) Create(_ context.Context, radiologist *models.Radiologist) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.nextRadiologistID++
	radiologist.ID = f.r.nextRadiologistID
	c := *radiologist
	f.r.radiologists[radiologist.ID] = &c
	return nil
}

func (f *fakeRadiologists) GetByID(_ context.Context, id uint) (*models.Radiologist, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	radiologist, ok := f.r.radiologists[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.r.radiologistCopy(radiologist), nil
}

func (f *fakeRadiologists) GetByUserID(_ context.Context, userID string) (*models.Radiologist, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, radiologist := range f.r.radiologists {
		if radiologist.UserID == userID {
			return f.r.radiologistCopy(radiologist), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRadiologists) Delete(_ context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	delete(f.r.radiologists, id)
	return nil
}

// ===== scans =====

type fakeScans struct{ r *fakeRepository }

func (f *fakeScans) Create(_ context.Context, scan *models.Scan) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.nextScanID++
	scan.ID = f.r.nextScanID
	if scan.CreatedAt.IsZero() {
		scan.CreatedAt = time.Now()
	}
	c := *scan
	c.Patient = nil
	c.Report = nil
	f.r.scans[scan.ID] = &c
	return nil
}

func (f *fakeScans) GetByID(_ context.Context, id uint) (*models.Scan, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	scan, ok := f.r.scans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.r.scanCopy(scan), nil
}

func (f *fakeScans) List(_ context.Context, filters repositories.ScanFilters) ([]*models.Scan, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()

	var matched []*models.Scan
	for _, scan := range f.r.scans {
		if filters.PatientID != nil && scan.PatientID != *filters.PatientID {
			continue
		}
		if filters.ScanType != nil && scan.ScanType != *filters.ScanType {
			continue
		}
		if filters.Search != "" && !f.r.scanMatchesSearch(scan, filters.Search) {
			continue
		}
		matched = append(matched, f.r.scanCopy(scan))
	}

	asc := filters.SortBy == "created_at" && strings.EqualFold(filters.SortOrder, "asc")
	sort.Slice(matched, func(i, j int) bool {
		if asc {
			return matched[i].CreatedAt.Before(matched[j].CreatedAt)
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filters.Offset > 0 {
		if filters.Offset >= len(matched) {
			matched = nil
		} else {
			matched = matched[filters.Offset:]
		}
	}
	if filters.Limit > 0 && filters.Limit < len(matched) {
		matched = matched[:filters.Limit]
	}

	return matched, total, nil
}

func (f *fakeScans) UpdateMetadata(_ context.Context, scan *models.Scan) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	stored, ok := f.r.scans[scan.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.Title = scan.Title
	stored.Description = scan.Description
	stored.ScanType = scan.ScanType
	stored.ImagePath = scan.ImagePath
	return nil
}

func (f *fakeScans) UpdateAIFields(_ context.Context, scan *models.Scan) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	stored, ok := f.r.scans[scan.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	f.r.aiUpdateCount++
	stored.AIGenerated = scan.AIGenerated
	stored.AIPredictedClass = scan.AIPredictedClass
	stored.AIConfidence = scan.AIConfidence
	stored.AIBenignProb = scan.AIBenignProb
	stored.AIMalignantProb = scan.AIMalignantProb
	stored.AIRawResponse = scan.AIRawResponse
	return nil
}

func (f *fakeScans) Delete(_ context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	delete(f.r.scans, id)
	for reportID, report := range f.r.reports {
		if report.ScanID == id {
			delete(f.r.reports, reportID)
		}
	}
	return nil
}

// ===== reports =====

type fakeReports struct{ r *fakeRepository }

func (f *fakeReports) Create(_ context.Context, report *models.Report) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, existing := range f.r.reports {
		if existing.ScanID == report.ScanID {
			return gorm.ErrDuplicatedKey
		}
	}
	f.r.nextReportID++
	report.ID = f.r.nextReportID
	now := time.Now()
	report.CreatedAt = now
	report.UpdatedAt = now
	c := *report
	c.Radiologist = nil
	f.r.reports[report.ID] = &c
	return nil
}

func (f *fakeReports) GetByID(_ context.Context, id uint) (*models.Report, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	report, ok := f.r.reports[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return f.r.reportCopy(report), nil
}

func (f *fakeReports) GetByScanID(_ context.Context, scanID uint) (*models.Report, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, report := range f.r.reports {
		if report.ScanID == scanID {
			return f.r.reportCopy(report), nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeReports) GetByScanIDForUpdate(ctx context.Context, scanID uint) (*models.Report, error) {
	return f.GetByScanID(ctx, scanID)
}

func (f *fakeReports) List(_ context.Context, filters repositories.ReportFilters) ([]*models.Report, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()

	var matched []*models.Report
	for _, report := range f.r.reports {
		if filters.PatientID != nil {
			scan, ok := f.r.scans[report.ScanID]
			if !ok || scan.PatientID != *filters.PatientID {
				continue
			}
		}
		if filters.RadiologistID != nil {
			if report.RadiologistID == nil || *report.RadiologistID != *filters.RadiologistID {
				continue
			}
		}
		if filters.IsFinal != nil && report.IsFinal != *filters.IsFinal {
			continue
		}
		matched = append(matched, f.r.reportCopy(report))
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].ID > matched[j].ID
	})

	return matched, int64(len(matched)), nil
}

func (f *fakeReports) Update(_ context.Context, report *models.Report) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	stored, ok := f.r.reports[report.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.RadiologistID = report.RadiologistID
	stored.Content = report.Content
	stored.Impression = report.Impression
	stored.IsFinal = report.IsFinal
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeReports) Delete(_ context.Context, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.reports[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.r.reports, id)
	return nil
}

// ===== copy helpers (simulate gorm preloads) =====

func (r *fakeRepository) patientCopy(patient *models.Patient) *models.Patient {
	c := *patient
	if user, ok := r.users[patient.UserID]; ok {
		uc := *user
		c.User = &uc
	}
	return &c
}

func (r *fakeRepository) radiologistCopy(radiologist *models.Radiologist) *models.Radiologist {
	c := *radiologist
	if user, ok := r.users[radiologist.UserID]; ok {
		uc := *user
		c.User = &uc
	}
	return &c
}

func (r *fakeRepository) scanCopy(scan *models.Scan) *models.Scan {
	c := *scan
	if patient, ok := r.patients[scan.PatientID]; ok {
		c.Patient = r.patientCopy(patient)
	}
	for _, report := range r.reports {
		if report.ScanID == scan.ID {
			c.Report = r.reportCopy(report)
			break
		}
	}
	return &c
}

func (r *fakeRepository) reportCopy(report *models.Report) *models.Report {
	c := *report
	if report.RadiologistID != nil {
		if radiologist, ok := r.radiologists[*report.RadiologistID]; ok {
			c.Radiologist = r.radiologistCopy(radiologist)
		}
	}
	return &c
}

func (r *fakeRepository) scanMatchesSearch(scan *models.Scan, search string) bool {
	search = strings.ToLower(search)
	if strings.Contains(strings.ToLower(scan.Title), search) {
		return true
	}
	if strings.Contains(strings.ToLower(scan.Description), search) {
		return true
	}
	if patient, ok := r.patients[scan.PatientID]; ok {
		if user, ok := r.users[patient.UserID]; ok {
			return strings.Contains(strings.ToLower(user.FullName), search)
		}
	}
	return false
}
