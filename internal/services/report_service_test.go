package services

import (
	"context"
	"errors"
	"testing"

	"github.com/medscan/radiology-service/internal/events"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/validator"
)

type reportFixture struct {
	repo      *fakeRepository
	svc       ReportService
	publisher *events.MockEventPublisher
}

func newReportFixture(t *testing.T) *reportFixture {
	t.Helper()

	repo := newFakeRepository()
	ctx := context.Background()

	users := []*models.User{
		{ID: "patient-1", FullName: "Jane Roe", Email: "jane@example.com", Role: models.RolePatient},
		{ID: "patient-2", FullName: "Mary Major", Email: "mary@example.com", Role: models.RolePatient},
		{ID: "rad-1", FullName: "Dr. Gregory House", Email: "house@example.com", Role: models.RoleRadiologist},
		{ID: "admin-1", FullName: "Root Admin", Email: "admin@example.com", Role: models.RoleAdmin},
	}
	for _, user := range users {
		if err := repo.User().Create(ctx, user); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	for _, userID := range []string{"patient-1", "patient-2"} {
		if _, err := repo.Patient().GetOrCreateByUserID(ctx, userID); err != nil {
			t.Fatalf("seed patient: %v", err)
		}
	}
	if err := repo.Radiologist().Create(ctx, &models.Radiologist{
		UserID: "rad-1", LicenseID: "MD-12345",
	}); err != nil {
		t.Fatalf("seed radiologist: %v", err)
	}

	if err := repo.Scan().Create(ctx, &models.Scan{PatientID: 1, Title: "Left MLO"}); err != nil {
		t.Fatalf("seed scan: %v", err)
	}
	if err := repo.Scan().Create(ctx, &models.Scan{PatientID: 2, Title: "Right CC"}); err != nil {
		t.Fatalf("seed scan: %v", err)
	}

	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewReportService(repo, testLogger(), validator.New(), publisher)

	return &reportFixture{repo: repo, svc: svc, publisher: publisher}
}

func TestReportService_Create_AssignsAuthorship(t *testing.T) {
	fx := newReportFixture(t)

	resp, err := fx.svc.Create(context.Background(), &CreateReportRequest{
		ScanID:     1,
		Content:    "Spiculated mass in the upper outer quadrant.",
		Impression: "Suspicious for malignancy",
	}, "rad-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if resp.RadiologistID == nil || *resp.RadiologistID != 1 {
		t.Errorf("radiologist_id = %v, want acting radiologist", resp.RadiologistID)
	}
	if resp.RadiologistName != "Dr. Gregory House" {
		t.Errorf("radiologist_name = %q", resp.RadiologistName)
	}
	if resp.IsFinal {
		t.Error("report should not be final unless requested")
	}
}

func TestReportService_Create_RejectsNonRadiologists(t *testing.T) {
	fx := newReportFixture(t)
	req := &CreateReportRequest{ScanID: 1, Content: "text"}

	for _, userID := range []string{"patient-1", "admin-1"} {
		_, err := fx.svc.Create(context.Background(), req, userID)
		var permErr *PermissionError
		if !errors.As(err, &permErr) {
			t.Errorf("user %s: err = %v, want PermissionError", userID, err)
		}
	}
}

func TestReportService_Create_OneReportPerScan(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()
	req := &CreateReportRequest{ScanID: 1, Content: "first"}

	if _, err := fx.svc.Create(ctx, req, "rad-1"); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	_, err := fx.svc.Create(ctx, &CreateReportRequest{ScanID: 1, Content: "second"}, "rad-1")
	if !errors.Is(err, ErrReportAlreadyExists) {
		t.Fatalf("err = %v, want ErrReportAlreadyExists", err)
	}
}

func TestReportService_Update_FinalizePublishesEvent(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, &CreateReportRequest{ScanID: 1, Content: "draft text"}, "rad-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	fx.publisher.ClearEvents()

	final := true
	updated, err := fx.svc.Update(ctx, created.ID, &UpdateReportRequest{IsFinal: &final}, "rad-1")
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !updated.IsFinal {
		t.Error("report should be final")
	}

	published := fx.publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.EventTypeReportFinalized {
		t.Errorf("published events = %+v, want one report.finalized", published)
	}

	// Finalizing again must not re-publish.
	if _, err := fx.svc.Update(ctx, created.ID, &UpdateReportRequest{IsFinal: &final}, "rad-1"); err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if len(fx.publisher.GetPublishedEvents()) != 1 {
		t.Error("already-final report must not publish another event")
	}
}

func TestReportService_GetByID_PatientRedactionAndScope(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, &CreateReportRequest{
		ScanID:     1,
		Content:    "Detailed finding text.",
		Impression: "Benign",
	}, "rad-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	asOwner, err := fx.svc.GetByID(ctx, created.ID, "patient-1")
	if err != nil {
		t.Fatalf("GetByID as owning patient: %v", err)
	}
	if asOwner.Content != nil {
		t.Error("patient must not receive report content")
	}
	if asOwner.Impression != "Benign" {
		t.Errorf("impression = %q", asOwner.Impression)
	}

	asRadiologist, err := fx.svc.GetByID(ctx, created.ID, "rad-1")
	if err != nil {
		t.Fatalf("GetByID as radiologist: %v", err)
	}
	if asRadiologist.Content == nil || *asRadiologist.Content != "Detailed finding text." {
		t.Errorf("radiologist content = %v", asRadiologist.Content)
	}

	_, err = fx.svc.GetByID(ctx, created.ID, "patient-2")
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("other patient: err = %v, want PermissionError", err)
	}
}

func TestReportService_List_ScopedByRole(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Create(ctx, &CreateReportRequest{ScanID: 1, Content: "a"}, "rad-1"); err != nil {
		t.Fatalf("seed report: %v", err)
	}
	if _, err := fx.svc.Create(ctx, &CreateReportRequest{ScanID: 2, Content: "b"}, "rad-1"); err != nil {
		t.Fatalf("seed report: %v", err)
	}

	patientList, err := fx.svc.List(ctx, repositories.ReportFilters{}, "patient-1")
	if err != nil {
		t.Fatalf("List as patient: %v", err)
	}
	if len(patientList.Reports) != 1 || patientList.Reports[0].ScanID != 1 {
		t.Errorf("patient list = %+v, want only own report", patientList.Reports)
	}

	radiologistList, err := fx.svc.List(ctx, repositories.ReportFilters{}, "rad-1")
	if err != nil {
		t.Fatalf("List as radiologist: %v", err)
	}
	if len(radiologistList.Reports) != 2 {
		t.Errorf("radiologist list length = %d, want 2", len(radiologistList.Reports))
	}
}

func TestReportService_Delete_RadiologistOnly(t *testing.T) {
	fx := newReportFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Create(ctx, &CreateReportRequest{ScanID: 1, Content: "text"}, "rad-1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var permErr *PermissionError
	if err := fx.svc.Delete(ctx, created.ID, "patient-1"); !errors.As(err, &permErr) {
		t.Errorf("patient delete: err = %v, want PermissionError", err)
	}

	if err := fx.svc.Delete(ctx, created.ID, "rad-1"); err != nil {
		t.Fatalf("radiologist delete failed: %v", err)
	}
	if _, err := fx.svc.GetByID(ctx, created.ID, "rad-1"); !errors.Is(err, ErrReportNotFound) {
		t.Errorf("err = %v, want ErrReportNotFound", err)
	}
}
