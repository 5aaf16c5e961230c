package services

import (
	"context"
	"errors"
	"testing"

	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/validator"
)

func newUserService(t *testing.T) (UserService, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	return NewUserService(repo, testLogger(), validator.New()), repo
}

func TestUserService_Register_PatientGetsProfileInSameCall(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	symptoms := models.SymptomLump
	resp, err := svc.Register(ctx, "", &RegisterRequest{
		FullName: "Jane Roe",
		Email:    "jane@example.com",
		Role:     models.RolePatient,
		Symptoms: &symptoms,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if resp.User.ID == "" {
		t.Error("user ID should be generated")
	}
	if resp.Patient == nil {
		t.Fatal("patient profile should be created with registration")
	}
	if resp.Patient.Symptoms != models.SymptomLump {
		t.Errorf("symptoms = %s", resp.Patient.Symptoms)
	}
	if resp.Patient.Lifestyle != models.LifestyleOthers {
		t.Errorf("lifestyle = %s, want default OTHERS", resp.Patient.Lifestyle)
	}

	// Registration is the only profile creation path needed; a second
	// profile must never appear.
	if _, err := repo.Patient().GetByUserID(ctx, resp.User.ID); err != nil {
		t.Fatalf("profile lookup failed: %v", err)
	}
	again, err := svc.GetProfile(ctx, resp.User.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if again.Patient.ID != resp.Patient.ID {
		t.Error("GetProfile must reuse the existing profile")
	}
}

func TestUserService_Register_RadiologistLicenseRequired(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.Register(context.Background(), "", &RegisterRequest{
		FullName: "Dr. Gregory House",
		Email:    "house@example.com",
		Role:     models.RoleRadiologist,
	})
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	found := false
	for _, ve := range verrs {
		if ve.Field == "license_id" {
			found = true
		}
	}
	if !found {
		t.Errorf("errors = %+v, want license_id error", verrs)
	}
}

func TestUserService_Register_RadiologistWithLicense(t *testing.T) {
	svc, _ := newUserService(t)

	license := "MD-12345"
	hospital := "General"
	resp, err := svc.Register(context.Background(), "rad-1", &RegisterRequest{
		FullName:  "Dr. Gregory House",
		Email:     "house@example.com",
		Role:      models.RoleRadiologist,
		LicenseID: &license,
		Hospital:  &hospital,
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if resp.User.ID != "rad-1" {
		t.Errorf("user ID = %q, want caller-provided id kept", resp.User.ID)
	}
	if resp.Radiologist == nil || resp.Radiologist.LicenseID != license {
		t.Errorf("radiologist profile = %+v", resp.Radiologist)
	}
	if resp.Patient != nil {
		t.Error("radiologist must not get a patient profile")
	}
}

func TestUserService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	req := &RegisterRequest{FullName: "Jane Roe", Email: "jane@example.com", Role: models.RolePatient}
	if _, err := svc.Register(ctx, "", req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	_, err := svc.Register(ctx, "", &RegisterRequest{
		FullName: "Other Jane", Email: "jane@example.com", Role: models.RolePatient,
	})
	if !errors.Is(err, ErrUserAlreadyExists) {
		t.Fatalf("err = %v, want ErrUserAlreadyExists", err)
	}
}

func TestUserService_GetProfile_UnknownUser(t *testing.T) {
	svc, _ := newUserService(t)

	_, err := svc.GetProfile(context.Background(), "ghost")
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}
