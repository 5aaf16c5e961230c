package validator

import (
	"testing"

	"github.com/medscan/radiology-service/internal/models"
)

func strPtr(s string) *string { return &s }

func TestValidateRegister(t *testing.T) {
	bv := NewBusinessValidator()

	tests := []struct {
		name      string
		req       RegisterRequest
		wantField string
	}{
		{
			name: "valid patient",
			req: RegisterRequest{
				FullName: "Jane Roe",
				Email:    "jane@example.com",
				Role:     models.RolePatient,
			},
		},
		{
			name: "valid radiologist",
			req: RegisterRequest{
				FullName:  "Dr. House",
				Email:     "house@example.com",
				Role:      models.RoleRadiologist,
				LicenseID: strPtr("MD-12345"),
			},
		},
		{
			name: "radiologist without license",
			req: RegisterRequest{
				FullName: "Dr. House",
				Email:    "house@example.com",
				Role:     models.RoleRadiologist,
			},
			wantField: "license_id",
		},
		{
			name: "patient with license",
			req: RegisterRequest{
				FullName:  "Jane Roe",
				Email:     "jane@example.com",
				Role:      models.RolePatient,
				LicenseID: strPtr("MD-12345"),
			},
			wantField: "license_id",
		},
		{
			name: "bad email",
			req: RegisterRequest{
				FullName: "Jane Roe",
				Email:    "not-an-email",
				Role:     models.RolePatient,
			},
			wantField: "Email",
		},
		{
			name: "unknown role",
			req: RegisterRequest{
				FullName: "Jane Roe",
				Email:    "jane@example.com",
				Role:     models.UserRole("SUPERUSER"),
			},
			wantField: "Role",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := bv.ValidateRegister(&tt.req)
			if tt.wantField == "" {
				if len(errs) != 0 {
					t.Fatalf("unexpected errors: %+v", errs)
				}
				return
			}
			if len(errs) == 0 {
				t.Fatalf("want error on field %q, got none", tt.wantField)
			}
			found := false
			for _, e := range errs {
				if e.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %+v do not mention field %q", errs, tt.wantField)
			}
		})
	}
}

func TestValidateScanCreate_PatientIDRule(t *testing.T) {
	bv := NewBusinessValidator()

	if errs := bv.ValidateScanCreate(&ScanCreateRequest{Title: "Left MLO"}, models.RolePatient); len(errs) != 0 {
		t.Errorf("patient upload without patient_id should pass, got %+v", errs)
	}

	errs := bv.ValidateScanCreate(&ScanCreateRequest{Title: "Left MLO"}, models.RoleRadiologist)
	if len(errs) != 1 || errs[0].Field != "patient_id" {
		t.Errorf("staff upload without patient_id should fail on patient_id, got %+v", errs)
	}

	patientID := uint(7)
	if errs := bv.ValidateScanCreate(&ScanCreateRequest{PatientID: &patientID}, models.RoleAdmin); len(errs) != 0 {
		t.Errorf("admin upload with patient_id should pass, got %+v", errs)
	}
}

func TestValidateScanUpdate_EnumChecks(t *testing.T) {
	bv := NewBusinessValidator()

	bad := models.ScanType("ULTRASOUND")
	errs := bv.ValidateScanUpdate(&ScanUpdateRequest{ScanType: &bad})
	if len(errs) == 0 {
		t.Error("invalid scan type should be rejected")
	}

	good := models.ScanTypeCT
	if errs := bv.ValidateScanUpdate(&ScanUpdateRequest{ScanType: &good}); len(errs) != 0 {
		t.Errorf("valid scan type rejected: %+v", errs)
	}
}

func TestValidateReportUpdate_BlankContent(t *testing.T) {
	bv := NewBusinessValidator()

	blank := "   "
	errs := bv.ValidateReportUpdate(&ReportUpdateRequest{Content: &blank})
	if len(errs) == 0 {
		t.Error("blank content should be rejected")
	}
}
