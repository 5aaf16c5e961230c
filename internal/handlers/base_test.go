package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/medscan/radiology-service/internal/services"
	"github.com/medscan/radiology-service/internal/utils"
	"github.com/medscan/radiology-service/internal/validator"
)

func newTestContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, target, nil)
	return c, w
}

func testBaseHandler() BaseHandler {
	return NewBaseHandler(utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func TestHandleServiceError_StatusMapping(t *testing.T) {
	h := testBaseHandler()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", validator.ValidationErrors{{Field: "title"}}, http.StatusBadRequest},
		{"permission", services.NewPermissionError("user-1", 1, "scan", "read", "not the owner"), http.StatusForbidden},
		{"scan not found", services.ErrScanNotFound, http.StatusNotFound},
		{"report not found", services.ErrReportNotFound, http.StatusNotFound},
		{"duplicate report", services.ErrReportAlreadyExists, http.StatusConflict},
		{"duplicate user", services.ErrUserAlreadyExists, http.StatusConflict},
		{"no image", services.ErrScanHasNoImage, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(t, "/api/v1/scans/1")
			h.handleServiceError(c, tt.err)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}

func TestParseIDParam(t *testing.T) {
	h := testBaseHandler()

	c, w := newTestContext(t, "/api/v1/scans/abc")
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	if id := h.parseIDParam(c, "id"); id != 0 {
		t.Errorf("malformed id parsed as %d", id)
	}
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}

	c, _ = newTestContext(t, "/api/v1/scans/42")
	c.Params = gin.Params{{Key: "id", Value: "42"}}
	if id := h.parseIDParam(c, "id"); id != 42 {
		t.Errorf("id = %d, want 42", id)
	}
}

func TestCurrentUserID_Unauthenticated(t *testing.T) {
	h := testBaseHandler()

	c, w := newTestContext(t, "/api/v1/users/me")
	if _, ok := h.currentUserID(c); ok {
		t.Error("expected missing user_id to fail")
	}
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}

	c, _ = newTestContext(t, "/api/v1/users/me")
	c.Set("user_id", "user-1")
	userID, ok := h.currentUserID(c)
	if !ok || userID != "user-1" {
		t.Errorf("got (%q, %v), want (user-1, true)", userID, ok)
	}
}

func TestParseScanFilters(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		search    string
		scanType  string
		sortOrder string
		limit     int
		offset    int
	}{
		{"defaults", "", "", "", "desc", 20, 0},
		{"search and type", "search=mary&scan_type=mri", "mary", "MRI", "desc", 20, 0},
		{"invalid type dropped", "scan_type=ULTRASOUND", "", "", "desc", 20, 0},
		{"ascending", "ordering=created_at", "", "", "asc", 20, 0},
		{"paging", "page=3&page_size=10", "", "", "desc", 10, 20},
		{"oversized page clamped", "page_size=500", "", "", "desc", 20, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(t, "/api/v1/scans?"+tt.query)

			filters := parseScanFilters(c)
			if filters.Search != tt.search {
				t.Errorf("search = %q, want %q", filters.Search, tt.search)
			}
			gotType := ""
			if filters.ScanType != nil {
				gotType = string(*filters.ScanType)
			}
			if gotType != tt.scanType {
				t.Errorf("scan type = %q, want %q", gotType, tt.scanType)
			}
			if filters.SortOrder != tt.sortOrder {
				t.Errorf("sort order = %q, want %q", filters.SortOrder, tt.sortOrder)
			}
			if filters.Limit != tt.limit || filters.Offset != tt.offset {
				t.Errorf("paging = (%d, %d), want (%d, %d)",
					filters.Limit, filters.Offset, tt.limit, tt.offset)
			}
		})
	}
}
