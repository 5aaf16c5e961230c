package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/services"
	"github.com/medscan/radiology-service/internal/utils"
)

type ScanHandler struct {
	BaseHandler
	scanService   services.ScanService
	exportService services.ExportService
}

func NewScanHandler(scanService services.ScanService, exportService services.ExportService, logger utils.Logger) *ScanHandler {
	return &ScanHandler{
		BaseHandler:   NewBaseHandler(logger),
		scanService:   scanService,
		exportService: exportService,
	}
}

// ListScans lists scans visible to the caller. Supports search over
// title, description and patient name, created_at ordering and paging.
func (h *ScanHandler) ListScans(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	filters := parseScanFilters(c)

	scans, err := h.scanService.List(c.Request.Context(), filters, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scans)
}

// CreateScan accepts a multipart upload: metadata form fields plus an
// optional "image" file. Uploading triggers the annotation workflow
// inline.
func (h *ScanHandler) CreateScan(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateScanRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	image, err := c.FormFile("image")
	if err != nil {
		image = nil
	}

	scan, err := h.scanService.Create(c.Request.Context(), &req, image, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, scan)
}

func (h *ScanHandler) GetScan(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	scan, err := h.scanService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scan)
}

func (h *ScanHandler) UpdateScan(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	var req services.UpdateScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	scan, err := h.scanService.Update(c.Request.Context(), id, &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scan)
}

func (h *ScanHandler) DeleteScan(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	if err := h.scanService.Delete(c.Request.Context(), id, userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RerunAI re-triggers the annotation workflow for a scan.
func (h *ScanHandler) RerunAI(c *gin.Context) {
	id := h.parseIDParam(c, "id")
	if id == 0 {
		return
	}
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	// Body is optional; it may carry a model override.
	var req struct {
		ModelName string `json:"model_name"`
	}
	_ = c.ShouldBindJSON(&req)

	h.LogRequest(c, "rerunning inference", "scan_id", id)

	scan, err := h.scanService.RerunInference(c.Request.Context(), id, req.ModelName, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, scan)
}

// ExportScans streams an xlsx workbook of all scans. Admin only.
func (h *ScanHandler) ExportScans(c *gin.Context) {
	userID, ok := h.currentUserID(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportScans(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="scans.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// parseScanFilters reads list query parameters. Ordering accepts
// "created_at" and "-created_at".
func parseScanFilters(c *gin.Context) repositories.ScanFilters {
	filters := repositories.ScanFilters{
		Search: c.Query("search"),
	}

	if raw := c.Query("scan_type"); raw != "" {
		scanType := models.ScanType(strings.ToUpper(raw))
		if scanType.Valid() {
			filters.ScanType = &scanType
		}
	}

	switch c.Query("ordering") {
	case "created_at":
		filters.SortBy = "created_at"
		filters.SortOrder = "asc"
	case "-created_at", "":
		filters.SortBy = "created_at"
		filters.SortOrder = "desc"
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if size < 1 || size > 100 {
		size = 20
	}
	filters.Limit = size
	filters.Offset = (page - 1) * size

	return filters
}
