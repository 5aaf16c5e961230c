package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medscan/radiology-service/internal/config"
	"github.com/medscan/radiology-service/internal/models"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/services"
	"github.com/medscan/radiology-service/internal/utils"
)

type HandlerManager struct {
	userHandler    *UserHandler
	scanHandler    *ScanHandler
	reportHandler  *ReportHandler
	authMiddleware *CasdoorAuthMiddleware
	serviceManager services.ServiceManager
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		userHandler:    NewUserHandler(serviceManager.User(), logger),
		scanHandler:    NewScanHandler(serviceManager.Scan(), serviceManager.Export(), logger),
		reportHandler:  NewReportHandler(serviceManager.Report(), logger),
		authMiddleware: authMiddleware,
		serviceManager: serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", hm.HealthCheck)

	v1 := router.Group("/api/v1")

	// Registration runs before a local user exists; the token is
	// optional and only used to keep the identity provider's user ID.
	v1.POST("/auth/register", hm.authMiddleware.OptionalAuthMiddleware(), hm.userHandler.Register)

	authed := v1.Group("")
	authed.Use(hm.authMiddleware.AuthMiddleware())
	{
		authed.GET("/users/me", hm.userHandler.GetMe)

		scans := authed.Group("/scans")
		{
			scans.GET("", hm.scanHandler.ListScans)
			scans.POST("", hm.scanHandler.CreateScan)
			scans.GET("/export", hm.authMiddleware.RequireRoleMiddleware(models.RoleAdmin), hm.scanHandler.ExportScans)
			scans.GET("/:id", hm.scanHandler.GetScan)
			scans.PUT("/:id", hm.scanHandler.UpdateScan)
			scans.DELETE("/:id", hm.scanHandler.DeleteScan)
			scans.POST("/:id/rerun-ai", hm.scanHandler.RerunAI)
		}

		reports := authed.Group("/reports")
		{
			reports.GET("", hm.reportHandler.ListReports)
			reports.GET("/:id", hm.reportHandler.GetReport)

			// Writing reports is a radiologist concern.
			reports.POST("", hm.authMiddleware.RequireRoleMiddleware(models.RoleRadiologist), hm.reportHandler.CreateReport)
			reports.PUT("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleRadiologist), hm.reportHandler.UpdateReport)
			reports.DELETE("/:id", hm.authMiddleware.RequireRoleMiddleware(models.RoleRadiologist), hm.reportHandler.DeleteReport)
		}
	}
}

// HealthCheck reports service and dependency health.
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
