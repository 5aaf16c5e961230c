package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/medscan/radiology-service/internal/events"
	"github.com/medscan/radiology-service/internal/repositories"
	"github.com/medscan/radiology-service/internal/storage"
	"github.com/medscan/radiology-service/internal/utils"
	"github.com/medscan/radiology-service/internal/validator"
)

// serviceManager implements ServiceManager interface
type serviceManager struct {
	repo      repositories.Repository
	logger    utils.Logger
	validator *validator.Validator
	predictor Predictor
	store     *storage.ImageStore
	publisher events.EventPublisher

	userService   UserService
	scanService   ScanService
	reportService ReportService
	exportService ExportService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a service manager with all dependencies
func NewServiceManager(
	repo repositories.Repository,
	logger utils.Logger,
	validator *validator.Validator,
	predictor Predictor,
	store *storage.ImageStore,
	publisher events.EventPublisher,
) ServiceManager {
	return &serviceManager{
		repo:      repo,
		logger:    logger,
		validator: validator,
		predictor: predictor,
		store:     store,
		publisher: publisher,
	}
}

func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}
	if sm.shutdown {
		return fmt.Errorf("service manager already shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository not healthy: %w", err)
	}

	sm.userService = NewUserService(sm.repo, sm.logger, sm.validator)
	sm.scanService = NewScanService(sm.repo, sm.logger, sm.validator, sm.predictor, sm.store, sm.publisher)
	sm.reportService = NewReportService(sm.repo, sm.logger, sm.validator, sm.publisher)
	sm.exportService = NewExportService(sm.repo, sm.logger)

	sm.initialized = true
	sm.logger.Info("service manager initialized")

	return nil
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.userService
}

func (sm *serviceManager) Scan() ScanService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.scanService
}

func (sm *serviceManager) Report() ReportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.reportService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.exportService
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	return sm.repo.Ping(ctx)
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}
	sm.shutdown = true

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Warn("failed to close event publisher", "error", err)
	}

	sm.logger.Info("service manager shut down")
	return nil
}
