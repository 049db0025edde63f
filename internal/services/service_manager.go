package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/classware/assessment-engine/internal/events"
	"github.com/classware/assessment-engine/internal/repositories"
	"github.com/classware/assessment-engine/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool
	LogLevel           slog.Level

	Assessment ServiceConfig
	Submission ServiceConfig
	Grading    ServiceConfig
	Export     ServiceConfig

	DefaultTimeout time.Duration
	MaxRetries     int
}

type ServiceConfig struct {
	Enabled      bool
	CacheEnabled bool
	CacheTTL     time.Duration
}

// serviceManager implements ServiceManager
type serviceManager struct {
	db             *gorm.DB
	repo           repositories.Repository
	logger         *slog.Logger
	validator      *validator.Validator
	eventPublisher events.EventPublisher
	config         ServiceManagerConfig

	assessmentService    AssessmentService
	submissionService    SubmissionService
	gradeOverrideService GradeOverrideService
	exportService        ExportService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a service manager with all dependencies. The
// event publisher may be nil when no broker is configured.
func NewServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		db:             db,
		repo:           repo,
		logger:         logger,
		validator:      v,
		eventPublisher: publisher,
		config:         config,
	}
}

// NewDefaultServiceManager creates a service manager with default configuration
func NewDefaultServiceManager(db *gorm.DB, repo repositories.Repository, logger *slog.Logger, v *validator.Validator, publisher events.EventPublisher) ServiceManager {
	config := ServiceManagerConfig{
		EnableDebugLogging: false,
		LogLevel:           slog.LevelInfo,

		Assessment: ServiceConfig{
			Enabled:      true,
			CacheEnabled: true,
			CacheTTL:     5 * time.Minute,
		},
		Submission: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
			CacheTTL:     0,
		},
		Grading: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
			CacheTTL:     0,
		},
		Export: ServiceConfig{
			Enabled:      true,
			CacheEnabled: false,
			CacheTTL:     0,
		},

		DefaultTimeout: 30 * time.Second,
		MaxRetries:     3,
	}

	return NewServiceManager(db, repo, logger, v, publisher, config)
}

// Initialize sets up all services
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if sm.config.Assessment.Enabled {
		sm.assessmentService = NewAssessmentService(sm.repo, sm.db, sm.logger, sm.validator, sm.eventPublisher)
		sm.logger.Info("Assessment service initialized")
	}

	if sm.config.Submission.Enabled {
		sm.submissionService = NewSubmissionService(sm.repo, sm.db, sm.logger, sm.validator, sm.eventPublisher)
		sm.logger.Info("Submission service initialized")
	}

	if sm.config.Grading.Enabled {
		sm.gradeOverrideService = NewGradeOverrideService(sm.repo, sm.db, sm.logger, sm.validator, sm.eventPublisher)
		sm.logger.Info("Grade override service initialized")
	}

	if sm.config.Export.Enabled {
		sm.exportService = NewExportService(sm.repo, sm.logger)
		sm.logger.Info("Export service initialized")
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) Assessment() AssessmentService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.assessmentService == nil {
		panic("assessment service not enabled")
	}
	return sm.assessmentService
}

func (sm *serviceManager) Submission() SubmissionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.submissionService == nil {
		panic("submission service not enabled")
	}
	return sm.submissionService
}

func (sm *serviceManager) GradeOverride() GradeOverrideService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.gradeOverrideService == nil {
		panic("grade override service not enabled")
	}
	return sm.gradeOverrideService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	if sm.exportService == nil {
		panic("export service not enabled")
	}
	return sm.exportService
}

func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.eventPublisher != nil {
		if err := sm.eventPublisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}
