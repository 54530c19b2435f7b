package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/planiapp/tareas-api/docs"
	"github.com/planiapp/tareas-api/internal/auth"
	"github.com/planiapp/tareas-api/internal/catalog"
	"github.com/planiapp/tareas-api/internal/config"
	"github.com/planiapp/tareas-api/internal/database"
	"github.com/planiapp/tareas-api/internal/http/handler"
	"github.com/planiapp/tareas-api/internal/http/middleware"
	"github.com/planiapp/tareas-api/internal/http/router"
	"github.com/planiapp/tareas-api/internal/jobs"
	"github.com/planiapp/tareas-api/internal/logger"
	"github.com/planiapp/tareas-api/internal/repository"
	"github.com/planiapp/tareas-api/internal/service"
	"github.com/planiapp/tareas-api/internal/storage"
	"github.com/planiapp/tareas-api/internal/validation"
	"go.uber.org/zap"
)

// @title Tareas API
// @version 1.0
// @description Task and personnel tracking for an institution: geography, departments, staff, tasks and their audit trail.

// @contact.name API Support

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	}

	// Full configuration; secrets come from Key Vault when one is configured
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Warn("Error closing database", zap.Error(err))
		}
	}()
	if cfg.Database.Driver == "sqlite" {
		// postgres schemas are owned by cmd/migrate
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to migrate sqlite schema: %w", err)
		}
	}
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	// Repositories
	accountRepo := repository.NewAccountRepository(db)
	staffRepo := repository.NewStaffRepository(db)
	deptRepo := repository.NewDepartmentRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	geoRepo := repository.NewGeographyRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)

	// Services
	tokens := auth.NewTokenManager(&cfg.Auth)
	authService := service.NewAuthService(accountRepo, staffRepo, tokens, db, cfg.Auth.BcryptCost, log)
	staffService := service.NewStaffService(staffRepo, accountRepo, deptRepo, taskRepo, auditRepo, db, &cfg.Staff, cfg.Auth.BcryptCost, log)
	departmentService := service.NewDepartmentService(deptRepo, staffRepo, db, log)
	taskService := service.NewTaskService(taskRepo, auditRepo, staffRepo, geoRepo, db, log)
	geographyService := service.NewGeographyService(geoRepo, taskRepo, db, log)
	organizationService := service.NewOrganizationService(orgRepo, fileStorage, log)
	dashboardService := service.NewDashboardService(taskRepo, &cfg.Dashboard, log)

	created, err := authService.BootstrapSuperuser(ctx, &cfg.Bootstrap)
	if err != nil {
		return fmt.Errorf("failed to bootstrap superuser: %w", err)
	}
	if created {
		log.Info("Bootstrap superuser created", zap.String("username", cfg.Bootstrap.Username))
	}

	// Optional geography catalog and its scheduled sync
	catalogClient, err := catalog.NewClient(&cfg.Catalog, log)
	if err != nil {
		log.Warn("Geography catalog connection failed, continuing without it", zap.Error(err))
		catalogClient = nil
	}
	var scheduler *jobs.Scheduler
	if catalogClient != nil {
		defer func() {
			if err := catalogClient.Close(); err != nil {
				log.Warn("Error closing catalog connection", zap.Error(err))
			}
		}()

		syncService := service.NewCatalogSyncService(catalogClient, geoRepo, db, log)
		scheduler = jobs.NewScheduler(log)
		if err := jobs.RegisterCatalogSyncJob(
			scheduler,
			syncService,
			log,
			cfg.Catalog.SyncSchedule,
			cfg.Catalog.SyncTimeoutDuration(),
			true,
		); err != nil {
			log.Error("Failed to register catalog sync job", zap.Error(err))
			scheduler = nil
		} else {
			scheduler.Start()
			log.Info("Scheduler started",
				zap.Strings("jobs", scheduler.JobNames()),
				zap.String("cron_expr", cfg.Catalog.SyncSchedule),
			)
		}
	}

	// Middleware
	authMiddleware := auth.NewMiddleware(&cfg.Auth, tokens, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)

	// Handlers
	validate := validation.New(cfg.Staff.PhoneRegion)
	handlers := router.Handlers{
		Home:         handler.NewHomeHandler(cfg.App.Name, organizationService, log),
		Health:       handler.NewHealthHandler(db, log),
		Auth:         handler.NewAuthHandler(authService, validate, log),
		Dashboard:    handler.NewDashboardHandler(dashboardService, log),
		Staff:        handler.NewStaffHandler(staffService, validate, log),
		Department:   handler.NewDepartmentHandler(departmentService, validate, log),
		Task:         handler.NewTaskHandler(taskService, validate, log),
		Geography:    handler.NewGeographyHandler(geographyService, validate, log),
		Organization: handler.NewOrganizationHandler(organizationService, validate, cfg.Storage.MaxUploadBytes(), log),
	}

	rt := router.NewRouter(cfg, log, authMiddleware, rateLimiter, handlers)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      rt.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		log.Info("Server stopped gracefully")
	}

	return nil
}
