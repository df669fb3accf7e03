package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/classdesk/classdesk-api/api/swagger"
	"github.com/classdesk/classdesk-api/internal/billing"
	"github.com/classdesk/classdesk-api/internal/handler"
	"github.com/classdesk/classdesk-api/internal/middleware"
	"github.com/classdesk/classdesk-api/internal/models"
	"github.com/classdesk/classdesk-api/internal/repository"
	"github.com/classdesk/classdesk-api/internal/service"
	"github.com/classdesk/classdesk-api/pkg/cache"
	"github.com/classdesk/classdesk-api/pkg/config"
	"github.com/classdesk/classdesk-api/pkg/database"
	"github.com/classdesk/classdesk-api/pkg/logger"
	corsmiddleware "github.com/classdesk/classdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classdesk/classdesk-api/pkg/middleware/requestid"
	"github.com/classdesk/classdesk-api/pkg/storage"
)

// @title ClassDesk API
// @version 1.0.0
// @description Multi-tenant classroom management API for teachers.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	fileStore, err := storage.NewLocalStorage(cfg.Storage.BaseDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init file storage", "error", err)
	}
	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	// Repositories
	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	gradeRepo := repository.NewGradeRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	lessonPlanRepo := repository.NewLessonPlanRepository(db)
	calendarRepo := repository.NewCalendarRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)
	subscriptionRepo := repository.NewSubscriptionRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Analytics.CacheTTL, logr, cfg.Analytics.CacheEnabled)
	authSvc := service.NewAuthService(cfg.JWT.Secret, logr)
	provider := billing.NewHTTPClient(cfg.Billing, logr)
	subscriptionSvc := service.NewSubscriptionService(subscriptionRepo, userRepo, provider, metricsSvc, validate, logr)
	classSvc := service.NewClassService(classRepo, subscriptionSvc, cacheSvc, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, cacheSvc, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, classRepo, studentRepo, subscriptionSvc, cacheSvc, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, classRepo, validate, logr)
	gradeSvc := service.NewGradeService(gradeRepo, assignmentRepo, enrollmentRepo, cacheSvc, validate, logr)
	materialSvc := service.NewMaterialService(materialRepo, classRepo, subscriptionSvc, validate, logr)
	lessonPlanSvc := service.NewLessonPlanService(lessonPlanRepo, classRepo, subscriptionSvc, validate, logr)
	calendarSvc := service.NewCalendarService(calendarRepo, classRepo, assignmentRepo, lessonPlanRepo, validate, logr)
	analyticsSvc := service.NewAnalyticsService(analyticsRepo, cacheSvc, logr)
	storageSvc := service.NewStorageService(fileStore, subscriptionSvc, cfg.Storage, logr)
	reportSvc := service.NewReportService(reportRepo, gradeRepo, analyticsSvc, classRepo, studentRepo, subscriptionSvc, reportStore, signer, cfg.Reports, validate, logr)

	reportSvc.Start(ctx)
	defer reportSvc.Stop()

	scheduler := cron.New()
	if cfg.Reports.CleanupSchedule != "" {
		if _, err := scheduler.AddFunc(cfg.Reports.CleanupSchedule, func() { reportSvc.Cleanup(ctx) }); err != nil {
			logr.Sugar().Fatalw("invalid report cleanup schedule", "error", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	// Handlers
	userHandler := handler.NewUserHandler(service.NewUserService(userRepo, validate, logr))
	classHandler := handler.NewClassHandler(classSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	enrollmentHandler := handler.NewEnrollmentHandler(enrollmentSvc)
	assignmentHandler := handler.NewAssignmentHandler(assignmentSvc)
	gradeHandler := handler.NewGradeHandler(gradeSvc)
	materialHandler := handler.NewMaterialHandler(materialSvc)
	lessonPlanHandler := handler.NewLessonPlanHandler(lessonPlanSvc)
	calendarHandler := handler.NewCalendarHandler(calendarSvc)
	analyticsHandler := handler.NewAnalyticsHandler(analyticsSvc)
	subscriptionHandler := handler.NewSubscriptionHandler(subscriptionSvc)
	webhookHandler := handler.NewWebhookHandler(subscriptionSvc, cfg.Billing.WebhookSecret, logr)
	storageHandler := handler.NewStorageHandler(storageSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	// Billing webhooks authenticate through their signature, not a JWT.
	api.POST("/webhooks/billing", webhookHandler.Handle)
	api.GET("/reports/download", reportHandler.Download)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	{
		authed.GET("/me", userHandler.Me)
		authed.PUT("/me", userHandler.UpdateMe)

		authed.GET("/classes", classHandler.List)
		authed.POST("/classes", classHandler.Create)
		authed.GET("/classes/:id", classHandler.Get)
		authed.PUT("/classes/:id", classHandler.Update)
		authed.DELETE("/classes/:id", classHandler.Delete)
		authed.GET("/classes/:id/students", studentHandler.ListByClass)
		authed.GET("/classes/:id/calendar", calendarHandler.ListByClass)

		authed.GET("/students", studentHandler.List)
		authed.POST("/students", studentHandler.Create)
		authed.GET("/students/:id", studentHandler.Get)
		authed.PUT("/students/:id", studentHandler.Update)
		authed.DELETE("/students/:id", studentHandler.Delete)

		authed.GET("/enrollments", enrollmentHandler.List)
		authed.POST("/enrollments", enrollmentHandler.Create)
		authed.DELETE("/enrollments/:id", enrollmentHandler.Delete)

		authed.GET("/assignments", assignmentHandler.List)
		authed.POST("/assignments", assignmentHandler.Create)
		authed.GET("/assignments/:id", assignmentHandler.Get)
		authed.PUT("/assignments/:id", assignmentHandler.Update)
		authed.DELETE("/assignments/:id", assignmentHandler.Delete)

		authed.GET("/grades", gradeHandler.List)
		authed.POST("/grades", gradeHandler.Create)
		authed.GET("/grades/:id", gradeHandler.Get)
		authed.PUT("/grades/:id", gradeHandler.Update)
		authed.DELETE("/grades/:id", gradeHandler.Delete)

		authed.GET("/materials", materialHandler.List)
		authed.POST("/materials", materialHandler.Create)
		authed.GET("/materials/:id", materialHandler.Get)
		authed.PUT("/materials/:id", materialHandler.Update)
		authed.DELETE("/materials/:id", materialHandler.Delete)

		authed.GET("/lesson-plans", lessonPlanHandler.List)
		authed.POST("/lesson-plans", lessonPlanHandler.Create)
		authed.GET("/lesson-plans/:id", lessonPlanHandler.Get)
		authed.PUT("/lesson-plans/:id", lessonPlanHandler.Update)
		authed.DELETE("/lesson-plans/:id", lessonPlanHandler.Delete)

		authed.GET("/calendar", calendarHandler.List)
		authed.POST("/calendar", calendarHandler.Create)
		authed.GET("/calendar/:id", calendarHandler.Get)
		authed.PUT("/calendar/:id", calendarHandler.Update)
		authed.DELETE("/calendar/:id", calendarHandler.Delete)

		authed.GET("/analytics/students/:id", analyticsHandler.StudentPerformance)
		authed.GET("/analytics/classes/:id", analyticsHandler.ClassOverview)
		authed.GET("/analytics/roster", analyticsHandler.RosterCounts)

		authed.GET("/subscription", subscriptionHandler.Get)
		authed.POST("/subscription", subscriptionHandler.Create)
		authed.PUT("/subscription", subscriptionHandler.ChangePlan)
		authed.DELETE("/subscription", subscriptionHandler.Cancel)

		authed.GET("/files", storageHandler.List)
		authed.POST("/files", storageHandler.Upload)
		authed.GET("/files/download", storageHandler.Download)
		authed.DELETE("/files", storageHandler.Delete)

		authed.POST("/reports", reportHandler.Create)
		authed.GET("/reports/:id", reportHandler.Get)

		admin := authed.Group("/users")
		admin.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleSchoolAdmin))
		{
			admin.GET("", userHandler.List)
			admin.POST("", userHandler.Create)
			admin.GET("/:id", userHandler.Get)
			admin.PUT("/:id", userHandler.Update)
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		logr.Sugar().Infow("shutting down")
		_ = srv.Shutdown(context.Background())
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
