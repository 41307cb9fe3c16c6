package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/yryryerhyrhytr/coachdesk-api/api/swagger"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/handler"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/middleware"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/models"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/repository"
	"github.com/yryryerhyrhytr/coachdesk-api/internal/service"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/cache"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/config"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/database"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/export"
	"github.com/yryryerhyrhytr/coachdesk-api/pkg/logger"
	corsmiddleware "github.com/yryryerhyrhytr/coachdesk-api/pkg/middleware/cors"
	reqidmiddleware "github.com/yryryerhyrhytr/coachdesk-api/pkg/middleware/requestid"
)

// @title CoachDesk API
// @version 1.0.0
// @description Coaching center management: monthly exam ranking, attendance and guardian SMS
// @BasePath /api/v1
// @schemes http

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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	var cacheRepo *repository.CacheRepository
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheRepo = repository.NewCacheRepository(redisClient, logr)
	}

	validate := validator.New()

	// Repositories.
	batchRepo := repository.NewBatchRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	examRepo := repository.NewMonthlyExamRepository(db)
	markRepo := repository.NewMarkRepository(db)
	resultRepo := repository.NewResultRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)
	smsLogRepo := repository.NewSmsLogRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Services.
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, cfg.Cache.Enabled, cfg.Cache.ResultsTTL, logr)
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration, validate, logr)
	directorySvc := service.NewDirectoryService(batchRepo, studentRepo, validate, logr)
	examSvc := service.NewExamService(examRepo, batchRepo, validate, logr)
	markSvc := service.NewMarkService(markRepo, examRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, validate, logr)
	rankingSvc := service.NewRankingService(examRepo, markRepo, resultRepo, attendanceRepo, studentRepo, cacheSvc, metricsSvc, validate, logr)
	settingsSvc := service.NewSettingsService(settingsRepo, validate, logr)
	gateway := service.NewHTTPSmsGateway(cfg.SMS.RequestTimeout, logr)
	smsSvc := service.NewSmsService(settingsRepo, smsLogRepo, gateway, metricsSvc, validate, logr)
	exportSvc := service.NewExportService(rankingSvc, examRepo, export.NewCSVExporter(), export.NewPDFExporter(), logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifySvc *service.NotifyService
	if cfg.Notify.Enabled {
		notifySvc = service.NewNotifyService(examRepo, rankingSvc, smsSvc, cfg.Notify.Workers, cfg.Notify.BufferSize, logr)
		notifySvc.Start(ctx)
		defer notifySvc.Stop()
	}

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	directoryHandler := handler.NewDirectoryHandler(directorySvc)
	examHandler := handler.NewExamHandler(examSvc, rankingSvc, exportSvc, notifySvc)
	markHandler := handler.NewMarkHandler(markSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc)
	smsHandler := handler.NewSmsHandler(smsSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
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
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	authed.GET("/batches", directoryHandler.ListBatches)
	authed.POST("/batches", middleware.RBAC(models.RoleAdmin), directoryHandler.CreateBatch)
	authed.GET("/students", directoryHandler.ListStudents)
	authed.GET("/students/:id", directoryHandler.GetStudent)
	authed.POST("/students", middleware.RBAC(models.RoleAdmin), directoryHandler.CreateStudent)

	authed.GET("/monthly-exams", examHandler.ListByBatch)
	authed.POST("/monthly-exams", examHandler.Create)
	authed.GET("/monthly-exams/:id", examHandler.Get)
	authed.POST("/monthly-exams/:id/exams", examHandler.AddIndividualExam)
	authed.POST("/monthly-exams/:id/ranking", examHandler.GenerateRanking)
	authed.PUT("/monthly-exams/:id/bonus", examHandler.UpdateBonus)
	authed.POST("/monthly-exams/:id/finalize", middleware.RBAC(models.RoleAdmin), examHandler.Finalize)
	authed.POST("/monthly-exams/:id/unfinalize", middleware.RBAC(models.RoleAdmin), examHandler.Unfinalize)
	authed.GET("/monthly-exams/:id/results", examHandler.Results)
	authed.GET("/monthly-exams/:id/results/export", examHandler.Export)
	authed.POST("/monthly-exams/:id/notify", middleware.RBAC(models.RoleAdmin), examHandler.Notify)

	authed.PUT("/marks", markHandler.Upsert)
	authed.POST("/marks/bulk", markHandler.Bulk)
	authed.GET("/marks", markHandler.ListByExam)

	authed.POST("/attendance/bulk", attendanceHandler.Bulk)
	authed.GET("/attendance/summary", attendanceHandler.Summary)

	authed.POST("/sms/bulk", middleware.RBAC(models.RoleAdmin), smsHandler.SendBulk)
	authed.POST("/sms/test", middleware.RBAC(models.RoleAdmin), smsHandler.SendTest)
	authed.GET("/sms/logs", smsHandler.Logs)

	authed.GET("/settings", middleware.RBAC(models.RoleAdmin), settingsHandler.Get)
	authed.PUT("/settings", middleware.RBAC(models.RoleAdmin), settingsHandler.Update)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}
