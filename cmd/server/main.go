package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/classtrack/classtrack-api/api/swagger"
	"github.com/classtrack/classtrack-api/internal/capture"
	"github.com/classtrack/classtrack-api/internal/handler"
	"github.com/classtrack/classtrack-api/internal/middleware"
	"github.com/classtrack/classtrack-api/internal/models"
	"github.com/classtrack/classtrack-api/internal/netgate"
	"github.com/classtrack/classtrack-api/internal/repository"
	"github.com/classtrack/classtrack-api/internal/service"
	"github.com/classtrack/classtrack-api/internal/token"
	"github.com/classtrack/classtrack-api/pkg/cache"
	"github.com/classtrack/classtrack-api/pkg/config"
	"github.com/classtrack/classtrack-api/pkg/database"
	"github.com/classtrack/classtrack-api/pkg/logger"
	corsmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/cors"
	reqidmiddleware "github.com/classtrack/classtrack-api/pkg/middleware/requestid"
	"github.com/classtrack/classtrack-api/pkg/storage"
)

// @title ClassTrack API
// @version 1.0.0
// @description QR-token classroom attendance service
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("database connection failed", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("redis connection failed", "error", err)
	}
	defer redisClient.Close()

	artifactStore, err := storage.NewLocalStorage(cfg.Tokens.ImageDir)
	if err != nil {
		logr.Sugar().Fatalw("artifact storage init failed", "error", err)
	}

	// Repositories
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services
	metricsSvc := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metricsSvc, cfg.Summary.CacheTTL, logr, cfg.Summary.CacheEnabled)
	authSvc := service.NewAuthService(studentRepo, teacherRepo, validator.New(), logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	sessionSvc := service.NewSessionService(sessionRepo, subjectRepo, logr)
	tokenSvc := service.NewTokenService(token.NewCodec(cfg.Tokens.ImageSize), artifactStore, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, sessionSvc, cacheSvc, logr)
	exportSvc := service.NewExportService(attendanceSvc, logr, cfg.Exports.Enabled)

	gate := netgate.New(cfg.Network.ExpectedSSID, netgate.NewCommandProbe())
	scanSvc := service.NewScanService(gate, token.NewCodec(cfg.Tokens.ImageSize), attendanceSvc, metricsSvc, logr, service.ScanConfig{
		FrameInterval:  cfg.Scan.FrameInterval,
		AttemptTimeout: cfg.Scan.AttemptTimeout,
		NewSource:      scanSourceFactory(cfg),
	})

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	subjectHandler := handler.NewSubjectHandler(sessionSvc, tokenSvc)
	sessionHandler := handler.NewSessionHandler(sessionSvc, tokenSvc)
	scanHandler := handler.NewScanHandler(scanSvc)
	attendanceHandler := handler.NewAttendanceHandler(attendanceSvc, exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))
	authed.GET("/auth/me", authHandler.Me)

	teachers := authed.Group("")
	teachers.Use(middleware.RequireRoles(models.RoleTeacher))
	teachers.GET("/subjects", subjectHandler.ListMine)
	teachers.GET("/subjects/:id/token.png", subjectHandler.TokenImage)
	teachers.POST("/sessions", sessionHandler.Start)
	teachers.GET("/attendance/summary", attendanceHandler.Roster)

	students := authed.Group("")
	students.Use(middleware.RequireRoles(models.RoleStudent))
	students.POST("/scans", scanHandler.Begin)
	students.POST("/scans/:id/frames", scanHandler.PushFrame)
	students.GET("/scans/:id", scanHandler.Status)
	students.DELETE("/scans/:id", scanHandler.Cancel)
	students.GET("/attendance/summary/me", attendanceHandler.MySummary)

	authed.GET("/sessions/current", sessionHandler.Current)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
	logr.Sugar().Infow("server stopped")
}

// scanSourceFactory picks where scan frames come from: a spool directory
// watched on disk when configured, otherwise frames pushed over the API.
func scanSourceFactory(cfg *config.Config) func() capture.Source {
	if cfg.Scan.SpoolDir != "" {
		return func() capture.Source {
			return capture.NewSpoolSource(cfg.Scan.SpoolDir, cfg.Scan.FrameInterval)
		}
	}
	buffer := cfg.Scan.FrameBuffer
	if buffer <= 0 {
		buffer = 8
	}
	return func() capture.Source {
		return capture.NewChannelSource(buffer)
	}
}
