package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/nmamani/colegio-api/api/swagger"
	"github.com/nmamani/colegio-api/internal/handler"
	"github.com/nmamani/colegio-api/internal/middleware"
	"github.com/nmamani/colegio-api/internal/repository"
	"github.com/nmamani/colegio-api/internal/router"
	"github.com/nmamani/colegio-api/internal/service"
	"github.com/nmamani/colegio-api/pkg/cache"
	"github.com/nmamani/colegio-api/pkg/config"
	"github.com/nmamani/colegio-api/pkg/database"
	"github.com/nmamani/colegio-api/pkg/logger"
	corsmiddleware "github.com/nmamani/colegio-api/pkg/middleware/cors"
	reqidmiddleware "github.com/nmamani/colegio-api/pkg/middleware/requestid"
)

// @title Colegio API
// @version 1.0.0
// @description School management service: periods, courses, schedules and attendance
// @BasePath /api/v1
// @schemes http
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	validate := validator.New()
	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Sugar().Fatalw("failed to connect to redis", "error", err)
		}
		defer redisClient.Close()
		cacheSvc = service.NewCacheService(repository.NewCacheRepository(redisClient), metricsSvc, cfg.Cache.TimetableTTL, logr, true)
	} else {
		cacheSvc = service.NewCacheService(nil, metricsSvc, cfg.Cache.TimetableTTL, logr, false)
	}

	userRepo := repository.NewUserRepository(db)
	periodRepo := repository.NewPeriodRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	teachingRepo := repository.NewTeachingRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)

	authSvc := service.NewAuthService(userRepo, service.AuthConfig{
		JWTSecret:          cfg.Auth.JWTSecret,
		AccessTokenExpiry:  cfg.Auth.AccessTokenExpiry,
		RefreshTokenExpiry: cfg.Auth.RefreshTokenExpiry,
		Issuer:             cfg.Auth.Issuer,
		SingleSession:      cfg.Auth.SingleSession,
	}, validate, logr)
	userSvc := service.NewUserService(userRepo, teacherRepo, validate, logr)
	periodSvc := service.NewPeriodService(periodRepo, validate, logr)
	courseSvc := service.NewCourseService(courseRepo, periodRepo, validate, logr)
	subjectSvc := service.NewSubjectService(subjectRepo, courseRepo, validate, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, validate, logr)
	studentSvc := service.NewStudentService(studentRepo, periodRepo, courseRepo, validate, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, periodRepo, courseRepo, subjectRepo, teacherRepo, teachingRepo, cacheSvc, metricsSvc, validate, logr)
	teachingSvc := service.NewTeachingService(teachingRepo, periodRepo, courseRepo, subjectRepo, teacherRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, studentRepo, courseRepo, validate, logr)
	exportSvc := service.NewExportService(scheduleSvc, attendanceSvc, courseRepo, logr)

	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Health)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Docs.Enabled && cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	router.Register(r, cfg.APIPrefix, authSvc, router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Users:      handler.NewUserHandler(userSvc),
		Periods:    handler.NewPeriodHandler(periodSvc),
		Courses:    handler.NewCourseHandler(courseSvc),
		Subjects:   handler.NewSubjectHandler(subjectSvc),
		Teachers:   handler.NewTeacherHandler(teacherSvc),
		Students:   handler.NewStudentHandler(studentSvc),
		Schedules:  handler.NewScheduleHandler(scheduleSvc),
		Teaching:   handler.NewTeachingHandler(teachingSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Exports:    handler.NewExportHandler(exportSvc),
		Metrics:    metricsHandler,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
