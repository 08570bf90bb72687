package main

import (
	"context"
	"errors"
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

	_ "github.com/noah-isme/lesson-scheduler-api/api/swagger"
	"github.com/noah-isme/lesson-scheduler-api/internal/handler"
	internalmiddleware "github.com/noah-isme/lesson-scheduler-api/internal/middleware"
	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/repository"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/pkg/cache"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
	"github.com/noah-isme/lesson-scheduler-api/pkg/database"
	"github.com/noah-isme/lesson-scheduler-api/pkg/jobs"
	"github.com/noah-isme/lesson-scheduler-api/pkg/lock"
	"github.com/noah-isme/lesson-scheduler-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/cors"
	"github.com/noah-isme/lesson-scheduler-api/pkg/middleware/ratelimit"
	reqidmiddleware "github.com/noah-isme/lesson-scheduler-api/pkg/middleware/requestid"
)

// @title Lesson Scheduler API
// @version 1.0.0
// @description Places course lessons into students' weekly availability.
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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, continuing without cache and distributed lock", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	metrics := service.NewMetricsService()
	validate := validator.New()
	service.RegisterClockValidation(validate)

	courseRepo := repository.NewCourseRepository(db)
	lessonRepo := repository.NewLessonRepository(db)
	availabilityRepo := repository.NewAvailabilityRepository(db)
	scheduleRepo := repository.NewStudentScheduleRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Scheduler.CacheTTL, logr, redisClient != nil)

	var locker lock.Locker
	if redisClient != nil {
		locker = lock.NewRedisLock(redisClient, "")
	}

	scheduleSvc := service.NewStudentScheduleService(
		courseRepo,
		lessonRepo,
		availabilityRepo,
		scheduleRepo,
		db,
		locker,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.StudentScheduleConfig{
			MaxIterations:            cfg.Scheduler.MaxIterations,
			MaxPeriodDays:            cfg.Scheduler.MaxPeriodDays,
			RejectOverlappingWindows: cfg.Scheduler.RejectOverlappingWindows,
			LockTTL:                  cfg.Scheduler.LockTTL,
			CacheTTL:                 cfg.Scheduler.CacheTTL,
		},
	)
	availabilitySvc := service.NewAvailabilityService(courseRepo, availabilityRepo, db, validate, logr, cfg.Scheduler.RejectOverlappingWindows)
	exportSvc := service.NewScheduleExportService(scheduleSvc, logr)
	tokenSvc := service.NewTokenService(cfg.JWT.Secret)

	rebuildWorker := service.NewScheduleRebuildWorker(scheduleSvc, metrics, logr)
	rebuildQueue := jobs.NewQueue(service.JobTypeScheduleRebuild, rebuildWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Scheduler.RebuildWorkers,
		MaxRetries: cfg.Scheduler.RebuildRetries,
		Logger:     logr,
		OnResult: func(job jobs.Job, err error) {
			if err != nil && !jobs.IsPermanent(err) {
				logr.Debug("schedule rebuild attempt failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			}
		},
	})
	rebuildQueue.Start(ctx)
	defer rebuildQueue.Stop()
	rebuildSvc := service.NewScheduleRebuildService(courseRepo, availabilityRepo, rebuildQueue, logr)

	sweeper, err := service.NewScheduleSweeper(courseRepo, scheduleRepo, cacheSvc, metrics, logr, service.ScheduleSweeperConfig{
		Spec:          cfg.Scheduler.SweepSpec,
		RetentionDays: cfg.Scheduler.RetentionDays,
	})
	if err != nil {
		logr.Fatal("invalid sweeper configuration", zap.Error(err))
	}
	sweeper.Start(ctx)
	defer sweeper.Stop()

	checks := map[string]handler.Pinger{"postgres": db}
	if redisClient != nil {
		checks["redis"] = handler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	metricsHandler := handler.NewMetricsHandler(metrics, checks)
	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc)
	scheduleHandler := handler.NewStudentScheduleHandler(scheduleSvc, exportSvc)
	rebuildHandler := handler.NewScheduleRebuildHandler(rebuildSvc, logr)

	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	limitByUser := limiter.Middleware(func(c *gin.Context) string {
		if claims, ok := internalmiddleware.Claims(c); ok {
			return claims.UserID
		}
		return c.ClientIP()
	})

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(tokenSvc))

	student := api.Group("/students/:studentId/courses/:courseId")
	student.Use(internalmiddleware.RBAC(internalmiddleware.RoleSelf, string(models.RoleAdmin), string(models.RoleSuperAdmin), string(models.RoleTeacher)))
	student.GET("/availability", availabilityHandler.List)
	student.PUT("/availability", availabilityHandler.Replace)
	student.POST("/schedule", limitByUser, scheduleHandler.Generate)
	student.POST("/schedule/preview", limitByUser, scheduleHandler.Preview)
	student.GET("/schedule", scheduleHandler.Get)
	student.DELETE("/schedule", scheduleHandler.Clear)
	student.GET("/schedule/export", scheduleHandler.Export)

	api.POST("/courses/:courseId/schedules/rebuild",
		internalmiddleware.RequireRoles(models.RoleAdmin, models.RoleSuperAdmin),
		rebuildHandler.Rebuild,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
