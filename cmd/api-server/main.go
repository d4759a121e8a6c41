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

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/dormkeeper/dormkeeper-api/api/swagger"
	"github.com/dormkeeper/dormkeeper-api/internal/handler"
	"github.com/dormkeeper/dormkeeper-api/internal/repository"
	"github.com/dormkeeper/dormkeeper-api/internal/router"
	"github.com/dormkeeper/dormkeeper-api/internal/service"
	"github.com/dormkeeper/dormkeeper-api/pkg/cache"
	"github.com/dormkeeper/dormkeeper-api/pkg/config"
	"github.com/dormkeeper/dormkeeper-api/pkg/database"
	"github.com/dormkeeper/dormkeeper-api/pkg/logger"
)

// @title DormKeeper API
// @version 1.0.0
// @description Campus housing management API
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
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedis(cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, caching disabled", zap.Error(err))
			redisClient = nil
		}
	}

	validate := validator.New()
	metricsService := service.NewMetricsService()

	var cacheService *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheService = service.NewCacheService(cacheRepo, metricsService, cfg.Rooms.AvailabilityCacheTTL, logr, true)
	}

	userRepo := repository.NewUserRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	allocationRepo := repository.NewAllocationRepository(db)
	requestRepo := repository.NewRequestRepository(db)
	roommateRepo := repository.NewRoommateRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	authService := service.NewAuthService(userRepo, activityRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             cfg.JWT.Issuer,
		SingleSession:      cfg.JWT.SingleSession,
	})
	userService := service.NewUserService(userRepo, validate, logr)
	roomService := service.NewRoomService(roomRepo, allocationRepo, cacheService, cfg.Rooms.AvailabilityCacheTTL, validate, logr)
	allocationService := service.NewAllocationService(service.AllocationServiceParams{
		Repo:          allocationRepo,
		Users:         userRepo,
		Rooms:         roomRepo,
		Notifications: notificationRepo,
		Activity:      activityRepo,
		Cache:         cacheService,
		Metrics:       metricsService,
		Validator:     validate,
		Logger:        logr,
	})
	requestService := service.NewRequestService(requestRepo, notificationRepo, activityRepo, validate, logr)
	roommateService := service.NewRoommateService(roommateRepo, userRepo, notificationRepo, validate, logr)
	maintenanceService := service.NewMaintenanceService(maintenanceRepo, allocationRepo, notificationRepo, activityRepo, validate, logr)
	notificationService := service.NewNotificationService(notificationRepo, logr)
	dashboardService := service.NewDashboardService(service.DashboardServiceParams{
		Users:       userRepo,
		Rooms:       roomRepo,
		Allocations: allocationRepo,
		Requests:    requestRepo,
		Activity:    activityRepo,
		Cache:       cacheService,
		CacheTTL:    cfg.Dashboard.CacheTTL,
		Logger:      logr,
	})
	exportService := service.NewExportService(allocationRepo, roomRepo, logr)

	engine := router.New(router.Deps{
		Config:   cfg,
		Logger:   logr,
		Auth:     authService,
		Metrics:  metricsService,
		Activity: activityRepo,
	}, router.Handlers{
		Auth:          handler.NewAuthHandler(authService),
		Users:         handler.NewUserHandler(userService),
		Rooms:         handler.NewRoomHandler(roomService),
		Allocations:   handler.NewAllocationHandler(allocationService),
		Requests:      handler.NewRequestHandler(requestService),
		Roommates:     handler.NewRoommateHandler(roommateService),
		Maintenance:   handler.NewMaintenanceHandler(maintenanceService),
		Notifications: handler.NewNotificationHandler(notificationService),
		Dashboard:     handler.NewDashboardHandler(dashboardService),
		Exports:       handler.NewExportHandler(exportService),
		Metrics:       handler.NewMetricsHandler(metricsService),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logr.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
