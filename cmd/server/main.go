package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/agriforecast/internal/cache"
	"github.com/mamadbah2/agriforecast/internal/config"
	"github.com/mamadbah2/agriforecast/internal/repository/mongodb"
	"github.com/mamadbah2/agriforecast/internal/repository/sheets"
	"github.com/mamadbah2/agriforecast/internal/scheduler"
	"github.com/mamadbah2/agriforecast/internal/server/handlers"
	"github.com/mamadbah2/agriforecast/internal/server/router"
	forecastsvc "github.com/mamadbah2/agriforecast/internal/service/forecast"
	"github.com/mamadbah2/agriforecast/internal/service/mock"
	"github.com/mamadbah2/agriforecast/internal/service/normalizer"
	reportingsvc "github.com/mamadbah2/agriforecast/internal/service/reporting"
	simulationsvc "github.com/mamadbah2/agriforecast/internal/service/simulation"
	"github.com/mamadbah2/agriforecast/pkg/clients/gemini"
	"github.com/mamadbah2/agriforecast/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Log.Level))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()

	var (
		recorders []forecastsvc.Recorder
		history   handlers.HistoryStore
		reports   handlers.ReportService
		digests   scheduler.DigestBuilder
		digestDB  scheduler.DigestStore
		opts      []forecastsvc.Option
	)

	if cfg.MongoDB.URI != "" {
		mongoRepo, err := mongodb.NewMongoDBRepository(startCtx, cfg.MongoDB.URI, cfg.MongoDB.DBName)
		if err != nil {
			baseLogger.Fatal("failed to init mongodb repository", zap.Error(err))
		}
		defer func() {
			if err := mongoRepo.Close(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
		recorders = append(recorders, mongoRepo)
		history = mongoRepo
		digestDB = mongoRepo
		baseLogger.Info("forecast history enabled", zap.String("db", cfg.MongoDB.DBName))
	} else {
		baseLogger.Warn("mongodb uri missing, forecast history disabled")
	}

	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(startCtx, cfg.Sheets, logger.Named(baseLogger, "repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		forecastLog := sheets.NewForecastLog(sheetsRepo)
		if err := forecastLog.EnsureHeader(startCtx); err != nil {
			baseLogger.Warn("failed to prepare forecast sheet header", zap.Error(err))
		}
		recorders = append(recorders, forecastLog)
		reportingSvc := reportingsvc.NewService(sheetsRepo, logger.Named(baseLogger, "svc.reporting"))
		reports = reportingSvc
		digests = reportingSvc
		baseLogger.Info("forecast export enabled")
	} else {
		baseLogger.Warn("google sheets not configured, forecast export disabled")
	}

	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(startCtx, cfg.Redis.URL, cfg.Redis.TTL)
		if err != nil {
			baseLogger.Warn("redis unreachable, forecast cache disabled", zap.Error(err))
		} else {
			defer func() { _ = redisCache.Close() }()
			opts = append(opts, forecastsvc.WithCache(redisCache))
			baseLogger.Info("forecast cache enabled", zap.Duration("ttl", cfg.Redis.TTL))
		}
	}
	opts = append(opts, forecastsvc.WithRecorders(recorders...))

	aiAvailable := cfg.AI.GeminiKey != ""
	if aiAvailable {
		baseLogger.Info("gemini ai client enabled", zap.String("model", cfg.AI.Model))
	} else {
		baseLogger.Warn("gemini api key missing, serving simulated forecasts")
	}

	forecastSvc := forecastsvc.NewService(
		gemini.NewClient(cfg.AI),
		aiAvailable,
		normalizer.New(),
		mock.NewGenerator(),
		logger.Named(baseLogger, "svc.forecast"),
		opts...,
	)
	simulationSvc := simulationsvc.NewService(forecastSvc, logger.Named(baseLogger, "svc.simulation"))

	forecastHandler := handlers.NewForecastHandler(forecastSvc, simulationSvc, history, reports, logger.Named(baseLogger, "handlers.forecast"))
	engine := router.New(forecastHandler, cfg.Server.AllowedOrigins, logger.Named(baseLogger, "router"))

	sched, err := scheduler.NewScheduler(cfg.Scheduler, forecastSvc, digests, digestDB, logger.Named(baseLogger, "scheduler"))
	if err != nil {
		baseLogger.Fatal("failed to init scheduler", zap.Error(err))
	}
	if err := sched.Start(); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		baseLogger.Info("server starting", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
	forecastSvc.Wait()
}
