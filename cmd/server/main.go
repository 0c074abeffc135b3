package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/session-booking/internal/config"
	"github.com/iliyamo/session-booking/internal/database"
	"github.com/iliyamo/session-booking/internal/handler"
	"github.com/iliyamo/session-booking/internal/lock"
	"github.com/iliyamo/session-booking/internal/logger"
	"github.com/iliyamo/session-booking/internal/metrics"
	"github.com/iliyamo/session-booking/internal/middleware"
	"github.com/iliyamo/session-booking/internal/queue"
	"github.com/iliyamo/session-booking/internal/repository"
	"github.com/iliyamo/session-booking/internal/router"
	"github.com/iliyamo/session-booking/internal/service"
	"github.com/iliyamo/session-booking/internal/worker"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Env))
	defer func() { _ = logger.Sync() }()

	m := metrics.Init()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName, database.Pool{
		MaxOpen:     cfg.DBMaxOpen,
		MaxIdle:     cfg.DBMaxIdle,
		MaxLifetime: cfg.DBConnLife,
	})
	if err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(db, "migrations"); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	rdb, err := config.NewRedisClient()
	if err != nil {
		logger.Fatal("redis connect failed", zap.Error(err))
	}
	defer rdb.Close()

	store := repository.NewStore(db)
	locks := lock.NewCoordinator(rdb, cfg.LockTTL, cfg.LockRetries, cfg.LockRetryWait)
	publisher := queue.NewPublisher(cfg.RabbitURL)

	reservations := service.NewReservationService(store, locks, publisher, cfg.HoldTTL)
	sales := service.NewSaleService(store, store.Sales(), publisher)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := worker.NewSweeper(store, locks, publisher, cfg.SweepInterval)
	go sweeper.Start(ctx)

	go func() {
		if err := queue.StartConsumer(cfg.RabbitURL); err != nil {
			logger.Error("event consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.Prometheus(m))

	router.Register(e, router.Deps{
		DB:           db,
		Redis:        rdb,
		JWTSecret:    cfg.JWTSecret,
		RateLimit:    config.LoadRateLimitConfig(),
		Sessions:     handler.NewSessionHandler(store.Sessions(), store.Seats()),
		Reservations: handler.NewReservationHandler(reservations),
		Sales:        handler.NewSaleHandler(sales),
	})

	go func() {
		addr := ":" + cfg.Port
		logger.Info("server listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	sweeper.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
}
