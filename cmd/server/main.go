package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/modules/forecast"
	"github.com/aristath/stockfolio/internal/modules/market"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/modules/statistics"
	"github.com/aristath/stockfolio/internal/modules/trading"
	"github.com/aristath/stockfolio/internal/scheduler"
	"github.com/aristath/stockfolio/internal/server"
	"github.com/aristath/stockfolio/pkg/logger"
)

func main() {
	// Initialize logger
	log := logger.New(logger.Config{
		Level:  "info",
		Pretty: true,
	})

	log.Info().Msg("Starting Stockfolio")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Reinitialize with the configured level
	log = logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	// Initialize database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	// Run migrations
	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Repositories
	conn := db.Conn()
	marketRepo := market.NewRepository(conn, log)
	portfolioRepo := portfolio.NewRepository(conn, log)
	holdingRepo := portfolio.NewHoldingRepository(conn, log)
	journalRepo := portfolio.NewJournalRepository(conn, log)
	snapshotRepo := portfolio.NewSnapshotRepository(conn, log)
	statsCache := statistics.NewCacheRepository(conn, log)

	// Services. The locker serializes cash movements and trades per
	// portfolio across both services.
	locker := portfolio.NewLocker()
	portfolioService := portfolio.NewService(conn, portfolioRepo, holdingRepo, journalRepo, snapshotRepo, marketRepo, locker, log)
	executor := trading.NewExecutor(conn, portfolioRepo, holdingRepo, journalRepo, marketRepo, marketRepo, locker, log)
	statsService := statistics.NewService(portfolioRepo, holdingRepo, statistics.NewCalculator(marketRepo), statsCache, log)
	forecastService := forecast.NewService(marketRepo, log)

	// Background jobs
	sched := scheduler.New(log)
	if err := sched.AddJob(cfg.SnapshotSchedule, scheduler.NewSnapshotJob(log, portfolioService)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register snapshot job")
	}
	if err := sched.AddJob(cfg.MaintSchedule, scheduler.NewMaintenanceJob(log, db)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register maintenance job")
	}
	sched.Start()
	defer sched.Stop()

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		DB:      db,
		DevMode: cfg.DevMode,
		Handlers: server.Handlers{
			Market:     market.NewHandlers(marketRepo, log),
			Forecast:   forecast.NewHandlers(forecastService, log),
			Portfolio:  portfolio.NewHandlers(portfolioRepo, holdingRepo, journalRepo, portfolioService, log),
			Statistics: statistics.NewHandlers(statsService, log),
			Trading:    trading.NewHandlers(executor, log),
		},
	})

	// Start server in goroutine
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
