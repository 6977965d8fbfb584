package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stationery/internal/config"
	"stationery/internal/infra"
	"stationery/internal/router"
	"stationery/internal/service"
	"stationery/internal/worker"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: dev pretty, prod JSON
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty: /api routes accept unauthenticated requests")
	}

	db, err := infra.NewDatabase(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DatabaseDriver).Msg("failed to connect to database")
	}
	if cfg.AutoMigrate {
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	// The student import is optional; without a DSN the sync endpoints answer 503.
	var (
		source  service.StudentSource
		breaker *infra.CircuitBreaker
	)
	if cfg.StudentSourceDSN != "" {
		mysqlSource, err := infra.NewMySQLStudentSource(cfg.StudentSourceDSN, cfg.StudentSourceTable, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open student source")
		}
		source, breaker = mysqlSource, mysqlSource.Breaker()
	}

	svc := router.NewServices(cfg, db, rdb, source)

	// Worker handlers are wired here (composition root) so the pool stays
	// unaware of services.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var alertMailer worker.AlertMailer
	if m := infra.NewMailer(cfg); m != nil {
		alertMailer = m
		log.Info().Str("to", cfg.LowStockAlertEmail).Msg("low stock alerts will be mailed")
	}

	workerHandlers := &worker.WorkerHandlers{
		LowStock:    worker.NewLowStockWorker(rdb, alertMailer),
		StudentSync: worker.NewStudentSyncWorker(svc.StudentSync),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)
	if source != nil {
		worker.StartStudentSyncCron(ctx, svc.Dispatcher, cfg.StudentSyncEvery)
	}

	r := router.New(cfg, db, rdb, svc, breaker)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("stationery backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
