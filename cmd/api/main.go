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

	"go.uber.org/zap"

	"github.com/queueless/booking/internal/app"
	"github.com/queueless/booking/internal/config"
	"github.com/queueless/booking/internal/controller/api"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting QueueLess API",
		zap.String("environment", cfg.Environment),
		zap.String("storage", cfg.Storage),
		zap.String("closed_weekday", cfg.Weekday().String()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer application.Close()

	scheduler := app.NewScheduler(application.Slots, application.Reconciler, app.SchedulerOptions{
		SeedEnabled:       cfg.SeedEnabled,
		SeedDaysAhead:     cfg.SeedDaysAhead,
		SeedInterval:      cfg.SeedInterval,
		ReconcileInterval: cfg.ReconcileInterval,
		Calendar:          application.Calendar,
	}, logger)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	if application.Bot != nil {
		go application.Bot.Start(ctx)
	}

	server := api.NewServer(
		application.Users,
		application.Slots,
		application.Reservations,
		application.Calendar,
		api.Options{FrontendURL: cfg.FrontendURL, MetricsEnabled: cfg.MetricsEnabled},
		logger,
	)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
