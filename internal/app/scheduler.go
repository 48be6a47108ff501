package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/queueless/booking/internal/service"
)

type SchedulerOptions struct {
	SeedEnabled       bool
	SeedDaysAhead     int
	SeedInterval      time.Duration
	ReconcileInterval time.Duration
	Calendar          service.Calendar
}

// Scheduler управляет фоновыми задачами
type Scheduler struct {
	slots      *service.SlotService
	reconciler *service.Reconciler
	opts       SchedulerOptions
	logger     *zap.Logger
	stopChan   chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewScheduler создаёт новый планировщик
func NewScheduler(slots *service.SlotService, reconciler *service.Reconciler, opts SchedulerOptions, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		slots:      slots,
		reconciler: reconciler,
		opts:       opts,
		logger:     logger,
		stopChan:   make(chan struct{}),
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Bool("seed_enabled", s.opts.SeedEnabled),
		zap.Duration("reconcile_interval", s.opts.ReconcileInterval),
	)

	if s.opts.SeedEnabled && s.opts.SeedInterval > 0 {
		s.run(ctx, "slot seeding", s.opts.SeedInterval, s.seedSlots)
	}
	if s.reconciler != nil && s.opts.ReconcileInterval > 0 {
		s.run(ctx, "reconciliation", s.opts.ReconcileInterval, s.reconcile)
	}
}

// Stop останавливает фоновые задачи и ждёт их завершения
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping background scheduler")
		close(s.stopChan)
	})
	s.wg.Wait()
}

// run выполняет task сразу при старте и затем каждые interval
func (s *Scheduler) run(ctx context.Context, name string, interval time.Duration, task func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		task(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				task(ctx)
			case <-s.stopChan:
				s.logger.Info("Background task stopped", zap.String("task", name))
				return
			case <-ctx.Done():
				s.logger.Info("Background task cancelled", zap.String("task", name))
				return
			}
		}
	}()
}

// seedSlots создаёт слоты на SeedDaysAhead дней вперёд
func (s *Scheduler) seedSlots(ctx context.Context) {
	today := s.opts.Calendar.Today(time.Now())

	created, err := s.slots.EnsureSlots(ctx, today, s.opts.SeedDaysAhead)
	if err != nil {
		s.logger.Error("Failed to seed slots", zap.Error(err))
		return
	}

	s.logger.Info("Automatic slot seeding completed", zap.Int("created", created))
}

func (s *Scheduler) reconcile(ctx context.Context) {
	if _, err := s.reconciler.Run(ctx); err != nil {
		s.logger.Error("Reconciliation failed", zap.Error(err))
	}
}
