package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/queueless/booking/internal/app"
	"github.com/queueless/booking/internal/config"
	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/render"
)

// seed создаёт слоты на ближайшие дни и, по желанию, рисует неделю в PNG
func main() {
	days := flag.Int("days", 0, "days ahead to seed (default SEED_DAYS_AHEAD)")
	from := flag.String("from", "", "first day to seed, YYYY-MM-DD (default today)")
	pngPath := flag.String("png", "", "write the week image of the first seeded day to this file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment, cfg.LogLevel)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialise", zap.Error(err))
	}
	defer application.Close()

	start := application.Calendar.Today(time.Now())
	if *from != "" {
		start, err = application.Calendar.ParseDate(*from)
		if err != nil {
			logger.Fatal("Invalid -from", zap.Error(err))
		}
	}
	if *days <= 0 {
		*days = cfg.SeedDaysAhead
	}

	created, err := application.Slots.EnsureSlots(ctx, start, *days)
	if err != nil {
		logger.Fatal("Seeding failed", zap.Error(err))
	}
	logger.Info("Seeding finished",
		zap.String("from", model.DateKey(start)),
		zap.Int("days", *days),
		zap.Int("created", created),
	)

	if *pngPath == "" {
		return
	}

	weekStart, slots, err := application.Slots.Week(ctx, start)
	if err != nil {
		logger.Fatal("Failed to load week", zap.Error(err))
	}
	image, err := render.WeekImage(render.Week{
		Start:     weekStart,
		Labels:    application.Calendar.Labels,
		Slots:     slots,
		ClosedDay: application.Calendar.ClosedDay,
		Today:     application.Calendar.Today(time.Now()),
	})
	if err != nil {
		logger.Fatal("Failed to render week", zap.Error(err))
	}
	if err := os.WriteFile(*pngPath, image, 0o644); err != nil {
		logger.Fatal("Failed to write image", zap.Error(err))
	}
	logger.Info("Week image written", zap.String("path", *pngPath))
}
