package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/config"
	"github.com/queueless/booking/internal/controller/telegram"
	"github.com/queueless/booking/internal/metrics"
	"github.com/queueless/booking/internal/notify"
	"github.com/queueless/booking/internal/repository"
	"github.com/queueless/booking/internal/repository/memory"
	"github.com/queueless/booking/internal/service"
	"github.com/queueless/booking/migrations"
)

// App собранные зависимости сервиса
type App struct {
	Calendar     service.Calendar
	Users        *service.UserService
	Slots        *service.SlotService
	Reservations *service.ReservationService
	Reconciler   *service.Reconciler
	Notifier     *notify.Multi
	Bot          *telegram.AdminBot

	pool   *pgxpool.Pool
	redis  *redis.Client
	rabbit *notify.RabbitPublisher
	logger *zap.Logger
}

type stores struct {
	slots        service.SlotStore
	appointments service.AppointmentStore
	users        service.UserStore
}

// New подключает хранилища, применяет миграции и собирает сервисы
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{
		Calendar: service.Calendar{
			ClosedDay: cfg.Weekday(),
			Location:  cfg.Location(),
			Labels:    cfg.SlotLabels,
		},
		Notifier: notify.NewMulti(logger),
		logger:   logger,
	}

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	sessions, err := a.openSessions(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.MetricsEnabled {
		metrics.Register()
	}

	a.Users, err = service.NewUserService(st.users, sessions, cfg.UserCacheSize, service.TokenTTL{
		Access:  cfg.SessionTTL,
		Refresh: cfg.RefreshTTL,
	}, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Slots = service.NewSlotService(st.slots, a.Calendar, logger)
	a.Reservations = service.NewReservationService(st.slots, st.appointments, a.Users, a.Notifier, a.Calendar, logger)
	a.Reconciler = service.NewReconciler(st.slots, st.appointments, a.Notifier, a.Calendar, logger)

	if err := a.connectNotifiers(cfg); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.AdminEmail != "" {
		if _, err := a.Users.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			a.Close()
			return nil, fmt.Errorf("ensure admin: %w", err)
		}
	}

	return a, nil
}

func (a *App) openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.Storage == config.StorageMemory {
		a.logger.Warn("Using in-memory storage, data is lost on restart")
		return stores{
			slots:        memory.NewSlotStore(),
			appointments: memory.NewAppointmentStore(),
			users:        memory.NewUserStore(),
		}, nil
	}

	pool, err := NewPool(ctx, cfg.DBDSN, a.logger)
	if err != nil {
		return stores{}, err
	}
	a.pool = pool
	a.logger.Info("Connected to PostgreSQL")

	migrator, err := NewMigrator(pool, migrations.FS, a.logger)
	if err != nil {
		return stores{}, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		return stores{}, err
	}

	return stores{
		slots:        repository.NewSlotRepository(pool),
		appointments: repository.NewAppointmentRepository(pool),
		users:        repository.NewUserRepository(pool),
	}, nil
}

func (a *App) openSessions(ctx context.Context, cfg *config.Config) (service.SessionStore, error) {
	if cfg.RedisAddr == "" {
		a.logger.Info("REDIS_ADDR not set, sessions are kept in memory")
		return memory.NewSessionStore(), nil
	}

	client := repository.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := repository.Ping(ctx, client); err != nil {
		client.Close()
		return nil, err
	}
	a.redis = client
	a.logger.Info("Connected to Redis", zap.String("addr", cfg.RedisAddr))

	return repository.NewSessionRepository(client), nil
}

func (a *App) connectNotifiers(cfg *config.Config) error {
	if cfg.RabbitMQURL != "" {
		publisher, err := notify.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQExchange, a.logger)
		if err != nil {
			return err
		}
		a.rabbit = publisher
		a.Notifier.Add(publisher)
	}

	if cfg.TelegramToken != "" {
		adminBot, err := telegram.NewAdminBot(telegram.Options{
			Token:     cfg.TelegramToken,
			ChatID:    cfg.TelegramAdminChatID,
			Labels:    a.Calendar.Labels,
			ClosedDay: a.Calendar.ClosedDay,
			Location:  a.Calendar.Location,
		}, a.Reservations, a.Slots, a.logger)
		if err != nil {
			return err
		}
		a.Bot = adminBot
		a.Notifier.Add(adminBot)
	}
	return nil
}

// Close освобождает соединения в обратном порядке
func (a *App) Close() {
	if a.rabbit != nil {
		if err := a.rabbit.Close(); err != nil {
			a.logger.Warn("Failed to close RabbitMQ publisher", zap.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
