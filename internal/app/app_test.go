package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/config"
	"github.com/queueless/booking/internal/service"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment:   "test",
		Storage:       config.StorageMemory,
		SessionTTL:    time.Hour,
		RefreshTTL:    24 * time.Hour,
		ClosedWeekday: "Sunday",
		SlotLabels:    []string{"09:00 AM", "10:00 AM"},
		UserCacheSize: 16,
		SeedDaysAhead: 7,
		AdminName:     "Admin",
		AdminEmail:    "admin@example.com",
		AdminPassword: "secret123",
	}
}

func TestNewWithMemoryStorage(t *testing.T) {
	ctx := context.Background()

	a, err := New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Bot)
	assert.Equal(t, time.Sunday, a.Calendar.ClosedDay)

	_, admin, err := a.Users.Login(ctx, "admin@example.com", "secret123")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())

	monday := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	created, err := a.Slots.EnsureSlots(ctx, monday, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	user, err := a.Users.Register(ctx, "Ann", "ann@example.com", "secret123")
	require.NoError(t, err)

	appt, err := a.Reservations.Reserve(ctx, user, service.ReserveRequest{
		Date:      "2024-06-10",
		TimeLabel: "10:00 AM",
		Reason:    "checkup",
	})
	require.NoError(t, err)

	pending, err := a.Reservations.Pending(ctx, admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, appt.ID, pending[0].ID)
}

func TestSchedulerSeedsOnStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := New(ctx, memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	scheduler := NewScheduler(a.Slots, a.Reconciler, SchedulerOptions{
		SeedEnabled:       true,
		SeedDaysAhead:     7,
		SeedInterval:      time.Hour,
		ReconcileInterval: time.Hour,
		Calendar:          a.Calendar,
	}, zap.NewNop())

	scheduler.Start(ctx)
	scheduler.Stop()
	scheduler.Stop()

	today := a.Calendar.Today(time.Now())
	var total int
	for day := 0; day < 7; day++ {
		slots, err := a.Slots.Available(ctx, ptr(today.AddDate(0, 0, day)))
		require.NoError(t, err)
		total += len(slots)
	}
	// семь дней подряд содержат ровно одно воскресенье
	assert.Equal(t, 6*2, total)
}

func ptr[T any](v T) *T { return &v }
