package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/notify"
)

func TestCompare(t *testing.T) {
	key := func(label string) model.SlotKey { return model.SlotKey{Date: "2024-06-10", TimeLabel: label} }
	appt := func(label string, status model.AppointmentStatus) *model.Appointment {
		return &model.Appointment{Date: monday, TimeLabel: label, Status: status}
	}

	slots := []*model.Slot{
		{Date: monday, TimeLabel: "09:00 AM", IsBooked: true},  // ok
		{Date: monday, TimeLabel: "10:00 AM", IsBooked: true},  // без записи
		{Date: monday, TimeLabel: "11:00 AM", IsBooked: false}, // запись на свободном слоте
		{Date: monday, TimeLabel: "02:00 PM", IsBooked: false}, // ok
		{Date: monday, TimeLabel: "03:00 PM", IsBooked: true},  // две записи
	}
	appts := []*model.Appointment{
		appt("09:00 AM", model.AppointmentStatusApproved),
		appt("11:00 AM", model.AppointmentStatusPending),
		appt("02:00 PM", model.AppointmentStatusRejected),
		appt("03:00 PM", model.AppointmentStatusPending),
		appt("03:00 PM", model.AppointmentStatusCompleted),
		appt("04:00 PM", model.AppointmentStatusPending),
	}

	// порядок по ключу: метки сравниваются как строки
	got := Compare(slots, appts)

	assert.Equal(t, []Anomaly{
		{Kind: AnomalyDoubleAppointment, Key: key("03:00 PM"), Count: 2},
		{Kind: AnomalyMissingSlot, Key: key("04:00 PM"), Count: 1},
		{Kind: AnomalyOrphanBookedSlot, Key: key("10:00 AM")},
		{Kind: AnomalyFreeSlotBooked, Key: key("11:00 AM"), Count: 1},
	}, got)
}

func TestReconcilerRun(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := f.user(t, "u1", model.RoleUser)
	f.slot(t, monday, nineAM)
	orphan := f.slot(t, monday, "10:00 AM")

	_, err := f.svc.Reserve(ctx, u, reserveReq(monday, nineAM))
	require.NoError(t, err)

	r := NewReconciler(f.slots, f.appointments, f.notifier, DefaultCalendar(), zap.NewNop())
	r.now = func() time.Time { return monday.Add(8 * time.Hour) }

	anomalies, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, anomalies)

	_, err = f.slots.SetBooked(ctx, orphan.ID, false, true)
	require.NoError(t, err)

	anomalies, err = r.Run(ctx)
	require.NoError(t, err)
	require.Len(t, anomalies, 1)
	assert.Equal(t, AnomalyOrphanBookedSlot, anomalies[0].Kind)

	kinds := f.notifier.kinds()
	assert.Equal(t, notify.KindReconcileAlert, kinds[len(kinds)-1])
}
