package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/queueless/booking/internal/metrics"
	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/notify"
)

const (
	reconcileDaysBack  = 7
	reconcileDaysAhead = 60
)

type AnomalyKind string

const (
	AnomalyOrphanBookedSlot  AnomalyKind = "booked_slot_without_appointment"
	AnomalyFreeSlotBooked    AnomalyKind = "appointment_on_free_slot"
	AnomalyMissingSlot       AnomalyKind = "appointment_without_slot"
	AnomalyDoubleAppointment AnomalyKind = "multiple_live_appointments"
)

type Anomaly struct {
	Kind  AnomalyKind
	Key   model.SlotKey
	Count int
}

func (a Anomaly) String() string {
	if a.Count > 1 {
		return fmt.Sprintf("%s %s (%d)", a.Kind, a.Key, a.Count)
	}
	return fmt.Sprintf("%s %s", a.Kind, a.Key)
}

// Reconciler сверяет флаги слотов с живыми записями. Только отчёт, данные не меняет.
type Reconciler struct {
	slots        SlotStore
	appointments AppointmentStore
	notifier     notify.Notifier
	calendar     Calendar
	now          func() time.Time
	logger       *zap.Logger
}

func NewReconciler(slots SlotStore, appointments AppointmentStore, notifier notify.Notifier, calendar Calendar, logger *zap.Logger) *Reconciler {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Reconciler{
		slots:        slots,
		appointments: appointments,
		notifier:     notifier,
		calendar:     calendar,
		now:          time.Now,
		logger:       logger,
	}
}

// Run проверяет окно [сегодня-7, сегодня+60)
func (r *Reconciler) Run(ctx context.Context) ([]Anomaly, error) {
	today := r.calendar.Today(r.now())
	from := today.AddDate(0, 0, -reconcileDaysBack)
	to := today.AddDate(0, 0, reconcileDaysAhead)

	slots, err := r.slots.ListRange(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	appts, err := r.appointments.ListLive(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list live appointments: %w", err)
	}

	anomalies := Compare(slots, appts)

	metrics.SetReconcileAnomalies(len(anomalies))
	for _, a := range anomalies {
		r.logger.Warn("Reconciliation anomaly",
			zap.String("kind", string(a.Kind)),
			zap.Stringer("slot", a.Key),
			zap.Int("count", a.Count),
		)
	}

	if len(anomalies) > 0 {
		lines := make([]string, 0, len(anomalies))
		for _, a := range anomalies {
			lines = append(lines, a.String())
		}
		event := notify.Event{
			Kind:    notify.KindReconcileAlert,
			Message: strings.Join(lines, "\n"),
			At:      r.now().UTC(),
		}
		if err := r.notifier.Notify(ctx, event); err != nil {
			r.logger.Warn("Failed to publish reconcile alert", zap.Error(err))
		}
	}

	r.logger.Info("Reconciliation finished",
		zap.Int("slots", len(slots)),
		zap.Int("live_appointments", len(appts)),
		zap.Int("anomalies", len(anomalies)),
	)
	return anomalies, nil
}

// Compare находит нарушения правила "слот занят <=> ровно одна живая запись"
func Compare(slots []*model.Slot, appts []*model.Appointment) []Anomaly {
	live := make(map[model.SlotKey]int, len(appts))
	for _, a := range appts {
		if a.Status.Live() {
			live[a.Key()]++
		}
	}

	var out []Anomaly
	seen := make(map[model.SlotKey]bool, len(slots))

	for _, slot := range slots {
		key := slot.Key()
		seen[key] = true
		n := live[key]

		switch {
		case slot.IsBooked && n == 0:
			out = append(out, Anomaly{Kind: AnomalyOrphanBookedSlot, Key: key})
		case !slot.IsBooked && n > 0:
			out = append(out, Anomaly{Kind: AnomalyFreeSlotBooked, Key: key, Count: n})
		}
		if n > 1 {
			out = append(out, Anomaly{Kind: AnomalyDoubleAppointment, Key: key, Count: n})
		}
	}

	for key, n := range live {
		if seen[key] {
			continue
		}
		out = append(out, Anomaly{Kind: AnomalyMissingSlot, Key: key, Count: n})
		if n > 1 {
			out = append(out, Anomaly{Kind: AnomalyDoubleAppointment, Key: key, Count: n})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			if out[i].Key.Date != out[j].Key.Date {
				return out[i].Key.Date < out[j].Key.Date
			}
			return out[i].Key.TimeLabel < out[j].Key.TimeLabel
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}
