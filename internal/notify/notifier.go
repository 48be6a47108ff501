// Package notify доставляет события жизненного цикла записей и служебные алерты
// во внешние приёмники: брокер сообщений и чат администратора.
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/queueless/booking/internal/model"
)

type Kind string

const (
	KindAppointmentCreated       Kind = "appointment.created"
	KindAppointmentReleased      Kind = "appointment.released"
	KindAppointmentStatusChanged Kind = "appointment.status_changed"
	KindAppointmentRescheduled   Kind = "appointment.rescheduled"
	KindCompensationFailed       Kind = "alert.compensation_failed"
	KindReconcileAlert           Kind = "alert.reconcile"
)

// IsAlert событие требует внимания оператора
func (k Kind) IsAlert() bool {
	return k == KindCompensationFailed || k == KindReconcileAlert
}

type Event struct {
	Kind        Kind               `json:"kind"`
	Appointment *model.Appointment `json:"appointment,omitempty"`
	Message     string             `json:"message,omitempty"`
	At          time.Time          `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Nop отбрасывает события
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }

const deliveryTimeout = 5 * time.Second

// Multi рассылает событие во все приёмники. Ошибка одного пишется в лог
// и не мешает остальным, сам Notify ошибку не возвращает.
type Multi struct {
	sinks  []Notifier
	logger *zap.Logger
}

func NewMulti(logger *zap.Logger, sinks ...Notifier) *Multi {
	m := &Multi{logger: logger}
	m.Add(sinks...)
	return m
}

// Add подключает приёмники. Вызывается при сборке приложения, до первого Notify.
func (m *Multi) Add(sinks ...Notifier) {
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
}

func (m *Multi) Notify(ctx context.Context, event Event) error {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	// доставка не должна зависеть от отмены исходного запроса
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliveryTimeout)
	defer cancel()

	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Notify(ctx, event); err != nil {
			m.logger.Warn("Failed to deliver notification",
				zap.String("kind", string(event.Kind)),
				zap.Error(err))
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		m.logger.Debug("Notification delivered partially", zap.Int("failed_sinks", len(errs)), zap.Error(errors.Join(errs...)))
	}
	return nil
}
