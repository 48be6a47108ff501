package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/queueless/booking/internal/model"
)

// SlotStore реализуется repository.SlotRepository и memory.SlotStore
type SlotStore interface {
	Create(ctx context.Context, slot *model.Slot) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error)
	FindByDateAndLabel(ctx context.Context, date time.Time, label string) (*model.Slot, error)
	FindAvailable(ctx context.Context, from, to time.Time) ([]*model.Slot, error)
	ListRange(ctx context.Context, from, to time.Time) ([]*model.Slot, error)
	// SetBooked атомарно меняет is_booked с expected на next.
	// false без ошибки означает, что значение уже было другим.
	SetBooked(ctx context.Context, id uuid.UUID, expected, next bool) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type AppointmentStore interface {
	Create(ctx context.Context, appt *model.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	FindActive(ctx context.Context, userID uuid.UUID, date time.Time, label string) (*model.Appointment, error)
	List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error)
	ListLive(ctx context.Context, from, to time.Time) ([]*model.Appointment, error)
	// UpdateStatus возвращает запись после смены статуса; nil без ошибки, если статус уже не from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error)
	// UpdateDetails применяется, только если статус и (дата, метка) записи всё ещё как в current.
	UpdateDetails(ctx context.Context, current *model.Appointment, date time.Time, label, reason string) (bool, error)
	// Delete возвращает удалённую запись; nil без ошибки, если её уже нет.
	Delete(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role model.Role) error
}

type SessionStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	Get(ctx context.Context, token string) (uuid.UUID, error)
	Delete(ctx context.Context, token string) error
}

// Directory отдаёт владельцев записей для обогащения ответов
type Directory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
}
