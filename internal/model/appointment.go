package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "Pending"   // Ожидает решения администратора
	AppointmentStatusApproved  AppointmentStatus = "Approved"  // Одобрено
	AppointmentStatusRejected  AppointmentStatus = "Rejected"  // Отклонено
	AppointmentStatusCompleted AppointmentStatus = "Completed" // Приём состоялся
)

// Valid проверяет что статус входит в известный набор
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusApproved, AppointmentStatusRejected, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Live запись удерживает слот
func (s AppointmentStatus) Live() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusApproved || s == AppointmentStatusCompleted
}

// Active запись ещё не обработана до конца, повторная запись пользователя на тот же слот запрещена
func (s AppointmentStatus) Active() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusApproved
}

// CanTransitionTo реализует автомат Pending -> {Approved, Rejected}, Approved -> Completed
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return next == AppointmentStatusApproved || next == AppointmentStatusRejected
	case AppointmentStatusApproved:
		return next == AppointmentStatusCompleted
	default:
		return false
	}
}

type Appointment struct {
	ID        uuid.UUID         `json:"id"`
	UserID    uuid.UUID         `json:"userId"`
	Date      time.Time         `json:"date"`
	TimeLabel string            `json:"timeSlot"`
	Reason    string            `json:"reason"`
	Status    AppointmentStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`

	// Заполняется при чтении, в БД не хранится
	User *UserSummary `json:"user,omitempty"`
}

// Key возвращает ключ слота, скопированный в запись при создании
func (a *Appointment) Key() SlotKey {
	return SlotKey{Date: DateKey(a.Date), TimeLabel: a.TimeLabel}
}

// AppointmentFilter параметры выборки записей
type AppointmentFilter struct {
	UserID *uuid.UUID
	Status AppointmentStatus
	Date   *time.Time
}
