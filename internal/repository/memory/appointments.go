package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/queueless/booking/internal/model"
)

type AppointmentStore struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]*model.Appointment
}

func NewAppointmentStore() *AppointmentStore {
	return &AppointmentStore{byID: make(map[uuid.UUID]*model.Appointment)}
}

func (s *AppointmentStore) Create(_ context.Context, appt *model.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if appt.Status.Active() && s.activeConflict(appt.UserID, appt.Key(), uuid.Nil) {
		return model.ErrDuplicateBooking
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	now := time.Now().UTC()
	appt.CreatedAt, appt.UpdatedAt = now, now

	stored := *appt
	stored.User = nil
	s.byID[appt.ID] = &stored
	return nil
}

func (s *AppointmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

func (s *AppointmentStore) FindActive(_ context.Context, userID uuid.UUID, date time.Time, label string) (*model.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key := model.SlotKey{Date: model.DateKey(date), TimeLabel: label}
	for _, appt := range s.byID {
		if appt.UserID == userID && appt.Key() == key && appt.Status.Active() {
			cp := *appt
			return &cp, nil
		}
	}
	return nil, model.ErrNotFound
}

func (s *AppointmentStore) List(_ context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	out := s.collect(func(a *model.Appointment) bool {
		if filter.UserID != nil && a.UserID != *filter.UserID {
			return false
		}
		if filter.Status != "" && a.Status != filter.Status {
			return false
		}
		if filter.Date != nil && !a.Date.Equal(*filter.Date) {
			return false
		}
		return true
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *AppointmentStore) ListLive(_ context.Context, from, to time.Time) ([]*model.Appointment, error) {
	out := s.collect(func(a *model.Appointment) bool {
		return a.Status.Live() && !a.Date.Before(from) && a.Date.Before(to)
	})

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].TimeLabel != out[j].TimeLabel {
			return out[i].TimeLabel < out[j].TimeLabel
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus меняет статус, только если текущий равен from.
// Возвращает запись после изменения или nil, если условие не выполнилось.
func (s *AppointmentStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.byID[id]
	if !ok || appt.Status != from {
		return nil, nil
	}
	if to.Active() && !from.Active() && s.activeConflict(appt.UserID, appt.Key(), id) {
		return nil, model.ErrDuplicateBooking
	}
	appt.Status = to
	appt.UpdatedAt = time.Now().UTC()

	cp := *appt
	return &cp, nil
}

// UpdateDetails переносит запись, только если её статус и слот совпадают с current
func (s *AppointmentStore) UpdateDetails(_ context.Context, current *model.Appointment, date time.Time, label, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.byID[current.ID]
	if !ok || appt.Status != current.Status || appt.Key() != current.Key() {
		return false, nil
	}
	key := model.SlotKey{Date: model.DateKey(date), TimeLabel: label}
	if appt.Status.Active() && s.activeConflict(appt.UserID, key, appt.ID) {
		return false, model.ErrDuplicateBooking
	}
	appt.Date = date
	appt.TimeLabel = label
	appt.Reason = reason
	appt.UpdatedAt = time.Now().UTC()
	return true, nil
}

// Delete удаляет запись и возвращает её состояние на момент удаления, nil если записи нет
func (s *AppointmentStore) Delete(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	appt, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	delete(s.byID, id)
	return appt, nil
}

// Len возвращает количество записей
func (s *AppointmentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// activeConflict повторяет частичный уникальный индекс (user_id, appt_date, time_label) для pending/approved.
// Вызывается под s.mu.
func (s *AppointmentStore) activeConflict(userID uuid.UUID, key model.SlotKey, except uuid.UUID) bool {
	for id, other := range s.byID {
		if id != except && other.UserID == userID && other.Key() == key && other.Status.Active() {
			return true
		}
	}
	return false
}

func (s *AppointmentStore) collect(keep func(*model.Appointment) bool) []*model.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Appointment
	for _, appt := range s.byID {
		if keep(appt) {
			cp := *appt
			out = append(out, &cp)
		}
	}
	return out
}
