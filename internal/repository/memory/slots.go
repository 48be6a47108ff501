// Package memory хранилища в памяти процесса для тестов и режима STORAGE=memory.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/queueless/booking/internal/model"
)

type SlotStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*model.Slot
	byKey map[model.SlotKey]uuid.UUID
}

func NewSlotStore() *SlotStore {
	return &SlotStore{
		byID:  make(map[uuid.UUID]*model.Slot),
		byKey: make(map[model.SlotKey]uuid.UUID),
	}
}

func (s *SlotStore) Create(_ context.Context, slot *model.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slot.Key()
	if _, exists := s.byKey[key]; exists {
		return model.ErrSlotExists
	}
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}
	now := time.Now().UTC()
	slot.CreatedAt, slot.UpdatedAt = now, now

	stored := *slot
	s.byID[slot.ID] = &stored
	s.byKey[key] = slot.ID
	return nil
}

func (s *SlotStore) GetByID(_ context.Context, id uuid.UUID) (*model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slot, ok := s.byID[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *slot
	return &cp, nil
}

func (s *SlotStore) FindByDateAndLabel(_ context.Context, date time.Time, label string) (*model.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byKey[model.SlotKey{Date: model.DateKey(date), TimeLabel: label}]
	if !ok {
		return nil, model.ErrNotFound
	}
	cp := *s.byID[id]
	return &cp, nil
}

func (s *SlotStore) FindAvailable(_ context.Context, from, to time.Time) ([]*model.Slot, error) {
	return s.collect(from, to, func(slot *model.Slot) bool { return !slot.IsBooked }), nil
}

func (s *SlotStore) ListRange(_ context.Context, from, to time.Time) ([]*model.Slot, error) {
	return s.collect(from, to, func(*model.Slot) bool { return true }), nil
}

// SetBooked атомарный compare-and-swap флага под мьютексом
func (s *SlotStore) SetBooked(_ context.Context, id uuid.UUID, expected, next bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.byID[id]
	if !ok || slot.IsBooked != expected {
		return false, nil
	}
	slot.IsBooked = next
	slot.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *SlotStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	slot, ok := s.byID[id]
	if !ok || slot.IsBooked {
		return false, nil
	}
	delete(s.byKey, slot.Key())
	delete(s.byID, id)
	return true, nil
}

func (s *SlotStore) collect(from, to time.Time, keep func(*model.Slot) bool) []*model.Slot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*model.Slot
	for _, slot := range s.byID {
		if slot.Date.Before(from) || !slot.Date.Before(to) || !keep(slot) {
			continue
		}
		cp := *slot
		out = append(out, &cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].TimeLabel < out[j].TimeLabel
	})
	return out
}
