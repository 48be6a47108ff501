package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/model"
)

// availableHorizon насколько вперёд смотрит список свободных слотов без даты
const availableHorizon = 366 * 24 * time.Hour

type SlotService struct {
	slots    SlotStore
	calendar Calendar
	now      func() time.Time
	logger   *zap.Logger
}

func NewSlotService(slots SlotStore, calendar Calendar, logger *zap.Logger) *SlotService {
	return &SlotService{
		slots:    slots,
		calendar: calendar,
		now:      time.Now,
		logger:   logger,
	}
}

// Available возвращает свободные слоты на дату, а без даты все будущие начиная с сегодня
func (s *SlotService) Available(ctx context.Context, date *time.Time) ([]*model.Slot, error) {
	from := s.calendar.Today(s.now())
	to := from.Add(availableHorizon)
	if date != nil {
		from = model.NormalizeDate(*date)
		to = from.AddDate(0, 0, 1)
	}

	slots, err := s.slots.FindAvailable(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("find available slots: %w", err)
	}
	return slots, nil
}

// Create добавляет слот (только администратор)
func (s *SlotService) Create(ctx context.Context, actor *model.User, rawDate, label string) (*model.Slot, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAccessDenied
	}

	label = strings.TrimSpace(label)
	if strings.TrimSpace(rawDate) == "" || label == "" {
		return nil, fmt.Errorf("%w: date and time slot are required", model.ErrValidation)
	}
	date, err := s.calendar.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}

	slot := &model.Slot{Date: date, TimeLabel: label}
	if err := s.slots.Create(ctx, slot); err != nil {
		if errors.Is(err, model.ErrSlotExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.logger.Info("Slot created",
		zap.Stringer("slot_id", slot.ID),
		zap.Stringer("slot", slot.Key()),
		zap.Stringer("admin_id", actor.ID),
	)

	return slot, nil
}

// Delete удаляет свободный слот (только администратор)
func (s *SlotService) Delete(ctx context.Context, actor *model.User, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return model.ErrAccessDenied
	}

	slot, err := s.slots.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if slot.IsBooked {
		return model.ErrSlotBooked
	}

	deleted, err := s.slots.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if !deleted {
		// слот заняли или удалили между чтением и удалением
		if _, err := s.slots.GetByID(ctx, id); err != nil {
			return err
		}
		return model.ErrSlotBooked
	}

	s.logger.Info("Slot deleted",
		zap.Stringer("slot_id", id),
		zap.Stringer("slot", slot.Key()),
		zap.Stringer("admin_id", actor.ID),
	)
	return nil
}

// Week возвращает все слоты недели (пн-вс), в которую попадает date
func (s *SlotService) Week(ctx context.Context, date time.Time) (time.Time, []*model.Slot, error) {
	start := WeekStart(date)

	slots, err := s.slots.ListRange(ctx, start, start.AddDate(0, 0, 7))
	if err != nil {
		return start, nil, fmt.Errorf("list week slots: %w", err)
	}
	return start, slots, nil
}

// EnsureSlots создаёт ежедневные слоты на days дней начиная с from, пропуская выходной.
// Существующие слоты не трогает. Возвращает количество созданных.
func (s *SlotService) EnsureSlots(ctx context.Context, from time.Time, days int) (int, error) {
	if days <= 0 {
		return 0, fmt.Errorf("%w: days must be positive", model.ErrValidation)
	}
	if len(s.calendar.Labels) == 0 {
		return 0, fmt.Errorf("%w: no slot labels configured", model.ErrValidation)
	}

	start := model.NormalizeDate(from)
	created := 0

	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		if s.calendar.IsClosed(date) {
			continue
		}

		for _, label := range s.calendar.Labels {
			if err := ctx.Err(); err != nil {
				return created, err
			}

			slot := &model.Slot{Date: date, TimeLabel: label}
			err := s.slots.Create(ctx, slot)
			if errors.Is(err, model.ErrSlotExists) {
				s.logger.Debug("Slot already exists, skipping", zap.Stringer("slot", slot.Key()))
				continue
			}
			if err != nil {
				return created, fmt.Errorf("create slot %s: %w", slot.Key(), err)
			}
			created++
		}
	}

	s.logger.Info("Slots ensured",
		zap.String("from", model.DateKey(start)),
		zap.Int("days", days),
		zap.Int("created", created),
	)
	return created, nil
}
