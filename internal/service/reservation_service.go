package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/queueless/booking/internal/metrics"
	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/notify"
)

// ReserveRequest сырые поля формы записи
type ReserveRequest struct {
	Date      string
	TimeLabel string
	Reason    string
}

// EditRequest правка записи владельцем; nil поля не меняются
type EditRequest struct {
	Date      *string
	TimeLabel *string
	Reason    *string
}

// ReservationService поддерживает согласованность слотов и записей:
// слот занят тогда и только тогда, когда на его (дату, метку) есть ровно одна живая запись.
type ReservationService struct {
	slots        SlotStore
	appointments AppointmentStore
	directory    Directory
	notifier     notify.Notifier
	calendar     Calendar
	logger       *zap.Logger
}

func NewReservationService(
	slots SlotStore,
	appointments AppointmentStore,
	directory Directory,
	notifier notify.Notifier,
	calendar Calendar,
	logger *zap.Logger,
) *ReservationService {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &ReservationService{
		slots:        slots,
		appointments: appointments,
		directory:    directory,
		notifier:     notifier,
		calendar:     calendar,
		logger:       logger,
	}
}

// Reserve создаёт запись в статусе Pending и занимает слот
func (s *ReservationService) Reserve(ctx context.Context, actor *model.User, req ReserveRequest) (*model.Appointment, error) {
	if actor == nil {
		return nil, model.ErrUnauthenticated
	}

	date, label, reason, err := s.validateReserve(req)
	if err != nil {
		return nil, err
	}

	if s.calendar.IsClosed(date) {
		metrics.IncReservation(metrics.ResultRejectedDay)
		return nil, fmt.Errorf("%w: appointments are not available on %s", model.ErrDomainRejected, date.Weekday())
	}

	slot, err := s.slots.FindByDateAndLabel(ctx, date, label)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			metrics.IncReservation(metrics.ResultSlotUnavailable)
			return nil, model.ErrSlotUnavailable
		}
		return nil, fmt.Errorf("find slot: %w", err)
	}
	if slot.IsBooked {
		metrics.IncReservation(metrics.ResultSlotUnavailable)
		return nil, model.ErrSlotUnavailable
	}

	// Проверка по собственным записям пользователя, гонка здесь допустима
	_, err = s.appointments.FindActive(ctx, actor.ID, date, label)
	switch {
	case err == nil:
		metrics.IncReservation(metrics.ResultDuplicate)
		return nil, model.ErrDuplicateBooking
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	appt := &model.Appointment{
		UserID:    actor.ID,
		Date:      date,
		TimeLabel: label,
		Reason:    reason,
		Status:    model.AppointmentStatusPending,
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		if errors.Is(err, model.ErrDuplicateBooking) {
			metrics.IncReservation(metrics.ResultDuplicate)
			return nil, err
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	claimed, err := s.slots.SetBooked(ctx, slot.ID, false, true)
	if err != nil || !claimed {
		return nil, s.compensate(ctx, appt, err)
	}

	metrics.IncReservation(metrics.ResultReserved)
	s.logger.Info("Appointment reserved",
		zap.Stringer("appointment_id", appt.ID),
		zap.Stringer("user_id", actor.ID),
		zap.Stringer("slot", appt.Key()),
	)

	appt.User = actor.Summary()
	s.publish(ctx, notify.KindAppointmentCreated, appt, "")

	return appt, nil
}

// compensate удаляет запись, созданную до проигранного захвата слота.
// claimErr: ошибка самого захвата, если она была.
func (s *ReservationService) compensate(ctx context.Context, appt *model.Appointment, claimErr error) error {
	// откат не должен прерываться отменой запроса клиента
	ctx = context.WithoutCancel(ctx)

	_, delErr := s.appointments.Delete(ctx, appt.ID)
	if delErr != nil {
		metrics.IncCompensationFailure()
		s.logger.Error("Compensation failed, orphan appointment left",
			zap.Stringer("appointment_id", appt.ID),
			zap.Stringer("slot", appt.Key()),
			zap.NamedError("claim_error", claimErr),
			zap.Error(delErr),
		)
		s.publish(ctx, notify.KindCompensationFailed, appt,
			fmt.Sprintf("orphan appointment %s for %s: %v", appt.ID, appt.Key(), delErr))
		return errors.Join(model.ErrSlotUnavailable, fmt.Errorf("delete orphan appointment: %w", delErr))
	}

	metrics.IncReservation(metrics.ResultCompensated)
	s.logger.Info("Slot claim lost, appointment compensated",
		zap.Stringer("appointment_id", appt.ID),
		zap.Stringer("slot", appt.Key()),
		zap.NamedError("claim_error", claimErr),
	)

	if claimErr != nil {
		return errors.Join(model.ErrSlotUnavailable, fmt.Errorf("claim slot: %w", claimErr))
	}
	return model.ErrSlotUnavailable
}

// Release удаляет запись и освобождает её слот. Повторный вызов возвращает ErrNotFound
// и не трогает слот.
func (s *ReservationService) Release(ctx context.Context, actor *model.User, id uuid.UUID) error {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canAccess(actor, appt) {
		return model.ErrAccessDenied
	}

	// слот освобождается по удалённой строке, а не по прочитанной:
	// запись могли перенести между чтением и удалением
	deleted, err := s.appointments.Delete(ctx, appt.ID)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if deleted == nil {
		return model.ErrNotFound
	}

	freed := false
	if deleted.Status.Live() {
		freed, err = s.freeSlot(context.WithoutCancel(ctx), deleted.Date, deleted.TimeLabel)
		if err != nil {
			s.logger.Error("Failed to free slot of released appointment",
				zap.Stringer("appointment_id", deleted.ID),
				zap.Stringer("slot", deleted.Key()),
				zap.Error(err),
			)
		}
	}

	metrics.IncRelease(freed)
	s.logger.Info("Appointment released",
		zap.Stringer("appointment_id", deleted.ID),
		zap.Stringer("actor_id", actor.ID),
		zap.Bool("slot_freed", freed),
	)
	s.publish(ctx, notify.KindAppointmentReleased, deleted, "")

	return nil
}

// freeSlot снимает занятость со слота по значению (дата, метка).
// Отсутствие занятого слота не ошибка.
func (s *ReservationService) freeSlot(ctx context.Context, date time.Time, label string) (bool, error) {
	key := model.SlotKey{Date: model.DateKey(date), TimeLabel: label}

	slot, err := s.slots.FindByDateAndLabel(ctx, date, label)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Warn("No booked slot to free", zap.Stringer("slot", key), zap.String("reason", "missing"))
			return false, nil
		}
		return false, fmt.Errorf("find slot: %w", err)
	}
	if !slot.IsBooked {
		s.logger.Warn("No booked slot to free", zap.Stringer("slot", key), zap.String("reason", "already free"))
		return false, nil
	}

	freed, err := s.slots.SetBooked(ctx, slot.ID, true, false)
	if err != nil {
		return false, fmt.Errorf("free slot: %w", err)
	}
	if !freed {
		s.logger.Warn("No booked slot to free", zap.Stringer("slot", key), zap.String("reason", "concurrent release"))
	}
	return freed, nil
}

// UpdateStatus решение администратора по записи
func (s *ReservationService) UpdateStatus(ctx context.Context, actor *model.User, id uuid.UUID, status model.AppointmentStatus) (*model.Appointment, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAccessDenied
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, status)
	}

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status == status {
		return s.enrich(ctx, appt), nil
	}
	if !appt.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, appt.Status, status)
	}

	updated, err := s.appointments.UpdateStatus(ctx, id, appt.Status, status)
	if err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	if updated == nil {
		// другой администратор успел раньше
		current, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status == status {
			return s.enrich(ctx, current), nil
		}
		return nil, fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, current.Status, status)
	}

	previous := appt.Status
	appt = updated

	// отклонённая запись не удерживает слот; ключ берём из обновлённой строки
	if !status.Live() && previous.Live() {
		if _, err := s.freeSlot(context.WithoutCancel(ctx), appt.Date, appt.TimeLabel); err != nil {
			s.logger.Error("Failed to free slot of rejected appointment",
				zap.Stringer("appointment_id", appt.ID),
				zap.Error(err),
			)
		}
	}

	metrics.IncStatusChange(string(status))
	s.logger.Info("Appointment status changed",
		zap.Stringer("appointment_id", appt.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.Stringer("admin_id", actor.ID),
	)

	appt = s.enrich(ctx, appt)
	s.publish(ctx, notify.KindAppointmentStatusChanged, appt, fmt.Sprintf("%s -> %s", previous, status))

	return appt, nil
}

// Reschedule правка записи владельцем. Смена слота у Pending записи повторяет
// протокол захвата: сначала новый слот, потом освобождение старого.
func (s *ReservationService) Reschedule(ctx context.Context, actor *model.User, id uuid.UUID, req EditRequest) (*model.Appointment, error) {
	if actor == nil {
		return nil, model.ErrUnauthenticated
	}

	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.UserID != actor.ID {
		return nil, model.ErrAccessDenied
	}
	if appt.Status != model.AppointmentStatusPending && appt.Status != model.AppointmentStatusRejected {
		return nil, fmt.Errorf("%w: cannot update approved or completed appointments", model.ErrValidation)
	}

	date, label, reason := appt.Date, appt.TimeLabel, appt.Reason
	if req.Date != nil {
		date, err = s.calendar.ParseDate(*req.Date)
		if err != nil {
			return nil, err
		}
	}
	if req.TimeLabel != nil {
		label = strings.TrimSpace(*req.TimeLabel)
		if label == "" {
			return nil, fmt.Errorf("%w: time slot is required", model.ErrValidation)
		}
	}
	if req.Reason != nil {
		reason = strings.TrimSpace(*req.Reason)
		if reason == "" {
			return nil, fmt.Errorf("%w: reason is required", model.ErrValidation)
		}
	}
	if s.calendar.IsClosed(date) {
		return nil, fmt.Errorf("%w: appointments are not available on %s", model.ErrDomainRejected, date.Weekday())
	}

	oldKey := appt.Key()
	newKey := model.SlotKey{Date: model.DateKey(date), TimeLabel: label}

	if oldKey == newKey || !appt.Status.Live() {
		if err := s.updateDetails(ctx, appt, date, label, reason); err != nil {
			return nil, err
		}
		return s.enrich(ctx, appt), nil
	}

	_, err = s.appointments.FindActive(ctx, actor.ID, date, label)
	switch {
	case err == nil:
		return nil, model.ErrDuplicateBooking
	case !errors.Is(err, model.ErrNotFound):
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	target, err := s.slots.FindByDateAndLabel(ctx, date, label)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrSlotUnavailable
		}
		return nil, fmt.Errorf("find slot: %w", err)
	}
	if target.IsBooked {
		return nil, model.ErrSlotUnavailable
	}

	claimed, err := s.slots.SetBooked(ctx, target.ID, false, true)
	if err != nil {
		return nil, fmt.Errorf("claim slot: %w", err)
	}
	if !claimed {
		return nil, model.ErrSlotUnavailable
	}

	oldDate, oldLabel := appt.Date, appt.TimeLabel
	if err := s.updateDetails(ctx, appt, date, label, reason); err != nil {
		// возвращаем новый слот, старый остаётся за записью
		if _, undoErr := s.slots.SetBooked(context.WithoutCancel(ctx), target.ID, true, false); undoErr != nil {
			s.logger.Error("Failed to release claimed slot after reschedule failure",
				zap.Stringer("slot", newKey),
				zap.Error(undoErr),
			)
		}
		return nil, err
	}

	if _, err := s.freeSlot(context.WithoutCancel(ctx), oldDate, oldLabel); err != nil {
		s.logger.Error("Failed to free previous slot after reschedule",
			zap.Stringer("appointment_id", appt.ID),
			zap.Stringer("slot", oldKey),
			zap.Error(err),
		)
	}

	s.logger.Info("Appointment rescheduled",
		zap.Stringer("appointment_id", appt.ID),
		zap.Stringer("from", oldKey),
		zap.Stringer("to", newKey),
	)

	appt = s.enrich(ctx, appt)
	s.publish(ctx, notify.KindAppointmentRescheduled, appt, fmt.Sprintf("%s -> %s", oldKey, newKey))

	return appt, nil
}

// updateDetails применяет правку при условии, что статус и слот не изменились с момента чтения
func (s *ReservationService) updateDetails(ctx context.Context, appt *model.Appointment, date time.Time, label, reason string) error {
	updated, err := s.appointments.UpdateDetails(ctx, appt, date, label, reason)
	if err != nil {
		if errors.Is(err, model.ErrDuplicateBooking) {
			return err
		}
		return fmt.Errorf("update appointment: %w", err)
	}
	if !updated {
		return fmt.Errorf("%w: appointment changed concurrently", model.ErrSlotUnavailable)
	}

	appt.Date, appt.TimeLabel, appt.Reason = date, label, reason
	return nil
}

// Get возвращает запись владельцу или администратору
func (s *ReservationService) Get(ctx context.Context, actor *model.User, id uuid.UUID) (*model.Appointment, error) {
	appt, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canAccess(actor, appt) {
		return nil, model.ErrAccessDenied
	}
	return s.enrich(ctx, appt), nil
}

// List: пользователь видит только свои записи, администратор все
func (s *ReservationService) List(ctx context.Context, actor *model.User, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	if actor == nil {
		return nil, model.ErrUnauthenticated
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", model.ErrValidation, filter.Status)
	}
	if !actor.IsAdmin() {
		filter.UserID = &actor.ID
	}

	appts, err := s.appointments.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	for i, appt := range appts {
		appts[i] = s.enrich(ctx, appt)
	}
	return appts, nil
}

// Pending очередь на рассмотрение, самые старые первыми
func (s *ReservationService) Pending(ctx context.Context, actor *model.User) ([]*model.Appointment, error) {
	if !actor.IsAdmin() {
		return nil, model.ErrAccessDenied
	}

	appts, err := s.List(ctx, actor, model.AppointmentFilter{Status: model.AppointmentStatusPending})
	if err != nil {
		return nil, err
	}

	// List отдаёт новые даты первыми
	for i, j := 0, len(appts)-1; i < j; i, j = i+1, j-1 {
		appts[i], appts[j] = appts[j], appts[i]
	}
	return appts, nil
}

func (s *ReservationService) validateReserve(req ReserveRequest) (time.Time, string, string, error) {
	label := strings.TrimSpace(req.TimeLabel)
	reason := strings.TrimSpace(req.Reason)

	if strings.TrimSpace(req.Date) == "" || label == "" || reason == "" {
		return time.Time{}, "", "", fmt.Errorf("%w: date, time slot and reason are required", model.ErrValidation)
	}

	date, err := s.calendar.ParseDate(req.Date)
	if err != nil {
		return time.Time{}, "", "", err
	}
	return date, label, reason, nil
}

// enrich подставляет владельца записи. Ошибка справочника не ломает ответ.
func (s *ReservationService) enrich(ctx context.Context, appt *model.Appointment) *model.Appointment {
	if s.directory == nil || appt.User != nil {
		return appt
	}

	user, err := s.directory.GetByID(ctx, appt.UserID)
	if err != nil {
		s.logger.Debug("Appointment owner not resolved",
			zap.Stringer("user_id", appt.UserID),
			zap.Error(err),
		)
		return appt
	}
	appt.User = user.Summary()
	return appt
}

func (s *ReservationService) publish(ctx context.Context, kind notify.Kind, appt *model.Appointment, message string) {
	event := notify.Event{
		Kind:        kind,
		Appointment: appt,
		Message:     message,
		At:          time.Now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.logger.Warn("Failed to publish event", zap.String("kind", string(kind)), zap.Error(err))
	}
}

func canAccess(actor *model.User, appt *model.Appointment) bool {
	return actor != nil && (actor.IsAdmin() || appt.UserID == actor.ID)
}
