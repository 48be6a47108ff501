package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/repository/base"
)

const appointmentColumns = `id, user_id, appt_date, time_label, reason, status, created_at, updated_at`

type AppointmentRepository struct {
	*base.Repository
}

func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новую запись
func (r *AppointmentRepository) Create(ctx context.Context, appt *model.Appointment) error {
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}

	query := `
		INSERT INTO appointments (id, user_id, appt_date, time_label, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(ctx, query,
		appt.ID,
		appt.UserID,
		appt.Date,
		appt.TimeLabel,
		appt.Reason,
		appt.Status,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)

	if err != nil {
		return base.Translate("create appointment", err, model.ErrDuplicateBooking)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	appt, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		return nil, base.Translate("get appointment by id", err, nil)
	}

	return appt, nil
}

// FindActive ищет pending/approved запись пользователя на слот
func (r *AppointmentRepository) FindActive(ctx context.Context, userID uuid.UUID, date time.Time, label string) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE user_id = $1
		  AND appt_date = $2
		  AND time_label = $3
		  AND status IN ('Pending', 'Approved')
		LIMIT 1
	`

	appt, err := scanAppointment(r.QueryRow(ctx, query, userID, date, label))
	if err != nil {
		return nil, base.Translate("find active appointment", err, nil)
	}

	return appt, nil
}

// List получает записи по фильтру, свежие даты первыми
func (r *AppointmentRepository) List(ctx context.Context, filter model.AppointmentFilter) ([]*model.Appointment, error) {
	var (
		conds []string
		args  []any
	)

	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, *filter.Date)
		conds = append(conds, fmt.Sprintf("appt_date = $%d", len(args)))
	}

	query := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY appt_date DESC, created_at DESC`

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	return collectAppointments(rows)
}

// ListLive получает записи, удерживающие слоты, в диапазоне дат [from, to)
func (r *AppointmentRepository) ListLive(ctx context.Context, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE appt_date >= $1
		  AND appt_date < $2
		  AND status IN ('Pending', 'Approved', 'Completed')
		ORDER BY appt_date, time_label, created_at
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list live appointments: %w", err)
	}

	return collectAppointments(rows)
}

// UpdateStatus меняет статус, только если текущий равен from.
// Возвращает строку после изменения или nil, если условие не выполнилось.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.AppointmentStatus) (*model.Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + appointmentColumns

	appt, err := scanAppointment(r.QueryRow(ctx, query, id, from, to))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, base.Translate("update appointment status", err, model.ErrDuplicateBooking)
	}
	return appt, nil
}

// UpdateDetails переносит запись, только если её статус и слот всё ещё совпадают с current
func (r *AppointmentRepository) UpdateDetails(ctx context.Context, current *model.Appointment, date time.Time, label, reason string) (bool, error) {
	query := `
		UPDATE appointments
		SET appt_date = $5, time_label = $6, reason = $7, updated_at = now()
		WHERE id = $1 AND status = $2 AND appt_date = $3 AND time_label = $4
	`

	return r.ExecCAS(ctx, "update appointment details", model.ErrDuplicateBooking, query,
		current.ID, current.Status, current.Date, current.TimeLabel,
		date, label, reason,
	)
}

// Delete удаляет запись и возвращает её состояние на момент удаления, nil если строки нет
func (r *AppointmentRepository) Delete(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `DELETE FROM appointments WHERE id = $1 RETURNING ` + appointmentColumns

	appt, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, base.Translate("delete appointment", err, nil)
	}
	return appt, nil
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(
		&appt.ID,
		&appt.UserID,
		&appt.Date,
		&appt.TimeLabel,
		&appt.Reason,
		&appt.Status,
		&appt.CreatedAt,
		&appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	appt.Date = model.NormalizeDate(appt.Date)
	return &appt, nil
}

func collectAppointments(rows pgx.Rows) ([]*model.Appointment, error) {
	defer rows.Close()

	var appts []*model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appts, nil
}
