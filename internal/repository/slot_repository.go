package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/queueless/booking/internal/model"
	"github.com/queueless/booking/internal/repository/base"
)

const slotColumns = `id, slot_date, time_label, is_booked, created_at, updated_at`

type SlotRepository struct {
	*base.Repository
}

func NewSlotRepository(pool *pgxpool.Pool) *SlotRepository {
	return &SlotRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новый слот
func (r *SlotRepository) Create(ctx context.Context, slot *model.Slot) error {
	if slot.ID == uuid.Nil {
		slot.ID = uuid.New()
	}

	query := `
		INSERT INTO slots (id, slot_date, time_label, is_booked)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at
	`

	err := r.QueryRow(ctx, query,
		slot.ID,
		slot.Date,
		slot.TimeLabel,
		slot.IsBooked,
	).Scan(&slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		return base.Translate("create slot", err, model.ErrSlotExists)
	}

	return nil
}

// GetByID получает слот по ID
func (r *SlotRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE id = $1`

	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		return nil, base.Translate("get slot by id", err, nil)
	}

	return slot, nil
}

// FindByDateAndLabel ищет слот по значению (дата, метка)
func (r *SlotRepository) FindByDateAndLabel(ctx context.Context, date time.Time, label string) (*model.Slot, error) {
	query := `SELECT ` + slotColumns + ` FROM slots WHERE slot_date = $1 AND time_label = $2`

	slot, err := scanSlot(r.QueryRow(ctx, query, date, label))
	if err != nil {
		return nil, base.Translate("find slot by date and label", err, nil)
	}

	return slot, nil
}

// FindAvailable получает свободные слоты в диапазоне [from, to)
func (r *SlotRepository) FindAvailable(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE is_booked = FALSE
		  AND slot_date >= $1
		  AND slot_date < $2
		ORDER BY slot_date, time_label
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("find available slots: %w", err)
	}

	return collectSlots(rows)
}

// ListRange получает все слоты в диапазоне [from, to)
func (r *SlotRepository) ListRange(ctx context.Context, from, to time.Time) ([]*model.Slot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM slots
		WHERE slot_date >= $1
		  AND slot_date < $2
		ORDER BY slot_date, time_label
	`

	rows, err := r.Query(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}

	return collectSlots(rows)
}

// SetBooked атомарно меняет is_booked с expected на next.
// Возвращает false, если слот уже был в другом состоянии.
func (r *SlotRepository) SetBooked(ctx context.Context, id uuid.UUID, expected, next bool) (bool, error) {
	query := `
		UPDATE slots
		SET is_booked = $3, updated_at = now()
		WHERE id = $1 AND is_booked = $2
	`

	return r.ExecCAS(ctx, "set slot booked", nil, query, id, expected, next)
}

// Delete удаляет слот, только если он не забронирован
func (r *SlotRepository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return r.ExecCAS(ctx, "delete slot", nil, `DELETE FROM slots WHERE id = $1 AND is_booked = FALSE`, id)
}

func scanSlot(row pgx.Row) (*model.Slot, error) {
	var slot model.Slot
	err := row.Scan(
		&slot.ID,
		&slot.Date,
		&slot.TimeLabel,
		&slot.IsBooked,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	slot.Date = model.NormalizeDate(slot.Date)
	return &slot, nil
}

func collectSlots(rows pgx.Rows) ([]*model.Slot, error) {
	defer rows.Close()

	var slots []*model.Slot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}
	return slots, nil
}
