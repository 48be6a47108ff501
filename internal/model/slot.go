package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot ячейка календаря, на которую можно записаться
type Slot struct {
	ID        uuid.UUID `json:"id"`
	Date      time.Time `json:"date"`     // полночь UTC календарной даты
	TimeLabel string    `json:"timeSlot"` // например "09:00 AM"
	IsBooked  bool      `json:"isBooked"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Key возвращает ключ (дата, метка), по которому слот связан с записями
func (s *Slot) Key() SlotKey {
	return SlotKey{Date: DateKey(s.Date), TimeLabel: s.TimeLabel}
}

// SlotKey значение, по которому коррелируются Slot и Appointment
type SlotKey struct {
	Date      string
	TimeLabel string
}

func (k SlotKey) String() string {
	return k.Date + " " + k.TimeLabel
}
