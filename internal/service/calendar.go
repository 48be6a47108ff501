package service

import (
	"time"

	"github.com/queueless/booking/internal/model"
)

// Calendar рабочий календарь: выходной день, часовой пояс и ежедневные метки слотов
type Calendar struct {
	ClosedDay time.Weekday
	Location  *time.Location
	Labels    []string
}

// DefaultCalendar: воскресенье выходной, UTC
func DefaultCalendar() Calendar {
	return Calendar{
		ClosedDay: time.Sunday,
		Location:  time.UTC,
		Labels:    []string{"09:00 AM", "10:00 AM", "11:00 AM", "02:00 PM", "03:00 PM", "04:00 PM"},
	}
}

// IsClosed сообщает, что на дату нельзя записаться
func (c Calendar) IsClosed(date time.Time) bool {
	return date.Weekday() == c.ClosedDay
}

func (c Calendar) ParseDate(raw string) (time.Time, error) {
	return model.ParseDate(raw, c.Location)
}

// Today текущая календарная дата в часовом поясе календаря
func (c Calendar) Today(now time.Time) time.Time {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return model.NormalizeDate(now.In(loc))
}

// WeekStart возвращает понедельник недели, в которую попадает date
func WeekStart(date time.Time) time.Time {
	date = model.NormalizeDate(date)
	offset := (int(date.Weekday()) + 6) % 7
	return date.AddDate(0, 0, -offset)
}
