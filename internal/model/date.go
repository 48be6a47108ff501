package model

import (
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate разбирает дату из запроса и нормализует её к полуночи UTC.
// RFC 3339 значения сначала переводятся в loc, затем берётся календарная дата.
func ParseDate(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", ErrValidation)
	}
	if loc == nil {
		loc = time.UTC
	}

	if t, err := time.Parse(dateLayout, raw); err == nil {
		return NormalizeDate(t), nil
	}

	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid date format", ErrValidation)
	}
	return NormalizeDate(t.In(loc)), nil
}

// NormalizeDate отбрасывает время суток, сохраняя календарную дату t
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey форматирует дату как YYYY-MM-DD
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseWeekday понимает английские названия дней недели ("Sunday", "sun")
func ParseWeekday(raw string) (time.Weekday, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", raw)
}
