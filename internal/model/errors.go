package model

import (
	"errors"
	"fmt"
)

// Виды ошибок, которые видит клиент. Детали добавляются через fmt.Errorf("%w: ...").
var (
	ErrValidation       = errors.New("validation failed")
	ErrDomainRejected   = errors.New("rejected by operating calendar")
	ErrSlotUnavailable  = errors.New("time slot not available")
	ErrDuplicateBooking = errors.New("you already have an appointment at this time")
	ErrNotFound         = errors.New("not found")
	ErrAccessDenied     = errors.New("access denied")

	ErrSlotExists         = errors.New("slot already exists")
	ErrSlotBooked         = errors.New("cannot delete a booked slot")
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
)

// ErrInvalidTransition частный случай ErrValidation
var ErrInvalidTransition = fmt.Errorf("%w: status transition not allowed", ErrValidation)
