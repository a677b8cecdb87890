package domain

import "errors"

var (
	ErrSlotUnavailable  = errors.New("selected time slot is no longer available")
	ErrInvalidPartySize = errors.New("party size must be between 1 and 12")
	ErrInvalidTimeSlot  = errors.New("invalid time slot")
	ErrInvalidRegion    = errors.New("invalid seating region")
)
