package domain

import (
	"fmt"
	"time"
)

type TimeSlot string

const (
	TimeSlot1800 TimeSlot = "18:00"
	TimeSlot1830 TimeSlot = "18:30"
	TimeSlot1900 TimeSlot = "19:00"
	TimeSlot1930 TimeSlot = "19:30"
	TimeSlot2000 TimeSlot = "20:00"
	TimeSlot2030 TimeSlot = "20:30"
	TimeSlot2100 TimeSlot = "21:00"
	TimeSlot2130 TimeSlot = "21:30"
	TimeSlot2200 TimeSlot = "22:00"
)

var timeSlots = []TimeSlot{
	TimeSlot1800,
	TimeSlot1830,
	TimeSlot1900,
	TimeSlot1930,
	TimeSlot2000,
	TimeSlot2030,
	TimeSlot2100,
	TimeSlot2130,
	TimeSlot2200,
}

// AllTimeSlots returns the service slots in chronological order.
func AllTimeSlots() []TimeSlot {
	out := make([]TimeSlot, len(timeSlots))
	copy(out, timeSlots)
	return out
}

func ParseTimeSlot(s string) (TimeSlot, error) {
	for _, ts := range timeSlots {
		if string(ts) == s {
			return ts, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeSlot, s)
}

func (t TimeSlot) Valid() bool {
	_, err := ParseTimeSlot(string(t))
	return err == nil
}

// Minutes returns the slot as minutes since midnight, or -1 for unknown values.
func (t TimeSlot) Minutes() int {
	parsed, err := time.Parse("15:04", string(t))
	if err != nil {
		return -1
	}
	return parsed.Hour()*60 + parsed.Minute()
}

// Label renders the slot for customers, e.g. "6:30 PM".
func (t TimeSlot) Label() string {
	mins := t.Minutes()
	if mins < 0 {
		return string(t)
	}
	h, m := mins/60, mins%60
	suffix := "AM"
	if h >= 12 {
		suffix = "PM"
	}
	h %= 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%d:%02d %s", h, m, suffix)
}
