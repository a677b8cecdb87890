package domain

import "time"

// DateLayout is the calendar-day key used across the API and the store.
const DateLayout = "2006-01-02"

type SlotAvailability struct {
	TimeSlot          TimeSlot `json:"time_slot"`
	Available         bool     `json:"available"`
	RemainingCapacity int      `json:"remaining_capacity"`
	MaxCapacity       int      `json:"max_capacity"`
}

// SetRemaining clamps the remaining capacity into [0, MaxCapacity] and
// re-derives Available.
func (s *SlotAvailability) SetRemaining(remaining int) {
	if remaining < 0 {
		remaining = 0
	}
	if remaining > s.MaxCapacity {
		remaining = s.MaxCapacity
	}
	s.RemainingCapacity = remaining
	s.Available = remaining > 0
}

type DateAvailability struct {
	Date          time.Time          `json:"date"`
	TimeSlots     []SlotAvailability `json:"time_slots"`
	IsFullyBooked bool               `json:"is_fully_booked"`
}

func (d *DateAvailability) Key() string {
	return d.Date.Format(DateLayout)
}

// Slot returns a pointer into TimeSlots so callers holding the owner's lock can mutate it.
func (d *DateAvailability) Slot(ts TimeSlot) *SlotAvailability {
	for i := range d.TimeSlots {
		if d.TimeSlots[i].TimeSlot == ts {
			return &d.TimeSlots[i]
		}
	}
	return nil
}

func (d *DateAvailability) Recompute() {
	fully := true
	for i := range d.TimeSlots {
		d.TimeSlots[i].Available = d.TimeSlots[i].RemainingCapacity > 0
		if d.TimeSlots[i].Available {
			fully = false
		}
	}
	d.IsFullyBooked = fully
}

func (d DateAvailability) Clone() DateAvailability {
	slots := make([]SlotAvailability, len(d.TimeSlots))
	copy(slots, d.TimeSlots)
	d.TimeSlots = slots
	return d
}
