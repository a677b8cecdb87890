package domain

import "time"

const (
	MinPartySize = 1
	MaxPartySize = 12
)

type ReservationInput struct {
	Date             time.Time
	TimeSlot         TimeSlot
	PartySize        int
	Region           Region
	CustomerName     string
	Email            string
	Phone            string
	HasChildren      bool
	SmokingRequested bool
}

func (in ReservationInput) Validate() error {
	if in.PartySize < MinPartySize || in.PartySize > MaxPartySize {
		return ErrInvalidPartySize
	}
	if !in.TimeSlot.Valid() {
		return ErrInvalidTimeSlot
	}
	if !in.Region.Valid() {
		return ErrInvalidRegion
	}
	return nil
}

type Reservation struct {
	ID               string    `json:"reservation_id"`
	CustomerName     string    `json:"customer_name"`
	Date             time.Time `json:"date"`
	TimeSlot         TimeSlot  `json:"time_slot"`
	PartySize        int       `json:"party_size"`
	Region           Region    `json:"region"`
	Email            string    `json:"email"`
	Phone            string    `json:"phone"`
	HasChildren      bool      `json:"has_children"`
	SmokingRequested bool      `json:"smoking_requested"`
	ConfirmationCode string    `json:"confirmation_code"`
	CreatedAt        time.Time `json:"created_at"`
}
