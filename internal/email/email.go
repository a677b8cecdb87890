package email

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/Domenick1991/kafe-reservations/internal/kafka"
	"github.com/Domenick1991/kafe-reservations/internal/repository"
	"go.uber.org/zap"
)

var ErrUnknownEvent = errors.New("unknown reservation event type")

type Message struct {
	To      string
	Subject string
	Body    string
}

// AvailabilityReader looks up one date in the shared calendar cache.
// A nil day means the date is not cached.
type AvailabilityReader interface {
	GetDate(ctx context.Context, date string) (*domain.DateAvailability, error)
}

// Sender delivers reservation e-mails. The only transport is the log.
type Sender struct {
	logger       *zap.Logger
	availability AvailabilityReader
}

type SenderOption func(*Sender)

// WithAvailability lets cancellation e-mails suggest the other open times of
// the cancelled date.
func WithAvailability(reader AvailabilityReader) SenderOption {
	return func(s *Sender) {
		s.availability = reader
	}
}

func NewSender(logger *zap.Logger, opts ...SenderOption) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sender{logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sender) Send(ctx context.Context, event kafka.ReservationEvent) error {
	msg, err := Compose(event)
	if err != nil {
		s.logger.Warn("skip reservation e-mail",
			zap.String("reservation_id", event.ReservationID),
			zap.String("type", event.Type),
			zap.Error(err))
		return nil
	}
	if msg.To == "" {
		s.logger.Warn("skip reservation e-mail without recipient", zap.String("reservation_id", event.ReservationID))
		return nil
	}
	if event.Type == string(repository.EventReservationCancelled) {
		s.suggestOpenSlots(ctx, event, &msg)
	}

	s.logger.Info("send e-mail",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject),
		zap.String("reservation_id", event.ReservationID),
		zap.String("body", msg.Body))
	return ctx.Err()
}

func (s *Sender) suggestOpenSlots(ctx context.Context, event kafka.ReservationEvent, msg *Message) {
	if s.availability == nil {
		return
	}
	day, err := s.availability.GetDate(ctx, event.Date)
	if err != nil {
		s.logger.Warn("read cached availability",
			zap.String("date", event.Date),
			zap.Error(err))
		return
	}
	if day == nil {
		return
	}
	msg.Body += OpenSlots(*day)
}

// OpenSlots renders the bookable times of a day, or nothing when it is full.
func OpenSlots(day domain.DateAvailability) string {
	var b strings.Builder
	for _, slot := range day.TimeSlots {
		if !slot.Available {
			continue
		}
		if b.Len() == 0 {
			b.WriteString("\nStill open that day:\n")
		}
		fmt.Fprintf(&b, "  %s (%d seats)\n", slot.TimeSlot.Label(), slot.RemainingCapacity)
	}
	return b.String()
}

func Compose(event kafka.ReservationEvent) (Message, error) {
	details := describe(event)
	switch event.Type {
	case string(repository.EventReservationCreated):
		return Message{
			To:      event.Email,
			Subject: fmt.Sprintf("Your table is booked (%s)", event.ConfirmationCode),
			Body: fmt.Sprintf("Hi %s,\n\nyour reservation is confirmed.\n\n%s\nConfirmation code: %s\n",
				event.CustomerName, details, event.ConfirmationCode),
		}, nil
	case string(repository.EventReservationCancelled):
		return Message{
			To:      event.Email,
			Subject: "Your reservation was cancelled",
			Body: fmt.Sprintf("Hi %s,\n\nyour reservation has been cancelled.\n\n%s\n",
				event.CustomerName, details),
		}, nil
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownEvent, event.Type)
	}
}

func describe(event kafka.ReservationEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reservation: %s\n", event.ReservationID)
	fmt.Fprintf(&b, "Date: %s\n", event.Date)
	fmt.Fprintf(&b, "Time: %s\n", domain.TimeSlot(event.TimeSlot).Label())
	fmt.Fprintf(&b, "Guests: %d\n", event.PartySize)
	fmt.Fprintf(&b, "Seating: %s\n", domain.Region(event.Region).DisplayName())
	return b.String()
}
