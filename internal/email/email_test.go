package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/Domenick1991/kafe-reservations/internal/kafka"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func createdEvent() kafka.ReservationEvent {
	return kafka.ReservationEvent{
		Type:             "reservation_created",
		ReservationID:    "RES-1753315200000-ABCDEF123456",
		ConfirmationCode: "004217",
		CustomerName:     "Ada Lovelace",
		Email:            "ada@example.com",
		Date:             "2025-07-24",
		TimeSlot:         "19:30",
		PartySize:        4,
		Region:           "outdoor_patio",
		OccurredAt:       time.Date(2025, 7, 20, 12, 0, 0, 0, time.UTC),
	}
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name        string
		eventType   string
		wantSubject string
		wantBody    []string
		wantErr     error
	}{
		{
			name:        "created",
			eventType:   "reservation_created",
			wantSubject: "Your table is booked (004217)",
			wantBody:    []string{"Hi Ada Lovelace", "Time: 7:30 PM", "Seating: Outdoor Patio", "Guests: 4", "Confirmation code: 004217"},
		},
		{
			name:        "cancelled",
			eventType:   "reservation_cancelled",
			wantSubject: "Your reservation was cancelled",
			wantBody:    []string{"has been cancelled", "Date: 2025-07-24"},
		},
		{
			name:      "unknown",
			eventType: "reservation_moved",
			wantErr:   ErrUnknownEvent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := createdEvent()
			event.Type = tt.eventType

			msg, err := Compose(event)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ada@example.com", msg.To)
			assert.Equal(t, tt.wantSubject, msg.Subject)
			for _, part := range tt.wantBody {
				assert.Contains(t, msg.Body, part)
			}
		})
	}
}

func TestSender_Send(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(zap.New(core))

	require.NoError(t, sender.Send(context.Background(), createdEvent()))

	entries := logs.FilterMessage("send e-mail").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "ada@example.com", fields["to"])
	assert.Equal(t, "RES-1753315200000-ABCDEF123456", fields["reservation_id"])
}

func TestSender_SkipsUnsendable(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	sender := NewSender(zap.New(core))

	unknown := createdEvent()
	unknown.Type = "something_else"
	assert.NoError(t, sender.Send(context.Background(), unknown))

	noRecipient := createdEvent()
	noRecipient.Email = ""
	assert.NoError(t, sender.Send(context.Background(), noRecipient))

	assert.Equal(t, 0, logs.FilterMessage("send e-mail").Len())
	assert.Equal(t, 2, logs.FilterLevelExact(zap.WarnLevel).Len())
}

func TestSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, NewSender(nil).Send(ctx, createdEvent()), context.Canceled)
}

type MockAvailabilityReader struct {
	mock.Mock
}

func (m *MockAvailabilityReader) GetDate(ctx context.Context, date string) (*domain.DateAvailability, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DateAvailability), args.Error(1)
}

func cachedDay() *domain.DateAvailability {
	return &domain.DateAvailability{
		Date: time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC),
		TimeSlots: []domain.SlotAvailability{
			{TimeSlot: domain.TimeSlot1800, RemainingCapacity: 12, MaxCapacity: 60, Available: true},
			{TimeSlot: domain.TimeSlot1830, RemainingCapacity: 0, MaxCapacity: 60, Available: false},
			{TimeSlot: domain.TimeSlot1930, RemainingCapacity: 4, MaxCapacity: 60, Available: true},
		},
	}
}

func TestOpenSlots(t *testing.T) {
	body := OpenSlots(*cachedDay())
	assert.Contains(t, body, "Still open that day:")
	assert.Contains(t, body, "6:00 PM (12 seats)")
	assert.Contains(t, body, "7:30 PM (4 seats)")
	assert.NotContains(t, body, "6:30 PM")

	full := cachedDay()
	for i := range full.TimeSlots {
		full.TimeSlots[i].Available = false
	}
	assert.Empty(t, OpenSlots(*full))
}

func TestSender_CancellationSuggestsOpenSlots(t *testing.T) {
	tests := []struct {
		name      string
		day       *domain.DateAvailability
		err       error
		wantOpen  bool
		wantWarns int
	}{
		{name: "cached day", day: cachedDay(), wantOpen: true},
		{name: "date not cached"},
		{name: "cache error", err: errors.New("redis down"), wantWarns: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &MockAvailabilityReader{}
			if tt.day != nil {
				reader.On("GetDate", mock.Anything, "2025-07-24").Return(tt.day, tt.err).Once()
			} else {
				reader.On("GetDate", mock.Anything, "2025-07-24").Return(nil, tt.err).Once()
			}

			core, logs := observer.New(zap.InfoLevel)
			sender := NewSender(zap.New(core), WithAvailability(reader))

			event := createdEvent()
			event.Type = "reservation_cancelled"
			require.NoError(t, sender.Send(context.Background(), event))

			entries := logs.FilterMessage("send e-mail").All()
			require.Len(t, entries, 1)
			body, _ := entries[0].ContextMap()["body"].(string)
			assert.Contains(t, body, "has been cancelled")
			assert.Equal(t, tt.wantOpen, strings.Contains(body, "Still open that day:"))
			assert.Equal(t, tt.wantWarns, logs.FilterLevelExact(zap.WarnLevel).Len())
			reader.AssertExpectations(t)
		})
	}
}

func TestSender_ConfirmationSkipsAvailability(t *testing.T) {
	reader := &MockAvailabilityReader{}
	sender := NewSender(zap.NewNop(), WithAvailability(reader))

	require.NoError(t, sender.Send(context.Background(), createdEvent()))
	reader.AssertNotCalled(t, "GetDate", mock.Anything, mock.Anything)
}
