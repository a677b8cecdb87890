package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/kafe-reservations/config"
	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCalendarWriter struct {
	mock.Mock
}

func (m *MockCalendarWriter) SetCalendar(ctx context.Context, calendar []domain.DateAvailability) error {
	args := m.Called(ctx, calendar)
	return args.Error(0)
}

func calendarOf(remaining int) []domain.DateAvailability {
	return []domain.DateAvailability{{
		Date: time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC),
		TimeSlots: []domain.SlotAvailability{
			{TimeSlot: domain.TimeSlot1800, RemainingCapacity: remaining, MaxCapacity: 60, Available: remaining > 0},
		},
	}}
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "availability:calendar", calendarKey())
	assert.Equal(t, "availability:date:2025-07-24", dateKey("2025-07-24"))
}

func TestNewRedisCache(t *testing.T) {
	c := NewRedisCache(config.RedisConfig{Addr: "localhost:6379"}, time.Minute)
	assert.NotNil(t, c)
	assert.Equal(t, time.Minute, c.calendarTTL)
	assert.NoError(t, c.Close())
}

func TestCalendarMirror_KeepsOnlyLatest(t *testing.T) {
	writer := &MockCalendarWriter{}
	mirror := NewCalendarMirror(writer, nil)

	mirror.Handle(calendarOf(60))
	mirror.Handle(calendarOf(55))
	mirror.Handle(calendarOf(50))

	written := make(chan []domain.DateAvailability, 1)
	writer.On("SetCalendar", mock.Anything, calendarOf(50)).
		Run(func(args mock.Arguments) { written <- args.Get(1).([]domain.DateAvailability) }).
		Return(nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	select {
	case got := <-written:
		assert.Equal(t, 50, got[0].TimeSlots[0].RemainingCapacity)
	case <-time.After(time.Second):
		t.Fatal("calendar was not mirrored")
	}
	writer.AssertExpectations(t)
}

func TestCalendarMirror_WriteErrorDoesNotStop(t *testing.T) {
	writer := &MockCalendarWriter{}
	mirror := NewCalendarMirror(writer, nil)

	done := make(chan struct{}, 2)
	writer.On("SetCalendar", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { done <- struct{}{} }).
		Return(errors.New("redis down")).Twice()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	for i := 0; i < 2; i++ {
		mirror.Handle(calendarOf(10 - i))
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("mirror stopped after a write error")
		}
	}
	writer.AssertExpectations(t)
}

func TestCalendarMirror_RefreshRewritesLastCalendar(t *testing.T) {
	writer := &MockCalendarWriter{}
	mirror := NewCalendarMirror(writer, nil, WithRefresh(10*time.Millisecond))

	written := make(chan struct{}, 8)
	writer.On("SetCalendar", mock.Anything, calendarOf(42)).
		Run(func(mock.Arguments) {
			select {
			case written <- struct{}{}:
			default:
			}
		}).
		Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mirror.Run(ctx)

	mirror.Handle(calendarOf(42))
	for i := 0; i < 3; i++ {
		select {
		case <-written:
		case <-time.After(time.Second):
			t.Fatalf("calendar written %d times, want at least 3", i)
		}
	}
	cancel()
}

func TestCalendarMirror_RefreshWaitsForFirstCalendar(t *testing.T) {
	writer := &MockCalendarWriter{}
	mirror := NewCalendarMirror(writer, nil, WithRefresh(5*time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	mirror.Run(ctx)

	writer.AssertNotCalled(t, "SetCalendar", mock.Anything, mock.Anything)
}
