package availability

import (
	"context"
	"math/rand/v2"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/Domenick1991/kafe-reservations/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReservationStore struct {
	mock.Mock
}

func (m *MockReservationStore) CheckDateAvailability(date time.Time) (domain.DateAvailability, bool) {
	args := m.Called(date)
	return args.Get(0).(domain.DateAvailability), args.Bool(1)
}

func (m *MockReservationStore) CheckTimeSlotAvailability(date time.Time, slot domain.TimeSlot) (domain.SlotAvailability, bool) {
	args := m.Called(date, slot)
	return args.Get(0).(domain.SlotAvailability), args.Bool(1)
}

func (m *MockReservationStore) GetAlternativeTimeSlots(date time.Time, slot domain.TimeSlot, partySize int) []domain.SlotAvailability {
	args := m.Called(date, slot, partySize)
	return args.Get(0).([]domain.SlotAvailability)
}

func (m *MockReservationStore) CreateReservation(input domain.ReservationInput) (*domain.Reservation, error) {
	args := m.Called(input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockReservationStore) CancelReservation(id string) bool {
	return m.Called(id).Bool(0)
}

func (m *MockReservationStore) GetAllReservations() []domain.Reservation {
	return m.Called().Get(0).([]domain.Reservation)
}

func (m *MockReservationStore) GetReservationByID(id string) (*domain.Reservation, bool) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Bool(1)
	}
	return args.Get(0).(*domain.Reservation), args.Bool(1)
}

func (m *MockReservationStore) Snapshot() []domain.DateAvailability {
	return m.Called().Get(0).([]domain.DateAvailability)
}

func (m *MockReservationStore) Subscribe(handler repository.SnapshotHandler) func() {
	return m.Called(handler).Get(0).(func())
}

func (m *MockReservationStore) ApplyDrift(drift repository.DriftFunc) bool {
	return m.Called(drift).Bool(0)
}

var testDate = time.Date(2025, 7, 24, 0, 0, 0, 0, time.UTC)

func newStore(t *testing.T, capacity int) *repository.CalendarStore {
	t.Helper()
	return repository.NewCalendarStore(repository.BookingWindow{
		Start: testDate,
		End:   testDate.AddDate(0, 0, 7),
	}, repository.WithCapacityPolicy(func(time.Time) int { return capacity }))
}

func TestAvailabilityService_DelegatesToStore(t *testing.T) {
	mockStore := &MockReservationStore{}
	service := NewAvailabilityService(mockStore)
	ctx := context.Background()

	day := domain.DateAvailability{Date: testDate}
	slot := domain.SlotAvailability{TimeSlot: domain.TimeSlot2000, Available: true, RemainingCapacity: 10, MaxCapacity: 60}
	alternatives := []domain.SlotAvailability{slot}
	calendar := []domain.DateAvailability{day}

	mockStore.On("CheckDateAvailability", testDate).Return(day, true).Once()
	mockStore.On("CheckTimeSlotAvailability", testDate, domain.TimeSlot2000).Return(slot, true).Once()
	mockStore.On("GetAlternativeTimeSlots", testDate, domain.TimeSlot1900, 2).Return(alternatives).Once()
	mockStore.On("Snapshot").Return(calendar).Once()

	gotDay, ok := service.CheckDate(ctx, testDate)
	assert.True(t, ok)
	assert.Equal(t, day, gotDay)

	gotSlot, ok := service.CheckTimeSlot(ctx, testDate, domain.TimeSlot2000)
	assert.True(t, ok)
	assert.Equal(t, slot, gotSlot)

	assert.Equal(t, alternatives, service.Alternatives(ctx, testDate, domain.TimeSlot1900, 2))
	assert.Equal(t, calendar, service.Calendar(ctx))

	mockStore.AssertExpectations(t)
}

func TestAvailabilityService_CheckDate_Unknown(t *testing.T) {
	mockStore := &MockReservationStore{}
	service := NewAvailabilityService(mockStore)

	outside := testDate.AddDate(1, 0, 0)
	mockStore.On("CheckDateAvailability", outside).Return(domain.DateAvailability{}, false).Once()

	_, ok := service.CheckDate(context.Background(), outside)
	assert.False(t, ok)
	mockStore.AssertExpectations(t)
}

func TestAvailabilityService_Subscribe(t *testing.T) {
	store := newStore(t, 10)
	service := NewAvailabilityService(store)

	var received atomic.Int32
	unsubscribe := service.Subscribe(func([]domain.DateAvailability) { received.Add(1) })
	assert.Equal(t, int32(1), received.Load())

	_, err := store.CreateReservation(domain.ReservationInput{
		Date:      testDate,
		TimeSlot:  domain.TimeSlot1800,
		PartySize: 2,
		Region:    domain.RegionBarArea,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), received.Load())

	unsubscribe()
	_, err = store.CreateReservation(domain.ReservationInput{
		Date:      testDate,
		TimeSlot:  domain.TimeSlot1800,
		PartySize: 2,
		Region:    domain.RegionBarArea,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(2), received.Load())
}

func TestDriftRunner_TickLowersCapacity(t *testing.T) {
	store := newStore(t, 60)
	runner := NewDriftRunner(store, time.Second, WithRand(rand.New(rand.NewPCG(7, 11))))

	before := store.Snapshot()
	changed := false
	for i := 0; i < 20 && !changed; i++ {
		changed = runner.Tick()
	}
	require.True(t, changed)

	after := store.Snapshot()
	lowered := false
	for i, d := range after {
		for j, s := range d.TimeSlots {
			prev := before[i].TimeSlots[j]
			assert.LessOrEqual(t, s.RemainingCapacity, prev.RemainingCapacity)
			assert.GreaterOrEqual(t, s.RemainingCapacity, 0)
			assert.Equal(t, s.RemainingCapacity > 0, s.Available)
			if s.RemainingCapacity < prev.RemainingCapacity {
				lowered = true
			}
		}
	}
	assert.True(t, lowered)
}

func TestDriftRunner_DriftIsBounded(t *testing.T) {
	runner := NewDriftRunner(&MockReservationStore{}, time.Second, WithRand(rand.New(rand.NewPCG(1, 2))))

	hits := 0
	const rounds = 10000
	for i := 0; i < rounds; i++ {
		taken := runner.drift(testDate, domain.TimeSlot1800)
		assert.GreaterOrEqual(t, taken, 0)
		assert.LessOrEqual(t, taken, driftMaxSeats)
		if taken > 0 {
			hits++
		}
	}
	// Roughly 10% of calls take seats, and a fifth of those take zero.
	assert.InDelta(t, rounds*driftProbability*0.8, hits, rounds*0.02)
}

func TestDriftRunner_NeverGoesNegative(t *testing.T) {
	store := newStore(t, 1)
	runner := NewDriftRunner(store, time.Second, WithRand(rand.New(rand.NewPCG(3, 4))))

	for i := 0; i < 200; i++ {
		runner.Tick()
	}
	for _, d := range store.Snapshot() {
		for _, s := range d.TimeSlots {
			assert.GreaterOrEqual(t, s.RemainingCapacity, 0)
		}
	}
}

func TestDriftRunner_RunDisabled(t *testing.T) {
	mockStore := &MockReservationStore{}
	runner := NewDriftRunner(mockStore, 0)

	done := make(chan struct{})
	go func() {
		runner.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run should return immediately when drift is disabled")
	}
	mockStore.AssertNotCalled(t, "ApplyDrift", mock.Anything)
}

type tickCountingStore struct {
	MockReservationStore
	ticks atomic.Int32
}

func (s *tickCountingStore) ApplyDrift(repository.DriftFunc) bool {
	s.ticks.Add(1)
	return false
}

func TestDriftRunner_RunStopsOnCancel(t *testing.T) {
	store := &tickCountingStore{}
	runner := NewDriftRunner(store, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		runner.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.ticks.Load() >= 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
