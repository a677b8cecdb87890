package repository

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReservationStore owns the booking calendar and the active reservations.
type ReservationStore interface {
	CheckDateAvailability(date time.Time) (domain.DateAvailability, bool)
	CheckTimeSlotAvailability(date time.Time, slot domain.TimeSlot) (domain.SlotAvailability, bool)
	GetAlternativeTimeSlots(date time.Time, slot domain.TimeSlot, partySize int) []domain.SlotAvailability
	CreateReservation(input domain.ReservationInput) (*domain.Reservation, error)
	CancelReservation(id string) bool
	GetAllReservations() []domain.Reservation
	GetReservationByID(id string) (*domain.Reservation, bool)
	Snapshot() []domain.DateAvailability
	Subscribe(handler SnapshotHandler) (unsubscribe func())
	ApplyDrift(drift DriftFunc) bool
}

const maxAlternatives = 3

type BookingWindow struct {
	Start time.Time
	End   time.Time
}

// CapacityPolicy returns the per-slot maximum capacity for a date.
type CapacityPolicy func(date time.Time) int

// SeedFunc returns the initial remaining capacity of a slot. Values outside
// [0, maxCapacity] are clamped.
type SeedFunc func(date time.Time, slot domain.TimeSlot, maxCapacity int) int

// DriftFunc returns how many seats external demand took from a slot.
type DriftFunc func(date time.Time, slot domain.TimeSlot) int

type SnapshotHandler func(calendar []domain.DateAvailability)

type StoreOption func(*CalendarStore)

func WithCapacityPolicy(policy CapacityPolicy) StoreOption {
	return func(s *CalendarStore) {
		s.capacity = policy
	}
}

func WithSeed(seed SeedFunc) StoreOption {
	return func(s *CalendarStore) {
		s.seed = seed
	}
}

func WithIDGenerator(gen func() string) StoreOption {
	return func(s *CalendarStore) {
		s.newID = gen
	}
}

func WithCodeGenerator(gen func() string) StoreOption {
	return func(s *CalendarStore) {
		s.newCode = gen
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *CalendarStore) {
		s.now = now
	}
}

func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *CalendarStore) {
		s.logger = logger
	}
}

// WeekdayWeekendCapacity gives Saturdays and Sundays the weekend capacity.
func WeekdayWeekendCapacity(weekday, weekend int) CapacityPolicy {
	return func(date time.Time) int {
		switch date.Weekday() {
		case time.Saturday, time.Sunday:
			return weekend
		default:
			return weekday
		}
	}
}

func FullCapacitySeed(_ time.Time, _ domain.TimeSlot, maxCapacity int) int {
	return maxCapacity
}

// RandomSeed draws the remaining capacity uniformly from [0, maxCapacity).
func RandomSeed(rng *rand.Rand) SeedFunc {
	var mu sync.Mutex
	return func(_ time.Time, _ domain.TimeSlot, maxCapacity int) int {
		if maxCapacity <= 0 {
			return 0
		}
		mu.Lock()
		defer mu.Unlock()
		return rng.IntN(maxCapacity)
	}
}

type subscriber struct {
	id      int
	handler SnapshotHandler
}

// CalendarStore is the in-memory availability and reservation store.
//
// Lock order is pubMu before mu. Mutations hold pubMu for their whole run and
// release mu before delivering, so subscribers see snapshots in mutation order
// and may read the store from their handlers.
type CalendarStore struct {
	mu           sync.RWMutex
	days         []domain.DateAvailability
	index        map[string]int
	reservations []domain.Reservation

	pubMu       sync.Mutex
	subMu       sync.Mutex
	subscribers []subscriber
	nextSubID   int

	capacity CapacityPolicy
	seed     SeedFunc
	newID    func() string
	newCode  func() string
	now      func() time.Time
	logger   *zap.Logger
}

func NewCalendarStore(window BookingWindow, opts ...StoreOption) *CalendarStore {
	s := &CalendarStore{
		index:    make(map[string]int),
		capacity: WeekdayWeekendCapacity(60, 40),
		seed:     FullCapacitySeed,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	s.newID = func() string { return newReservationID(s.now()) }
	s.newCode = newConfirmationCode
	for _, opt := range opts {
		opt(s)
	}

	start := truncateDay(window.Start)
	end := truncateDay(window.End)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		maxCapacity := s.capacity(d)
		day := domain.DateAvailability{Date: d, TimeSlots: make([]domain.SlotAvailability, 0, 9)}
		for _, ts := range domain.AllTimeSlots() {
			slot := domain.SlotAvailability{TimeSlot: ts, MaxCapacity: maxCapacity}
			slot.SetRemaining(s.seed(d, ts, maxCapacity))
			day.TimeSlots = append(day.TimeSlots, slot)
		}
		day.Recompute()
		s.index[day.Key()] = len(s.days)
		s.days = append(s.days, day)
	}

	s.logger.Info("calendar initialised",
		zap.String("start", start.Format(domain.DateLayout)),
		zap.String("end", end.Format(domain.DateLayout)),
		zap.Int("days", len(s.days)))
	return s
}

func (s *CalendarStore) CheckDateAvailability(date time.Time) (domain.DateAvailability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := s.dayLocked(date)
	if day == nil {
		return domain.DateAvailability{}, false
	}
	return day.Clone(), true
}

func (s *CalendarStore) CheckTimeSlotAvailability(date time.Time, slot domain.TimeSlot) (domain.SlotAvailability, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	day := s.dayLocked(date)
	if day == nil {
		return domain.SlotAvailability{}, false
	}
	found := day.Slot(slot)
	if found == nil {
		return domain.SlotAvailability{}, false
	}
	return *found, true
}

// GetAlternativeTimeSlots returns up to three other slots on the same date that
// can seat the party, nearest to the requested time first.
func (s *CalendarStore) GetAlternativeTimeSlots(date time.Time, slot domain.TimeSlot, partySize int) []domain.SlotAvailability {
	day, ok := s.CheckDateAvailability(date)
	if !ok {
		return []domain.SlotAvailability{}
	}

	requested := slot.Minutes()
	candidates := make([]domain.SlotAvailability, 0, len(day.TimeSlots))
	for _, c := range day.TimeSlots {
		if c.Available && c.RemainingCapacity >= partySize && c.TimeSlot != slot {
			candidates = append(candidates, c)
		}
	}
	slices.SortStableFunc(candidates, func(a, b domain.SlotAvailability) int {
		return distance(a.TimeSlot.Minutes(), requested) - distance(b.TimeSlot.Minutes(), requested)
	})
	if len(candidates) > maxAlternatives {
		candidates = candidates[:maxAlternatives]
	}
	return candidates
}

func (s *CalendarStore) CreateReservation(input domain.ReservationInput) (*domain.Reservation, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	day := s.dayLocked(input.Date)
	var slot *domain.SlotAvailability
	if day != nil {
		slot = day.Slot(input.TimeSlot)
	}
	if slot == nil || !slot.Available || slot.RemainingCapacity < input.PartySize {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s %s party of %d", domain.ErrSlotUnavailable,
			input.Date.Format(domain.DateLayout), input.TimeSlot, input.PartySize)
	}

	reservation := domain.Reservation{
		ID:               s.uniqueIDLocked(),
		CustomerName:     input.CustomerName,
		Date:             day.Date,
		TimeSlot:         input.TimeSlot,
		PartySize:        input.PartySize,
		Region:           input.Region,
		Email:            input.Email,
		Phone:            input.Phone,
		HasChildren:      input.HasChildren,
		SmokingRequested: input.SmokingRequested,
		ConfirmationCode: s.newCode(),
		CreatedAt:        s.now(),
	}
	s.reservations = append(s.reservations, reservation)

	slot.SetRemaining(slot.RemainingCapacity - input.PartySize)
	day.Recompute()
	remaining := slot.RemainingCapacity
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publishLocked(snap)

	s.logger.Debug("reservation created",
		zap.String("reservation_id", reservation.ID),
		zap.String("date", reservation.Date.Format(domain.DateLayout)),
		zap.String("time_slot", string(reservation.TimeSlot)),
		zap.Int("party_size", reservation.PartySize),
		zap.Int("remaining_capacity", remaining))
	return &reservation, nil
}

func (s *CalendarStore) CancelReservation(id string) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	idx := slices.IndexFunc(s.reservations, func(r domain.Reservation) bool { return r.ID == id })
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	reservation := s.reservations[idx]
	s.reservations = slices.Delete(s.reservations, idx, idx+1)

	if day := s.dayLocked(reservation.Date); day != nil {
		if slot := day.Slot(reservation.TimeSlot); slot != nil {
			slot.SetRemaining(min(slot.MaxCapacity, slot.RemainingCapacity+reservation.PartySize))
			day.Recompute()
		}
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publishLocked(snap)

	s.logger.Debug("reservation cancelled",
		zap.String("reservation_id", reservation.ID),
		zap.Int("party_size", reservation.PartySize))
	return true
}

func (s *CalendarStore) GetAllReservations() []domain.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Reservation, len(s.reservations))
	copy(out, s.reservations)
	return out
}

func (s *CalendarStore) GetReservationByID(id string) (*domain.Reservation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.reservations {
		if r.ID == id {
			found := r
			return &found, true
		}
	}
	return nil, false
}

func (s *CalendarStore) Snapshot() []domain.DateAvailability {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers handler and immediately delivers the current calendar to
// it. Handlers run synchronously after every mutation. They may read the store
// but must not mutate it or subscribe from inside a handler.
func (s *CalendarStore) Subscribe(handler SnapshotHandler) func() {
	s.pubMu.Lock()
	s.subMu.Lock()
	s.nextSubID++
	id := s.nextSubID
	s.subscribers = append(s.subscribers, subscriber{id: id, handler: handler})
	s.subMu.Unlock()

	s.mu.RLock()
	snap := s.snapshotLocked()
	s.mu.RUnlock()
	handler(snap)
	s.pubMu.Unlock()

	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		s.subscribers = slices.DeleteFunc(s.subscribers, func(sub subscriber) bool { return sub.id == id })
	}
}

// ApplyDrift lowers remaining capacity by whatever drift reports for each slot.
// It reports whether anything changed; subscribers are notified only then.
func (s *CalendarStore) ApplyDrift(drift DriftFunc) bool {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	changed := false
	for i := range s.days {
		day := &s.days[i]
		for j := range day.TimeSlots {
			slot := &day.TimeSlots[j]
			taken := drift(day.Date, slot.TimeSlot)
			if taken <= 0 || slot.RemainingCapacity == 0 {
				continue
			}
			slot.SetRemaining(slot.RemainingCapacity - taken)
			changed = true
		}
		day.Recompute()
	}
	if !changed {
		s.mu.Unlock()
		return false
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.publishLocked(snap)
	return true
}

// publishLocked must be called with pubMu held and mu released.
func (s *CalendarStore) publishLocked(snap []domain.DateAvailability) {
	s.subMu.Lock()
	subs := make([]subscriber, len(s.subscribers))
	copy(subs, s.subscribers)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.handler(cloneCalendar(snap))
	}
}

func (s *CalendarStore) snapshotLocked() []domain.DateAvailability {
	return cloneCalendar(s.days)
}

func (s *CalendarStore) dayLocked(date time.Time) *domain.DateAvailability {
	idx, ok := s.index[date.Format(domain.DateLayout)]
	if !ok {
		return nil
	}
	return &s.days[idx]
}

func (s *CalendarStore) uniqueIDLocked() string {
	for {
		id := s.newID()
		if !slices.ContainsFunc(s.reservations, func(r domain.Reservation) bool { return r.ID == id }) {
			return id
		}
	}
}

func cloneCalendar(days []domain.DateAvailability) []domain.DateAvailability {
	out := make([]domain.DateAvailability, len(days))
	for i, d := range days {
		out[i] = d.Clone()
	}
	return out
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func distance(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}

func newReservationID(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	return fmt.Sprintf("RES-%d-%s", now.UnixMilli(), suffix)
}

func newConfirmationCode() string {
	return fmt.Sprintf("%06d", rand.IntN(1_000_000))
}

var _ ReservationStore = (*CalendarStore)(nil)
