package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/Domenick1991/kafe-reservations/internal/kafka"
	"github.com/Domenick1991/kafe-reservations/internal/repository"
	"go.uber.org/zap"
)

type ReservationUseCase interface {
	CreateReservation(ctx context.Context, input domain.ReservationInput) (*domain.Reservation, error)
	CancelReservation(ctx context.Context, id string) bool
	GetReservation(ctx context.Context, id string) (*domain.Reservation, bool)
	ListReservations(ctx context.Context) []domain.Reservation
	History(ctx context.Context, id string) ([]repository.ArchivedEvent, error)
}

// ErrHistoryUnavailable is returned by History when no archive is configured.
var ErrHistoryUnavailable = errors.New("reservation history is not archived")

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// SlotUnavailableError carries the nearest slots that could still seat the party.
type SlotUnavailableError struct {
	Alternatives []domain.SlotAvailability
	err          error
}

func (e *SlotUnavailableError) Error() string {
	return e.err.Error()
}

func (e *SlotUnavailableError) Unwrap() error {
	return e.err
}

type ReservationService struct {
	store              repository.ReservationStore
	archive            repository.ReservationArchive
	producer           Producer
	reservationsTopic  string
	notificationsTopic string
	logger             *zap.Logger
	now                func() time.Time
}

type ReservationServiceOption func(*ReservationService)

func WithProducer(producer Producer, reservationsTopic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.producer = producer
		s.reservationsTopic = reservationsTopic
	}
}

func WithNotificationsTopic(topic string) ReservationServiceOption {
	return func(s *ReservationService) {
		s.notificationsTopic = topic
	}
}

func WithArchive(archive repository.ReservationArchive) ReservationServiceOption {
	return func(s *ReservationService) {
		s.archive = archive
	}
}

func WithLogger(logger *zap.Logger) ReservationServiceOption {
	return func(s *ReservationService) {
		s.logger = logger
	}
}

func NewReservationService(store repository.ReservationStore, opts ...ReservationServiceOption) *ReservationService {
	service := &ReservationService{
		store:  store,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *ReservationService) CreateReservation(ctx context.Context, input domain.ReservationInput) (*domain.Reservation, error) {
	created, err := s.store.CreateReservation(input)
	if err != nil {
		if errors.Is(err, domain.ErrSlotUnavailable) {
			alternatives := s.store.GetAlternativeTimeSlots(input.Date, input.TimeSlot, input.PartySize)
			s.logger.Info("requested slot unavailable",
				zap.String("date", input.Date.Format(domain.DateLayout)),
				zap.String("time_slot", string(input.TimeSlot)),
				zap.Int("party_size", input.PartySize),
				zap.Int("alternatives", len(alternatives)))
			return nil, &SlotUnavailableError{Alternatives: alternatives, err: err}
		}
		return nil, err
	}

	s.logger.Info("reservation created",
		zap.String("reservation_id", created.ID),
		zap.String("date", created.Date.Format(domain.DateLayout)),
		zap.String("time_slot", string(created.TimeSlot)),
		zap.Int("party_size", created.PartySize))

	s.afterChange(ctx, repository.EventReservationCreated, created)
	return created, nil
}

func (s *ReservationService) CancelReservation(ctx context.Context, id string) bool {
	existing, ok := s.store.GetReservationByID(id)
	if !ok {
		return false
	}
	if !s.store.CancelReservation(id) {
		// Cancelled concurrently by another caller.
		return false
	}

	s.logger.Info("reservation cancelled", zap.String("reservation_id", id))
	s.afterChange(ctx, repository.EventReservationCancelled, existing)
	return true
}

func (s *ReservationService) GetReservation(_ context.Context, id string) (*domain.Reservation, bool) {
	return s.store.GetReservationByID(id)
}

func (s *ReservationService) ListReservations(_ context.Context) []domain.Reservation {
	return s.store.GetAllReservations()
}

// History returns the archived events of a reservation, oldest first. It works
// for cancelled reservations too since the archive outlives the calendar.
func (s *ReservationService) History(ctx context.Context, id string) ([]repository.ArchivedEvent, error) {
	if s.archive == nil {
		return nil, ErrHistoryUnavailable
	}
	events, err := s.archive.ListByReservation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list reservation events: %w", err)
	}
	return events, nil
}

// afterChange archives and publishes an event. Failures are logged and never
// undo the in-memory change.
func (s *ReservationService) afterChange(ctx context.Context, eventType repository.ReservationEventType, r *domain.Reservation) {
	if s.archive != nil {
		if err := s.archive.Record(ctx, eventType, r); err != nil {
			s.logger.Warn("failed to archive reservation event",
				zap.String("event", string(eventType)),
				zap.String("reservation_id", r.ID),
				zap.Error(err))
		}
	}
	if err := s.publish(ctx, string(eventType), r); err != nil {
		s.logger.Warn("failed to publish reservation event",
			zap.String("event", string(eventType)),
			zap.String("reservation_id", r.ID),
			zap.Error(err))
	}
}

func (s *ReservationService) publish(ctx context.Context, eventType string, r *domain.Reservation) error {
	if s.producer == nil || s.reservationsTopic == "" {
		return nil
	}
	event := kafka.NewReservationEvent(eventType, r, s.now())
	if err := s.producer.Publish(ctx, s.reservationsTopic, r.ID, event); err != nil {
		return fmt.Errorf("publish to %s: %w", s.reservationsTopic, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, r.ID, event); err != nil {
			return fmt.Errorf("publish to %s: %w", s.notificationsTopic, err)
		}
	}
	return nil
}

var _ ReservationUseCase = (*ReservationService)(nil)
