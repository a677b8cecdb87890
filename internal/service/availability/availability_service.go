package availability

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/Domenick1991/kafe-reservations/internal/repository"
	"go.uber.org/zap"
)

type AvailabilityUseCase interface {
	CheckDate(ctx context.Context, date time.Time) (domain.DateAvailability, bool)
	CheckTimeSlot(ctx context.Context, date time.Time, slot domain.TimeSlot) (domain.SlotAvailability, bool)
	Alternatives(ctx context.Context, date time.Time, slot domain.TimeSlot, partySize int) []domain.SlotAvailability
	Calendar(ctx context.Context) []domain.DateAvailability
	Subscribe(handler repository.SnapshotHandler) func()
}

type AvailabilityService struct {
	store repository.ReservationStore
}

func NewAvailabilityService(store repository.ReservationStore) *AvailabilityService {
	return &AvailabilityService{store: store}
}

func (s *AvailabilityService) CheckDate(_ context.Context, date time.Time) (domain.DateAvailability, bool) {
	return s.store.CheckDateAvailability(date)
}

func (s *AvailabilityService) CheckTimeSlot(_ context.Context, date time.Time, slot domain.TimeSlot) (domain.SlotAvailability, bool) {
	return s.store.CheckTimeSlotAvailability(date, slot)
}

func (s *AvailabilityService) Alternatives(_ context.Context, date time.Time, slot domain.TimeSlot, partySize int) []domain.SlotAvailability {
	return s.store.GetAlternativeTimeSlots(date, slot, partySize)
}

func (s *AvailabilityService) Calendar(_ context.Context) []domain.DateAvailability {
	return s.store.Snapshot()
}

func (s *AvailabilityService) Subscribe(handler repository.SnapshotHandler) func() {
	return s.store.Subscribe(handler)
}

var _ AvailabilityUseCase = (*AvailabilityService)(nil)

const (
	driftProbability = 0.1
	driftMaxSeats    = 4
)

// DriftRunner simulates demand from other channels by periodically taking a
// few seats from random slots.
type DriftRunner struct {
	store    repository.ReservationStore
	interval time.Duration
	rng      *rand.Rand
	logger   *zap.Logger
}

type DriftOption func(*DriftRunner)

func WithRand(rng *rand.Rand) DriftOption {
	return func(r *DriftRunner) {
		r.rng = rng
	}
}

func WithDriftLogger(logger *zap.Logger) DriftOption {
	return func(r *DriftRunner) {
		r.logger = logger
	}
}

func NewDriftRunner(store repository.ReservationStore, interval time.Duration, opts ...DriftOption) *DriftRunner {
	runner := &DriftRunner{
		store:    store,
		interval: interval,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner
}

// Run blocks until ctx is done. A non-positive interval disables drift.
func (r *DriftRunner) Run(ctx context.Context) {
	if r.interval <= 0 {
		r.logger.Info("availability drift disabled")
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("availability drift started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("availability drift stopped")
			return
		case <-ticker.C:
			r.Tick()
		}
	}
}

// Tick applies one round of drift and reports whether any slot changed.
func (r *DriftRunner) Tick() bool {
	changed := r.store.ApplyDrift(r.drift)
	if changed {
		r.logger.Debug("availability drift applied")
	}
	return changed
}

func (r *DriftRunner) drift(_ time.Time, _ domain.TimeSlot) int {
	if r.rng.Float64() >= driftProbability {
		return 0
	}
	return r.rng.IntN(driftMaxSeats + 1)
}
