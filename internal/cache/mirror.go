package cache

import (
	"context"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"go.uber.org/zap"
)

type CalendarWriter interface {
	SetCalendar(ctx context.Context, calendar []domain.DateAvailability) error
}

// CalendarMirror copies published calendar snapshots into a shared cache.
// Handle never blocks: a pending snapshot is replaced by a newer one.
type CalendarMirror struct {
	writer  CalendarWriter
	latest  chan []domain.DateAvailability
	timeout time.Duration
	refresh time.Duration
	logger  *zap.Logger
}

type MirrorOption func(*CalendarMirror)

// WithRefresh rewrites the last mirrored calendar every interval so expiring
// cache keys stay present while the calendar is quiet.
func WithRefresh(interval time.Duration) MirrorOption {
	return func(m *CalendarMirror) {
		m.refresh = interval
	}
}

func NewCalendarMirror(writer CalendarWriter, logger *zap.Logger, opts ...MirrorOption) *CalendarMirror {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &CalendarMirror{
		writer:  writer,
		latest:  make(chan []domain.DateAvailability, 1),
		timeout: 2 * time.Second,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *CalendarMirror) Handle(calendar []domain.DateAvailability) {
	for {
		select {
		case m.latest <- calendar:
			return
		default:
		}
		select {
		case <-m.latest:
		default:
		}
	}
}

func (m *CalendarMirror) Run(ctx context.Context) {
	var tick <-chan time.Time
	if m.refresh > 0 {
		ticker := time.NewTicker(m.refresh)
		defer ticker.Stop()
		tick = ticker.C
	}

	var last []domain.DateAvailability
	for {
		select {
		case <-ctx.Done():
			return
		case calendar := <-m.latest:
			last = calendar
			m.write(ctx, calendar)
		case <-tick:
			if last != nil {
				m.write(ctx, last)
			}
		}
	}
}

func (m *CalendarMirror) write(ctx context.Context, calendar []domain.DateAvailability) {
	writeCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	if err := m.writer.SetCalendar(writeCtx, calendar); err != nil {
		m.logger.Warn("mirror calendar to cache", zap.Error(err))
	}
}
