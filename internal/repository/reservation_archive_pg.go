package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ReservationEventType string

const (
	EventReservationCreated   ReservationEventType = "reservation_created"
	EventReservationCancelled ReservationEventType = "reservation_cancelled"
)

type ArchivedEvent struct {
	ID            int64
	ReservationID string
	EventType     ReservationEventType
	Reservation   domain.Reservation
	CreatedAt     time.Time
}

// ReservationArchive is an append-only audit trail of reservation events.
// It is never read back to rebuild the calendar.
type ReservationArchive interface {
	Record(ctx context.Context, eventType ReservationEventType, reservation *domain.Reservation) error
	ListByReservation(ctx context.Context, reservationID string) ([]ArchivedEvent, error)
}

// DBTX is the part of pgxpool.Pool the archive uses.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PGReservationArchive struct {
	db DBTX
}

func NewReservationArchive(db *pgxpool.Pool) ReservationArchive {
	return &PGReservationArchive{db: db}
}

const createArchiveTable = `
CREATE TABLE IF NOT EXISTS reservation_events (
	id             BIGSERIAL PRIMARY KEY,
	reservation_id TEXT        NOT NULL,
	event_type     TEXT        NOT NULL,
	payload        JSONB       NOT NULL,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const (
	insertArchivedEvent  = `INSERT INTO reservation_events (reservation_id, event_type, payload) VALUES ($1, $2, $3)`
	selectArchivedEvents = `SELECT id, reservation_id, event_type, payload, created_at FROM reservation_events WHERE reservation_id=$1 ORDER BY id`
)

const createArchiveIndex = `CREATE INDEX IF NOT EXISTS reservation_events_reservation_id_idx ON reservation_events (reservation_id)`

func EnsureArchiveSchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, createArchiveTable); err != nil {
		return fmt.Errorf("create reservation_events: %w", err)
	}
	if _, err := db.Exec(ctx, createArchiveIndex); err != nil {
		return fmt.Errorf("create reservation_events index: %w", err)
	}
	return nil
}

func (r *PGReservationArchive) Record(ctx context.Context, eventType ReservationEventType, reservation *domain.Reservation) error {
	payload, err := json.Marshal(reservation)
	if err != nil {
		return fmt.Errorf("marshal reservation: %w", err)
	}

	_, err = r.db.Exec(ctx, insertArchivedEvent,
		reservation.ID, string(eventType), payload)
	if err != nil {
		return fmt.Errorf("insert reservation event: %w", err)
	}
	return nil
}

func (r *PGReservationArchive) ListByReservation(ctx context.Context, reservationID string) ([]ArchivedEvent, error) {
	rows, err := r.db.Query(ctx, selectArchivedEvents, reservationID)
	if err != nil {
		return nil, fmt.Errorf("query reservation events: %w", err)
	}
	defer rows.Close()

	events := make([]ArchivedEvent, 0)
	for rows.Next() {
		var (
			e       ArchivedEvent
			kind    string
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.ReservationID, &kind, &payload, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.EventType = ReservationEventType(kind)
		if err := json.Unmarshal(payload, &e.Reservation); err != nil {
			return nil, fmt.Errorf("decode reservation event %d: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

var (
	_ ReservationArchive = (*PGReservationArchive)(nil)
	_ DBTX               = (*pgxpool.Pool)(nil)
)
