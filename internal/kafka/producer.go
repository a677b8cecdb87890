package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type ReservationEvent struct {
	Type             string    `json:"type"`
	ReservationID    string    `json:"reservation_id"`
	ConfirmationCode string    `json:"confirmation_code"`
	CustomerName     string    `json:"customer_name"`
	Email            string    `json:"email"`
	Date             string    `json:"date"`
	TimeSlot         string    `json:"time_slot"`
	PartySize        int       `json:"party_size"`
	Region           string    `json:"region"`
	OccurredAt       time.Time `json:"occurred_at"`
}

func NewReservationEvent(eventType string, r *domain.Reservation, at time.Time) ReservationEvent {
	return ReservationEvent{
		Type:             eventType,
		ReservationID:    r.ID,
		ConfirmationCode: r.ConfirmationCode,
		CustomerName:     r.CustomerName,
		Email:            r.Email,
		Date:             r.Date.Format(domain.DateLayout),
		TimeSlot:         string(r.TimeSlot),
		PartySize:        r.PartySize,
		Region:           string(r.Region),
		OccurredAt:       at,
	}
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
	logger  *zap.Logger
}

func NewProducer(brokers []string, logger *zap.Logger) *Producer {
	if logger == nil {
		logger = zap.NewNop()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
		logger:  logger,
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	p.logger.Debug("published to kafka", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

// CheckConnection dials the first broker and lists its partitions.
func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return fmt.Errorf("failed to read partitions: %w", err)
	}

	p.logger.Info("connected to kafka", zap.Int("partitions", len(partitions)))
	return nil
}
