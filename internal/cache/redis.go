package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/kafe-reservations/config"
	"github.com/Domenick1991/kafe-reservations/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared copy of the calendar. The app process writes it
// and the notification worker reads per-date keys from it.
type RedisCache struct {
	client      *redis.Client
	calendarTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, calendarTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		calendarTTL: calendarTTL,
	}
}

// SetCalendar stores the whole calendar and one key per date in a single pipeline.
func (c *RedisCache) SetCalendar(ctx context.Context, calendar []domain.DateAvailability) error {
	payload, err := json.Marshal(calendar)
	if err != nil {
		return err
	}

	pipe := c.client.TxPipeline()
	pipe.Set(ctx, calendarKey(), payload, c.calendarTTL)
	for _, d := range calendar {
		dayPayload, err := json.Marshal(d)
		if err != nil {
			return err
		}
		pipe.Set(ctx, dateKey(d.Key()), dayPayload, c.calendarTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// GetDate reads one mirrored date. A missing key yields nil without error.
func (c *RedisCache) GetDate(ctx context.Context, date string) (*domain.DateAvailability, error) {
	data, err := c.client.Get(ctx, dateKey(date)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var day domain.DateAvailability
	if err := json.Unmarshal(data, &day); err != nil {
		return nil, err
	}
	return &day, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func calendarKey() string {
	return "availability:calendar"
}

func dateKey(date string) string {
	return fmt.Sprintf("availability:date:%s", date)
}
