package main

import (
	"context"
	"log"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/kafe-reservations/config"
	"github.com/Domenick1991/kafe-reservations/internal/bootstrap"
	"github.com/Domenick1991/kafe-reservations/internal/cache"
	"github.com/Domenick1991/kafe-reservations/internal/kafka"
	"github.com/Domenick1991/kafe-reservations/internal/logger"
	"github.com/Domenick1991/kafe-reservations/internal/repository"
	"github.com/Domenick1991/kafe-reservations/internal/service/availability"
	"github.com/Domenick1991/kafe-reservations/internal/service/reservation"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	lg := logger.Must(cfg.Log.Env, cfg.Log.Level)
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start, end, err := cfg.Booking.Window()
	if err != nil {
		lg.Fatal("booking window", zap.Error(err))
	}

	storeOpts := []repository.StoreOption{
		repository.WithCapacityPolicy(repository.WeekdayWeekendCapacity(cfg.Booking.WeekdayCapacity, cfg.Booking.WeekendCapacity)),
		repository.WithStoreLogger(lg),
	}
	if cfg.Booking.RandomSeed {
		seed := uint64(time.Now().UnixNano())
		storeOpts = append(storeOpts, repository.WithSeed(repository.RandomSeed(rand.New(rand.NewPCG(seed, seed>>1)))))
	}
	store := repository.NewCalendarStore(repository.BookingWindow{Start: start, End: end}, storeOpts...)

	reservationOpts := []reservation.ReservationServiceOption{reservation.WithLogger(lg)}

	if cfg.Database.Enabled {
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			lg.Fatal("connect postgres", zap.Error(err))
		}
		defer pool.Close()

		if err := repository.EnsureArchiveSchema(ctx, pool); err != nil {
			lg.Fatal("prepare archive schema", zap.Error(err))
		}
		reservationOpts = append(reservationOpts, reservation.WithArchive(repository.NewReservationArchive(pool)))
	}

	if cfg.Redis.Enabled {
		redisCache := cache.NewRedisCache(cfg.Redis, cfg.Booking.CalendarTTL())
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			lg.Warn("redis unavailable, calendar mirror will retry on every change", zap.Error(err))
		}
		mirror := cache.NewCalendarMirror(redisCache, lg, cache.WithRefresh(cfg.Booking.CalendarRefresh()))
		go mirror.Run(ctx)
		unsubscribe := store.Subscribe(mirror.Handle)
		defer unsubscribe()
	}

	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, lg)
		defer producer.Close()

		if err := producer.CheckConnection(ctx); err != nil {
			lg.Warn("kafka unavailable, reservation events will be dropped", zap.Error(err))
		}
		reservationOpts = append(reservationOpts,
			reservation.WithProducer(producer, cfg.Kafka.ReservationsTopic),
			reservation.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		)
	}

	availabilityService := availability.NewAvailabilityService(store)
	reservationService := reservation.NewReservationService(store, reservationOpts...)

	drift := availability.NewDriftRunner(store, cfg.Worker.DriftInterval(), availability.WithDriftLogger(lg))
	go drift.Run(ctx)

	if err := bootstrap.Run(ctx, cfg, bootstrap.Services{
		Availability: availabilityService,
		Reservations: reservationService,
	}, lg); err != nil {
		lg.Fatal("server error", zap.Error(err))
	}
}
