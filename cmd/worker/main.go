package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/kafe-reservations/config"
	"github.com/Domenick1991/kafe-reservations/internal/cache"
	"github.com/Domenick1991/kafe-reservations/internal/email"
	"github.com/Domenick1991/kafe-reservations/internal/kafka"
	"github.com/Domenick1991/kafe-reservations/internal/logger"
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

	if !cfg.Kafka.Enabled {
		lg.Fatal("worker requires kafka.enabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	var senderOpts []email.SenderOption
	if cfg.Redis.Enabled {
		// The worker only reads the mirror, so the TTL it would write with is irrelevant.
		redisCache := cache.NewRedisCache(cfg.Redis, 0)
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			lg.Warn("redis unavailable, cancellation e-mails will omit open times", zap.Error(err))
		}
		senderOpts = append(senderOpts, email.WithAvailability(redisCache))
	}
	emailSender := email.NewSender(lg, senderOpts...)

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := consumer.Consume(ctx, kafka.ReservationEventHandler(lg, emailSender.Send))
		if err != nil && !errors.Is(err, context.Canceled) {
			lg.Error("consumer stopped", zap.Error(err))
		}
	}()

	lg.Info("worker started",
		zap.String("topic", cfg.Kafka.NotificationsTopic),
		zap.String("group_id", cfg.Kafka.GroupID))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case s := <-sig:
		lg.Info("received signal, shutting down", zap.String("signal", s.String()))
		cancel()
		<-done
	case <-done:
	}
}
