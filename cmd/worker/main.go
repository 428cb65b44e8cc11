package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/fieldbooking/config"
	"github.com/Domenick1991/fieldbooking/internal/kafka"
	"github.com/Domenick1991/fieldbooking/internal/logging"
	"github.com/Domenick1991/fieldbooking/internal/realtime"
	"github.com/Domenick1991/fieldbooking/internal/repository"
	"github.com/Domenick1991/fieldbooking/internal/worker"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		bootLog := logging.New(config.LoggerConfig{})
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Logger)

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
	log.Info().Msg("worker shut down")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Backend.Location()
	if err != nil {
		return fmt.Errorf("resolve time zone: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	activity := repository.NewActivityRepository(pool)
	if err := activity.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare booking_activity table: %w", err)
	}

	channel, err := realtime.Open(ctx, realtime.Config{URL: cfg.Backend.SocketURL, Logger: &log})
	if err != nil {
		return fmt.Errorf("open realtime channel: %w", err)
	}
	defer channel.Close()

	w := worker.New(activity, channel, cfg.Worker.RefreshSchedule, loc, log)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.BookingTopic)
	defer consumer.Close()

	go func() {
		if err := consumer.Consume(ctx, w.HandleMessage); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("consumer stopped")
			stop()
		}
	}()

	return w.Start(ctx)
}
