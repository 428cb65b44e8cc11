package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/fieldbooking/api"
	"github.com/Domenick1991/fieldbooking/config"
	"github.com/Domenick1991/fieldbooking/internal/bootstrap"
	"github.com/Domenick1991/fieldbooking/internal/cache"
	"github.com/Domenick1991/fieldbooking/internal/domain"
	"github.com/Domenick1991/fieldbooking/internal/httpclient"
	"github.com/Domenick1991/fieldbooking/internal/kafka"
	"github.com/Domenick1991/fieldbooking/internal/logging"
	"github.com/Domenick1991/fieldbooking/internal/realtime"
	"github.com/Domenick1991/fieldbooking/internal/service/auth"
	"github.com/Domenick1991/fieldbooking/internal/service/booking"
	"github.com/Domenick1991/fieldbooking/internal/service/catalog"
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
		log.Error().Err(err).Msg("gateway stopped")
		os.Exit(1)
	}
	log.Info().Msg("gateway shut down")
}

// run owns every resource, so its deferred closes happen before main exits.
func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Backend.Location()
	if err != nil {
		return fmt.Errorf("resolve time zone: %w", err)
	}

	redisCache := cache.NewRedisCache(cfg.Redis,
		time.Duration(cfg.Cache.BranchesTTLSeconds)*time.Second,
		time.Duration(cfg.Cache.SnapshotTTLSeconds)*time.Second)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, continuing without cache")
	}

	producer := kafka.NewProducer(cfg.Kafka.Brokers, log)
	defer producer.Close()

	client, err := httpclient.New(httpclient.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout(),
		Logger:  &log,
	})
	if err != nil {
		return fmt.Errorf("build backend client: %w", err)
	}

	channel, err := realtime.Open(ctx, realtime.Config{URL: cfg.Backend.SocketURL, Logger: &log})
	if err != nil {
		return fmt.Errorf("open realtime channel: %w", err)
	}
	defer channel.Close()

	// every push replaces the stored snapshot for its room
	unsubscribe := channel.Subscribe(func(s domain.FieldAvailability) {
		saveCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := redisCache.SaveSnapshot(saveCtx, realtime.RoomID(s.Date), s); err != nil {
			log.Warn().Err(err).Str("date", s.Date).Msg("store availability snapshot failed")
		}
	})
	defer unsubscribe()

	if err := channel.JoinRoom(ctx, realtime.AvailabilityQuery{}); err != nil {
		log.Warn().Err(err).Msg("join default availability room failed")
	}

	authService := auth.NewAuthService(client, auth.WithLogger(log))
	catalogService := catalog.NewCatalogService(client,
		catalog.WithCache(redisCache),
		catalog.WithLogger(log),
	)
	bookingService := booking.NewBookingService(client,
		booking.WithEvents(producer.Retrying(cfg.Kafka.PublishRetry), cfg.Kafka.BookingTopic),
		booking.WithLocation(loc),
		booking.WithLogger(log),
	)

	router, err := bootstrap.NewRouter(cfg, log,
		api.NewAuthHandler(authService),
		api.NewCatalogHandler(catalogService),
		api.NewBookingHandler(bookingService),
		api.NewAvailabilityHandler(channel, redisCache),
	)
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	return bootstrap.Run(ctx, cfg, router, log)
}
