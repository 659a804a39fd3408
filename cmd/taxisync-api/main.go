// README: Entry point; loads config, wires services, starts HTTP server and the telemetry refresh loop.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taxisync/internal/config"
	"taxisync/internal/events"
	httptransport "taxisync/internal/http"
	"taxisync/internal/infra"
	"taxisync/internal/maps"
	"taxisync/internal/modules/booking"
	"taxisync/internal/modules/identity"
	"taxisync/internal/modules/telemetry"
	"taxisync/internal/platform"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := infra.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	remote := platform.New(cfg.Platform.BaseURL, cfg.Platform.APIKey, cfg.Platform.Timeout,
		platform.WithRateLimit(cfg.Platform.RPS))

	geocoder, err := maps.NewGeocoder(cfg.Maps.APIKey, cfg.Maps.Region)
	if err != nil {
		logger.Fatal("geocoder init", zap.Error(err))
	}

	var publisher booking.EventPublisher = events.Nop{}
	if cfg.AMQP.URL != "" {
		conn, err := infra.NewAMQP(cfg.AMQP.URL)
		if err != nil {
			logger.Fatal("amqp init", zap.Error(err))
		}
		defer conn.Close()
		amqpPublisher, err := events.NewAMQPPublisher(conn)
		if err != nil {
			logger.Fatal("amqp publisher init", zap.Error(err))
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	} else {
		logger.Info("TAXISYNC_AMQP_URL not set, booking events disabled")
	}

	bookingSvc := booking.NewService(remote, geocoder, publisher, logger, booking.Options{
		BulkConcurrency: cfg.Booking.BulkConcurrency,
	})

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		logger.Fatal("db init", zap.Error(err))
	}
	defer dbPool.Close()
	mapper := identity.NewMapper(identity.NewSQLStore(infra.SQLFromPool(dbPool)), logger)

	feeds := telemetry.PlatformFeedSet(remote)
	if cfg.Telemetry.GPSSource == "firebase" {
		rtdb, err := infra.NewFirebaseDatabase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.DatabaseURL, cfg.Firebase.CredentialsFile)
		if err != nil {
			logger.Fatal("firebase init", zap.Error(err))
		}
		feeds = replaceFeed(feeds, telemetry.NewFirebaseGPSFeed(rtdb, cfg.Firebase.MaxAge))
	}

	feedTimeouts := make(map[string]time.Duration, len(feeds))
	for _, f := range feeds {
		feedTimeouts[f.Name()] = cfg.Telemetry.FeedTimeoutFor(string(f.Kind()))
	}
	opts := telemetry.Options{
		Geofence:        telemetry.Geofence(cfg.Telemetry.Geofence),
		PollInterval:    cfg.Telemetry.PollInterval,
		FeedTimeout:     cfg.Telemetry.FeedTimeout,
		FeedTimeouts:    feedTimeouts,
		IdentityTimeout: cfg.Telemetry.IdentityTimeout,
	}
	if cfg.Redis.Enabled {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			logger.Fatal("redis init", zap.Error(err))
		}
		defer redisClient.Close()
		opts.Mirror = telemetry.NewRedisMirror(redisClient, 10*cfg.Telemetry.PollInterval)
	}
	aggregator := telemetry.NewAggregator(feeds, mapper, logger, opts)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Bookings: bookingSvc,
		Vehicles: aggregator,
		Logger:   logger,
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go aggregator.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.String("gps_source", cfg.Telemetry.GPSSource))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("http server", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

// replaceFeed swaps the feed of the same kind as f.
func replaceFeed(feeds []telemetry.Feed, f telemetry.Feed) []telemetry.Feed {
	out := make([]telemetry.Feed, 0, len(feeds))
	for _, existing := range feeds {
		if existing.Kind() == f.Kind() {
			continue
		}
		out = append(out, existing)
	}
	return append(out, f)
}
