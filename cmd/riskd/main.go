package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/respiratory-risk-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/respiratory-risk-service/internal/adapter/kafka"
	"github.com/couchcryptid/respiratory-risk-service/internal/adapter/mapbox"
	"github.com/couchcryptid/respiratory-risk-service/internal/adapter/openweather"
	"github.com/couchcryptid/respiratory-risk-service/internal/adapter/postgres"
	"github.com/couchcryptid/respiratory-risk-service/internal/config"
	"github.com/couchcryptid/respiratory-risk-service/internal/domain"
	"github.com/couchcryptid/respiratory-risk-service/internal/fetch"
	"github.com/couchcryptid/respiratory-risk-service/internal/observability"
	"github.com/couchcryptid/respiratory-risk-service/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	httpClient := resty.New().SetTimeout(cfg.UpstreamTimeout)

	// Missing credentials switch a provider into stub mode rather than
	// failing startup, so the service stays demoable without keys.
	var places domain.PlaceClient
	if cfg.MapboxToken != "" {
		places = mapbox.NewClient(cfg.MapboxToken, httpClient, metrics, logger)
		metrics.StubMode.WithLabelValues("mapbox").Set(0)
	} else {
		logger.Warn("MAPBOX_TOKEN not set, serving stub place data")
		places = mapbox.NewStub(logger)
		metrics.StubMode.WithLabelValues("mapbox").Set(1)
	}

	var (
		weather   domain.WeatherClient
		pollution domain.PollutionClient
	)
	if cfg.OpenWeatherKey != "" {
		client := openweather.NewClient(cfg.OpenWeatherKey, httpClient, metrics, logger)
		weather, pollution = client, client
		metrics.StubMode.WithLabelValues("openweather").Set(0)
	} else {
		logger.Warn("OPENWEATHER_KEY not set, serving stub weather and pollution data")
		stub := openweather.NewStub(clock, logger)
		weather, pollution = stub, stub
		metrics.StubMode.WithLabelValues("openweather").Set(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		sink   domain.Sink
		pinger service.Pinger
	)
	if cfg.DatabaseURL != "" {
		pgSink, err := postgres.NewSink(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer pgSink.Close()
		sink, pinger = pgSink, pgSink
		logger.Info("postgres persistence enabled")
	} else {
		logger.Warn("DATABASE_URL not set, persistence disabled")
	}

	var publisher service.Publisher
	if cfg.KafkaEnabled() {
		writer := kafkaadapter.NewWriter(cfg.KafkaBrokers, cfg.KafkaRiskTopic, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		publisher = writer
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaRiskTopic)
	}

	retryPolicy := fetch.RetryPolicy{
		MaxAttempts:   cfg.RetryMaxAttempts,
		InitialDelay:  cfg.RetryInitialDelay,
		BackoffFactor: cfg.RetryBackoffFactor,
	}
	persister := service.NewPersister(cfg.PersistQueueSize, logger, metrics)

	svc := service.NewRiskService(service.Deps{
		Places:     places,
		Weather:    weather,
		Pollution:  pollution,
		Sink:       sink,
		Publisher:  publisher,
		Pinger:     pinger,
		Cache:      fetch.NewCache(clock, metrics),
		Retrier:    fetch.NewRetrier(retryPolicy, clock, logger, metrics),
		Persister:  persister,
		Clock:      clock,
		Logger:     logger,
		Metrics:    metrics,
		ReadingTTL: cfg.CacheTTL,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, svc, logger)

	// The persister runs under its own context so it outlives the signal
	// context: requests finishing during server shutdown still get their
	// writes queued and executed.
	persistCtx, stopPersister := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		persister.Run(persistCtx)
	}()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	// Stop the persister only once in-flight requests have finished, then
	// let it drain whatever they enqueued.
	stopPersister()
	wg.Wait()
	httpClient.GetClient().CloseIdleConnections()

	logger.Info("shutdown complete")
}
