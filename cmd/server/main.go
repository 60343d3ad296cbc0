package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"flight_search/internal/cache"
	"flight_search/internal/config"
	"flight_search/internal/handlers"
	"flight_search/internal/kafka"
	"flight_search/internal/metrics"
	"flight_search/internal/repository"
	"flight_search/internal/service"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// ---------- config ----------
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("config loaded", "http_port", cfg.HTTP.Port, "kafka_topic", cfg.Kafka.Topic)

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------- db ----------
	pool, err := repository.NewPool(ctx, cfg.DB.DSN, repository.PoolOptions{
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer pool.Close()

	// ---------- repositories ----------
	flightRepo := repository.NewFlightRepository(pool)
	importRepo := repository.NewImportRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool, cfg.Outbox.MaxRetries)

	// ---------- redis ----------
	redisCache := cache.NewRedisCache(cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		// searches fall back to postgres while redis is down
		logger.Warn("redis unavailable", "addr", cfg.Redis.Addr, "error", err)
	}

	// ---------- kafka ----------
	producer, err := kafka.NewSyncProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	defer producer.Close()

	// ---------- services ----------
	searchSvc := service.NewSearchService(flightRepo, redisCache, cfg.Redis.CacheTTL, logger,
		service.WithTimeout(cfg.Search.Timeout))
	ingestSvc := service.NewIngestService(pool, importRepo, flightRepo, outboxRepo, cfg.Kafka.Topic, logger)
	sender := service.NewOutboxSender(
		outboxRepo,
		producer,
		cfg.Outbox.PollInterval,
		cfg.Outbox.BatchSize,
		cfg.Outbox.RetentionDays,
		outboxRepo.MaxRetries(),
		logger,
	)

	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic, ingestSvc, redisCache, logger)
	if err != nil {
		return fmt.Errorf("kafka consumer: %w", err)
	}
	defer consumer.Close()

	// ---------- collectors ----------
	metrics.StartDBCollectors(ctx, pool, cfg.CollectInterval, logger)
	redisCache.CollectMemory(ctx, cfg.CollectInterval, logger)

	// ---------- http ----------
	router := handlers.NewRouter(handlers.RouterOptions{
		Search:         handlers.NewSearchHandler(searchSvc, logger),
		Flights:        handlers.NewFlightHandler(ingestSvc),
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error { return consumer.Start(gctx) })
	g.Go(func() error { return sender.Run(gctx) })
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
