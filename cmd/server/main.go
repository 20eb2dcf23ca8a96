// Command server runs the license redemption HTTP service.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"kitclaim/internal/achievement"
	"kitclaim/internal/achievement/kafka"
	"kitclaim/internal/auth"
	"kitclaim/internal/license/handler"
	licmetrics "kitclaim/internal/license/metrics"
	"kitclaim/internal/license/service"
	"kitclaim/internal/license/store"
	memorystore "kitclaim/internal/license/store/memory"
	postgresstore "kitclaim/internal/license/store/postgres"
	"kitclaim/internal/platform/config"
	"kitclaim/internal/platform/httpserver"
	"kitclaim/internal/platform/logger"
	"kitclaim/internal/platform/metrics"
	"kitclaim/internal/platform/redis"
	rlmw "kitclaim/internal/ratelimit/middleware"
	"kitclaim/internal/ratelimit/store/bucket"
	httptransport "kitclaim/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	health := map[string]httptransport.HealthCheck{}

	// Store: PostgreSQL when configured, in-memory otherwise. The in-memory
	// store loses everything on restart and exists for local development.
	var licenseStore store.Store
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		licenseStore = postgresstore.NewPostgres(db)
		health["database"] = db.PingContext
		log.Info("using postgres license store")
	} else {
		licenseStore = memorystore.New()
		log.Warn("no database configured, using in-memory license store")
	}

	// Rate limit counters: Redis when configured, per-instance memory otherwise.
	var buckets rlmw.BucketStore = bucket.NewInMemoryBucketStore()
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		buckets = bucket.NewRedisBucketStore(redisClient.Client)
		health["redis"] = redisClient.Health
		log.Info("using redis rate limit store")
	}

	// Achievement events: Kafka when brokers are configured, log sink otherwise.
	var sink achievement.Sink = achievement.NewLogSink(log)
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := kafka.New(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		sink = kafkaSink
		log.Info("publishing achievement events to kafka", "topic", cfg.Kafka.Topic)
	}

	publisher := achievement.NewPublisher(achievement.WithPublisherLogger(log))
	worker := achievement.NewWorker(sink, publisher.Events(), log)

	svc, err := service.New(licenseStore,
		service.WithLogger(log),
		service.WithAchievements(publisher),
		service.WithMetrics(licmetrics.New()),
	)
	if err != nil {
		return fmt.Errorf("build redemption service: %w", err)
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Handler:   handler.New(svc, log),
		Validator: auth.NewJWTValidator(cfg.JWTSigningKey),
		Limiter:   rlmw.New(buckets, log, rlmw.WithDisabled(cfg.RateLimit.Disabled)),
		Metrics:   metrics.New(),
		Logger:    log,
		RateLimit: cfg.RateLimit,
		Health:    health,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		log.Info("starting kitclaim server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
