package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gameforge/internal/config"
	"gameforge/internal/database"
	"gameforge/internal/generator"
	"gameforge/internal/logger"
	"gameforge/internal/messaging"
	"gameforge/internal/quota"
	"gameforge/internal/repository"
	"gameforge/internal/worker"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.LoadWorkerConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log, "gameforge-worker")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("Starting gameforge worker",
		zap.String("task_queue", cfg.TaskQueue),
		zap.String("ai_client", cfg.ClientType),
		zap.String("model", cfg.Model))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, mode, err := generator.NewFromConfig(cfg.AIConfig, log)
	if err != nil {
		log.Fatal("Failed to build generation pipeline", zap.Error(err))
	}
	log.Info("Generation mode selected", zap.Stringer("mode", mode))

	pool, err := database.Connect(ctx, cfg.Postgres, database.DefaultConnectOptions(), log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()
	if err := database.NewMigrator(pool, log).Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Failed to connect to Redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	mqConn, err := messaging.Dial(ctx, cfg.RabbitMQURL, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer mqConn.Close()
	mqChannel, err := mqConn.Channel()
	if err != nil {
		log.Fatal("Failed to open RabbitMQ channel", zap.Error(err))
	}
	defer mqChannel.Close()

	notifier, err := messaging.NewRabbitMQNotifier(mqChannel, cfg.NotificationQueue, log)
	if err != nil {
		log.Fatal("Failed to create notifier", zap.Error(err))
	}

	metrics := worker.NewMetrics(log)
	if cfg.PushGatewayURL != "" {
		if err := metrics.InitPusher(cfg.PushGatewayURL); err != nil {
			log.Warn("Pushgateway unavailable, metrics are scrape-only", zap.Error(err))
		}
	}
	metricsServer := startMetricsServer(cfg.MetricsPort, metrics.Registry, log)

	handler := worker.NewTaskHandler(
		gen,
		quota.NewRedisLimiter(redisClient, cfg.DailyQuota, log),
		repository.NewPgConceptRepository(pool, log),
		notifier,
		metrics,
		log,
	)

	consumer := messaging.NewTaskConsumer(mqChannel, messaging.Topology{
		TaskQueue:          cfg.TaskQueue,
		DeadLetterExchange: cfg.DeadLetterExchange,
		DeadLetterQueue:    cfg.DeadLetterQueue,
	}, handler, log, messaging.WithRejectHook(metrics.TaskFailed))
	if err := consumer.Start(ctx); err != nil {
		log.Fatal("Failed to start task consumer", zap.Error(err))
	}
	log.Info("Waiting for generation tasks. Press CTRL+C to exit")

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
		consumer.Stop(shutdownTimeout)
	case <-consumer.Done():
		log.Warn("Task consumer stopped unexpectedly")
	}

	metrics.Cleanup()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to stop metrics server", zap.Error(err))
	}
	log.Info("Worker stopped")
}

// startMetricsServer exposes /metrics and /health. The handler gathers both
// the worker registry and the default one, where the AI client metrics live.
func startMetricsServer(port string, registry *prometheus.Registry, log *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	gatherers := prometheus.Gatherers{prometheus.DefaultGatherer, registry}
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info("Starting metrics server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server error", zap.Error(err))
		}
	}()
	return srv
}
