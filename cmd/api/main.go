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

	"gameforge/internal/api"
	"gameforge/internal/config"
	"gameforge/internal/database"
	"gameforge/internal/generator"
	"gameforge/internal/logger"
	"gameforge/internal/messaging"
	"gameforge/internal/quota"
	"gameforge/internal/repository"

	rateli "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadAPIConfig()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log, "gameforge-api")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("Starting gameforge API", zap.String("env", cfg.AppEnv), zap.String("port", cfg.Port))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Postgres, database.DefaultConnectOptions(), log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pool.Close()
	if err := database.NewMigrator(pool, log).Up(); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	redisClient, err := setupRedis(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()

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

	publisher, err := messaging.NewRabbitMQTaskPublisher(mqChannel, messaging.Topology{
		TaskQueue:          cfg.TaskQueue,
		DeadLetterExchange: cfg.DeadLetterExchange,
		DeadLetterQueue:    cfg.DeadLetterQueue,
	}, log)
	if err != nil {
		log.Fatal("Failed to create task publisher", zap.Error(err))
	}

	handler := api.NewHandler(
		publisher,
		repository.NewPgConceptRepository(pool, log),
		quota.NewRedisLimiter(redisClient, cfg.DailyQuota, log),
		generator.NewRandomizer(),
		log,
	)

	rateLimitStore := rateli.RedisStore(&rateli.RedisOptions{
		RedisClient: redisClient,
		Rate:        cfg.RateLimitWindow,
		Limit:       cfg.RateLimit,
	})

	gin.SetMode(gin.ReleaseMode)
	if !cfg.IsProduction() {
		gin.SetMode(gin.DebugMode)
	}
	router := gin.New()
	router.Use(api.GinZapLogger(log))
	router.Use(gin.Recovery())
	router.Use(api.CORS(cfg.AllowedOrigins))

	// Must run before the routes are registered, gin binds middleware at registration.
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	handler.RegisterRoutes(router, api.RateLimit(rateLimitStore, log))

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("API stopped")
}

func setupRedis(ctx context.Context, cfg *config.APIConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis at %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
