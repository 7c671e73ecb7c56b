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

	"dholratri-tickets/internal/activity"
	"dholratri-tickets/internal/analytics"
	analytics_api "dholratri-tickets/internal/analytics/api"
	"dholratri-tickets/internal/api"
	"dholratri-tickets/internal/auth"
	"dholratri-tickets/internal/auth/auth_api"
	"dholratri-tickets/internal/config"
	"dholratri-tickets/internal/coupon"
	"dholratri-tickets/internal/coupon/coupon_api"
	"dholratri-tickets/internal/database"
	"dholratri-tickets/internal/database/migrations"
	"dholratri-tickets/internal/kafka"
	"dholratri-tickets/internal/logger"
	"dholratri-tickets/internal/media"
	"dholratri-tickets/internal/purchase"
	pdb "dholratri-tickets/internal/purchase/db"
	"dholratri-tickets/internal/purchase/purchase_api"
	purchaselock "dholratri-tickets/internal/purchase/redis"
	"dholratri-tickets/internal/ratelimit"
	"dholratri-tickets/internal/settings"
	"dholratri-tickets/internal/settings/settings_api"
	"dholratri-tickets/internal/sse"
	ticket_db "dholratri-tickets/internal/tickets/db"
	qr "dholratri-tickets/internal/tickets/qr_generator"
	tickets "dholratri-tickets/internal/tickets/service"
	"dholratri-tickets/internal/tickets/ticket_api"
	"dholratri-tickets/internal/utils"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"go.mongodb.org/mongo-driver/mongo"
)

func prepareSchema(ctx context.Context, cfg config.DatabaseConfig, bunDB *bun.DB, logger *logger.Logger) error {
	if !cfg.AutoMigrate {
		logger.Info("DATABASE", "AUTO_MIGRATE disabled, skipping schema setup")
		return nil
	}
	if cfg.Driver == "sqlite" {
		logger.Info("DATABASE", "Creating SQLite schema")
		return database.CreateSchema(ctx, bunDB)
	}

	runner := migrations.NewRunner(bunDB, logger)
	if err := runner.Initialize(); err != nil {
		return err
	}
	return runner.Up()
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, logger *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("REDIS", fmt.Sprintf("Redis unreachable at %s, rate limits and confirm locks will fail open: %v", cfg.Addr, err))
	} else {
		logger.Info("REDIS", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Addr, cfg.DB))
	}
	return client
}

func buildPublisher(ctx context.Context, cfg config.KafkaConfig, logger *logger.Logger) kafka.Publisher {
	switch {
	case cfg.MockMode:
		logger.Info("KAFKA", "Kafka mock mode enabled, events are logged only")
		return kafka.NewLogPublisher(cfg.TopicPrefix, logger)
	case !cfg.Enabled:
		logger.Info("KAFKA", "Kafka disabled, lifecycle events are not published")
		return kafka.NoopPublisher{}
	}

	logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Brokers))
	if err := kafka.EnsureTopicsExist(ctx, cfg.Brokers, kafka.RequiredTopics(cfg.TopicPrefix), logger); err != nil {
		logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
	} else {
		logger.Info("KAFKA", "Required topics ensured successfully")
	}
	return kafka.NewProducer(cfg.Brokers, cfg.TopicPrefix, logger)
}

// buildRecorder prefers MongoDB when MONGO_URI is set and falls back to the SQL table.
func buildRecorder(ctx context.Context, cfg config.MongoConfig, bunDB *bun.DB, logger *logger.Logger) (activity.Recorder, *mongo.Client) {
	if cfg.URI == "" {
		return activity.NewBunRecorder(bunDB), nil
	}

	client, err := activity.OpenMongo(ctx, cfg.URI)
	if err != nil {
		logger.Warn("MONGO", fmt.Sprintf("MongoDB unavailable, activity logs go to SQL: %v", err))
		return activity.NewBunRecorder(bunDB), nil
	}
	recorder, err := activity.NewMongoRecorder(ctx, client.Database(cfg.Database))
	if err != nil {
		logger.Warn("MONGO", fmt.Sprintf("Failed to prepare activity collection, activity logs go to SQL: %v", err))
		_ = client.Disconnect(ctx)
		return activity.NewBunRecorder(bunDB), nil
	}
	logger.Info("MONGO", fmt.Sprintf("✅ Activity logs stored in MongoDB database %s", cfg.Database))
	return recorder, client
}

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println(".env file not found, using environment variables")
	}

	cfg := config.Load()
	level := logger.ParseLevel(cfg.LogLevel)
	logger := logger.NewLogger(cfg.LogDir)
	defer logger.Close()
	logger.SetLevel(level)

	logger.Info("APP", "Starting DholRatri ticketing API initialization")
	if err := cfg.Validate(); err != nil {
		logger.Fatal("CONFIG", err.Error())
	}

	ctx := context.Background()

	bunDB, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("DATABASE", err.Error())
	}
	if err := prepareSchema(ctx, cfg.Database, bunDB, logger); err != nil {
		bunDB.Close()
		logger.Fatal("DATABASE", fmt.Sprintf("Schema setup failed: %v", err))
	}

	redisClient := connectRedis(ctx, cfg.Redis, logger)
	publisher := buildPublisher(ctx, cfg.Kafka, logger)
	recorder, mongoClient := buildRecorder(ctx, cfg.Mongo, bunDB, logger)

	mediaStore, err := media.NewCloudinaryStore(cfg.Cloudinary, logger)
	if err != nil {
		logger.Fatal("MEDIA", fmt.Sprintf("Cloudinary setup failed: %v", err))
	}

	validator := utils.NewValidator()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := auth.NewService(auth.NewAdminStore(bunDB), tokens, logger)
	if err := authService.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		logger.Error("AUTH", fmt.Sprintf("Admin seeding failed: %v", err))
	}

	settingsStore := settings.NewStore(bunDB)
	settingsService := settings.NewService(settingsStore, validator)
	couponService := coupon.NewService(coupon.NewStore(bunDB), logger)
	emitter := sse.NewPurchaseEventEmitter()

	purchaseService := &purchase.Service{
		DB:       pdb.New(bunDB),
		Settings: settingsStore,
		Coupons:  couponService,
		Media:    mediaStore,
		QR:       qr.NewQRGenerator(),
		Lock:     purchaselock.NewLock(redisClient, purchaselock.DefaultLockTTL, logger),
		Events:   publisher,
		Feed:     emitter,
		Audit:    recorder,
		Logger:   logger,
	}
	ticketService := tickets.NewTicketService(ticket_db.New(bunDB), settingsStore, publisher, recorder, logger)

	logger.Info("HTTP", "Setting up router and middleware")
	handlers := api.Handlers{
		Auth:      auth_api.NewHandler(authService, validator, logger),
		Purchases: purchase_api.NewHandler(purchaseService, validator, logger),
		Tickets:   ticket_api.NewHandler(ticketService, validator, logger),
		Settings:  settings_api.NewHandler(settingsService, mediaStore, recorder, logger),
		Coupons:   coupon_api.NewHandler(couponService, recorder, validator, logger),
		Analytics: analytics_api.NewHandler(analytics.NewService(bunDB), logger),
		Feed:      sse.NewHandler(emitter, logger),
	}
	router := api.NewRouter(handlers, api.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		TrustProxy:     cfg.Server.TrustProxy,
		Tokens:         tokens,
		LoginLimit:     ratelimit.New(redisClient, "login", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger).Middleware,
		InitiateLimit:  ratelimit.New(redisClient, "initiate", cfg.RateLimit.MaxRequests, cfg.RateLimit.Window, logger).Middleware,
	}, logger)

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 DholRatri API running on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	}
	if err := publisher.Close(); err != nil {
		logger.Error("KAFKA", fmt.Sprintf("Failed to close producer: %v", err))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(ctxShutdown); err != nil {
			logger.Error("MONGO", fmt.Sprintf("Failed to disconnect: %v", err))
		}
	}
	if err := redisClient.Close(); err != nil {
		logger.Error("REDIS", fmt.Sprintf("Failed to close client: %v", err))
	}
	if err := bunDB.Close(); err != nil {
		logger.Error("DATABASE", fmt.Sprintf("Failed to close database: %v", err))
	}
	logger.Info("HTTP", "✅ DholRatri API shutdown complete")
}
