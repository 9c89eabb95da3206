package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/oldiebutgoldie/marketplace/internal/adapter/catalog"
	"github.com/oldiebutgoldie/marketplace/internal/adapter/events"
	"github.com/oldiebutgoldie/marketplace/internal/adapter/handler"
	"github.com/oldiebutgoldie/marketplace/internal/adapter/storage"
	"github.com/oldiebutgoldie/marketplace/internal/config"
	"github.com/oldiebutgoldie/marketplace/internal/core/domain"
	"github.com/oldiebutgoldie/marketplace/internal/core/service"
	"github.com/oldiebutgoldie/marketplace/internal/port"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// MySQL
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open mysql")
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	if err := db.PingContext(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to ping mysql")
	}
	logger.Info().Msg("connected to mysql")

	// Redis
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		PoolSize: 100,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	logger.Info().Msg("connected to redis")

	// NATS
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("marketplace-server"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect nats")
	}
	publisher, err := events.NewNATSPublisher(nc)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize event publisher")
	}
	logger.Info().Msg("connected to nats")

	// Adapters
	store := storage.NewMySQLStore(db)
	cache := storage.NewRedisCache(rdb)
	discogs := catalog.NewDiscogsClient(cfg.DiscogsBaseURL, cfg.DiscogsToken)

	// Services
	queue := service.NewEventQueue(cfg.EventQueueSize)
	inventoryService := service.NewInventoryService(store, cache, discogs, queue, logger)
	tradeService := service.NewTradeService(store, cache, queue, cfg.AdminID, logger)

	// Publisher worker pool
	var wg sync.WaitGroup
	for i := 0; i < cfg.WorkerCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			workerLoop(id, queue.Events(), publisher, logger)
		}(i)
	}
	logger.Info().Int("workers", cfg.WorkerCount).Msg("started event workers")

	// HTTP server
	httpHandler := handler.NewHTTPHandler(inventoryService, tradeService, logger)
	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: httpHandler.Router(),
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}

	queue.Close()
	wg.Wait()
	logger.Info().Msg("event workers stopped")

	if err := nc.Drain(); err != nil {
		logger.Error().Err(err).Msg("nats drain error")
	}
	rdb.Close()
	db.Close()
	logger.Info().Msg("connections closed")
}

func workerLoop(id int, queue <-chan domain.Event, publisher port.EventPublisher, logger zerolog.Logger) {
	for evt := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if err := publisher.Publish(ctx, evt); err != nil {
			logger.Error().Err(err).Int("worker", id).Str("type", string(evt.Type)).Msg("failed to publish event")
		}

		cancel()
	}
}
