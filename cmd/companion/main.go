package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/wearsync/internal/api"
	"example.com/wearsync/internal/cloud"
	"example.com/wearsync/internal/config"
	"example.com/wearsync/internal/identity"
	"example.com/wearsync/internal/ingest"
	"example.com/wearsync/internal/logging"
	"example.com/wearsync/internal/storage/postgres"
	"example.com/wearsync/internal/transfer"
	httptransport "example.com/wearsync/internal/transport/http"
)

func main() {
	cfg := config.LoadCompanion()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "companion")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	repo := postgres.NewRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatal("failed to apply schema", zap.Error(err))
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddress})
	defer redisClient.Close()
	liveCache := ingest.NewLiveCache(redisClient)

	kafkaWriter := ingest.NewKafkaWriter(cfg.KafkaBrokers)
	defer kafkaWriter.Close()
	mirror := ingest.NewMirror(kafkaWriter)

	provider := identity.NewTokenProvider(identity.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	}, cfg.AuthToken)

	bus := ingest.NewBus()
	service := ingest.NewService(repo, bus, liveCache, mirror, provider, logger)

	transport, err := transfer.NewMQTTTransport(transfer.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		DeviceID: cfg.DeviceID,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect transport", zap.Error(err))
	}
	defer transport.Close()

	if err := service.Start(ctx, transport, cfg.DeviceID); err != nil {
		logger.Fatal("failed to subscribe ingestion", zap.Error(err))
	}

	docStore := cloud.NewHTTPStore(cfg.CloudBaseURL, cfg.CloudAuthToken, cfg.CloudBatchLimit)
	manager := cloud.NewManager(docStore, repo, identity.ContextProvider{Base: provider}, cfg.CloudBatchLimit, logger)

	handler := api.NewCompanionHandler(repo, manager, liveCache, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	authMiddleware := identity.NewMiddleware(identity.Config{
		Secret: cfg.JWTSecret,
		Issuer: cfg.JWTIssuer,
	}, func(r *http.Request) bool {
		return r.URL.Path == "/healthz" || r.URL.Path == "/metrics"
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, authMiddleware.Wrap(mux))

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("companion listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
