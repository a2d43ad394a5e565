package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"example.com/wearsync/internal/api"
	"example.com/wearsync/internal/config"
	"example.com/wearsync/internal/logging"
	"example.com/wearsync/internal/recording"
	"example.com/wearsync/internal/sensor"
	"example.com/wearsync/internal/storage/sqlite"
	"example.com/wearsync/internal/syncer"
	"example.com/wearsync/internal/transfer"
	httptransport "example.com/wearsync/internal/transport/http"
)

func main() {
	cfg := config.LoadWearable()

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, "wearable")
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := sqlite.Open(cfg.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open local store", zap.Error(err))
	}
	defer store.Close()

	engine := recording.NewEngine(store, logger)

	cell := sensor.NewCell()
	if cfg.SimulateSensors {
		simulator := sensor.NewSimulator(cell, cfg.SensorTickInterval, time.Now().UnixNano())
		go simulator.Run(ctx)
	}

	transport, err := transfer.NewMQTTTransport(transfer.MQTTConfig{
		Broker:   cfg.MQTTBroker,
		ClientID: cfg.MQTTClientID,
		DeviceID: cfg.DeviceID,
	}, logger)
	if err != nil {
		logger.Fatal("failed to connect transport", zap.Error(err))
	}
	defer transport.Close()

	sender := transfer.NewSender(transport, cfg.LiveSendInterval, logger)
	orchestrator := syncer.NewOrchestrator(store, sender, logger)
	sampler := recording.NewSampler(engine, cell, cfg.SampleInterval, logger)

	// Crash recovery: resume sampling into a session left active by a
	// previous run.
	if active, err := engine.Rehydrate(ctx); err != nil {
		logger.Fatal("rehydrate failed", zap.Error(err))
	} else if active != nil {
		sampler.Start(ctx, active.ID)
	}

	forwarder := syncer.NewLiveForwarder(engine, sender, cell, cfg.LivePollInterval, logger)
	go forwarder.Run(ctx)

	handler := api.NewWearableHandler(ctx, engine, sampler, orchestrator, logger)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, mux)

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("wearable listening", zap.String("address", cfg.HTTPAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-shutdownCh
	cancel()
	sampler.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
	}
}
