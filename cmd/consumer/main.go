package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do"
	"github.com/serroba/ledger-shortener/internal/config"
	"github.com/serroba/ledger-shortener/internal/container"
	"github.com/serroba/ledger-shortener/internal/messaging"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConsumer()
	if err != nil {
		log.Fatal(err)
	}

	opts := &container.Options{
		RedisAddr: cfg.RedisAddr,
		LogFormat: cfg.LogFormat,
	}

	injector := do.New()
	do.ProvideValue(injector, opts)
	container.LoggerPackage(injector)
	container.RedisPackage(injector)
	container.AnalyticsStorePackage(injector, cfg.DatabaseURL, cfg.PersistEvents)
	container.ConsumerGroupPackage(injector, cfg.ConsumerGroup)

	logger := do.MustInvoke[*zap.Logger](injector)

	group, err := do.Invoke[*messaging.ConsumerGroup](injector)
	if err != nil {
		logger.Fatal("failed to build consumer group", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())

	if err := group.Start(ctx); err != nil {
		logger.Fatal("failed to start consumer group", zap.Error(err))
	}

	logger.Info("analytics consumer running",
		zap.String("consumer_group", cfg.ConsumerGroup),
		zap.Bool("persist", cfg.PersistEvents),
	)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutting down")
	cancel()

	if err := injector.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("shutdown complete")
}
