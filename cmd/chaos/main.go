// cmd/chaos/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"stockroom/internal/chaos"
	"stockroom/internal/clients"
	"stockroom/internal/config"
	"stockroom/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engine := chaos.NewEngine(clients.NewInventoryClient(cfg.ServiceURL), logger)
	engine.RegisterExperiments()

	gameDay := chaos.GameDay{
		Name:      "Inventory Consistency Game Day",
		Scenarios: engine.Experiments(),
		Pause:     5 * time.Second,
	}

	held, err := engine.ExecuteGameDay(ctx, gameDay)
	if err != nil {
		logger.Fatal("chaos game day failed", zap.Error(err))
	}
	if !held {
		logger.Sync()
		os.Exit(1)
	}
}
