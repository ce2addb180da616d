// cmd/inventory/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"stockroom/internal/config"
	"stockroom/internal/inventory"
	"stockroom/internal/ledger"
	"stockroom/internal/middleware"
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("inventory service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTelSDK(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Error("failed to flush telemetry", zap.Error(err))
		}
	}()
	if cfg.TelemetryEnabled() {
		logger = observability.WithOTelBridge(logger)
	}

	meter := otel.Meter("stockroom")
	metrics, err := inventory.NewMetrics(meter)
	if err != nil {
		return err
	}
	requestCounter, err := middleware.RequestCounter(meter)
	if err != nil {
		return err
	}

	svc := inventory.NewService(inventory.NewStore(nil), ledger.New(), metrics, logger)
	handler := inventory.NewHandler(svc, logger)

	router := chi.NewRouter()
	router.Use(chimw.RealIP)
	router.Use(chimw.Recoverer)
	router.Use(requestCounter)
	router.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	handler.Register(router)

	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting inventory service",
			zap.String("addr", server.Addr),
			zap.Bool("telemetry", cfg.TelemetryEnabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down inventory service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
