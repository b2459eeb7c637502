package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menupro-service/internal/app"
	"menupro-service/internal/config"
	"menupro-service/internal/logging"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}
	cfg := config.Load()

	logger, flush, err := logging.New(logging.Options{
		Env:       cfg.Env,
		SentryDSN: cfg.SentryDSN,
		Component: "menupro-api",
	})
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer flush()

	srv := app.NewServer(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run server in a separate goroutine so we can listen for shutdown signals
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown finished with errors", zap.Error(err))
		flush()
		os.Exit(1)
	}
	logger.Info("server stopped gracefully")
}
