// cmd/flatex-server: HTTP tool server for flatex
//
// Exposes the expression tools as an HTTP endpoint for AI agent frameworks.
// Settings come from the environment (PORT, HOST, LOG_LEVEL, RATE_LIMIT_*,
// FLATEX_*); flags override the listen port and log mode.
//
// Usage:
//
//	go run ./cmd/flatex-server -port 8080
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/njchilds90/goflatex/internal/config"
	"github.com/njchilds90/goflatex/internal/logging"
	"github.com/njchilds90/goflatex/internal/server"
)

func main() {
	port := flag.String("port", "", "Port to listen on (overrides PORT)")
	dev := flag.Bool("dev", false, "Development logging")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dev {
		cfg.Logging.Development = true
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stderr"},
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	srv := server.New(cfg, logger)

	errChan := make(chan error, 1)
	go func() { errChan <- srv.Run() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("signal received", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			logger.Fatal("server error", zap.Error(err))
		}
	}
}
