package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/userauth-app/authclient/internal/config"
	"github.com/userauth-app/authclient/internal/devserver"
	"github.com/userauth-app/authclient/internal/logger"
)

var version = "dev" // Will be set during build with -ldflags

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.GetLogger()

	srv, err := devserver.New(cfg.DevServer, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create server")
	}
	defer func() {
		if err := srv.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version).Msg("Starting auth dev server...")

	if err := srv.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Server failed")
		os.Exit(1)
	}
}
