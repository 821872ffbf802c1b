package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"salesgate/internal/platform/config"
	"salesgate/internal/platform/logger"
	"salesgate/internal/server"
)

// main loads config, wires the app and runs it until SIGINT or SIGTERM.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info").Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)

	log.Info("initializing salesgate",
		"addr", cfg.Addr,
		"env", cfg.Env,
		"session_store", cfg.SessionStore,
		"blacklist_store", cfg.BlacklistStore,
		"kafka_audit", cfg.KafkaBrokers != "",
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}

	runErr := app.Run(ctx)
	app.Close(context.Background())
	if runErr != nil {
		log.Error("server stopped with error", "error", runErr)
		os.Exit(1)
	}
	log.Info("server stopped")
}
