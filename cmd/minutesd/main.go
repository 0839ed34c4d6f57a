package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"minutes/internal/config"
	"minutes/internal/daemon"
	"minutes/internal/logging"
	"minutes/internal/notifications"
	"minutes/internal/runs"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := runs.Open(cfg)
	if err != nil {
		logger.Error("open run store", logging.Error(err))
		return
	}
	defer store.Close()

	notifier := notifications.NewService(cfg)
	proc := buildPipeline(cfg, store, logger, notifier)

	d, err := daemon.New(cfg, store, logger, proc)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	d.Wait()
	d.Stop()
	logger.Info("minutesd shutting down")
}
