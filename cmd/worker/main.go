package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/taskspool/taskspool/internal/config"
	"github.com/taskspool/taskspool/internal/core"
	"github.com/taskspool/taskspool/internal/db"
	"github.com/taskspool/taskspool/internal/printer"
	"github.com/taskspool/taskspool/internal/webhook"
	"github.com/taskspool/taskspool/internal/worker"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	conn, err := db.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	queue := core.NewQueue(db.NewJobStore(conn), core.QueueConfig{
		MaxAttempts: cfg.Queue.MaxAttempts,
		BatchLimit:  cfg.Queue.BatchLimit,
		RetryDelay:  cfg.Queue.RetryDelay,
	})

	var device printer.Printer
	if cfg.Printer.Simulation {
		logger.Info("running in simulation mode, no actual printing")
		device = printer.NewSimulator(cfg.Printer.FailRate, logger)
	} else {
		logger.Info("print command configured", "command", cfg.Printer.Command)
		device = printer.NewCommandPrinter(cfg.Printer.Command)
	}

	var events worker.EventSender
	if cfg.Webhooks.Enabled {
		sender := webhook.NewSender(webhook.Config{
			URLs:    cfg.Webhooks.URLs,
			Secret:  cfg.Webhooks.Secret,
			Timeout: cfg.Webhooks.Timeout,
		}, logger)
		sender.Start()
		defer sender.Stop()
		events = sender
	}

	svc := worker.New(queue, device, events, worker.Config{
		PollInterval:  cfg.Queue.PollInterval,
		LeaseTimeout:  cfg.Queue.LeaseTimeout,
		RetentionDays: cfg.Queue.RetentionDays,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("stopping print worker")
		cancel()
	}()

	logger.Info("print worker started",
		"poll_interval", cfg.Queue.PollInterval, "db", cfg.Database.Path)
	if err := svc.Run(ctx); err != nil {
		logger.Error("worker error", "error", err)
		os.Exit(1)
	}
}
