package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taskspool/taskspool/internal/api"
	"github.com/taskspool/taskspool/internal/api/middleware"
	"github.com/taskspool/taskspool/internal/config"
	"github.com/taskspool/taskspool/internal/core"
	"github.com/taskspool/taskspool/internal/db"
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

	var auth *middleware.AuthMiddleware
	if cfg.Server.AuthEnabled {
		auth, err = middleware.NewAuthMiddleware(db.NewSettingsStore(conn))
		if err != nil {
			logger.Error("failed to initialize auth", "error", err)
			os.Exit(1)
		}
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(queue, auth),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	logger.Info("taskspool api listening", "port", cfg.Server.Port, "db", cfg.Database.Path)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
