package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kittylabs/wasender/internal/adapters/tasklog"
	"github.com/kittylabs/wasender/internal/adapters/wa"
	"github.com/kittylabs/wasender/internal/adapters/ws"
	"github.com/kittylabs/wasender/internal/config"
	"github.com/kittylabs/wasender/internal/ports"
	"github.com/kittylabs/wasender/internal/useCases"
)

const (
	envDev  = "dev"
	envProd = "prod"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := setupLogger(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := os.MkdirAll(cfg.StoreDir, 0o755); err != nil {
		logger.Error("mkdir store dir", "dir", cfg.StoreDir, "error", err)
		os.Exit(1)
	}

	container, err := wa.NewContainer(ctx, filepath.Join(cfg.StoreDir, cfg.ClientID+".db"))
	if err != nil {
		logger.Error("open device store failed", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	tasks := tasklog.New(rdb, cfg.TaskTTL)

	hub := useCases.NewHub(logger.With("component", "bridge"))

	factory := func(ctx context.Context, l *slog.Logger) (ports.Transport, error) {
		return wa.NewClient(ctx, container, l.With("component", "transport"))
	}

	session := useCases.NewLifecycle(
		logger.With("component", "lifecycle"),
		factory,
		wa.NewDeviceStore(container),
		hub,
	)
	session.SetDelays(cfg.ReconnectDelay, cfg.InitRetryDelay)

	dispatcher := useCases.NewDispatcher(logger.With("component", "dispatch"), session, hub)
	dispatcher.SetThrottle(cfg.MinSendDelay, cfg.MaxSendDelay, cfg.SendTimeout)

	hub.Bind(session, dispatcher, tasks)

	session.Start(ctx)

	mux := http.NewServeMux()
	mux.Handle("/ws", ws.NewHandler(ctx, logger.With("component", "ws"), hub))
	mux.HandleFunc("/healthz", ws.Health(session.State))

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: mux}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()

		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.HTTPAddr, "client_id", cfg.ClientID)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server error", "error", err)
		os.Exit(1)
	}

	logger.Info("exit")
}

func setupLogger(env string) *slog.Logger {
	var logger *slog.Logger

	switch env {
	case envProd:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	case envDev:
		fallthrough
	default:
		logger = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	}

	return logger
}
