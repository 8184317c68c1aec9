package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/photobot/config"
	"github.com/spacesedan/photobot/internal/api"
	"github.com/spacesedan/photobot/internal/app"
	"github.com/spacesedan/photobot/internal/logging"
)

const SHUTDOWN_TIMEOUT = 15 * time.Second

func main() {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}
	config.LoadEnv(env)

	cfg, err := config.Load()
	if err != nil {
		logging.InitLogger("info")
		slog.Error("[Main] Invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logging.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bot, err := app.Build(ctx, cfg)
	if err != nil {
		slog.Error("[Main] Failed to start bot", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer bot.Close()

	go bot.Health.Monitor(ctx)
	go bot.Runner.Loop(ctx)

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: api.NewRouter(bot.Runner, bot.Pool, bot.Images),
	}
	go func() {
		slog.Info("[Main] Control API listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("[Main] HTTP server failed", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("[Main] Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("[Main] HTTP shutdown incomplete", slog.String("error", err.Error()))
	}
}
