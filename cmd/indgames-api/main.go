package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"indgames/internal/api"
	"indgames/internal/auth"
	"indgames/internal/config"
	"indgames/internal/db"
	"indgames/internal/game"
	"indgames/internal/sheets"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if cfg.StartupMigrate {
		if err := db.Migrate(ctx, pool, logger); err != nil {
			logger.Error("migrate failed", "err", err)
			os.Exit(1)
		}
	}

	gameSvc := game.NewService(pool, logger, cfg.Rules, cfg.GameStart, cfg.GameEnd)
	if cfg.StartupSeedChapters {
		if err := gameSvc.SeedChapters(ctx); err != nil {
			logger.Error("seed chapters failed", "err", err)
			os.Exit(1)
		}
	}

	var sheetSource game.SheetSource
	if cfg.SheetsBaseURL != "" {
		sheetSource = sheets.NewClient(cfg.SheetsBaseURL, cfg.SheetsToken)
	}

	server := api.New(cfg, logger, auth.NewVerifier(cfg.AuthSecret), gameSvc, sheetSource)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("indgames api listening", "addr", cfg.Addr, "week", gameSvc.CurrentWeek())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
