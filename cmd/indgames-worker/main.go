package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

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
	if cfg.SheetsBaseURL == "" {
		slog.Error("INDG_SHEETS_BASE_URL is required for the sync worker")
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

	svc := game.NewService(pool, logger, cfg.Rules, cfg.GameStart, cfg.GameEnd)
	src := sheets.NewClient(cfg.SheetsBaseURL, cfg.SheetsToken)

	runOnce := strings.EqualFold(strings.TrimSpace(os.Getenv("INDG_WORKER_RUN_ONCE")), "true")
	if runOnce {
		result, err := svc.RunSheetSync(ctx, src)
		if err != nil {
			logger.Error("sheet sync failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed", "rows_processed", result.RowsProcessed, "total_rows", result.TotalRows)
		return
	}

	ticker := time.NewTicker(cfg.SyncEvery)
	defer ticker.Stop()

	logger.Info("worker started", "sync_every", cfg.SyncEvery.String())
	for {
		select {
		case <-ctx.Done():
			logger.Info("worker shutdown")
			return
		case <-ticker.C:
			if !svc.GameActive() {
				logger.Info("game window closed, skipping sync")
				continue
			}
			result, err := svc.RunSheetSync(ctx, src)
			if err != nil {
				logger.Error("sheet sync failed", "err", err)
				continue
			}
			logger.Info("sheet sync complete",
				"rows_processed", result.RowsProcessed,
				"total_rows", result.TotalRows,
				"pushed", result.Pushed,
			)
		}
	}
}
