package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"coinmint/internal/catalog"
	"coinmint/internal/clock"
	"coinmint/internal/config"
	"coinmint/internal/market"
	"coinmint/internal/store"
)

// The worker runs the market simulator against the shared store without
// serving commands. Useful for a deployment that keeps price movement
// alive while the API is scaled down, and for manual one-shot ticks.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadWorkerFromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalog failed", "err", err)
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	book := market.NewBook(st, logger, clock.System())
	if err := book.Load(ctx, cat); err != nil {
		logger.Error("market load failed", "err", err)
		os.Exit(1)
	}

	sim := market.NewSimulator(book, cat.Tuning, market.LogSink{Log: logger}, logger)

	if cfg.RunOnce {
		if err := sim.MacroTick(ctx); err != nil {
			logger.Error("macro tick failed", "err", err)
			os.Exit(1)
		}
		if err := sim.MicroTick(ctx); err != nil {
			logger.Error("micro tick failed", "err", err)
			os.Exit(1)
		}
		if _, err := sim.ShockTick(ctx); err != nil {
			logger.Error("shock tick failed", "err", err)
			os.Exit(1)
		}
		logger.Info("worker run-once completed")
		return
	}

	sim.Run(ctx, market.Schedule{
		Macro: cfg.MacroTickEvery,
		Micro: cfg.MicroTickEvery,
		Shock: cfg.ShockTickEvery,
	})
}

func openStore(ctx context.Context, cfg config.WorkerConfig, logger *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL != "" {
		logger.Info("using postgres store")
		return store.OpenPostgres(ctx, cfg.DatabaseURL)
	}
	logger.Info("using sqlite store", "path", cfg.DataPath)
	return store.OpenSQLite(ctx, cfg.DataPath)
}
