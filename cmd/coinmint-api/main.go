package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinmint/internal/api"
	"coinmint/internal/catalog"
	"coinmint/internal/clock"
	"coinmint/internal/config"
	"coinmint/internal/engine"
	"coinmint/internal/games"
	"coinmint/internal/ledger"
	"coinmint/internal/market"
	"coinmint/internal/metrics"
	"coinmint/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadAPIFromEnv()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cat, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logger.Error("load catalog failed", "err", err)
		os.Exit(1)
	}

	st, err := openStore(ctx, cfg.DatabaseURL, cfg.DataPath, logger)
	if err != nil {
		logger.Error("open store failed", "err", err)
		os.Exit(1)
	}
	defer st.Close()

	clk := clock.System()
	led := ledger.New(st, logger, clk)
	if err := led.Load(ctx); err != nil {
		logger.Error("ledger load failed", "err", err)
		os.Exit(1)
	}
	book := market.NewBook(st, logger, clk)
	if err := book.Load(ctx, cat); err != nil {
		logger.Error("market load failed", "err", err)
		os.Exit(1)
	}

	sessions := games.NewSessions(cat.Tuning.SessionWindow(), cat.Tuning.BlackjackWin, logger)
	eng := engine.New(led, book, sessions, cat, clk, logger)

	hub := api.NewHub(logger)
	go hub.Run()

	sim := market.NewSimulator(book, cat.Tuning, hub, logger)
	go sim.Run(ctx, market.Schedule{
		Macro: cfg.MacroTickEvery,
		Micro: cfg.MicroTickEvery,
		Shock: cfg.ShockTickEvery,
	})
	go sweepSessions(ctx, sessions, clk, cfg.SessionSweepEvery, logger)

	server := api.New(cfg, logger, eng, hub)
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

	logger.Info("coinmint api listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context, databaseURL, dataPath string, logger *slog.Logger) (store.Store, error) {
	if databaseURL != "" {
		logger.Info("using postgres store")
		return store.OpenPostgres(ctx, databaseURL)
	}
	logger.Info("using sqlite store", "path", dataPath)
	return store.OpenSQLite(ctx, dataPath)
}

// sweepSessions abandons expired blackjack hands. Stakes were reserved
// at deal time, so a sweep only has to log the forfeits.
func sweepSessions(ctx context.Context, sessions *games.Sessions, clk clock.Clock, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, ex := range sessions.Sweep(clk.Now()) {
				logger.Info("blackjack stake forfeited", "player", ex.Player, "stake", ex.Stake)
			}
			metrics.ActiveSessions.Set(float64(sessions.Active()))
		}
	}
}
