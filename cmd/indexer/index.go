package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"hubScope/internal/aggregate"
	"hubScope/internal/chain"
	"hubScope/internal/config"
	"hubScope/internal/handler"
	"hubScope/internal/hub"
	"hubScope/internal/metrics"
	"hubScope/internal/storage"
	"hubScope/internal/storage/postgres"
	"hubScope/internal/store"
)

func runIndex(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadIndex(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.In == "" {
		return fmt.Errorf("input path is required")
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.HubAddress == "" {
		return fmt.Errorf("hub address is required")
	}
	if cfg.PGDSN != "" && cfg.Snapshot != "" {
		return fmt.Errorf("snapshot only applies to the in-memory store")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	reader, err := hub.NewReader(chainClient, cfg.HubAddress, cfg.ManagerAddress, logger)
	if err != nil {
		return err
	}

	pricing, err := aggregate.NewPricing(aggregate.PricingConfig{
		WETH:             cfg.WETHAddress,
		USDC:             cfg.USDCAddress,
		Whitelist:        cfg.Whitelist,
		StableCoins:      cfg.StableCoins,
		MinimumETHLocked: cfg.MinimumETHLocked,
	})
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, m, logger)
		defer shutdown()
	}

	handlers, err := handler.NewHandlers(handler.Config{
		HubAddress:     cfg.HubAddress,
		ManagerAddress: cfg.ManagerAddress,
		MaxTickUpdates: cfg.MaxTickUpdates,
		Pricing:        pricing,
	}, func(block uint64) handler.ChainReader { return reader.At(block) }, logger, m)
	if err != nil {
		return err
	}

	st, finish, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("index start",
		zap.String("in", cfg.In),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.String("snapshot", cfg.Snapshot),
		zap.String("hub", cfg.HubAddress),
		zap.String("manager", cfg.ManagerAddress),
		zap.Int("max_tick_updates", cfg.MaxTickUpdates),
		zap.String("minimum_eth_locked", cfg.MinimumETHLocked.String()),
	)

	processor := handler.NewProcessor(st, handlers, logger)
	_, runErr := processor.RunFile(ctx, cfg.In)
	// Everything committed so far is consistent with the cursor, so the
	// snapshot is written even when the run halted.
	if err := finish(); err != nil {
		return errors.Join(runErr, err)
	}
	return runErr
}

// openStore returns the entity store and a function that flushes and
// closes it.
func openStore(ctx context.Context, cfg config.IndexConfig, logger *zap.Logger) (store.Store, func() error, error) {
	if cfg.PGDSN != "" {
		pg, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
		return pg, func() error { pg.Close(); return nil }, nil
	}

	mem := store.NewMemoryStore()
	if cfg.Snapshot == "" {
		logger.Warn("no snapshot configured, entities are discarded on exit")
		return mem, func() error { return nil }, nil
	}
	if err := restoreSnapshot(mem, cfg.Snapshot); err != nil {
		return nil, nil, err
	}
	return mem, func() error { return writeSnapshot(mem, cfg.Snapshot) }, nil
}

func restoreSnapshot(mem *store.MemoryStore, path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer file.Close()
	if err := mem.Restore(file); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	return nil
}

func writeSnapshot(mem *store.MemoryStore, path string) error {
	if err := storage.WriteFileAtomic(path, mem.Dump); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func serveMetrics(addr string, m *metrics.Metrics, logger *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("metrics listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
