package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"hubScope/internal/chain"
	"hubScope/internal/config"
	"hubScope/internal/hub"
	"hubScope/internal/indexer"
	"hubScope/internal/storage"
)

func main() {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Multi-tier AMM hub indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch raw hub and position manager logs",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "RPC URL")
	runCmd.Flags().Uint64("from", 0, "start block (inclusive)")
	runCmd.Flags().Uint64("to", 0, "end block (inclusive), 0 means latest")
	runCmd.Flags().String("hub-address", "", "hub contract address")
	runCmd.Flags().String("manager-address", "", "position manager contract address")
	runCmd.Flags().StringSlice("address", nil, "extra contract addresses (comma-separated)")
	runCmd.Flags().StringSlice("topic0", nil, "extra topic0 signatures (comma-separated)")
	runCmd.Flags().Uint64("batch-size", 2000, "blocks per batch")
	runCmd.Flags().String("out", "./data/logs.jsonl", "output JSONL path")
	runCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	runCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	runCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	runCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	runCmd.Flags().Bool("skip-tx-meta", false, "do not fetch sender and gas of each log's transaction")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode raw logs into typed hub events",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/typed_events.jsonl", "output typed events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().String("hub-address", "", "only decode hub events emitted by this address")
	decodeCmd.Flags().String("manager-address", "", "only decode transfers emitted by this address")
	decodeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(decodeCmd)

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Replay typed events into the entity store",
		RunE:  runIndex,
	}

	indexCmd.Flags().String("in", "", "input typed events JSONL")
	indexCmd.Flags().String("pg-dsn", "", "Postgres DSN; empty keeps entities in memory")
	indexCmd.Flags().String("snapshot", "", "in-memory store snapshot JSONL, restored before and written after the run")
	indexCmd.Flags().String("rpc", "", "archive RPC URL for hub state reads")
	indexCmd.Flags().String("hub-address", "", "hub contract address")
	indexCmd.Flags().String("manager-address", "", "position manager contract address")
	indexCmd.Flags().String("weth-address", "", "wrapped native token address")
	indexCmd.Flags().String("usdc-address", "", "USD stable token paired with WETH for the ETH price")
	indexCmd.Flags().StringSlice("whitelist-tokens", nil, "tokens trusted for derived ETH pricing")
	indexCmd.Flags().StringSlice("stable-coins", nil, "tokens priced at one USD")
	indexCmd.Flags().Int("max-tick-updates", 50, "tick fee refreshes allowed per event")
	indexCmd.Flags().String("minimum-eth-locked", "52", "ETH locked a tier needs to price its tokens")
	indexCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address")
	indexCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(indexCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}

	addresses, err := indexer.ParseAddresses(cfg.ContractAddresses())
	if err != nil {
		return err
	}
	if len(addresses) == 0 {
		return fmt.Errorf("hub or manager address is required")
	}

	extra, err := indexer.ParseTopic0(cfg.Topic0)
	if err != nil {
		return err
	}
	decoder, err := hub.NewDecoder(hub.DecoderConfig{})
	if err != nil {
		return err
	}
	topic0 := indexer.MergeTopics(decoder.Topics(), extra...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	storageSink := storage.NewJsonlStorage(cfg.Out)

	runner := indexer.NewRunner(indexer.RunConfig{
		FromBlock:         cfg.FromBlock,
		ToBlock:           cfg.ToBlock,
		Addresses:         addresses,
		Topic0:            topic0,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		SkipTxMeta:        cfg.SkipTxMeta,
	}, chainClient, storageSink, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.Uint64("from", cfg.FromBlock),
		zap.Uint64("to", cfg.ToBlock),
		zap.Int("addresses", len(addresses)),
		zap.Int("topic0", len(topic0)),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("out", cfg.Out),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.Bool("skip_tx_meta", cfg.SkipTxMeta),
	)

	return runner.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
