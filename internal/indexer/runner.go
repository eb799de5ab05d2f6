package indexer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"hubScope/internal/model"
	"hubScope/internal/storage"
)

// Chain is the subset of the RPC client the runner reads from.
type Chain interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
	TransactionMeta(ctx context.Context, hash common.Hash) (model.TxMeta, error)
}

// RunConfig holds runtime settings for the log runner.
type RunConfig struct {
	FromBlock         uint64
	ToBlock           uint64
	Addresses         []common.Address
	Topic0            []common.Hash
	BatchSize         uint64
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	// SkipTxMeta leaves LogRecord.Tx empty instead of fetching the
	// transaction of every log.
	SkipTxMeta bool
}

// Runner streams hub and manager logs from the chain into storage.
type Runner struct {
	cfg        RunConfig
	chain      Chain
	storage    storage.Storage
	logger     *zap.Logger
	seen       map[string]struct{}
	checkpoint *CheckpointStore
	backoff    backoff
}

func NewRunner(cfg RunConfig, chainClient Chain, storageSink storage.Storage, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		chain:      chainClient,
		storage:    storageSink,
		logger:     logger,
		seen:       make(map[string]struct{}),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
		backoff:    newBackoff(cfg.MaxRetries, cfg.RetryBackoff),
	}
}

// Run fetches every batch of the configured range, resuming after the
// last checkpointed block.
func (r *Runner) Run(ctx context.Context) error {
	if r.chain == nil {
		return fmt.Errorf("chain client is nil")
	}
	if r.storage == nil {
		return fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize == 0 {
		return fmt.Errorf("batch size must be greater than zero")
	}
	if len(r.cfg.Addresses) == 0 {
		return fmt.Errorf("at least one address is required")
	}

	chainID, err := r.chain.GetChainID(ctx)
	if err != nil {
		return fmt.Errorf("get chain id: %w", err)
	}
	if !chainID.IsUint64() {
		return fmt.Errorf("chain id does not fit in uint64: %s", chainID)
	}

	from, to, err := r.bounds(ctx, chainID.Uint64())
	if err != nil {
		return err
	}
	if from > to {
		r.logger.Info("nothing to sync", zap.Uint64("from", from), zap.Uint64("to", to))
		return nil
	}

	ranges, err := SplitRange(from, to, r.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, blockRange := range ranges {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.runBatch(ctx, chainID.Uint64(), blockRange)
		if err != nil {
			return err
		}
		if err := r.checkpoint.Save(chainID.Uint64(), blockRange.To); err != nil {
			return err
		}
		r.logger.Info("batch complete", zap.Int("logs", n), zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))
	}
	return nil
}

func (r *Runner) bounds(ctx context.Context, chainID uint64) (uint64, uint64, error) {
	from := r.cfg.FromBlock
	to := r.cfg.ToBlock
	if to == 0 {
		latest, err := r.chain.LatestBlockNumber(ctx)
		if err != nil {
			return 0, 0, fmt.Errorf("get latest block: %w", err)
		}
		to = latest
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return 0, 0, err
	}
	if ok {
		if cp.ChainID != 0 && cp.ChainID != chainID {
			return 0, 0, fmt.Errorf("checkpoint chain %d does not match rpc chain %d", cp.ChainID, chainID)
		}
		if cp.LastProcessedBlock >= from {
			from = cp.LastProcessedBlock + 1
			r.logger.Info("resume from checkpoint", zap.Uint64("last_processed", cp.LastProcessedBlock), zap.Uint64("from", from))
		}
	}
	return from, to, nil
}

func (r *Runner) runBatch(ctx context.Context, chainID uint64, blockRange BlockRange) (int, error) {
	r.logger.Debug("fetch logs", zap.Uint64("from", blockRange.From), zap.Uint64("to", blockRange.To))

	var logs []types.Log
	err := r.retry(ctx, "filter logs", func(ctx context.Context) error {
		var err error
		logs, err = r.chain.FilterLogs(ctx, blockRange.From, blockRange.To, r.cfg.Addresses, r.cfg.Topic0)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("filter logs: %w", err)
	}

	ingestedAt := time.Now().UTC()
	records := make([]model.LogRecord, 0, len(logs))
	for _, log := range logs {
		if r.isDuplicate(log) {
			continue
		}

		var ts uint64
		err := r.retry(ctx, "block timestamp", func(ctx context.Context) error {
			var err error
			ts, err = r.chain.BlockTimestamp(ctx, log.BlockNumber)
			return err
		})
		if err != nil {
			return 0, fmt.Errorf("block timestamp %d: %w", log.BlockNumber, err)
		}

		var tx *model.TxMeta
		if !r.cfg.SkipTxMeta {
			var meta model.TxMeta
			err := r.retry(ctx, "transaction meta", func(ctx context.Context) error {
				var err error
				meta, err = r.chain.TransactionMeta(ctx, log.TxHash)
				return err
			})
			if err != nil {
				return 0, fmt.Errorf("transaction %s: %w", log.TxHash.Hex(), err)
			}
			tx = &meta
		}
		records = append(records, buildLogRecord(chainID, log, ts, tx, ingestedAt))
	}

	if err := r.storage.PutLogBatch(records); err != nil {
		return 0, fmt.Errorf("store logs: %w", err)
	}
	return len(records), nil
}

func (r *Runner) retry(ctx context.Context, op string, fn func(context.Context) error) error {
	return r.backoff.do(ctx, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			r.logger.Warn(op+" failed", zap.Error(err))
		}
		return err
	})
}

func (r *Runner) isDuplicate(log types.Log) bool {
	id := fmt.Sprintf("%d:%s:%d", log.BlockNumber, log.TxHash.Hex(), log.Index)
	if _, ok := r.seen[id]; ok {
		return true
	}
	r.seen[id] = struct{}{}
	return false
}
