package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubScope/internal/model"
)

type fakeChain struct {
	logs       []types.Log
	latest     uint64
	ranges     []BlockRange
	txCalls    int
	failFilter int
}

func (f *fakeChain) GetChainID(context.Context) (*big.Int, error) { return big.NewInt(1), nil }

func (f *fakeChain) LatestBlockNumber(context.Context) (uint64, error) { return f.latest, nil }

func (f *fakeChain) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	return 1_700_000_000 + number*12, nil
}

func (f *fakeChain) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	if f.failFilter > 0 {
		f.failFilter--
		return nil, errors.New("429 too many requests")
	}
	f.ranges = append(f.ranges, BlockRange{From: from, To: to})
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	return out, nil
}

func (f *fakeChain) TransactionMeta(context.Context, common.Hash) (model.TxMeta, error) {
	f.txCalls++
	return model.TxMeta{From: "0x00000000000000000000000000000000000000aa", GasPrice: "5", GasLimit: 21000}, nil
}

type memorySink struct {
	records []model.LogRecord
}

func (m *memorySink) PutLogBatch(logs []model.LogRecord) error {
	m.records = append(m.records, logs...)
	return nil
}

var hubAddress = common.HexToAddress("0x00000000000000000000000000000000000000B0")

func hubLog(block uint64, index uint) types.Log {
	return types.Log{
		Address:     hubAddress,
		Topics:      []common.Hash{common.HexToHash("0x01")},
		BlockNumber: block,
		TxHash:      common.BigToHash(big.NewInt(int64(block))),
		Index:       index,
	}
}

func TestRunnerFetchesEnrichesAndCheckpoints(t *testing.T) {
	chain := &fakeChain{
		latest:     12,
		failFilter: 1,
		logs:       []types.Log{hubLog(10, 0), hubLog(10, 1), hubLog(12, 0)},
	}
	sink := &memorySink{}
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")
	cfg := RunConfig{
		FromBlock:         10,
		Addresses:         []common.Address{hubAddress},
		BatchSize:         2,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
		MaxRetries:        2,
		RetryBackoff:      1,
	}

	require.NoError(t, NewRunner(cfg, chain, sink, nil).Run(context.Background()))
	assert.Equal(t, []BlockRange{{From: 10, To: 11}, {From: 12, To: 12}}, chain.ranges)
	require.Len(t, sink.records, 3)
	assert.Equal(t, 3, chain.txCalls)

	first := sink.records[0]
	assert.Equal(t, "0x00000000000000000000000000000000000000b0", first.Address)
	assert.Equal(t, uint64(1_700_000_120), first.Timestamp)
	require.NotNil(t, first.Tx)
	assert.Equal(t, uint64(21000), first.Tx.GasLimit)

	cp, ok, err := NewCheckpointStore(checkpoint, true).Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(12), cp.LastProcessedBlock)
	assert.Equal(t, uint64(1), cp.ChainID)

	// A rerun resumes past the checkpoint and fetches nothing.
	chain.ranges = nil
	require.NoError(t, NewRunner(cfg, chain, sink, nil).Run(context.Background()))
	assert.Empty(t, chain.ranges)
	assert.Len(t, sink.records, 3)
}

func TestRunnerRejectsForeignCheckpoint(t *testing.T) {
	checkpoint := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, NewCheckpointStore(checkpoint, true).Save(56, 100))

	cfg := RunConfig{
		FromBlock:         1,
		ToBlock:           200,
		Addresses:         []common.Address{hubAddress},
		BatchSize:         10,
		CheckpointPath:    checkpoint,
		CheckpointEnabled: true,
	}
	err := NewRunner(cfg, &fakeChain{}, &memorySink{}, nil).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestRunnerSkipsTxMeta(t *testing.T) {
	chain := &fakeChain{logs: []types.Log{hubLog(3, 0), hubLog(3, 0)}}
	sink := &memorySink{}
	cfg := RunConfig{
		FromBlock:  3,
		ToBlock:    3,
		Addresses:  []common.Address{hubAddress},
		BatchSize:  5,
		SkipTxMeta: true,
	}

	require.NoError(t, NewRunner(cfg, chain, sink, nil).Run(context.Background()))
	require.Len(t, sink.records, 1, "duplicate log is dropped")
	assert.Nil(t, sink.records[0].Tx)
	assert.Zero(t, chain.txCalls)
}

func TestMergeTopics(t *testing.T) {
	a, b := common.HexToHash("0x0a"), common.HexToHash("0x0b")
	assert.Equal(t, []common.Hash{a, b}, MergeTopics([]common.Hash{a}, b, a))
}
