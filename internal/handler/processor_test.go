package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/tickmap"
)

func jsonl(t *testing.T, records ...model.TypedEventRecord) string {
	t.Helper()
	var buf bytes.Buffer
	for _, rec := range records {
		line, err := json.Marshal(rec)
		require.NoError(t, err)
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.String()
}

func TestProcessorResumesFromCursor(t *testing.T) {
	f := newFixture(t, 50)
	created := f.record(model.EventPoolCreated, model.PoolCreatedEventData{Token0: usdc, Token1: weth, PoolID: f.poolID})
	tier := f.record(model.EventUpdateTier, model.UpdateTierEventData{PoolID: f.poolID, SqrtGamma: 99850})
	mint := f.record(model.EventMint, mintData(alice, 1, -200, 200, 1000))
	input := jsonl(t, created, tier, mint)

	p := NewProcessor(f.mem, f.h, nil)
	stats, err := p.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Applied: 3}, stats)

	cursor := load[model.Cursor](t, f.mem, store.KindCursor, model.CursorID)
	assert.Equal(t, model.Cursor{BlockNumber: mint.BlockNumber, LogIndex: 0}, *cursor)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.LastBlock))

	stats, err = p.Run(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Covered: 3}, stats)
	assert.Equal(t, 1, f.mem.Count(store.KindMint))
}

func TestProcessorDropsEventsWithMissingEntities(t *testing.T) {
	f := newFixture(t, 50)
	orphan := f.record(model.EventSwap, swapData(t, 300, big.NewInt(1)))
	p := NewProcessor(f.mem, f.h, nil)

	stats, err := p.Run(context.Background(), strings.NewReader(jsonl(t, orphan)+"{not json\n"))
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 2, Failed: 1, Malformed: 1}, stats)

	assert.Equal(t, 0, f.mem.Count(store.KindHub), "dropped event leaves no entities")
	cursor := load[model.Cursor](t, f.mem, store.KindCursor, model.CursorID)
	assert.Equal(t, orphan.BlockNumber, cursor.BlockNumber)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EventFailures.WithLabelValues(model.EventSwap, "not_found")))
}

func TestProcessorRejectsUnorderedInput(t *testing.T) {
	f := newFixture(t, 50)
	first := f.record(model.EventPoolCreated, model.PoolCreatedEventData{Token0: usdc, Token1: weth, PoolID: f.poolID})
	second := f.record(model.EventUpdateTier, model.UpdateTierEventData{PoolID: f.poolID, SqrtGamma: 99850})

	_, err := NewProcessor(f.mem, f.h, nil).Run(context.Background(), strings.NewReader(jsonl(t, second, first)))
	require.ErrorIs(t, err, ErrOutOfOrder)
}

type failingStore struct {
	*store.MemoryStore
}

var errDiskFull = errors.New("disk full")

func (failingStore) Apply(context.Context, []store.Op) error { return errDiskFull }

func TestProcessorHaltsOnStoreFailure(t *testing.T) {
	f := newFixture(t, 50)
	created := f.record(model.EventPoolCreated, model.PoolCreatedEventData{Token0: usdc, Token1: weth, PoolID: f.poolID})

	st := failingStore{MemoryStore: f.mem}
	_, err := NewProcessor(st, f.h, nil).Run(context.Background(), strings.NewReader(jsonl(t, created)))
	require.ErrorIs(t, err, errDiskFull)
	assert.False(t, exists(t, f.mem, store.KindCursor, model.CursorID))
}

func TestProcessorHaltsOnDanglingTickLink(t *testing.T) {
	f := newFixture(t, 50)
	created := f.record(model.EventPoolCreated, model.PoolCreatedEventData{Token0: usdc, Token1: weth, PoolID: f.poolID})
	tier := f.record(model.EventUpdateTier, model.UpdateTierEventData{PoolID: f.poolID, SqrtGamma: 99850})
	p := NewProcessor(f.mem, f.h, nil)
	_, err := p.Run(context.Background(), strings.NewReader(jsonl(t, created, tier)))
	require.NoError(t, err)

	// MinTick still links to MaxTick, whose record is gone.
	require.NoError(t, f.mem.Apply(context.Background(), []store.Op{
		{Kind: store.KindTick, ID: model.TickID(f.tierID(), hubmath.MaxTick), Delete: true},
	}))

	mint := f.record(model.EventMint, mintData(alice, 1, -100, 100, 1000))
	_, err = p.Run(context.Background(), strings.NewReader(jsonl(t, mint)))
	require.ErrorIs(t, err, tickmap.ErrIndexCorrupt)

	cursor := load[model.Cursor](t, f.mem, store.KindCursor, model.CursorID)
	assert.Equal(t, model.Cursor{BlockNumber: tier.BlockNumber, LogIndex: tier.LogIndex}, *cursor)
	assert.Equal(t, 0, f.mem.Count(store.KindMint))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.EventFailures.WithLabelValues(model.EventMint, "not_found")))
}
