// Package ticks maintains the ticks of one tier: the tick records, the
// ascending linked list threading them, the bitmap that indexes them, and the
// tier's cached pointers to the ticks bracketing its price.
//
// A Controller lives for one event. Ticks it touches are cached by pointer,
// so every caller in the event mutates the same instance, and only flagged
// ticks are written back by Save.
package ticks

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/holiman/uint256"

	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/tickmap"
)

var ErrInvalidRange = errors.New("invalid tick range")

// Controller edits the ticks of a single tier.
type Controller struct {
	sess      *store.Session
	tier      *model.Tier
	bitmap    *tickmap.Map
	block     uint64
	timestamp uint64

	cache   map[int32]*model.Tick
	flagged map[int32]struct{}
}

// NewController binds a controller to tier. tier must be the instance held by
// sess; the controller mutates it in place and stages it for writing.
func NewController(sess *store.Session, tier *model.Tier, block, timestamp uint64) *Controller {
	return &Controller{
		sess:      sess,
		tier:      tier,
		bitmap:    tickmap.New(sess, tier.ID),
		block:     block,
		timestamp: timestamp,
		cache:     make(map[int32]*model.Tick),
		flagged:   make(map[int32]struct{}),
	}
}

func (c *Controller) Tier() *model.Tier { return c.tier }

func (c *Controller) Bitmap() *tickmap.Map { return c.bitmap }

func (c *Controller) touchTier() {
	store.Put(c.sess, store.KindTier, c.tier.ID, c.tier)
}

// TryGet loads a tick without creating it.
func (c *Controller) TryGet(ctx context.Context, idx int32) (*model.Tick, bool, error) {
	if t, ok := c.cache[idx]; ok {
		return t, true, nil
	}
	t, ok, err := store.Get[model.Tick](ctx, c.sess, store.KindTick, model.TickID(c.tier.ID, idx))
	if err != nil || !ok {
		return nil, false, err
	}
	normalize(t)
	c.cache[idx] = t
	return t, true, nil
}

// Get loads a tick, creating an empty one if it does not exist.
func (c *Controller) Get(ctx context.Context, idx int32) (*model.Tick, error) {
	t, ok, err := c.TryGet(ctx, idx)
	if err != nil {
		return nil, err
	}
	if ok {
		return t, nil
	}
	t, err = c.newTick(idx, c.timestamp, c.block)
	if err != nil {
		return nil, err
	}
	c.cache[idx] = t
	return t, nil
}

func (c *Controller) newTick(idx int32, createdAt, createdAtBlock uint64) (*model.Tick, error) {
	price0, price1, err := hubmath.TickPrices(idx)
	if err != nil {
		return nil, fmt.Errorf("tick %d: %w", idx, err)
	}
	return &model.Tick{
		ID:                       model.TickID(c.tier.ID, idx),
		PoolID:                   c.tier.PoolID,
		TierID:                   c.tier.ID,
		TierIdx:                  c.tier.TierIdx,
		TickIdx:                  idx,
		CreatedAtTimestamp:       createdAt,
		CreatedAtBlockNumber:     createdAtBlock,
		LiquidityGross:           new(big.Int),
		LiquidityNet:             new(big.Int),
		Price0:                   price0,
		Price1:                   price1,
		FeeGrowthOutside0X64:     new(uint256.Int),
		FeeGrowthOutside1X64:     new(uint256.Int),
		LimitOrderLiquidity0For1: new(big.Int),
		LimitOrderLiquidity1For0: new(big.Int),
	}, nil
}

// reset replaces the cached tick at idx with an empty one, keeping its
// creation stamp.
func (c *Controller) reset(old *model.Tick) (*model.Tick, error) {
	t, err := c.newTick(old.TickIdx, old.CreatedAtTimestamp, old.CreatedAtBlockNumber)
	if err != nil {
		return nil, err
	}
	c.cache[old.TickIdx] = t
	return t, nil
}

// FlagUpdated marks a tick for the final save.
func (c *Controller) FlagUpdated(t *model.Tick) {
	c.flagged[t.TickIdx] = struct{}{}
}

// Flagged returns the flagged tick indexes in ascending order.
func (c *Controller) Flagged() []int32 {
	out := make([]int32, 0, len(c.flagged))
	for idx := range c.flagged {
		out = append(out, idx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// InsertIntoList links t between the nearest initialized tick below it and
// that tick's upper neighbour, then sets its bitmap bit.
func (c *Controller) InsertIntoList(ctx context.Context, t *model.Tick) error {
	if t.TickIdx <= hubmath.MinTick || t.TickIdx >= hubmath.MaxTick {
		return fmt.Errorf("insert tick %d: %w", t.TickIdx, ErrInvalidRange)
	}
	belowIdx, err := c.bitmap.NextBelowOrEqual(ctx, t.TickIdx-1)
	if err != nil {
		return fmt.Errorf("insert tick %d: %w", t.TickIdx, err)
	}
	below, err := c.mustGet(ctx, belowIdx)
	if err != nil {
		return err
	}
	above, err := c.mustGet(ctx, below.NextAbove)
	if err != nil {
		return err
	}

	below.NextAbove = t.TickIdx
	above.NextBelow = t.TickIdx
	t.NextBelow = below.TickIdx
	t.NextAbove = above.TickIdx

	c.FlagUpdated(below)
	c.FlagUpdated(above)
	c.FlagUpdated(t)
	return c.bitmap.Set(ctx, t.TickIdx)
}

// RemoveIfEmpty unlinks t when its gross liquidity is zero and reports
// whether it did.
func (c *Controller) RemoveIfEmpty(ctx context.Context, t *model.Tick) (bool, error) {
	if t.LiquidityGross.Sign() != 0 {
		return false, nil
	}
	if err := c.unlink(ctx, t); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Controller) unlink(ctx context.Context, t *model.Tick) error {
	if t.TickIdx == hubmath.MinTick || t.TickIdx == hubmath.MaxTick {
		return fmt.Errorf("unlink sentinel tick %d of tier %s: %w", t.TickIdx, c.tier.ID, tickmap.ErrIndexCorrupt)
	}
	below, err := c.mustGet(ctx, t.NextBelow)
	if err != nil {
		return err
	}
	above, err := c.mustGet(ctx, t.NextAbove)
	if err != nil {
		return err
	}
	below.NextAbove = above.TickIdx
	above.NextBelow = below.TickIdx

	c.FlagUpdated(below)
	c.FlagUpdated(above)
	c.FlagUpdated(t)
	return c.bitmap.Unset(ctx, t.TickIdx)
}

// ResetTierNextTicks recomputes the tier's bracketing pointers from the
// bitmap at ref.
func (c *Controller) ResetTierNextTicks(ctx context.Context, ref int32) error {
	belowIdx, err := c.bitmap.NextBelowOrEqual(ctx, ref)
	if err != nil {
		return err
	}
	below, err := c.mustGet(ctx, belowIdx)
	if err != nil {
		return err
	}
	c.tier.NextTickBelow = below.TickIdx
	c.tier.NextTickAbove = below.NextAbove
	c.touchTier()
	return nil
}

// SeedSentinels creates the MinTick and MaxTick sentinels of a new tier,
// each holding BaseLiquidity and linked to the other.
func (c *Controller) SeedSentinels(ctx context.Context) error {
	minTick, err := c.Get(ctx, hubmath.MinTick)
	if err != nil {
		return err
	}
	maxTick, err := c.Get(ctx, hubmath.MaxTick)
	if err != nil {
		return err
	}

	minTick.LiquidityGross = new(big.Int).Set(hubmath.BaseLiquidity)
	minTick.LiquidityNet = new(big.Int).Set(hubmath.BaseLiquidity)
	minTick.NextBelow = hubmath.MinTick
	minTick.NextAbove = hubmath.MaxTick

	maxTick.LiquidityGross = new(big.Int).Set(hubmath.BaseLiquidity)
	maxTick.LiquidityNet = new(big.Int).Neg(hubmath.BaseLiquidity)
	maxTick.NextBelow = hubmath.MinTick
	maxTick.NextAbove = hubmath.MaxTick

	c.FlagUpdated(minTick)
	c.FlagUpdated(maxTick)
	if err := c.bitmap.Set(ctx, hubmath.MinTick); err != nil {
		return err
	}
	return c.bitmap.Set(ctx, hubmath.MaxTick)
}

// mustGet loads a tick that the list or the bitmap says is initialized.
func (c *Controller) mustGet(ctx context.Context, idx int32) (*model.Tick, error) {
	t, ok, err := c.TryGet(ctx, idx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("linked tick %d of tier %s missing: %w", idx, c.tier.ID, tickmap.ErrIndexCorrupt)
	}
	return t, nil
}

func normalize(t *model.Tick) {
	if t.LiquidityGross == nil {
		t.LiquidityGross = new(big.Int)
	}
	if t.LiquidityNet == nil {
		t.LiquidityNet = new(big.Int)
	}
	if t.LimitOrderLiquidity0For1 == nil {
		t.LimitOrderLiquidity0For1 = new(big.Int)
	}
	if t.LimitOrderLiquidity1For0 == nil {
		t.LimitOrderLiquidity1For0 = new(big.Int)
	}
	if t.FeeGrowthOutside0X64 == nil {
		t.FeeGrowthOutside0X64 = new(uint256.Int)
	}
	if t.FeeGrowthOutside1X64 == nil {
		t.FeeGrowthOutside1X64 = new(uint256.Int)
	}
}
