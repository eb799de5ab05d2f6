package ticks

import (
	"context"
	"fmt"
	"math/big"

	"hubScope/internal/model"
	"hubScope/internal/store"
)

// FeeSource reads a tick's on-chain state.
type FeeSource interface {
	GetTick(ctx context.Context, poolID string, tierIdx uint8, tick int32) (*model.ChainTick, error)
}

// SaveResult counts what Save wrote.
type SaveResult struct {
	Saved     int
	Deleted   int
	Refreshed int
	Skipped   int
}

// Save stages every flagged tick. Ticks left with zero gross liquidity are
// deleted. Up to budget surviving ticks get their fee growth outside
// refreshed from src; the rest keep their previous values.
func (c *Controller) Save(ctx context.Context, src FeeSource, budget int) (SaveResult, error) {
	var res SaveResult
	for _, idx := range c.Flagged() {
		t := c.cache[idx]
		if t.LiquidityGross.Sign() == 0 {
			c.sess.Delete(store.KindTick, t.ID)
			res.Deleted++
			continue
		}

		if src != nil && res.Refreshed < budget {
			onChain, err := src.GetTick(ctx, c.tier.PoolID, c.tier.TierIdx, idx)
			if err != nil {
				return res, fmt.Errorf("refresh tick %d of tier %s: %w", idx, c.tier.ID, err)
			}
			t.FeeGrowthOutside0X64 = cloneU256(onChain.FeeGrowthOutside0)
			t.FeeGrowthOutside1X64 = cloneU256(onChain.FeeGrowthOutside1)
			res.Refreshed++
		} else if src != nil {
			res.Skipped++
		}

		store.Put(c.sess, store.KindTick, t.ID, t)
		c.saveDayData(t)
		res.Saved++
	}
	c.flagged = make(map[int32]struct{})
	return res, nil
}

func (c *Controller) saveDayData(t *model.Tick) {
	id := model.IntervalID(t.ID, model.DayIndex(c.timestamp))
	store.Put(c.sess, store.KindTickDayData, id, &model.TickDayData{
		ID:                   id,
		Date:                 model.DayIndex(c.timestamp) * 86400,
		PoolID:               t.PoolID,
		TierID:               t.TierID,
		TickID:               t.ID,
		LiquidityGross:       new(big.Int).Set(t.LiquidityGross),
		LiquidityNet:         new(big.Int).Set(t.LiquidityNet),
		FeeGrowthOutside0X64: cloneU256(t.FeeGrowthOutside0X64),
		FeeGrowthOutside1X64: cloneU256(t.FeeGrowthOutside1X64),
	})
}
