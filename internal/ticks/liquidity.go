package ticks

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
)

// PositionChange is a signed liquidity change of one hub position.
type PositionChange struct {
	Owner          common.Address
	PositionRefID  *big.Int
	TickLower      int32
	TickUpper      int32
	LiquidityDelta *big.Int
}

// ReferenceTick is the tick the tier's price is considered to be in. A price
// sitting exactly on the cached upper neighbour has not crossed it yet.
func (c *Controller) ReferenceTick() (int32, error) {
	ref, err := hubmath.SqrtPriceX72ToTick(c.tier.SqrtPrice)
	if err != nil {
		return 0, fmt.Errorf("tier %s: %w", c.tier.ID, err)
	}
	if ref == c.tier.NextTickAbove {
		ref--
	}
	return ref, nil
}

// HandleMintOrBurn applies a mint (positive delta) or burn (negative delta)
// to the tier, its boundary ticks and the hub position, and returns the
// position. The caller saves the flagged ticks.
func (c *Controller) HandleMintOrBurn(ctx context.Context, change PositionChange) (*model.HubPosition, error) {
	lower, upper, delta := change.TickLower, change.TickUpper, change.LiquidityDelta
	if lower >= upper || lower < hubmath.MinTick || upper > hubmath.MaxTick {
		return nil, fmt.Errorf("position [%d, %d): %w", lower, upper, ErrInvalidRange)
	}
	if delta == nil {
		delta = new(big.Int)
	}

	ref, err := c.ReferenceTick()
	if err != nil {
		return nil, err
	}
	if c.tier.Liquidity == nil {
		c.tier.Liquidity = new(big.Int)
	}
	if lower <= ref && ref < upper {
		c.tier.Liquidity = new(big.Int).Add(c.tier.Liquidity, delta)
	}

	lowerTick, err := c.updateTick(ctx, ref, lower, delta, true)
	if err != nil {
		return nil, fmt.Errorf("update lower tick: %w", err)
	}
	upperTick, err := c.updateTick(ctx, ref, upper, delta, false)
	if err != nil {
		return nil, fmt.Errorf("update upper tick: %w", err)
	}
	c.tightenTierNextTicks(ref, lower)
	c.tightenTierNextTicks(ref, upper)
	c.touchTier()

	pos, err := c.applyToPosition(ctx, change, delta)
	if err != nil {
		return nil, err
	}

	if delta.Sign() < 0 {
		removedLower, err := c.RemoveIfEmpty(ctx, lowerTick)
		if err != nil {
			return nil, err
		}
		removedUpper, err := c.RemoveIfEmpty(ctx, upperTick)
		if err != nil {
			return nil, err
		}
		if removedLower || removedUpper {
			if err := c.ResetTierNextTicks(ctx, ref); err != nil {
				return nil, err
			}
		}
	}
	return pos, nil
}

func (c *Controller) updateTick(ctx context.Context, ref, idx int32, delta *big.Int, isLower bool) (*model.Tick, error) {
	t, ok, err := c.TryGet(ctx, idx)
	if err != nil {
		return nil, err
	}
	if !ok || t.LiquidityGross.Sign() == 0 {
		if ok {
			t, err = c.reset(t)
		} else {
			t, err = c.Get(ctx, idx)
		}
		if err != nil {
			return nil, err
		}
		if delta.Sign() > 0 {
			if err := c.InsertIntoList(ctx, t); err != nil {
				return nil, err
			}
		}
		if idx <= ref {
			t.FeeGrowthOutside0X64 = cloneU256(c.tier.FeeGrowthGlobal0X64)
			t.FeeGrowthOutside1X64 = cloneU256(c.tier.FeeGrowthGlobal1X64)
		}
	}

	if isLower {
		t.LiquidityNet = new(big.Int).Add(t.LiquidityNet, delta)
	} else {
		t.LiquidityNet = new(big.Int).Sub(t.LiquidityNet, delta)
	}
	t.LiquidityGross = new(big.Int).Add(t.LiquidityGross, delta)
	c.FlagUpdated(t)
	return t, nil
}

func (c *Controller) tightenTierNextTicks(ref, idx int32) {
	if idx <= ref && idx > c.tier.NextTickBelow {
		c.tier.NextTickBelow = idx
	} else if idx > ref && idx < c.tier.NextTickAbove {
		c.tier.NextTickAbove = idx
	}
}

func (c *Controller) applyToPosition(ctx context.Context, change PositionChange, delta *big.Int) (*model.HubPosition, error) {
	refID := change.PositionRefID
	if refID == nil {
		refID = new(big.Int)
	}
	id := model.HubPositionID(c.tier.PoolID, change.Owner, refID, c.tier.TierIdx, change.TickLower, change.TickUpper)
	pos, ok, err := store.Get[model.HubPosition](ctx, c.sess, store.KindHubPosition, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		pos = &model.HubPosition{
			ID:            id,
			Owner:         model.AddressID(change.Owner),
			PositionRefID: new(big.Int).Set(refID),
			PoolID:        c.tier.PoolID,
			TierID:        c.tier.ID,
			TierIdx:       c.tier.TierIdx,
			TickLower:     change.TickLower,
			TickUpper:     change.TickUpper,
			Token0:        c.tier.Token0,
			Token1:        c.tier.Token1,
			Liquidity:     new(big.Int),
		}
	}
	if pos.Liquidity == nil {
		pos.Liquidity = new(big.Int)
	}
	pos.Liquidity = new(big.Int).Add(pos.Liquidity, delta)

	if pos.LimitOrderType != model.LimitOrderNone {
		if err := c.UpdateLimitOrderData(ctx, change.TickLower, change.TickUpper, pos.LimitOrderType, delta); err != nil {
			return nil, err
		}
		if pos.Liquidity.Sign() == 0 {
			pos.LimitOrderType = model.LimitOrderNone
		}
	}
	store.Put(c.sess, store.KindHubPosition, id, pos)
	return pos, nil
}

func cloneU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
