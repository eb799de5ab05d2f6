package ticks

import (
	"context"
	"fmt"
	"math/big"

	"hubScope/internal/model"
)

// UpdateLimitOrderData adds delta to the limit order liquidity held at the end
// tick of [lower, upper): the upper tick for zero-for-one orders and the lower
// tick for one-for-zero orders.
func (c *Controller) UpdateLimitOrderData(ctx context.Context, lower, upper int32, direction uint8, delta *big.Int) error {
	switch direction {
	case model.LimitOrderZeroForOne:
		t, err := c.Get(ctx, upper)
		if err != nil {
			return err
		}
		t.LimitOrderLiquidity0For1 = new(big.Int).Add(t.LimitOrderLiquidity0For1, delta)
		t.LimitOrderTickSpacing0For1 = spacingFor(t.LimitOrderLiquidity0For1, lower, upper)
		c.FlagUpdated(t)
	case model.LimitOrderOneForZero:
		t, err := c.Get(ctx, lower)
		if err != nil {
			return err
		}
		t.LimitOrderLiquidity1For0 = new(big.Int).Add(t.LimitOrderLiquidity1For0, delta)
		t.LimitOrderTickSpacing1For0 = spacingFor(t.LimitOrderLiquidity1For0, lower, upper)
		c.FlagUpdated(t)
	default:
		return fmt.Errorf("limit order direction %d: %w", direction, ErrInvalidRange)
	}
	return nil
}

func spacingFor(liquidity *big.Int, lower, upper int32) int32 {
	if liquidity.Sign() == 0 {
		return 0
	}
	return upper - lower
}

// Settle fills the limit orders that end at end in direction: their liquidity
// is withdrawn from both boundaries as if burned. It reports whether any order
// was pending and whether end itself was removed from the list, in which case
// the tier's pointers already bracket its former neighbours.
func (c *Controller) Settle(ctx context.Context, end *model.Tick, direction uint8) (settled, removed bool, err error) {
	var (
		spacing   int32
		liquidity *big.Int
		startIdx  int32
	)
	switch direction {
	case model.LimitOrderZeroForOne:
		spacing, liquidity = end.LimitOrderTickSpacing0For1, end.LimitOrderLiquidity0For1
		startIdx = end.TickIdx - spacing
	case model.LimitOrderOneForZero:
		spacing, liquidity = end.LimitOrderTickSpacing1For0, end.LimitOrderLiquidity1For0
		startIdx = end.TickIdx + spacing
	default:
		return false, false, fmt.Errorf("limit order direction %d: %w", direction, ErrInvalidRange)
	}
	if spacing == 0 {
		return false, false, nil
	}

	start, err := c.mustGet(ctx, startIdx)
	if err != nil {
		return false, false, fmt.Errorf("settle tick %d: %w", end.TickIdx, err)
	}
	liquidity = new(big.Int).Set(liquidity)

	start.LiquidityGross = new(big.Int).Sub(start.LiquidityGross, liquidity)
	end.LiquidityGross = new(big.Int).Sub(end.LiquidityGross, liquidity)
	if direction == model.LimitOrderZeroForOne {
		start.LiquidityNet = new(big.Int).Sub(start.LiquidityNet, liquidity)
		end.LiquidityNet = new(big.Int).Add(end.LiquidityNet, liquidity)
		end.LimitOrderTickSpacing0For1 = 0
		end.LimitOrderLiquidity0For1 = new(big.Int)
	} else {
		start.LiquidityNet = new(big.Int).Add(start.LiquidityNet, liquidity)
		end.LiquidityNet = new(big.Int).Sub(end.LiquidityNet, liquidity)
		end.LimitOrderTickSpacing1For0 = 0
		end.LimitOrderLiquidity1For0 = new(big.Int)
	}
	c.FlagUpdated(start)
	c.FlagUpdated(end)

	if start.LiquidityGross.Sign() == 0 {
		if err := c.unlink(ctx, start); err != nil {
			return true, false, err
		}
	}
	if end.LiquidityGross.Sign() == 0 {
		// end's neighbours may have moved if start was adjacent to it
		if err := c.unlink(ctx, end); err != nil {
			return true, false, err
		}
		c.tier.NextTickBelow = end.NextBelow
		c.tier.NextTickAbove = end.NextAbove
		c.touchTier()
		return true, true, nil
	}
	return true, false, nil
}
