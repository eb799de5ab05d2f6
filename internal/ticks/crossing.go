package ticks

import (
	"context"
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"hubScope/internal/hubmath"
	"hubScope/internal/model"
)

// CrossResult counts the work done by one Cross call.
type CrossResult struct {
	Crossed int
	Settled int
}

// Cross walks the tier from its cached position to the tick of sqrtPrice,
// settling limit orders on every tick it passes, then adopts liquidity and
// sqrtPrice as the tier's state. The new values come from the chain; nothing
// is recomputed here.
func (c *Controller) Cross(ctx context.Context, liquidity *big.Int, sqrtPrice *uint256.Int) (CrossResult, error) {
	var res CrossResult
	newTick, err := hubmath.SqrtPriceX72ToTick(sqrtPrice)
	if err != nil {
		return res, fmt.Errorf("tier %s: %w", c.tier.ID, err)
	}

	if sqrtPrice.Lt(c.tier.SqrtPrice) {
		if newTick != hubmath.MinTick {
			// landing on an initialized tick going down means it was crossed
			set, err := c.bitmap.IsSet(ctx, newTick)
			if err != nil {
				return res, err
			}
			if set {
				newTick--
			}
		}
		for c.tier.NextTickBelow > newTick {
			t, err := c.mustGet(ctx, c.tier.NextTickBelow)
			if err != nil {
				return res, err
			}
			c.FlagUpdated(t)
			settled, removed, err := c.Settle(ctx, t, model.LimitOrderOneForZero)
			if err != nil {
				return res, err
			}
			if settled {
				res.Settled++
			}
			if !removed {
				c.tier.NextTickAbove = t.TickIdx
				c.tier.NextTickBelow = t.NextBelow
			}
			res.Crossed++
		}
	} else {
		if newTick == hubmath.MaxTick {
			newTick--
		}
		for c.tier.NextTickAbove <= newTick {
			t, err := c.mustGet(ctx, c.tier.NextTickAbove)
			if err != nil {
				return res, err
			}
			c.FlagUpdated(t)
			settled, removed, err := c.Settle(ctx, t, model.LimitOrderZeroForOne)
			if err != nil {
				return res, err
			}
			if settled {
				res.Settled++
			}
			if !removed {
				c.tier.NextTickBelow = t.TickIdx
				c.tier.NextTickAbove = t.NextAbove
			}
			res.Crossed++
		}
	}

	c.tier.Liquidity = new(big.Int).Set(liquidity)
	c.tier.SqrtPrice = new(uint256.Int).Set(sqrtPrice)
	c.tier.Tick = newTick
	c.touchTier()
	return res, nil
}
