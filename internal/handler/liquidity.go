package handler

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"hubScope/internal/aggregate"
	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/ticks"
)

// liquidityEvent is the part Mint, Burn and CollectSettled have in common.
type liquidityEvent struct {
	poolID        string
	tierIdx       uint8
	owner         string
	positionRefID *big.Int
	tickLower     int32
	tickUpper     int32
	liquidityD8   *big.Int
	amount0       *big.Int
	amount1       *big.Int
	feeAmount0    *big.Int
	feeAmount1    *big.Int
	accountOwner  string
	accRefID      *big.Int
}

func fromMint(data model.MintEventData) (liquidityEvent, error) {
	out := liquidityEvent{
		poolID:       data.PoolID,
		tierIdx:      data.TierID,
		owner:        data.Owner,
		tickLower:    data.TickLower,
		tickUpper:    data.TickUpper,
		accountOwner: data.Sender,
		feeAmount0:   new(big.Int),
		feeAmount1:   new(big.Int),
	}
	var err error
	if out.positionRefID, err = parseBig("position ref id", data.PositionRefID); err != nil {
		return out, err
	}
	if out.liquidityD8, err = parseBig("liquidity", data.LiquidityD8); err != nil {
		return out, err
	}
	if out.amount0, err = parseBig("amount0", data.Amount0); err != nil {
		return out, err
	}
	if out.amount1, err = parseBig("amount1", data.Amount1); err != nil {
		return out, err
	}
	out.accRefID, err = parseBig("sender account", data.SenderAccRefID)
	return out, err
}

func fromBurn(data model.BurnEventData) (liquidityEvent, error) {
	out := liquidityEvent{
		poolID:       data.PoolID,
		tierIdx:      data.TierID,
		owner:        data.Owner,
		tickLower:    data.TickLower,
		tickUpper:    data.TickUpper,
		accountOwner: data.Owner,
	}
	var err error
	if out.positionRefID, err = parseBig("position ref id", data.PositionRefID); err != nil {
		return out, err
	}
	if out.liquidityD8, err = parseBig("liquidity", data.LiquidityD8); err != nil {
		return out, err
	}
	if out.amount0, err = parseBig("amount0", data.Amount0); err != nil {
		return out, err
	}
	if out.amount1, err = parseBig("amount1", data.Amount1); err != nil {
		return out, err
	}
	if out.feeAmount0, err = parseBig("fee amount0", data.FeeAmount0); err != nil {
		return out, err
	}
	if out.feeAmount1, err = parseBig("fee amount1", data.FeeAmount1); err != nil {
		return out, err
	}
	out.accRefID, err = parseBig("owner account", data.OwnerAccRefID)
	return out, err
}

// liquidityKind selects the side effects of a liquidity event.
type liquidityKind int

const (
	kindMint liquidityKind = iota
	kindBurn
	kindCollectSettled
)

func (h *Handlers) mint(ev *event, data model.MintEventData) error {
	le, err := fromMint(data)
	if err != nil {
		return err
	}
	return h.applyLiquidity(ev, le, kindMint)
}

func (h *Handlers) burn(ev *event, data model.BurnEventData) error {
	le, err := fromBurn(data)
	if err != nil {
		return err
	}
	return h.applyLiquidity(ev, le, kindBurn)
}

func (h *Handlers) collectSettled(ev *event, data model.BurnEventData) error {
	le, err := fromBurn(data)
	if err != nil {
		return err
	}
	return h.applyLiquidity(ev, le, kindCollectSettled)
}

func (h *Handlers) applyLiquidity(ev *event, le liquidityEvent, kind liquidityKind) error {
	e, err := h.loadPool(ev, le.poolID)
	if err != nil {
		return err
	}
	tier, err := loadTier(ev, le.poolID, le.tierIdx)
	if err != nil {
		return err
	}
	eth := e.bundle.EthPriceUSD
	amount0 := hubmath.ConvertTokenToDecimal(le.amount0, e.token0.Decimals)
	amount1 := hubmath.ConvertTokenToDecimal(le.amount1, e.token1.Decimals)
	fee0 := hubmath.ConvertTokenToDecimal(le.feeAmount0, e.token0.Decimals)
	fee1 := hubmath.ConvertTokenToDecimal(le.feeAmount1, e.token1.Decimals)
	liquidity := hubmath.DecodeLiquidityD8(le.liquidityD8)
	amountUSD := aggregate.AmountUSD(amount0, e.token0, amount1, e.token1, eth)

	sign := decimal.NewFromInt(1)
	if kind != kindMint {
		sign = decimal.NewFromInt(-1)
	}

	aggregate.DetachTier(e.hub, e.pool, tier)
	e.hub.TxCount++
	e.token0.TxCount++
	e.token1.TxCount++
	aggregate.LockToken(e.token0, amount0.Mul(sign), eth)
	aggregate.LockToken(e.token1, amount1.Mul(sign), eth)
	tier.TxCount++

	var ctrl *ticks.Controller
	if kind != kindCollectSettled {
		// new ticks below the price seed their fee growth outside from the
		// tier globals, so those are brought up to date first
		onChain, err := ev.chain.GetTier(ev.ctx, le.poolID, le.tierIdx)
		if err != nil {
			return fmt.Errorf("tier %s: %w", tier.ID, err)
		}
		tier.FeeGrowthGlobal0X64 = cloneU256(onChain.FeeGrowthGlobal0)
		tier.FeeGrowthGlobal1X64 = cloneU256(onChain.FeeGrowthGlobal1)

		delta := new(big.Int).Set(liquidity)
		if kind == kindBurn {
			delta.Neg(delta)
		}
		ctrl = ticks.NewController(ev.sess, tier, ev.rec.BlockNumber, ev.rec.Timestamp)
		if _, err := ctrl.HandleMintOrBurn(ev.ctx, ticks.PositionChange{
			Owner:          common.HexToAddress(le.owner),
			PositionRefID:  le.positionRefID,
			TickLower:      le.tickLower,
			TickUpper:      le.tickUpper,
			LiquidityDelta: delta,
		}); err != nil {
			return fmt.Errorf("%s liquidity: %w", ev.rec.EventName, err)
		}
	} else if err := settleHubPosition(ev, tier, le, liquidity); err != nil {
		return err
	}

	tier.Amount0 = tier.Amount0.Add(amount0.Mul(sign))
	tier.Amount1 = tier.Amount1.Add(amount1.Mul(sign))
	aggregate.RefreshTierTVL(tier, e.token0, e.token1, eth)
	e.pool.TxCount++
	aggregate.AttachTier(e.hub, e.pool, tier, eth)

	tx := loadTransaction(ev)
	h.recordLiquidityEvent(ev, e, tier, tx, le, kind, liquidity, amount0, amount1, fee0, fee1, amountUSD)

	if err := aggregate.NewIntervals(ev.sess, ev.rec.Timestamp).Touch(ev.ctx, e.hub, e.pool, tier, e.token0, e.token1, eth); err != nil {
		return err
	}
	e.save(ev)
	store.Put(ev.sess, store.KindTier, tier.ID, tier)

	if ctrl != nil {
		if err := h.saveTicks(ev, ctrl); err != nil {
			return err
		}
	}

	if le.owner == h.manager && h.manager != "" {
		if kind == kindMint {
			err = h.increasePosition(ev, le, e, amount0, amount1)
		} else {
			err = h.decreasePosition(ev, le, e, amount0, amount1, fee0, fee1)
		}
		if err != nil {
			return err
		}
	}

	if le.amount0.Sign() > 0 || le.feeAmount0.Sign() > 0 {
		if err := refreshBalance(ev, e.token0, le.accountOwner, le.accRefID); err != nil {
			return err
		}
	}
	if le.amount1.Sign() > 0 || le.feeAmount1.Sign() > 0 {
		if err := refreshBalance(ev, e.token1, le.accountOwner, le.accRefID); err != nil {
			return err
		}
	}
	return nil
}

// settleHubPosition withdraws a settled limit order from its hub position.
// Its ticks were already cleared when the order was crossed.
func settleHubPosition(ev *event, tier *model.Tier, le liquidityEvent, liquidity *big.Int) error {
	id := model.HubPositionID(tier.PoolID, common.HexToAddress(le.owner), le.positionRefID, tier.TierIdx, le.tickLower, le.tickUpper)
	pos, ok, err := store.Get[model.HubPosition](ev.ctx, ev.sess, store.KindHubPosition, id)
	if err != nil || !ok {
		return err
	}
	if pos.Liquidity == nil {
		pos.Liquidity = new(big.Int)
	}
	pos.Liquidity = new(big.Int).Sub(pos.Liquidity, liquidity)
	pos.LimitOrderType = model.LimitOrderNone
	store.Put(ev.sess, store.KindHubPosition, id, pos)
	return nil
}

func (h *Handlers) recordLiquidityEvent(ev *event, e *eventEntities, tier *model.Tier, tx *model.Transaction, le liquidityEvent, kind liquidityKind, liquidity *big.Int, amount0, amount1, fee0, fee1, amountUSD decimal.Decimal) {
	id := model.EventID(tx.ID, e.pool.TxCount)
	if kind == kindMint {
		store.Put(ev.sess, store.KindMint, id, &model.Mint{
			ID:            id,
			TransactionID: tx.ID,
			Timestamp:     tx.Timestamp,
			PoolID:        e.pool.ID,
			TierID:        tier.ID,
			Token0:        e.pool.Token0,
			Token1:        e.pool.Token1,
			Owner:         le.owner,
			PositionRefID: le.positionRefID,
			Sender:        le.accountOwner,
			Origin:        tx.From,
			Amount:        liquidity,
			Amount0:       amount0,
			Amount1:       amount1,
			AmountUSD:     amountUSD,
			TickLower:     le.tickLower,
			TickUpper:     le.tickUpper,
			LogIndex:      ev.rec.LogIndex,
		})
		return
	}

	burn := model.Burn{
		ID:            id,
		TransactionID: tx.ID,
		Timestamp:     tx.Timestamp,
		PoolID:        e.pool.ID,
		TierID:        tier.ID,
		Token0:        e.pool.Token0,
		Token1:        e.pool.Token1,
		Owner:         le.owner,
		PositionRefID: le.positionRefID,
		Origin:        tx.From,
		Amount:        liquidity,
		Amount0:       amount0,
		Amount1:       amount1,
		FeeAmount0:    fee0,
		FeeAmount1:    fee1,
		AmountUSD:     amountUSD,
		TickLower:     le.tickLower,
		TickUpper:     le.tickUpper,
		LogIndex:      ev.rec.LogIndex,
	}
	if kind == kindCollectSettled {
		store.Put(ev.sess, store.KindCollectSettled, id, &model.CollectSettled{Burn: burn})
		return
	}
	store.Put(ev.sess, store.KindBurn, id, &burn)
}

// saveTicks writes the controller's flagged ticks, spending the event's fee
// refresh budget.
func (h *Handlers) saveTicks(ev *event, ctrl *ticks.Controller) error {
	res, err := ctrl.Save(ev.ctx, ev.chain, ev.budget)
	if err != nil {
		return err
	}
	ev.budget -= res.Refreshed
	h.metrics.RecordRefresh(res.Refreshed, res.Skipped)
	return nil
}
