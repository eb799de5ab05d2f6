package handler

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"hubScope/internal/aggregate"
	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/ticks"
)

var (
	two        = decimal.NewFromInt(2)
	feeTierOne = decimal.NewFromInt(100_000)
)

// swapTier is one tier's share of a swap.
type swapTier struct {
	idx        int
	tier       *model.Tier
	data       *uint256.Int
	inPercent  decimal.Decimal
	outPercent decimal.Decimal
	pct0       decimal.Decimal
	pct1       decimal.Decimal
	feesUSD    decimal.Decimal
	ctrl       *ticks.Controller
}

func (s *swapTier) active() bool { return !s.data.IsZero() }

func (h *Handlers) swap(ev *event, data model.SwapEventData) error {
	e, err := h.loadPool(ev, data.PoolID)
	if err != nil {
		return err
	}
	rawAmount0, err := parseBig("amount0", data.Amount0)
	if err != nil {
		return err
	}
	rawAmount1, err := parseBig("amount1", data.Amount1)
	if err != nil {
		return err
	}
	inDist, err := parseU256("amount in distribution", data.AmountInDistribution)
	if err != nil {
		return err
	}
	outDist, err := parseU256("amount out distribution", data.AmountOutDistribution)
	if err != nil {
		return err
	}
	senderAcc, err := parseBig("sender account", data.SenderAccRefID)
	if err != nil {
		return err
	}
	recipientAcc, err := parseBig("recipient account", data.RecipientAccRefID)
	if err != nil {
		return err
	}

	eth := e.bundle.EthPriceUSD
	amount0 := hubmath.ConvertTokenToDecimal(rawAmount0, e.token0.Decimals)
	amount1 := hubmath.ConvertTokenToDecimal(rawAmount1, e.token1.Decimals)
	amount0Abs, amount1Abs := amount0.Abs(), amount1.Abs()

	// half of tracked volume, since input and output would otherwise both count
	trackedUSD := h.pricing.TrackedAmountUSD(amount0Abs, e.token0, amount1Abs, e.token1, eth).Div(two)
	trackedETH := hubmath.SafeDiv(trackedUSD, eth)
	usd0 := amount0Abs.Mul(e.token0.DerivedETH).Mul(eth)
	usd1 := amount1Abs.Mul(e.token1.DerivedETH).Mul(eth)
	untrackedUSD := usd0.Add(usd1).Div(two)

	// the distribution words are ordered in/out; map them onto token0/token1
	dist0, dist1 := inDist, outDist
	if amount0.IsNegative() || amount1.IsPositive() {
		dist0, dist1 = outDist, inDist
	}

	feesETH, feesUSD := decimal.Zero, decimal.Zero
	tiers := make([]*swapTier, 0, len(data.TierData))
	for i, raw := range data.TierData {
		word, err := parseU256(fmt.Sprintf("tier data %d", i), raw)
		if err != nil {
			return err
		}
		tier, err := loadTier(ev, e.pool.ID, uint8(i))
		if err != nil {
			return err
		}
		st := &swapTier{
			idx:        i,
			tier:       tier,
			data:       word,
			inPercent:  hubmath.AmountDistributionAt(inDist, i),
			outPercent: hubmath.AmountDistributionAt(outDist, i),
			pct0:       hubmath.AmountDistributionAt(dist0, i),
			pct1:       hubmath.AmountDistributionAt(dist1, i),
			feesUSD:    decimal.Zero,
		}
		tiers = append(tiers, st)
		if !st.active() {
			continue
		}

		feeRate := decimal.NewFromInt(int64(tier.FeeTier)).Div(feeTierOne)
		tierFeesETH := trackedETH.Mul(st.inPercent).Mul(feeRate)
		st.feesUSD = trackedUSD.Mul(st.inPercent).Mul(feeRate)

		tier.VolumeToken0 = tier.VolumeToken0.Add(amount0Abs.Mul(st.pct0))
		tier.VolumeToken1 = tier.VolumeToken1.Add(amount1Abs.Mul(st.pct1))
		tier.VolumeUSD = tier.VolumeUSD.Add(trackedUSD.Mul(st.inPercent))
		tier.UntrackedVolumeUSD = tier.UntrackedVolumeUSD.Add(untrackedUSD.Mul(st.inPercent))
		tier.FeesUSD = tier.FeesUSD.Add(st.feesUSD)
		tier.TxCount++
		tier.Amount0 = tier.Amount0.Add(amount0.Mul(st.pct0))
		tier.Amount1 = tier.Amount1.Add(amount1.Mul(st.pct1))

		liquidity, sqrtPrice := hubmath.DecodeTierData(word)
		st.ctrl = ticks.NewController(ev.sess, tier, ev.rec.BlockNumber, ev.rec.Timestamp)
		res, err := st.ctrl.Cross(ev.ctx, liquidity.ToBig(), sqrtPrice)
		if err != nil {
			return fmt.Errorf("cross tier %s: %w", tier.ID, err)
		}
		h.metrics.TicksCrossed.Add(float64(res.Crossed))
		h.metrics.OrdersSettled.Add(float64(res.Settled))
		tier.Token0Price, tier.Token1Price = hubmath.SqrtPriceX72ToTokenPrices(tier.SqrtPrice, e.token0.Decimals, e.token1.Decimals)

		feesETH = feesETH.Add(tierFeesETH)
		feesUSD = feesUSD.Add(st.feesUSD)
	}

	liquidity := new(big.Int)
	for _, st := range tiers {
		liquidity.Add(liquidity, bigOr(st.tier.Liquidity))
	}

	e.hub.TxCount++
	e.hub.TotalVolumeETH = e.hub.TotalVolumeETH.Add(trackedETH)
	e.hub.TotalVolumeUSD = e.hub.TotalVolumeUSD.Add(trackedUSD)
	e.hub.UntrackedVolumeUSD = e.hub.UntrackedVolumeUSD.Add(untrackedUSD)
	e.hub.TotalFeesETH = e.hub.TotalFeesETH.Add(feesETH)
	e.hub.TotalFeesUSD = e.hub.TotalFeesUSD.Add(feesUSD)

	for _, side := range []struct {
		token  *model.Token
		amount decimal.Decimal
		abs    decimal.Decimal
	}{{e.token0, amount0, amount0Abs}, {e.token1, amount1, amount1Abs}} {
		side.token.Volume = side.token.Volume.Add(side.abs)
		side.token.AmountLocked = side.token.AmountLocked.Add(side.amount)
		side.token.VolumeUSD = side.token.VolumeUSD.Add(trackedUSD)
		side.token.UntrackedVolumeUSD = side.token.UntrackedVolumeUSD.Add(untrackedUSD)
		side.token.FeesUSD = side.token.FeesUSD.Add(feesUSD)
		side.token.TxCount++
	}

	e.hub.TotalValueLockedETH = e.hub.TotalValueLockedETH.Sub(e.pool.TotalValueLockedETH)
	e.pool.VolumeToken0 = e.pool.VolumeToken0.Add(amount0Abs)
	e.pool.VolumeToken1 = e.pool.VolumeToken1.Add(amount1Abs)
	e.pool.VolumeUSD = e.pool.VolumeUSD.Add(trackedUSD)
	e.pool.UntrackedVolumeUSD = e.pool.UntrackedVolumeUSD.Add(untrackedUSD)
	e.pool.FeesUSD = e.pool.FeesUSD.Add(feesUSD)
	e.pool.TxCount++
	e.pool.Liquidity = liquidity
	e.pool.Amount0 = e.pool.Amount0.Add(amount0)
	e.pool.Amount1 = e.pool.Amount1.Add(amount1)
	for _, st := range tiers {
		store.Put(ev.sess, store.KindTier, st.tier.ID, st.tier)
	}

	// reprice with the tier prices this swap produced
	if eth, err = h.pricing.EthPriceInUSD(ev.ctx, ev.sess); err != nil {
		return err
	}
	e.bundle.EthPriceUSD = eth
	if e.token0.DerivedETH, err = h.pricing.FindEthPerToken(ev.ctx, ev.sess, e.token0, eth); err != nil {
		return err
	}
	if e.token1.DerivedETH, err = h.pricing.FindEthPerToken(ev.ctx, ev.sess, e.token1, eth); err != nil {
		return err
	}

	for _, st := range tiers {
		if st.active() {
			onChain, err := ev.chain.GetTier(ev.ctx, e.pool.ID, st.tier.TierIdx)
			if err != nil {
				return fmt.Errorf("tier %s: %w", st.tier.ID, err)
			}
			st.tier.FeeGrowthGlobal0X64 = cloneU256(onChain.FeeGrowthGlobal0)
			st.tier.FeeGrowthGlobal1X64 = cloneU256(onChain.FeeGrowthGlobal1)
		}
		aggregate.RefreshTierTVL(st.tier, e.token0, e.token1, eth)
	}
	aggregate.RefreshPoolTVL(e.pool, e.token0, e.token1, eth)
	aggregate.AttachPool(e.hub, e.pool, eth)
	aggregate.RefreshTokenTVL(e.token0, eth)
	aggregate.RefreshTokenTVL(e.token1, eth)

	tx := loadTransaction(ev)
	swap := &model.Swap{
		ID:            model.EventID(tx.ID, e.pool.TxCount),
		TransactionID: tx.ID,
		Timestamp:     tx.Timestamp,
		PoolID:        e.pool.ID,
		Token0:        e.pool.Token0,
		Token1:        e.pool.Token1,
		Sender:        data.Sender,
		Recipient:     data.Recipient,
		Origin:        tx.From,
		Amount0:       amount0,
		Amount1:       amount1,
		AmountUSD:     trackedUSD,
		LogIndex:      ev.rec.LogIndex,
	}
	store.Put(ev.sess, store.KindSwap, swap.ID, swap)

	iv := aggregate.NewIntervals(ev.sess, ev.rec.Timestamp)
	for _, st := range tiers {
		if !st.active() {
			continue
		}
		tierUSD := trackedUSD.Mul(st.inPercent)
		id := model.SwapTierDataID(swap.ID, st.idx)
		store.Put(ev.sess, store.KindSwapTierData, id, &model.SwapTierData{
			ID:               id,
			SwapID:           swap.ID,
			TierID:           st.tier.ID,
			Timestamp:        tx.Timestamp,
			AmountInPercent:  st.inPercent,
			AmountOutPercent: st.outPercent,
			Amount0:          amount0.Mul(st.pct0),
			Amount1:          amount1.Mul(st.pct1),
			AmountUSD:        tierUSD,
			SqrtPriceAfter:   cloneU256(st.tier.SqrtPrice),
			TickAfter:        st.tier.Tick,
		})

		day, hour, err := iv.Tier(ev.ctx, st.tier)
		if err != nil {
			return err
		}
		for _, bucket := range []*model.TierIntervalData{day, hour} {
			bucket.VolumeUSD = bucket.VolumeUSD.Add(tierUSD)
			bucket.VolumeToken0 = bucket.VolumeToken0.Add(amount0Abs.Mul(st.pct0))
			bucket.VolumeToken1 = bucket.VolumeToken1.Add(amount1Abs.Mul(st.pct1))
			bucket.FeesUSD = bucket.FeesUSD.Add(st.feesUSD)
		}
	}

	hubDay, err := iv.Hub(ev.ctx, e.hub)
	if err != nil {
		return err
	}
	hubDay.VolumeETH = hubDay.VolumeETH.Add(trackedETH)
	hubDay.VolumeUSD = hubDay.VolumeUSD.Add(trackedUSD)
	hubDay.VolumeUSDUntracked = hubDay.VolumeUSDUntracked.Add(untrackedUSD)
	hubDay.FeesUSD = hubDay.FeesUSD.Add(feesUSD)

	poolDay, poolHour, err := iv.Pool(ev.ctx, e.pool)
	if err != nil {
		return err
	}
	for _, bucket := range []*model.PoolIntervalData{poolDay, poolHour} {
		bucket.VolumeUSD = bucket.VolumeUSD.Add(trackedUSD)
		bucket.VolumeToken0 = bucket.VolumeToken0.Add(amount0Abs)
		bucket.VolumeToken1 = bucket.VolumeToken1.Add(amount1Abs)
		bucket.FeesUSD = bucket.FeesUSD.Add(feesUSD)
	}

	for _, side := range []struct {
		token *model.Token
		abs   decimal.Decimal
	}{{e.token0, amount0Abs}, {e.token1, amount1Abs}} {
		day, hour, err := iv.Token(ev.ctx, side.token, eth)
		if err != nil {
			return err
		}
		for _, bucket := range []*model.TokenIntervalData{day, hour} {
			bucket.Volume = bucket.Volume.Add(side.abs)
			bucket.VolumeUSD = bucket.VolumeUSD.Add(trackedUSD)
			// token buckets book tracked volume as untracked as well
			bucket.UntrackedVolumeUSD = bucket.UntrackedVolumeUSD.Add(trackedUSD)
			bucket.FeesUSD = bucket.FeesUSD.Add(feesUSD)
		}
	}
	e.save(ev)

	for _, st := range tiers {
		if st.ctrl == nil {
			continue
		}
		if err := h.saveTicks(ev, st.ctrl); err != nil {
			return err
		}
	}

	if amount0.IsNegative() {
		if err := refreshBalance(ev, e.token1, data.Sender, senderAcc); err != nil {
			return err
		}
		return refreshBalance(ev, e.token0, data.Recipient, recipientAcc)
	}
	if err := refreshBalance(ev, e.token0, data.Sender, senderAcc); err != nil {
		return err
	}
	return refreshBalance(ev, e.token1, data.Recipient, recipientAcc)
}

func bigOr(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
