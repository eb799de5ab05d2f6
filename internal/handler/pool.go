package handler

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"hubScope/internal/aggregate"
	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/ticks"
)

var (
	// 100 << 80 and 1 << 64 size the dust a new tier is seeded with.
	baseAmount0Numerator = new(big.Int).Lsh(big.NewInt(100), 80)
	baseAmount1Divisor   = new(big.Int).Lsh(big.NewInt(1), 64)
)

func (h *Handlers) updateDefaultParameters(ev *event, data model.UpdateDefaultParametersEventData) error {
	hub, err := h.getOrCreateHub(ev)
	if err != nil {
		return err
	}
	hub.DefaultTickSpacing = data.TickSpacing
	hub.DefaultProtocolFee = data.ProtocolFee
	return nil
}

func (h *Handlers) poolCreated(ev *event, data model.PoolCreatedEventData) error {
	token0, err := getOrCreateToken(ev, data.Token0)
	if err != nil {
		return err
	}
	token1, err := getOrCreateToken(ev, data.Token1)
	if err != nil {
		return err
	}
	if token0 == nil || token1 == nil {
		ev.logger.Warn("pool skipped", zap.String("pool", data.PoolID))
		return nil
	}

	hub, err := h.getOrCreateHub(ev)
	if err != nil {
		return err
	}
	hub.PoolCount++

	params, err := ev.chain.GetPoolParameters(ev.ctx, data.PoolID)
	if err != nil {
		return fmt.Errorf("pool parameters %s: %w", data.PoolID, err)
	}

	if h.pricing.IsWhitelisted(token0.ID) {
		token1.WhitelistPools = append(token1.WhitelistPools, data.PoolID)
	}
	if h.pricing.IsWhitelisted(token1.ID) {
		token0.WhitelistPools = append(token0.WhitelistPools, data.PoolID)
	}
	token0.PoolCount++
	token1.PoolCount++
	store.Put(ev.sess, store.KindToken, token0.ID, token0)
	store.Put(ev.sess, store.KindToken, token1.ID, token1)

	pool := &model.Pool{
		ID:                   data.PoolID,
		Token0:               token0.ID,
		Token1:               token1.ID,
		CreatedAtTimestamp:   ev.rec.Timestamp,
		CreatedAtBlockNumber: ev.rec.BlockNumber,
		TickSpacing:          params.TickSpacing,
		ProtocolFee:          params.ProtocolFee,
		Liquidity:            new(big.Int),
		TierIDs:              []string{},
	}
	store.Put(ev.sess, store.KindPool, pool.ID, pool)
	return nil
}

func (h *Handlers) updatePool(ev *event, data model.UpdatePoolEventData) error {
	pool, err := store.MustGet[model.Pool](ev.ctx, ev.sess, store.KindPool, data.PoolID)
	if err != nil {
		return err
	}
	pool.TickSpacing = data.TickSpacing
	pool.ProtocolFee = data.ProtocolFee
	store.Put(ev.sess, store.KindPool, pool.ID, pool)
	return nil
}

func (h *Handlers) updateTier(ev *event, data model.UpdateTierEventData) error {
	pool, err := store.MustGet[model.Pool](ev.ctx, ev.sess, store.KindPool, data.PoolID)
	if err != nil {
		return err
	}
	tierID := model.TierID(pool.ID, data.TierID)
	tier, found, err := store.Get[model.Tier](ev.ctx, ev.sess, store.KindTier, tierID)
	if err != nil {
		return err
	}
	if !found {
		tier = &model.Tier{
			ID:                   tierID,
			PoolID:               pool.ID,
			TierIdx:              data.TierID,
			Token0:               pool.Token0,
			Token1:               pool.Token1,
			CreatedAtTimestamp:   ev.rec.Timestamp,
			CreatedAtBlockNumber: ev.rec.BlockNumber,
			Liquidity:            new(big.Int),
			SqrtPrice:            new(uint256.Int),
			NextTickBelow:        hubmath.MinTick,
			NextTickAbove:        hubmath.MaxTick,
			FeeGrowthGlobal0X64:  new(uint256.Int),
			FeeGrowthGlobal1X64:  new(uint256.Int),
		}
	}
	tier.SqrtGamma = data.SqrtGamma
	tier.FeeTier = hubmath.SqrtGammaToFeeTier(data.SqrtGamma)
	tier.LimitOrderTickSpacingMultiplier = data.LimitOrderTickSpacingMultiplier
	store.Put(ev.sess, store.KindTier, tier.ID, tier)
	if found {
		return nil
	}
	return h.initTier(ev, pool, tier)
}

// initTier seeds a new tier: its sentinel ticks, the dust amounts the hub
// locks on creation, and its price.
func (h *Handlers) initTier(ev *event, pool *model.Pool, tier *model.Tier) error {
	e, err := h.loadPool(ev, pool.ID)
	if err != nil {
		return err
	}
	eth := e.bundle.EthPriceUSD

	onChain, err := ev.chain.GetTier(ev.ctx, pool.ID, tier.TierIdx)
	if err != nil {
		return fmt.Errorf("tier %s: %w", tier.ID, err)
	}

	aggregate.DetachTier(e.hub, e.pool, tier)
	e.pool.TierIDs = append(e.pool.TierIDs, tier.ID)

	sqrtPrice := onChain.SqrtPrice
	if sqrtPrice == nil {
		sqrtPrice = new(uint256.Int)
	}
	tier.Liquidity = new(big.Int).Set(hubmath.BaseLiquidity)
	tier.SqrtPrice = new(uint256.Int).Set(sqrtPrice)
	tier.Tick = onChain.Tick
	tier.FeeGrowthGlobal0X64 = cloneU256(onChain.FeeGrowthGlobal0)
	tier.FeeGrowthGlobal1X64 = cloneU256(onChain.FeeGrowthGlobal1)
	tier.Token0Price, tier.Token1Price = hubmath.SqrtPriceX72ToTokenPrices(sqrtPrice, e.token0.Decimals, e.token1.Decimals)

	if !sqrtPrice.IsZero() {
		sp := sqrtPrice.ToBig()
		amount0 := hubmath.ConvertTokenToDecimal(hubmath.CeilDiv(baseAmount0Numerator, sp), e.token0.Decimals)
		amount1 := hubmath.ConvertTokenToDecimal(hubmath.CeilDiv(new(big.Int).Mul(big.NewInt(100), sp), baseAmount1Divisor), e.token1.Decimals)
		aggregate.LockToken(e.token0, amount0, eth)
		aggregate.LockToken(e.token1, amount1, eth)
		tier.Amount0 = tier.Amount0.Add(amount0)
		tier.Amount1 = tier.Amount1.Add(amount1)
	}
	aggregate.RefreshTierTVL(tier, e.token0, e.token1, eth)
	aggregate.AttachTier(e.hub, e.pool, tier, eth)

	ctrl := ticks.NewController(ev.sess, tier, ev.rec.BlockNumber, ev.rec.Timestamp)
	if err := ctrl.SeedSentinels(ev.ctx); err != nil {
		return fmt.Errorf("seed tier %s: %w", tier.ID, err)
	}
	if _, err := ctrl.Save(ev.ctx, nil, 0); err != nil {
		return err
	}

	if err := aggregate.NewIntervals(ev.sess, ev.rec.Timestamp).Touch(ev.ctx, e.hub, e.pool, tier, e.token0, e.token1, eth); err != nil {
		return err
	}
	e.save(ev)
	store.Put(ev.sess, store.KindTier, tier.ID, tier)
	return nil
}

func cloneU256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return new(uint256.Int).Set(v)
}
