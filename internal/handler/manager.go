package handler

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hubScope/internal/aggregate"
	"hubScope/internal/hub"
	"hubScope/internal/hubmath"
	"hubScope/internal/model"
	"hubScope/internal/store"
	"hubScope/internal/ticks"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// managerPosition loads the position NFT tokenID, creating it from the
// manager contract on first sight. It returns nil, nil when the manager
// reverts, which happens for positions minted and burned in one block.
func (h *Handlers) managerPosition(ev *event, tokenID *big.Int) (*model.Position, error) {
	id := tokenID.String()
	pos, ok, err := store.Get[model.Position](ev.ctx, ev.sess, store.KindPosition, id)
	if err != nil || ok {
		return pos, err
	}

	onChain, err := ev.chain.ManagerPosition(ev.ctx, tokenID)
	if err != nil {
		if errors.Is(err, hub.ErrReverted) {
			ev.logger.Warn("manager position unavailable", zap.String("token_id", id), zap.Error(err))
			return nil, nil
		}
		return nil, fmt.Errorf("manager position %s: %w", id, err)
	}
	poolID, err := model.PoolID(common.HexToAddress(onChain.Token0), common.HexToAddress(onChain.Token1))
	if err != nil {
		return nil, err
	}
	tierID := model.TierID(poolID, onChain.TierID)
	return &model.Position{
		ID:                      id,
		TokenID:                 new(big.Int).Set(tokenID),
		Owner:                   zeroAddress,
		PoolID:                  poolID,
		TierID:                  tierID,
		Token0:                  onChain.Token0,
		Token1:                  onChain.Token1,
		TickLower:               model.TickID(tierID, onChain.TickLower),
		TickUpper:               model.TickID(tierID, onChain.TickUpper),
		Liquidity:               new(big.Int),
		SettlementSnapshotID:    new(big.Int),
		FeeGrowthInside0LastX64: cloneU256(onChain.FeeGrowthInside0Last),
		FeeGrowthInside1LastX64: cloneU256(onChain.FeeGrowthInside1Last),
		TransactionID:           loadTransaction(ev).ID,
	}, nil
}

// refreshFeeVars copies the manager's fee checkpoints onto pos. A revert
// leaves pos as it was.
func refreshFeeVars(ev *event, pos *model.Position) error {
	onChain, err := ev.chain.ManagerPosition(ev.ctx, pos.TokenID)
	if err != nil {
		if errors.Is(err, hub.ErrReverted) {
			return nil
		}
		return fmt.Errorf("manager position %s: %w", pos.ID, err)
	}
	pos.FeeGrowthInside0LastX64 = cloneU256(onChain.FeeGrowthInside0Last)
	pos.FeeGrowthInside1LastX64 = cloneU256(onChain.FeeGrowthInside1Last)
	if onChain.SettlementSnapshotID != nil {
		pos.SettlementSnapshotID = new(big.Int).Set(onChain.SettlementSnapshotID)
	}
	return nil
}

func savePosition(ev *event, pos *model.Position) {
	store.Put(ev.sess, store.KindPosition, pos.ID, pos)
	id := model.PositionSnapshotID(pos.ID, ev.rec.BlockNumber)
	store.Put(ev.sess, store.KindPositionSnapshot, id, &model.PositionSnapshot{
		ID:                      id,
		PositionID:              pos.ID,
		TokenID:                 pos.TokenID,
		Owner:                   pos.Owner,
		PoolID:                  pos.PoolID,
		TierID:                  pos.TierID,
		BlockNumber:             ev.rec.BlockNumber,
		Timestamp:               ev.rec.Timestamp,
		Liquidity:               new(big.Int).Set(pos.Liquidity),
		LimitOrderType:          pos.LimitOrderType,
		SettlementSnapshotID:    pos.SettlementSnapshotID,
		DepositedToken0:         pos.DepositedToken0,
		DepositedToken1:         pos.DepositedToken1,
		WithdrawnToken0:         pos.WithdrawnToken0,
		WithdrawnToken1:         pos.WithdrawnToken1,
		CollectedFeesToken0:     pos.CollectedFeesToken0,
		CollectedFeesToken1:     pos.CollectedFeesToken1,
		FeeGrowthInside0LastX64: cloneU256(pos.FeeGrowthInside0LastX64),
		FeeGrowthInside1LastX64: cloneU256(pos.FeeGrowthInside1LastX64),
		TransactionID:           loadTransaction(ev).ID,
	})
}

func (h *Handlers) increasePosition(ev *event, le liquidityEvent, e *eventEntities, amount0, amount1 decimal.Decimal) error {
	pos, err := h.managerPosition(ev, le.positionRefID)
	if err != nil || pos == nil {
		return err
	}
	eth := e.bundle.EthPriceUSD
	pos.Liquidity = new(big.Int).Add(pos.Liquidity, hubmath.DecodeLiquidityD8(le.liquidityD8))
	pos.DepositedToken0 = pos.DepositedToken0.Add(amount0)
	pos.DepositedToken1 = pos.DepositedToken1.Add(amount1)
	pos.AmountDepositedUSD = pos.AmountDepositedUSD.Add(aggregate.AmountUSD(amount0, e.token0, amount1, e.token1, eth))
	if err := refreshFeeVars(ev, pos); err != nil {
		return err
	}
	savePosition(ev, pos)
	return nil
}

func (h *Handlers) decreasePosition(ev *event, le liquidityEvent, e *eventEntities, amount0, amount1, fee0, fee1 decimal.Decimal) error {
	pos, err := h.managerPosition(ev, le.positionRefID)
	if err != nil || pos == nil {
		return err
	}
	eth := e.bundle.EthPriceUSD
	pos.Liquidity = new(big.Int).Sub(pos.Liquidity, hubmath.DecodeLiquidityD8(le.liquidityD8))
	pos.WithdrawnToken0 = pos.WithdrawnToken0.Add(amount0)
	pos.WithdrawnToken1 = pos.WithdrawnToken1.Add(amount1)
	pos.AmountWithdrawnUSD = pos.AmountWithdrawnUSD.Add(aggregate.AmountUSD(amount0, e.token0, amount1, e.token1, eth))

	pos.CollectedToken0 = pos.CollectedToken0.Add(fee0)
	pos.CollectedToken1 = pos.CollectedToken1.Add(fee1)
	pos.CollectedFeesToken0 = pos.CollectedToken0.Sub(pos.WithdrawnToken0)
	pos.CollectedFeesToken1 = pos.CollectedToken1.Sub(pos.WithdrawnToken1)
	pos.AmountCollectedUSD = pos.AmountCollectedUSD.Add(aggregate.AmountUSD(fee0, e.token0, fee1, e.token1, eth))
	if err := refreshFeeVars(ev, pos); err != nil {
		return err
	}
	savePosition(ev, pos)
	return nil
}

// transfer follows a position NFT to its new owner. Only Transfer logs of
// the manager reach here.
func (h *Handlers) transfer(ev *event, data model.TransferEventData) error {
	tokenID, err := parseBig("token id", data.TokenID)
	if err != nil {
		return err
	}
	pos, err := h.managerPosition(ev, tokenID)
	if err != nil || pos == nil {
		return err
	}
	pos.Owner = data.To
	savePosition(ev, pos)
	return nil
}

// setLimitOrderType moves the position's liquidity from its old order
// direction to the new one on the end ticks of its range.
func (h *Handlers) setLimitOrderType(ev *event, data model.SetLimitOrderTypeEventData) error {
	positionRefID, err := parseBig("position ref id", data.PositionRefID)
	if err != nil {
		return err
	}
	tier, err := loadTier(ev, data.PoolID, data.TierID)
	if err != nil {
		return err
	}
	id := model.HubPositionID(data.PoolID, common.HexToAddress(data.Owner), positionRefID, data.TierID, data.TickLower, data.TickUpper)
	hubPos, err := store.MustGet[model.HubPosition](ev.ctx, ev.sess, store.KindHubPosition, id)
	if err != nil {
		return err
	}

	if hubPos.LimitOrderType != data.LimitOrderType {
		ctrl := ticks.NewController(ev.sess, tier, ev.rec.BlockNumber, ev.rec.Timestamp)
		liquidity := hubPos.Liquidity
		if liquidity == nil {
			liquidity = new(big.Int)
		}
		if hubPos.LimitOrderType != model.LimitOrderNone {
			if err := ctrl.UpdateLimitOrderData(ev.ctx, data.TickLower, data.TickUpper, hubPos.LimitOrderType, new(big.Int).Neg(liquidity)); err != nil {
				return err
			}
		}
		if data.LimitOrderType != model.LimitOrderNone {
			if err := ctrl.UpdateLimitOrderData(ev.ctx, data.TickLower, data.TickUpper, data.LimitOrderType, liquidity); err != nil {
				return err
			}
		}
		hubPos.LimitOrderType = data.LimitOrderType
		store.Put(ev.sess, store.KindHubPosition, id, hubPos)
		if err := h.saveTicks(ev, ctrl); err != nil {
			return err
		}
	}

	if data.Owner != h.manager || h.manager == "" {
		return nil
	}
	pos, err := h.managerPosition(ev, positionRefID)
	if err != nil || pos == nil {
		return err
	}
	pos.LimitOrderType = data.LimitOrderType
	savePosition(ev, pos)
	return nil
}
