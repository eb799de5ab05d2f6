package aggregate

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"hubScope/internal/model"
)

func TestDetachAttachTier(t *testing.T) {
	eth := dec("2000")
	token0 := &model.Token{ID: uniAddr, DerivedETH: dec("0.005")}
	token1 := &model.Token{ID: wethAddr, DerivedETH: decimal.NewFromInt(1)}

	tier := &model.Tier{Liquidity: big.NewInt(100), Amount0: dec("200"), Amount1: dec("3")}
	RefreshTierTVL(tier, token0, token1, eth)
	assert.True(t, tier.TotalValueLockedETH.Equal(dec("4")))
	assert.True(t, tier.TotalValueLockedUSD.Equal(dec("8000")))

	other := &model.Tier{Liquidity: big.NewInt(50), Amount0: dec("100"), Amount1: dec("1")}
	RefreshTierTVL(other, token0, token1, eth)

	hub := &model.Hub{}
	pool := &model.Pool{}
	AttachTier(hub, pool, tier, eth)
	AttachTier(hub, pool, other, eth)
	assert.Equal(t, big.NewInt(150), pool.Liquidity)
	assert.True(t, pool.TotalValueLockedETH.Equal(dec("5.5")))
	// each attach re-adds the whole pool to the hub
	hub.TotalValueLockedETH = pool.TotalValueLockedETH

	DetachTier(hub, pool, tier)
	assert.True(t, hub.TotalValueLockedETH.IsZero())
	assert.Equal(t, big.NewInt(50), pool.Liquidity)
	assert.True(t, pool.Amount0.Equal(dec("100")))

	tier.Liquidity = big.NewInt(130)
	tier.Amount1 = dec("4")
	RefreshTierTVL(tier, token0, token1, eth)
	AttachTier(hub, pool, tier, eth)

	assert.Equal(t, big.NewInt(180), pool.Liquidity)
	assert.True(t, pool.TotalValueLockedETH.Equal(dec("6.5")))
	assert.True(t, hub.TotalValueLockedETH.Equal(dec("6.5")))
	assert.True(t, hub.TotalValueLockedUSD.Equal(dec("13000")))
}

func TestLockToken(t *testing.T) {
	token := &model.Token{DerivedETH: dec("0.5"), AmountLocked: dec("10")}
	LockToken(token, dec("-4"), dec("100"))
	assert.True(t, token.AmountLocked.Equal(dec("6")))
	assert.True(t, token.TotalValueLockedUSD.Equal(dec("300")))
}
