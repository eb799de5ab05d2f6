package aggregate

import (
	"math/big"

	"github.com/shopspring/decimal"

	"hubScope/internal/model"
)

// DetachTier removes a tier's contribution from its pool and the pool's from
// the hub, so the tier can be changed and reattached with AttachTier.
func DetachTier(hub *model.Hub, pool *model.Pool, tier *model.Tier) {
	hub.TotalValueLockedETH = hub.TotalValueLockedETH.Sub(pool.TotalValueLockedETH)
	pool.TotalValueLockedETH = pool.TotalValueLockedETH.Sub(tier.TotalValueLockedETH)
	pool.Liquidity = new(big.Int).Sub(bigOrZero(pool.Liquidity), bigOrZero(tier.Liquidity))
	pool.Amount0 = pool.Amount0.Sub(tier.Amount0)
	pool.Amount1 = pool.Amount1.Sub(tier.Amount1)
}

// AttachTier adds a tier's contribution back and reprices the pool and hub
// TVL in USD.
func AttachTier(hub *model.Hub, pool *model.Pool, tier *model.Tier, ethPriceUSD decimal.Decimal) {
	pool.Liquidity = new(big.Int).Add(bigOrZero(pool.Liquidity), bigOrZero(tier.Liquidity))
	pool.Amount0 = pool.Amount0.Add(tier.Amount0)
	pool.Amount1 = pool.Amount1.Add(tier.Amount1)
	pool.TotalValueLockedETH = pool.TotalValueLockedETH.Add(tier.TotalValueLockedETH)
	pool.TotalValueLockedUSD = pool.TotalValueLockedETH.Mul(ethPriceUSD)
	AttachPool(hub, pool, ethPriceUSD)
}

// AttachPool adds a pool's TVL back to the hub.
func AttachPool(hub *model.Hub, pool *model.Pool, ethPriceUSD decimal.Decimal) {
	hub.TotalValueLockedETH = hub.TotalValueLockedETH.Add(pool.TotalValueLockedETH)
	hub.TotalValueLockedUSD = hub.TotalValueLockedETH.Mul(ethPriceUSD)
}

// RefreshTierTVL values the tier's token amounts at the tokens' derived prices.
func RefreshTierTVL(tier *model.Tier, token0, token1 *model.Token, ethPriceUSD decimal.Decimal) {
	tier.TotalValueLockedETH = tier.Amount0.Mul(token0.DerivedETH).Add(tier.Amount1.Mul(token1.DerivedETH))
	tier.TotalValueLockedUSD = tier.TotalValueLockedETH.Mul(ethPriceUSD)
}

// RefreshPoolTVL values the pool's token amounts at the tokens' derived prices.
func RefreshPoolTVL(pool *model.Pool, token0, token1 *model.Token, ethPriceUSD decimal.Decimal) {
	pool.TotalValueLockedETH = pool.Amount0.Mul(token0.DerivedETH).Add(pool.Amount1.Mul(token1.DerivedETH))
	pool.TotalValueLockedUSD = pool.TotalValueLockedETH.Mul(ethPriceUSD)
}

// LockToken moves amount into (or, when negative, out of) the token's locked
// balance and reprices it.
func LockToken(token *model.Token, amount decimal.Decimal, ethPriceUSD decimal.Decimal) {
	token.AmountLocked = token.AmountLocked.Add(amount)
	RefreshTokenTVL(token, ethPriceUSD)
}

func RefreshTokenTVL(token *model.Token, ethPriceUSD decimal.Decimal) {
	token.TotalValueLockedUSD = token.AmountLocked.Mul(token.DerivedETH.Mul(ethPriceUSD))
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
